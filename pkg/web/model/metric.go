// Copyright 2025 Alibaba Group Holding Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import "time"

// SystemInfo represents host resource facts
type SystemInfo struct {
	TotalMemoryMiB     int64   `json:"total_memory_mib"`
	UsedMemoryMiB      int64   `json:"used_memory_mib"`
	FreeMemoryMiB      int64   `json:"free_memory_mib"`
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
	CpuCount           int     `json:"cpu_count"`
	CpuUsedPct         float64 `json:"cpu_used_pct"`
	OS                 string  `json:"os"`
	Platform           string  `json:"platform,omitempty"`
	PlatformVersion    string  `json:"platform_version,omitempty"`
	Arch               string  `json:"arch"`
	Hostname           string  `json:"hostname,omitempty"`
	Timestamp          int64   `json:"timestamp"`
}

func NewSystemInfo() *SystemInfo {
	return &SystemInfo{
		Timestamp: time.Now().UnixMilli(),
	}
}
