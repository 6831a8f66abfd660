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

package sampler

import (
	"context"
	"errors"
)

// ErrSourceUnavailable is returned when an OS introspection call fails during a sampling pass.
var ErrSourceUnavailable = errors.New("source unavailable")

// ProcessSample is one entry of the raw process listing.
// ParentPid may reference a pid that is not part of the same listing.
type ProcessSample struct {
	Pid       int32
	Name      string
	ParentPid int32
}

// UsageSample holds the raw usage figures reported for a pid.
type UsageSample struct {
	// CPU is a percentage where 100 means one fully busy core.
	CPU float64
	// Memory is the resident set size in bytes.
	Memory uint64
}

// SystemFacts are host-wide figures read at the start of every pass.
type SystemFacts struct {
	TotalMemory     uint64
	FreeMemory      uint64
	CoreCount       int
	OS              string
	Platform        string
	PlatformVersion string
	KernelArch      string
	Hostname        string
}

// UsedMemory returns TotalMemory minus FreeMemory, floored at zero.
func (f SystemFacts) UsedMemory() uint64 {
	if f.FreeMemory >= f.TotalMemory {
		return 0
	}
	return f.TotalMemory - f.FreeMemory
}

// ProcessRecord is the normalized view of one process for a single sampling pass.
type ProcessRecord struct {
	Pid                 int32   `json:"pid"`
	Name                string  `json:"name"`
	CPU                 float64 `json:"cpu"`
	Memory              int64   `json:"memory"`
	ParentPid           int32   `json:"ppid"`
	IsBackgroundProcess bool    `json:"isBackgroundProcess"`
}

// ProcessSource lists the processes currently running on the host.
type ProcessSource interface {
	ListProcesses(ctx context.Context) ([]ProcessSample, error)
}

// UsageSource reports usage for a set of pids. Pids that exited in the
// meantime may be missing from the returned map.
type UsageSource interface {
	UsageFor(ctx context.Context, pids []int32) (map[int32]UsageSample, error)
}

// FactsSource reads host memory, cpu and platform facts.
type FactsSource interface {
	Facts(ctx context.Context) (SystemFacts, error)
}
