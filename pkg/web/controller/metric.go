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

package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/cpu"

	"github.com/alibaba/opensandbox/procmon/pkg/log"
	"github.com/alibaba/opensandbox/procmon/pkg/web/model"
)

const bytesPerMiB = 1024 * 1024

// MetricController handles host facts requests
type MetricController struct {
	*basicController
}

func NewMetricController(ctx *gin.Context) *MetricController {
	return &MetricController{basicController: newBasicController(ctx)}
}

// GetSystemInfo returns current host memory, cpu and platform facts
func (c *MetricController) GetSystemInfo() {
	info, err := c.readSystemInfo(c.ctx.Request.Context())
	if err != nil {
		c.RespondError(
			http.StatusInternalServerError,
			model.ErrorCodeRuntimeError,
			fmt.Sprintf("error reading system info. %v", err),
		)
		return
	}

	c.RespondSuccess(info)
}

// WatchSystemInfo streams host facts once per second
func (c *MetricController) WatchSystemInfo() {
	c.setupSSEResponse()

	for {
		select {
		case <-c.ctx.Request.Context().Done():
			return
		case <-time.After(time.Second * 1):
			func() {
				if flusher, ok := c.ctx.Writer.(http.Flusher); ok {
					defer flusher.Flush()
				}
				var msg []byte
				info, err := c.readSystemInfo(c.ctx.Request.Context())
				if err != nil {
					msg, _ = json.Marshal(map[string]string{ //nolint:errchkjson
						"error": err.Error(),
					})
				} else {
					msg, _ = json.Marshal(info) //nolint:errchkjson
				}
				if _, err := c.ctx.Writer.Write(append(msg, '\n')); err != nil {
					log.Error("WatchSystemInfo write data %s error: %v", string(msg), err)
				}
			}()
		}
	}
}

// readSystemInfo reads fresh host facts and converts them to MiB figures
func (c *MetricController) readSystemInfo(ctx context.Context) (*model.SystemInfo, error) {
	facts, err := factsSource.Facts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read system facts: %w", err)
	}

	info := model.NewSystemInfo()
	info.TotalMemoryMiB = int64(math.Round(float64(facts.TotalMemory) / bytesPerMiB))
	info.FreeMemoryMiB = int64(math.Round(float64(facts.FreeMemory) / bytesPerMiB))
	info.UsedMemoryMiB = int64(math.Round(float64(facts.UsedMemory()) / bytesPerMiB))
	if facts.TotalMemory > 0 {
		pct := float64(facts.UsedMemory()) / float64(facts.TotalMemory) * 100
		info.MemoryUsagePercent = math.Round(pct*100) / 100
	}
	info.CpuCount = facts.CoreCount
	info.OS = facts.OS
	info.Platform = facts.Platform
	info.PlatformVersion = facts.PlatformVersion
	info.Arch = facts.KernelArch
	info.Hostname = facts.Hostname

	// interval 0 compares against the previous call, so no sampling delay is added
	if cpuPercent, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(cpuPercent) > 0 {
		info.CpuUsedPct = math.Round(cpuPercent[0]*100) / 100
	}
	return info, nil
}
