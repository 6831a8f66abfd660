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
	"fmt"
	goruntime "runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"

	"github.com/alibaba/opensandbox/procmon/pkg/log"
)

// HostProcessSource lists processes of the local host through gopsutil.
type HostProcessSource struct{}

func (HostProcessSource) ListProcesses(ctx context.Context) ([]ProcessSample, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	samples := make([]ProcessSample, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// the process most likely exited after the listing
			log.Debug("skipping pid %d: %v", p.Pid, err)
			continue
		}
		ppid, err := p.PpidWithContext(ctx)
		if err != nil {
			ppid = 0
		}
		samples = append(samples, ProcessSample{
			Pid:       p.Pid,
			Name:      name,
			ParentPid: ppid,
		})
	}
	return samples, nil
}

// HostUsageSource reads per-process CPU and resident memory through gopsutil.
// CPU is the average since process start, 100 per fully busy core.
type HostUsageSource struct{}

func (HostUsageSource) UsageFor(ctx context.Context, pids []int32) (map[int32]UsageSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	usage := make(map[int32]UsageSample, len(pids))
	for _, pid := range pids {
		p, err := process.NewProcessWithContext(ctx, pid)
		if err != nil {
			continue
		}

		var sample UsageSample
		if cpuPct, err := p.CPUPercentWithContext(ctx); err == nil {
			sample.CPU = cpuPct
		}
		if memInfo, err := p.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			sample.Memory = memInfo.RSS
		}
		usage[pid] = sample
	}
	return usage, nil
}

// HostFactsSource reads memory, cpu and platform facts of the local host.
type HostFactsSource struct{}

func (HostFactsSource) Facts(ctx context.Context) (SystemFacts, error) {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemFacts{}, fmt.Errorf("failed to get memory info: %w", err)
	}

	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cores <= 0 {
		cores = goruntime.NumCPU()
	}

	facts := SystemFacts{
		TotalMemory: vmStat.Total,
		FreeMemory:  vmStat.Available,
		CoreCount:   cores,
		OS:          goruntime.GOOS,
		KernelArch:  goruntime.GOARCH,
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		facts.OS = info.OS
		facts.Platform = info.Platform
		facts.PlatformVersion = info.PlatformVersion
		facts.Hostname = info.Hostname
		if info.KernelArch != "" {
			facts.KernelArch = info.KernelArch
		}
	} else {
		log.Warn("failed to read host info: %v", err)
	}
	return facts, nil
}

// NewHostNormalizer wires a Normalizer to the local host.
func NewHostNormalizer() *Normalizer {
	return NewNormalizer(HostProcessSource{}, HostUsageSource{}, HostFactsSource{})
}
