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
	"math"
)

const bytesPerMegabyte = 1024 * 1024

// Normalizer combines the process, usage and facts sources into bounded,
// classified process records.
type Normalizer struct {
	processes ProcessSource
	usage     UsageSource
	facts     FactsSource
}

func NewNormalizer(processes ProcessSource, usage UsageSource, facts FactsSource) *Normalizer {
	return &Normalizer{
		processes: processes,
		usage:     usage,
		facts:     facts,
	}
}

// Sample runs one sampling pass. Either every record of the pass is returned
// or an error wrapping ErrSourceUnavailable.
func (n *Normalizer) Sample(ctx context.Context) ([]ProcessRecord, error) {
	procs, err := n.processes.ListProcesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list processes: %v", ErrSourceUnavailable, err)
	}

	facts, err := n.facts.Facts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read system facts: %v", ErrSourceUnavailable, err)
	}

	pids := make([]int32, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.Pid)
	}

	usage, err := n.usage.UsageFor(ctx, pids)
	if err != nil {
		return nil, fmt.Errorf("%w: read process usage: %v", ErrSourceUnavailable, err)
	}

	factor := scalingFactor(facts.UsedMemory(), usage)
	maxCPU := 100 * float64(facts.CoreCount)

	records := make([]ProcessRecord, 0, len(procs))
	for _, p := range procs {
		u, ok := usage[p.Pid]
		if !ok {
			u = UsageSample{}
		}
		records = append(records, ProcessRecord{
			Pid:                 p.Pid,
			Name:                p.Name,
			CPU:                 round2(clampCPU(u.CPU, maxCPU)),
			Memory:              toMegabytes(u.Memory, factor),
			ParentPid:           p.ParentPid,
			IsBackgroundProcess: IsBackgroundProcess(p.Name),
		})
	}
	return records, nil
}

// scalingFactor shrinks per-process memory so that its sum does not exceed
// the memory the host reports as used. Shared pages are counted once per
// process by most usage sources, so the raw sum is usually too high. The
// result is an approximation that keeps relative proportions.
func scalingFactor(usedMemory uint64, usage map[int32]UsageSample) float64 {
	var reported float64
	for _, u := range usage {
		reported += float64(u.Memory)
	}

	used := float64(usedMemory)
	if reported > used && reported > 0 {
		return used / reported
	}
	return 1
}

func clampCPU(cpu, maxCPU float64) float64 {
	switch {
	case math.IsNaN(cpu) || cpu < 0:
		return 0
	case cpu > maxCPU:
		return maxCPU
	default:
		return cpu
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toMegabytes(raw uint64, factor float64) int64 {
	mb := math.Round(float64(raw) * factor / bytesPerMegabyte)
	if mb < 0 {
		return 0
	}
	return int64(mb)
}
