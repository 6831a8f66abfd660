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
	"sync"
	"time"

	"github.com/alibaba/opensandbox/procmon/pkg/sampler"
)

type fakeSampler struct {
	records []sampler.ProcessRecord
	err     error
}

func (f *fakeSampler) Sample(context.Context) ([]sampler.ProcessRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	records := make([]sampler.ProcessRecord, len(f.records))
	copy(records, f.records)
	return records, nil
}

type fakeTerminator struct {
	mu   sync.Mutex
	pids []int
	err  error
}

func (f *fakeTerminator) Terminate(pid int, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pids = append(f.pids, pid)
	return f.err
}

func (f *fakeTerminator) killed() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pids...)
}

type fakeFacts struct {
	facts sampler.SystemFacts
	err   error
}

func (f *fakeFacts) Facts(context.Context) (sampler.SystemFacts, error) {
	return f.facts, f.err
}

var testRecords = []sampler.ProcessRecord{
	{Pid: 4, Name: "System", CPU: 0.1, Memory: 1, ParentPid: 0, IsBackgroundProcess: true},
	{Pid: 1200, Name: "chrome.exe", CPU: 12.5, Memory: 350, ParentPid: 900, IsBackgroundProcess: false},
	{Pid: 1300, Name: "Notepad.exe", CPU: 0, Memory: 12, ParentPid: 900, IsBackgroundProcess: false},
	{Pid: 1201, Name: "Chrome.exe", CPU: 3.25, Memory: 120, ParentPid: 1200, IsBackgroundProcess: false},
}

var testFacts = sampler.SystemFacts{
	TotalMemory: 8192 * 1024 * 1024,
	FreeMemory:  2048 * 1024 * 1024,
	CoreCount:   8,
	OS:          "windows",
	Platform:    "Microsoft Windows 11 Pro",
	KernelArch:  "x86_64",
	Hostname:    "desk",
}

// initFakeMonitor installs fakes behind the package-level pipeline.
func initFakeMonitor(s *fakeSampler, t *fakeTerminator, interval time.Duration) {
	InitProcessMonitor(s, &fakeFacts{facts: testFacts}, t, interval)
}
