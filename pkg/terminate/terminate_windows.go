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

//go:build windows
// +build windows

package terminate

import (
	"golang.org/x/sys/windows"

	"github.com/alibaba/opensandbox/procmon/pkg/log"
)

// Terminate calls TerminateProcess. Windows has no graceful variant for
// arbitrary processes, so force makes no difference.
func (t *OSTerminator) Terminate(pid int, _ bool) error {
	if pid <= 0 {
		return &TerminationError{Pid: pid, Reason: errNonPositivePid}
	}

	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return &TerminationError{Pid: pid, Reason: err}
	}
	defer windows.CloseHandle(handle) //nolint:errcheck

	log.Warn("Terminating process %d", pid)
	if err := windows.TerminateProcess(handle, 1); err != nil {
		return &TerminationError{Pid: pid, Reason: err}
	}
	return nil
}
