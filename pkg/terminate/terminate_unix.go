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

//go:build !windows
// +build !windows

package terminate

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"github.com/alibaba/opensandbox/procmon/pkg/log"
)

var errStillRunning = errors.New("process still running")

var killConfirmBackoff = wait.Backoff{
	Steps:    5,
	Duration: 20 * time.Millisecond,
	Factor:   2,
	Jitter:   0.1,
}

// Terminate sends SIGTERM, or SIGKILL when force is set.
func (t *OSTerminator) Terminate(pid int, force bool) error {
	if pid <= 0 {
		return &TerminationError{Pid: pid, Reason: errNonPositivePid}
	}

	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}

	log.Warn("Sending %s to process %d", unix.SignalName(sig), pid)
	if err := unix.Kill(pid, sig); err != nil {
		return &TerminationError{Pid: pid, Reason: err}
	}

	if force {
		t.confirmKilled(pid)
	}
	return nil
}

// confirmKilled probes pid until it disappears. A process that outlives the
// probes is usually a zombie waiting for its parent, so it is only logged.
func (t *OSTerminator) confirmKilled(pid int) {
	err := retry.OnError(killConfirmBackoff, func(err error) bool {
		return errors.Is(err, errStillRunning)
	}, func() error {
		if err := unix.Kill(pid, 0); errors.Is(err, unix.ESRCH) {
			return nil
		}
		return errStillRunning
	})
	if err != nil {
		log.Warn("Process %d still present after SIGKILL", pid)
		return
	}
	log.Info("Process %d confirmed terminated", pid)
}
