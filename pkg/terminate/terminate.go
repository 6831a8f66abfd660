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

// Package terminate asks the operating system to stop a process.
package terminate

import (
	"errors"
	"fmt"
)

var errNonPositivePid = errors.New("pid must be a positive integer")

// Terminator stops processes by pid. Implementations differ per platform.
type Terminator interface {
	// Terminate requests termination of pid. force asks for an immediate,
	// non-catchable kill where the platform distinguishes the two.
	Terminate(pid int, force bool) error
}

// TerminationError reports that the OS refused or failed to terminate a process.
type TerminationError struct {
	Pid    int
	Reason error
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("failed to terminate process %d: %v", e.Pid, e.Reason)
}

func (e *TerminationError) Unwrap() error {
	return e.Reason
}

// OSTerminator terminates processes of the local host.
type OSTerminator struct{}

func NewOSTerminator() *OSTerminator {
	return &OSTerminator{}
}
