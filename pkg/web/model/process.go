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

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// KillProcessRequest asks for termination of a process.
type KillProcessRequest struct {
	Pid   int  `json:"pid" validate:"required,gt=0"`
	Force bool `json:"force,omitempty"`
}

func (r *KillProcessRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// KillProcessResponse acknowledges a successful one-shot kill.
type KillProcessResponse struct {
	Success bool   `json:"success"`
	Pid     int    `json:"pid"`
	Message string `json:"message"`
}

type StreamEventType string

const (
	// StreamEventProcessData carries a full process snapshot.
	StreamEventProcessData StreamEventType = "processData"
	// StreamEventProcessKilled acknowledges a kill request.
	StreamEventProcessKilled StreamEventType = "processKilled"
	// StreamEventKillProcess is sent by clients to request a kill.
	StreamEventKillProcess StreamEventType = "killProcess"
)

// ServerStreamEvent is pushed to streaming clients.
type ServerStreamEvent struct {
	Event StreamEventType `json:"event"`
	Data  any             `json:"data,omitempty"`
}

// ToJSON serializes the event for streaming.
func (s ServerStreamEvent) ToJSON() []byte {
	bytes, _ := json.Marshal(s)
	return bytes
}

// ClientStreamEvent is received from WebSocket clients.
type ClientStreamEvent struct {
	Event StreamEventType `json:"event"`
	Pid   json.RawMessage `json:"pid,omitempty"`
	Force bool            `json:"force,omitempty"`
}

// KillPid returns the requested pid, accepting numbers and numeric strings.
// Zero is returned when the pid is missing or malformed.
func (e ClientStreamEvent) KillPid() int {
	if len(e.Pid) == 0 {
		return 0
	}

	var pid int
	if err := json.Unmarshal(e.Pid, &pid); err == nil {
		return pid
	}

	var text string
	if err := json.Unmarshal(e.Pid, &text); err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0
	}
	return pid
}
