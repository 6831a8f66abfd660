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
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gin-gonic/gin"

	"github.com/alibaba/opensandbox/procmon/pkg/log"
	"github.com/alibaba/opensandbox/procmon/pkg/sampler"
	"github.com/alibaba/opensandbox/procmon/pkg/terminate"
	"github.com/alibaba/opensandbox/procmon/pkg/web/model"
)

// ProcessController serves one-shot process queries and kill requests.
type ProcessController struct {
	*basicController
}

func NewProcessController(ctx *gin.Context) *ProcessController {
	return &ProcessController{basicController: newBasicController(ctx)}
}

// ListProcesses runs one sampling pass. The optional filter query is a glob
// matched case-insensitively against process names.
func (c *ProcessController) ListProcesses() {
	filter := strings.ToLower(c.ctx.Query("filter"))
	if filter != "" && !doublestar.ValidatePattern(filter) {
		c.RespondError(
			http.StatusBadRequest,
			model.ErrorCodeInvalidRequest,
			fmt.Sprintf("invalid filter pattern %q", filter),
		)
		return
	}

	records, err := processSampler.Sample(c.ctx.Request.Context())
	if err != nil {
		log.Error("Error fetching processes: %v", err)
		c.RespondError(
			http.StatusInternalServerError,
			model.ErrorCodeRuntimeError,
			fmt.Sprintf("failed to fetch processes. %v", err),
		)
		return
	}

	if filter != "" {
		records = filterByName(records, filter)
	}
	c.RespondSuccess(records)
}

// KillProcess terminates the process named in the request body.
func (c *ProcessController) KillProcess() {
	var request model.KillProcessRequest
	if err := c.bindJSON(&request); err != nil {
		c.RespondError(
			http.StatusBadRequest,
			model.ErrorCodeInvalidRequest,
			fmt.Sprintf("error parsing request, MAYBE invalid body format. %v", err),
		)
		return
	}

	if err := request.Validate(); err != nil {
		c.RespondError(
			http.StatusBadRequest,
			model.ErrorCodeInvalidRequest,
			fmt.Sprintf("invalid request, process id is required. %v", err),
		)
		return
	}

	if err := processTerminator.Terminate(request.Pid, request.Force); err != nil {
		log.Error("Error killing process %d: %v", request.Pid, err)
		code := model.ErrorCodeRuntimeError
		var termErr *terminate.TerminationError
		if errors.As(err, &termErr) {
			code = model.ErrorCodeTerminationError
		}
		c.RespondError(http.StatusInternalServerError, code, err.Error())
		return
	}

	c.RespondSuccess(model.KillProcessResponse{
		Success: true,
		Pid:     request.Pid,
		Message: fmt.Sprintf("Process %d has been terminated", request.Pid),
	})
}

func filterByName(records []sampler.ProcessRecord, pattern string) []sampler.ProcessRecord {
	filtered := make([]sampler.ProcessRecord, 0, len(records))
	for _, r := range records {
		matched, err := doublestar.Match(pattern, strings.ToLower(r.Name))
		if err != nil || !matched {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
