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
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/alibaba/opensandbox/procmon/pkg/log"
	"github.com/alibaba/opensandbox/procmon/pkg/publisher"
	"github.com/alibaba/opensandbox/procmon/pkg/sampler"
	"github.com/alibaba/opensandbox/procmon/pkg/web/model"
)

var sseHeaders = map[string]string{
	"Content-Type":      "text/event-stream",
	"Cache-Control":     "no-cache",
	"Connection":        "keep-alive",
	"X-Accel-Buffering": "no",
}

func (c *basicController) setupSSEResponse() {
	for key, value := range sseHeaders {
		c.ctx.Writer.Header().Set(key, value)
	}
	if flusher, ok := c.ctx.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

// sseSink writes newline-delimited stream events to a chunked HTTP response.
type sseSink struct {
	writer gin.ResponseWriter

	mu sync.Mutex
}

func newSSESink(writer gin.ResponseWriter) *sseSink {
	return &sseSink{writer: writer}
}

func (s *sseSink) SendProcesses(records []sampler.ProcessRecord) error {
	return s.writeEvent(model.ServerStreamEvent{Event: model.StreamEventProcessData, Data: records})
}

func (s *sseSink) SendKillResult(result publisher.KillResult) error {
	return s.writeEvent(model.ServerStreamEvent{Event: model.StreamEventProcessKilled, Data: result})
}

func (s *sseSink) writeEvent(event model.ServerStreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if flusher, ok := s.writer.(http.Flusher); ok {
			flusher.Flush()
		}
	}()

	payload := append(event.ToJSON(), '\n')
	n, err := s.writer.Write(payload)
	if err == nil && n != len(payload) {
		err = io.ErrShortWrite
	}
	if err != nil {
		log.Error("StreamEvent.%s write error: %v", event.Event, err)
	}
	return err
}

// WatchProcesses streams process snapshots until the client goes away.
func (c *ProcessController) WatchProcesses() {
	c.setupSSEResponse()

	sub := processPublisher.Subscribe(c.ctx.Request.Context(), newSSESink(c.ctx.Writer))
	<-sub.Done()
	sub.Close()
}
