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
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/alibaba/opensandbox/procmon/pkg/log"
	"github.com/alibaba/opensandbox/procmon/pkg/publisher"
	"github.com/alibaba/opensandbox/procmon/pkg/sampler"
	"github.com/alibaba/opensandbox/procmon/pkg/util/safego"
	"github.com/alibaba/opensandbox/procmon/pkg/web/model"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingPeriod   = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsSink writes stream events as JSON text frames.
type wsSink struct {
	conn *websocket.Conn

	mu sync.Mutex
}

func (s *wsSink) SendProcesses(records []sampler.ProcessRecord) error {
	return s.writeEvent(model.ServerStreamEvent{Event: model.StreamEventProcessData, Data: records})
}

func (s *wsSink) SendKillResult(result publisher.KillResult) error {
	return s.writeEvent(model.ServerStreamEvent{Event: model.StreamEventProcessKilled, Data: result})
}

func (s *wsSink) writeEvent(event model.ServerStreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, event.ToJSON())
}

// StreamProcesses upgrades to a WebSocket, pushes process snapshots on the
// stream interval and serves kill requests sent over the same socket.
func (c *ProcessController) StreamProcesses() {
	conn, err := upgrader.Upgrade(c.ctx.Writer, c.ctx.Request, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log.Info("Client connected from %s", conn.RemoteAddr())

	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	ctx, cancel := context.WithCancel(c.ctx.Request.Context())
	defer cancel()

	pub := processPublisher
	sub := pub.Subscribe(ctx, &wsSink{conn: conn})
	defer sub.Close()

	safego.Go(func() { c.pingWebSocket(ctx, conn) })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error: %v", err)
			}
			log.Info("Client disconnected from %s", conn.RemoteAddr())
			return
		}

		var event model.ClientStreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Warn("Ignoring malformed WebSocket message %q: %v", string(data), err)
			continue
		}

		switch event.Event {
		case model.StreamEventKillProcess:
			pub.Kill(sub, publisher.KillRequest{Pid: event.KillPid(), Force: event.Force})
		default:
			log.Warn("Ignoring unknown WebSocket event %q", event.Event)
		}
	}
}

// pingWebSocket keeps idle connections from being reaped by proxies.
func (c *ProcessController) pingWebSocket(ctx context.Context, conn *websocket.Conn) {
	wait.UntilWithContext(ctx, func(context.Context) {
		deadline := time.Now().Add(wsWriteTimeout)
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			log.Debug("WebSocket ping failed: %v", err)
		}
	}, wsPingPeriod)
}
