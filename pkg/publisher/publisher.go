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

package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/alibaba/opensandbox/procmon/pkg/log"
	"github.com/alibaba/opensandbox/procmon/pkg/sampler"
	"github.com/alibaba/opensandbox/procmon/pkg/terminate"
	"github.com/alibaba/opensandbox/procmon/pkg/util/safego"
)

// ErrInvalidPid rejects kill requests without a usable pid.
var ErrInvalidPid = errors.New("process id is required")

// Sampler produces one complete process snapshot.
type Sampler interface {
	Sample(ctx context.Context) ([]sampler.ProcessRecord, error)
}

// Sink delivers frames to one connected client.
type Sink interface {
	SendProcesses(records []sampler.ProcessRecord) error
	SendKillResult(result KillResult) error
}

// KillRequest asks for termination of a process on behalf of a subscriber.
type KillRequest struct {
	Pid   int
	Force bool
}

// KillResult acknowledges a KillRequest to the subscriber that sent it.
type KillResult struct {
	Success bool   `json:"success"`
	Pid     int    `json:"pid"`
	Error   string `json:"error,omitempty"`
}

// Publisher pushes process snapshots to subscribers on a fixed interval.
type Publisher struct {
	sampler    Sampler
	terminator terminate.Terminator
	interval   time.Duration

	mu            sync.Mutex
	subscriptions map[string]*Subscription
}

func New(s Sampler, t terminate.Terminator, interval time.Duration) *Publisher {
	return &Publisher{
		sampler:       s,
		terminator:    t,
		interval:      interval,
		subscriptions: make(map[string]*Subscription),
	}
}

// Subscription is the live ticker of one client. It must be closed when the
// client goes away.
type Subscription struct {
	ID string

	publisher *Publisher
	sink      Sink
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// sendMu serializes frames coming from the ticker and from kill requests.
	sendMu sync.Mutex
}

// Subscribe delivers a snapshot to sink right away and then once per
// interval until the subscription is closed or ctx ends.
func (p *Publisher) Subscribe(ctx context.Context, sink Sink) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ID:        uuid.NewString(),
		publisher: p,
		sink:      sink,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	p.mu.Lock()
	p.subscriptions[sub.ID] = sub
	active := len(p.subscriptions)
	p.mu.Unlock()
	log.Info("Subscription %s started, %d active", sub.ID, active)

	safego.Go(func() {
		defer close(sub.done)
		wait.UntilWithContext(ctx, func(context.Context) {
			p.deliver(sub)
		}, p.interval)
	})
	return sub
}

// Active returns the number of open subscriptions.
func (p *Publisher) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscriptions)
}

// Kill terminates req.Pid and acknowledges the outcome to sub only. Whether
// termination succeeded or not, sub then receives a fresh snapshot.
func (p *Publisher) Kill(sub *Subscription, req KillRequest) KillResult {
	result := KillResult{Pid: req.Pid}
	if req.Pid <= 0 {
		result.Error = ErrInvalidPid.Error()
		sub.sendKillResult(result)
		return result
	}

	if err := p.terminator.Terminate(req.Pid, req.Force); err != nil {
		log.Error("Subscription %s: error killing process %d: %v", sub.ID, req.Pid, err)
		result.Error = err.Error()
	} else {
		log.Info("Subscription %s: process %d has been terminated", sub.ID, req.Pid)
		result.Success = true
	}

	sub.sendKillResult(result)
	p.deliver(sub)
	return result
}

func (p *Publisher) deliver(sub *Subscription) {
	records, err := p.sampler.Sample(sub.ctx)
	if err != nil {
		if sub.ctx.Err() == nil {
			log.Error("Subscription %s: sampling pass failed, skipping tick: %v", sub.ID, err)
		}
		return
	}
	sub.sendProcesses(records)
}

func (p *Publisher) remove(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscriptions, id)
	return len(p.subscriptions)
}

// Done is closed once the ticker of the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the ticker and waits for it to exit. No frame is sent after
// Close returns. Calling Close more than once is safe.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		active := s.publisher.remove(s.ID)
		log.Info("Subscription %s closed, %d active", s.ID, active)
	})
}

func (s *Subscription) sendProcesses(records []sampler.ProcessRecord) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	if err := s.sink.SendProcesses(records); err != nil {
		log.Error("Subscription %s: error sending process data: %v", s.ID, err)
	}
}

func (s *Subscription) sendKillResult(result KillResult) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	if err := s.sink.SendKillResult(result); err != nil {
		log.Error("Subscription %s: error sending kill result: %v", s.ID, err)
	}
}
