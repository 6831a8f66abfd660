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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alibaba/opensandbox/procmon/pkg/sampler"
	"github.com/alibaba/opensandbox/procmon/pkg/terminate"
)

type fakeSampler struct {
	calls  atomic.Int32
	failOn map[int32]bool
}

func (f *fakeSampler) Sample(context.Context) ([]sampler.ProcessRecord, error) {
	call := f.calls.Add(1)
	if f.failOn[call] {
		return nil, sampler.ErrSourceUnavailable
	}
	return []sampler.ProcessRecord{{Pid: call, Name: "tick.exe"}}, nil
}

type fakeTerminator struct {
	mu    sync.Mutex
	pids  []int
	force []bool
	err   error
}

func (f *fakeTerminator) Terminate(pid int, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pids = append(f.pids, pid)
	f.force = append(f.force, force)
	return f.err
}

func (f *fakeTerminator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pids)
}

type frame struct {
	records []sampler.ProcessRecord
	kill    *KillResult
}

type recordingSink struct {
	mu     sync.Mutex
	frames []frame
}

func (s *recordingSink) SendProcesses(records []sampler.ProcessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame{records: records})
	return nil
}

func (s *recordingSink) SendKillResult(result KillResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame{kill: &result})
	return nil
}

func (s *recordingSink) snapshot() []frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frame(nil), s.frames...)
}

func (s *recordingSink) processFrames() int {
	count := 0
	for _, f := range s.snapshot() {
		if f.records != nil {
			count++
		}
	}
	return count
}

func TestSubscribeDeliversImmediately(t *testing.T) {
	p := New(&fakeSampler{}, &fakeTerminator{}, time.Hour)
	sink := &recordingSink{}

	sub := p.Subscribe(context.Background(), sink)
	defer sub.Close()

	require.Eventually(t, func() bool { return sink.processFrames() == 1 }, time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, 1, p.Active())
}

func TestSubscriptionDeliversOnInterval(t *testing.T) {
	p := New(&fakeSampler{}, &fakeTerminator{}, 10*time.Millisecond)
	sink := &recordingSink{}

	sub := p.Subscribe(context.Background(), sink)
	defer sub.Close()

	require.Eventually(t, func() bool { return sink.processFrames() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestCloseStopsDelivery(t *testing.T) {
	s := &fakeSampler{}
	p := New(s, &fakeTerminator{}, 10*time.Millisecond)
	sink := &recordingSink{}

	sub := p.Subscribe(context.Background(), sink)
	require.Eventually(t, func() bool { return sink.processFrames() >= 2 }, 2*time.Second, 5*time.Millisecond)

	sub.Close()
	delivered := sink.processFrames()
	calls := s.calls.Load()

	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, delivered, sink.processFrames())
	assert.Equal(t, calls, s.calls.Load())
	assert.Equal(t, 0, p.Active())

	select {
	case <-sub.Done():
	default:
		t.Fatalf("ticker still running after Close")
	}

	// closing twice is harmless
	sub.Close()
}

func TestParentContextStopsTicker(t *testing.T) {
	s := &fakeSampler{}
	p := New(s, &fakeTerminator{}, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	sub := p.Subscribe(ctx, &recordingSink{})
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatalf("ticker did not stop with its parent context")
	}
	sub.Close()
	assert.Equal(t, 0, p.Active())
}

func TestActiveTracksOpenSubscriptions(t *testing.T) {
	p := New(&fakeSampler{}, &fakeTerminator{}, time.Hour)

	subs := make([]*Subscription, 0, 5)
	for i := 0; i < 5; i++ {
		subs = append(subs, p.Subscribe(context.Background(), &recordingSink{}))
	}
	assert.Equal(t, 5, p.Active())

	for _, sub := range subs {
		sub.Close()
	}
	assert.Equal(t, 0, p.Active())
}

func TestFailedPassIsSkipped(t *testing.T) {
	s := &fakeSampler{failOn: map[int32]bool{2: true}}
	p := New(s, &fakeTerminator{}, 10*time.Millisecond)
	sink := &recordingSink{}

	sub := p.Subscribe(context.Background(), sink)
	require.Eventually(t, func() bool { return sink.processFrames() >= 3 }, 2*time.Second, 5*time.Millisecond)
	sub.Close()

	for _, f := range sink.snapshot() {
		require.NotNil(t, f.records)
		assert.NotEqual(t, int32(2), f.records[0].Pid, "failed pass must not be delivered")
	}
}

func TestKillRejectsMissingPid(t *testing.T) {
	term := &fakeTerminator{}
	p := New(&fakeSampler{}, term, time.Hour)
	sink := &recordingSink{}
	sub := p.Subscribe(context.Background(), sink)
	defer sub.Close()
	require.Eventually(t, func() bool { return sink.processFrames() == 1 }, time.Second, 5*time.Millisecond)

	result := p.Kill(sub, KillRequest{Pid: 0})

	assert.False(t, result.Success)
	assert.Equal(t, ErrInvalidPid.Error(), result.Error)
	assert.Equal(t, 0, term.calls())

	frames := sink.snapshot()
	require.Len(t, frames, 2)
	require.NotNil(t, frames[1].kill)
	assert.Equal(t, result, *frames[1].kill)
}

func TestKillSuccessRefreshesRequester(t *testing.T) {
	term := &fakeTerminator{}
	p := New(&fakeSampler{}, term, time.Hour)
	requester := &recordingSink{}
	other := &recordingSink{}
	sub := p.Subscribe(context.Background(), requester)
	defer sub.Close()
	otherSub := p.Subscribe(context.Background(), other)
	defer otherSub.Close()
	require.Eventually(t, func() bool {
		return requester.processFrames() == 1 && other.processFrames() == 1
	}, time.Second, 5*time.Millisecond)

	result := p.Kill(sub, KillRequest{Pid: 4242, Force: true})

	assert.Equal(t, KillResult{Success: true, Pid: 4242}, result)
	assert.Equal(t, []int{4242}, term.pids)
	assert.Equal(t, []bool{true}, term.force)

	frames := requester.snapshot()
	require.Len(t, frames, 3)
	require.NotNil(t, frames[1].kill)
	assert.True(t, frames[1].kill.Success)
	assert.NotNil(t, frames[2].records)

	assert.Len(t, other.snapshot(), 1)
}

func TestKillFailureDoesNotStopTicker(t *testing.T) {
	term := &fakeTerminator{err: &terminate.TerminationError{Pid: 7, Reason: errors.New("operation not permitted")}}
	p := New(&fakeSampler{}, term, 20*time.Millisecond)
	sink := &recordingSink{}
	sub := p.Subscribe(context.Background(), sink)
	defer sub.Close()

	result := p.Kill(sub, KillRequest{Pid: 7})

	assert.False(t, result.Success)
	assert.Equal(t, 7, result.Pid)
	assert.Contains(t, result.Error, "operation not permitted")

	before := sink.processFrames()
	require.Eventually(t, func() bool { return sink.processFrames() > before+1 }, 2*time.Second, 5*time.Millisecond)

	var acks int
	for _, f := range sink.snapshot() {
		if f.kill != nil {
			acks++
		}
	}
	assert.Equal(t, 1, acks)
}

func TestNoFramesAfterClose(t *testing.T) {
	term := &fakeTerminator{}
	p := New(&fakeSampler{}, term, time.Hour)
	sink := &recordingSink{}
	sub := p.Subscribe(context.Background(), sink)
	require.Eventually(t, func() bool { return sink.processFrames() == 1 }, time.Second, 5*time.Millisecond)
	sub.Close()

	p.Kill(sub, KillRequest{Pid: 10})

	assert.Len(t, sink.snapshot(), 1)
}
