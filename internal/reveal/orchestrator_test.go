package reveal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fibtrivia/internal/domain"
)

type recordingEmitter struct {
	mu      sync.Mutex
	events  []domain.Payload
	stopAt  int
	stopErr error
}

func (e *recordingEmitter) EmitSequenced(seq int64, payload domain.Payload) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopErr != nil && len(e.events) == e.stopAt {
		return e.stopErr
	}
	e.events = append(e.events, payload)
	return nil
}

func (e *recordingEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPlan() *Plan {
	return BuildPlan(10, roundResult(), 1000, rand.New(rand.NewPCG(5, 6)))
}

func TestOrchestrator_RunEmitsEveryStep(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(Timings{}, discardLogger())
	emit := &recordingEmitter{}

	require.NoError(t, o.Run(context.Background(), testPlan(), emit))
	require.Equal(t, 14, emit.count())
	assert.Equal(t, domain.EventStartSequence, emit.events[0].EventType())
	assert.Equal(t, domain.EventComplete, emit.events[13].EventType())
}

func TestOrchestrator_StopsWhenSuperseded(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(Timings{}, discardLogger())
	emit := &recordingEmitter{stopAt: 3, stopErr: ErrSuperseded}

	err := o.Run(context.Background(), testPlan(), emit)
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Equal(t, 3, emit.count(), "nothing is emitted after the sequence is superseded")
}

func TestOrchestrator_StopsOnCancel(t *testing.T) {
	t.Parallel()

	timings := DefaultTimings()
	timings.StartPause = time.Hour
	o := NewOrchestrator(timings, discardLogger())
	emit := &recordingEmitter{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- o.Run(ctx, testPlan(), emit)
	}()

	assert.Eventually(t, func() bool { return emit.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
	assert.Equal(t, 1, emit.count())
}

func TestSequencer_StrictlyIncreasing(t *testing.T) {
	t.Parallel()

	fixed := time.UnixMilli(1_700_000_000_000)
	s := NewSequencer(func() time.Time { return fixed })

	first := s.Next()
	second := s.Next()
	third := s.Next()

	assert.Equal(t, fixed.UnixMilli(), first)
	assert.Equal(t, first+1, second)
	assert.Equal(t, second+1, third)
}

func TestTracker(t *testing.T) {
	t.Parallel()

	var tr Tracker

	assert.True(t, tr.Accept(domain.TimerUpdatePayload{TimeRemaining: 3}), "unsequenced events always pass")
	assert.False(t, tr.Accept(domain.HighlightAnswerPayload{SequenceTag: domain.Tag(5)}), "nothing is current yet")

	assert.True(t, tr.Accept(domain.StartSequencePayload{SequenceTag: domain.Tag(5)}))
	assert.Equal(t, int64(5), tr.Current())
	assert.True(t, tr.Accept(domain.HighlightAnswerPayload{SequenceTag: domain.Tag(5)}))

	assert.True(t, tr.Accept(domain.StartSequencePayload{SequenceTag: domain.Tag(6)}))
	assert.False(t, tr.Accept(domain.RevealLiePayload{SequenceTag: domain.Tag(5)}), "steps of an older sequence are stale")
	assert.True(t, tr.Accept(domain.CompletePayload{SequenceTag: domain.Tag(6)}))

	assert.True(t, tr.Accept(domain.ResultsReadyPayload{SequenceID: 4}))
}
