package reveal

import (
	"sync"
	"time"

	"fibtrivia/internal/domain"
)

// Sequencer issues strictly increasing sequence ids based on wall-clock milliseconds
type Sequencer struct {
	mu   sync.Mutex
	last int64
	now  domain.Clock
}

// NewSequencer creates a sequencer reading time from now (time.Now if nil)
func NewSequencer(now domain.Clock) *Sequencer {
	if now == nil {
		now = time.Now
	}
	return &Sequencer{now: now}
}

// Next returns a fresh id, greater than every id returned before
func (s *Sequencer) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Tracker applies the receiver-side staleness rule: a startSequence always
// becomes current, and any other sequenced event is accepted only if it
// carries the current id. Unsequenced events always pass.
type Tracker struct {
	current int64
}

// Accept reports whether the payload should be delivered
func (t *Tracker) Accept(payload domain.Payload) bool {
	s, ok := payload.(domain.Sequenced)
	if !ok {
		return true
	}
	if payload.EventType() == domain.EventStartSequence {
		t.current = s.Sequence()
		return true
	}
	return s.Sequence() == t.current
}

// Current returns the id of the latest started sequence
func (t *Tracker) Current() int64 {
	return t.current
}
