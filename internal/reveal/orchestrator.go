package reveal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fibtrivia/internal/domain"
)

// ErrSuperseded is returned by an Emitter once a newer sequence has started
var ErrSuperseded = errors.New("reveal sequence superseded")

// Emitter delivers one reveal step to the room. It must return ErrSuperseded
// when seq is no longer the room's current sequence.
type Emitter interface {
	EmitSequenced(seq int64, payload domain.Payload) error
}

// Orchestrator drives a reveal plan step by step
type Orchestrator struct {
	timings Timings
	logger  *slog.Logger
}

// NewOrchestrator creates an orchestrator with the given step timings
func NewOrchestrator(timings Timings, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		timings: timings,
		logger:  logger,
	}
}

// Run emits every step of the plan in order, holding between steps. It stops
// at the first emit error or when ctx is done.
func (o *Orchestrator) Run(ctx context.Context, plan *Plan, emit Emitter) error {
	steps := Steps(plan, o.timings)
	o.logger.Debug("reveal sequence started",
		"sequenceId", plan.SequenceID,
		"steps", len(steps),
		"lies", len(plan.Fakes),
	)

	for _, step := range steps {
		if step.Event != nil {
			if err := emit.EmitSequenced(plan.SequenceID, step.Event); err != nil {
				return err
			}
		}
		if err := hold(ctx, step.Hold); err != nil {
			return err
		}
	}

	o.logger.Debug("reveal sequence complete", "sequenceId", plan.SequenceID)
	return nil
}

func hold(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
