// AngelaMos | 2026
// cascade.go

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Step is one dependent-resource removal in the delete cascade. Fn must be
// safe to call for users that own none of the resource.
type Step struct {
	Name string
	Fn   func(ctx context.Context, userID string) error
}

// Cascade fans out all registered steps concurrently and waits for every one
// of them to settle. Steps share no transaction: a failed or panicking step
// is isolated, logged, and never blocks the others or the caller.
type Cascade struct {
	steps       []Step
	stepTimeout time.Duration
	logger      *slog.Logger
}

func New(logger *slog.Logger, stepTimeout time.Duration, steps ...Step) *Cascade {
	return &Cascade{
		steps:       steps,
		stepTimeout: stepTimeout,
		logger:      logger,
	}
}

// Run executes the batch: fire all, await all. It returns only after every
// step finished, so record removal can safely follow.
func (c *Cascade) Run(ctx context.Context, userID string) {
	var wg sync.WaitGroup

	for _, step := range c.steps {
		wg.Add(1)
		go func(step Step) {
			defer wg.Done()
			c.runStep(ctx, step, userID)
		}(step)
	}

	wg.Wait()
}

func (c *Cascade) runStep(ctx context.Context, step Step, userID string) {
	stepCtx, cancel := context.WithTimeout(ctx, c.stepTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("cleanup step panicked",
				"step", step.Name,
				"user_id", userID,
				"panic", fmt.Sprint(p),
			)
		}
	}()

	if err := step.Fn(stepCtx, userID); err != nil {
		c.logger.Error("cleanup step failed",
			"step", step.Name,
			"user_id", userID,
			"error", err,
		)
		return
	}

	c.logger.Debug("cleanup step completed",
		"step", step.Name,
		"user_id", userID,
	)
}
