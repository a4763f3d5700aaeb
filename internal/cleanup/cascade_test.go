// AngelaMos | 2026
// cascade_test.go

package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCascade_RunsEveryStep(t *testing.T) {
	var mu sync.Mutex
	ran := make([]string, 0, 3)

	record := func(name string) Step {
		return Step{
			Name: name,
			Fn: func(_ context.Context, userID string) error {
				mu.Lock()
				defer mu.Unlock()
				ran = append(ran, name+":"+userID)
				return nil
			},
		}
	}

	c := New(testLogger(), time.Second,
		record("messages"), record("files"), record("sessions"))

	c.Run(context.Background(), "u-1")

	require.Len(t, ran, 3)
	assert.ElementsMatch(
		t,
		[]string{"messages:u-1", "files:u-1", "sessions:u-1"},
		ran,
	)
}

func TestCascade_FailedStepDoesNotBlockOthers(t *testing.T) {
	var mu sync.Mutex
	ran := make([]string, 0, 2)

	c := New(testLogger(), time.Second,
		Step{
			Name: "broken",
			Fn: func(_ context.Context, _ string) error {
				return errors.New("table missing")
			},
		},
		Step{
			Name: "ok",
			Fn: func(_ context.Context, _ string) error {
				mu.Lock()
				defer mu.Unlock()
				ran = append(ran, "ok")
				return nil
			},
		},
	)

	// Run must settle normally: the failure is logged, not propagated.
	c.Run(context.Background(), "u-1")

	assert.Equal(t, []string{"ok"}, ran)
}

func TestCascade_PanickingStepIsIsolated(t *testing.T) {
	var mu sync.Mutex
	ran := false

	c := New(testLogger(), time.Second,
		Step{
			Name: "panics",
			Fn: func(_ context.Context, _ string) error {
				panic("boom")
			},
		},
		Step{
			Name: "ok",
			Fn: func(_ context.Context, _ string) error {
				mu.Lock()
				defer mu.Unlock()
				ran = true
				return nil
			},
		},
	)

	require.NotPanics(t, func() {
		c.Run(context.Background(), "u-1")
	})
	assert.True(t, ran)
}

func TestCascade_WaitsForEveryStepToSettle(t *testing.T) {
	var mu sync.Mutex
	done := 0

	slow := func(name string, delay time.Duration) Step {
		return Step{
			Name: name,
			Fn: func(_ context.Context, _ string) error {
				time.Sleep(delay)
				mu.Lock()
				defer mu.Unlock()
				done++
				return nil
			},
		}
	}

	c := New(testLogger(), time.Second,
		slow("fast", time.Millisecond),
		slow("slow", 50*time.Millisecond),
	)

	c.Run(context.Background(), "u-1")

	// Fire all, await all: Run returned, so both steps finished.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, done)
}

func TestCascade_StepTimeoutBoundsEachStep(t *testing.T) {
	started := time.Now()

	c := New(testLogger(), 20*time.Millisecond,
		Step{
			Name: "stuck",
			Fn: func(ctx context.Context, _ string) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	)

	c.Run(context.Background(), "u-1")

	assert.Less(t, time.Since(started), 500*time.Millisecond)
}
