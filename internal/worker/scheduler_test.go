package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"packetboat/internal/reporter"
	"packetboat/pkg/logging"

	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	runs int
	err  error
}

func (f *fakeRunner) Run(ctx context.Context, opts reporter.RunOptions) (*reporter.RunResult, error) {
	f.runs++
	if f.err != nil {
		return nil, f.err
	}
	return &reporter.RunResult{RunID: "r", DatePartition: "2026-08-10", SystemState: "normal"}, nil
}

func newTestScheduler(r runner, weekday time.Weekday, at time.Time) *Scheduler {
	s := NewScheduler(r, weekday, logging.NewLogger())
	s.now = func() time.Time { return at }
	return s
}

func TestTickFiresOnConfiguredWeekday(t *testing.T) {
	monday := time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC)
	fr := &fakeRunner{}
	s := newTestScheduler(fr, time.Monday, monday)

	s.tick(context.Background())
	require.Equal(t, 1, fr.runs)
}

func TestTickSkipsOtherWeekdays(t *testing.T) {
	tuesday := time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)
	fr := &fakeRunner{}
	s := newTestScheduler(fr, time.Monday, tuesday)

	s.tick(context.Background())
	require.Equal(t, 0, fr.runs)
}

func TestTickRunsOncePerDay(t *testing.T) {
	monday := time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC)
	fr := &fakeRunner{}
	s := newTestScheduler(fr, time.Monday, monday)

	s.tick(context.Background())
	s.now = func() time.Time { return monday.Add(5 * time.Hour) }
	s.tick(context.Background())
	require.Equal(t, 1, fr.runs)

	nextMonday := monday.AddDate(0, 0, 7)
	s.now = func() time.Time { return nextMonday }
	s.tick(context.Background())
	require.Equal(t, 2, fr.runs)
}

func TestTickFailedRunNotRetriedSameDay(t *testing.T) {
	monday := time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC)
	fr := &fakeRunner{err: errors.New("smtp down")}
	s := newTestScheduler(fr, time.Monday, monday)

	s.tick(context.Background())
	s.tick(context.Background())
	require.Equal(t, 1, fr.runs)
}
