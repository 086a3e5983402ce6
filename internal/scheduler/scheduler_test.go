package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camrobjones/papernet/internal/temporal"
)

type fakeStarter struct {
	mu     sync.Mutex
	inputs []temporal.SweepInput
	err    error

	started chan struct{}
	release chan struct{}
}

func (f *fakeStarter) StartMissingReferenceSweep(ctx context.Context, input temporal.SweepInput) (string, string, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	return "missing-reference-sweep", "run-1", f.err
}

func (f *fakeStarter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

type fakePruner struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakePruner) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func testConfig() Config {
	return Config{
		SweepSchedule:   "@every 6h",
		SweepLimit:      25,
		PruneSchedule:   "@daily",
		LedgerRetention: 24 * time.Hour,
	}
}

func TestNew(t *testing.T) {
	t.Run("registers both jobs", func(t *testing.T) {
		s, err := New(testConfig(), &fakeStarter{}, &fakePruner{}, zerolog.Nop())
		require.NoError(t, err)
		assert.Len(t, s.cron.Entries(), 2)
	})

	t.Run("pruning disabled without a pruner", func(t *testing.T) {
		s, err := New(testConfig(), &fakeStarter{}, nil, zerolog.Nop())
		require.NoError(t, err)
		assert.Len(t, s.cron.Entries(), 1)
	})

	t.Run("pruning disabled without a schedule", func(t *testing.T) {
		cfg := testConfig()
		cfg.PruneSchedule = ""
		s, err := New(cfg, &fakeStarter{}, &fakePruner{}, zerolog.Nop())
		require.NoError(t, err)
		assert.Len(t, s.cron.Entries(), 1)
	})

	t.Run("invalid sweep schedule", func(t *testing.T) {
		cfg := testConfig()
		cfg.SweepSchedule = "every so often"
		_, err := New(cfg, &fakeStarter{}, nil, zerolog.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid sweep schedule")
	})

	t.Run("invalid prune schedule", func(t *testing.T) {
		cfg := testConfig()
		cfg.PruneSchedule = "@fortnightly"
		_, err := New(cfg, &fakeStarter{}, &fakePruner{}, zerolog.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid prune schedule")
	})
}

func TestRunSweep(t *testing.T) {
	t.Run("starts with the configured limit", func(t *testing.T) {
		starter := &fakeStarter{}
		s, err := New(testConfig(), starter, nil, zerolog.Nop())
		require.NoError(t, err)

		require.NoError(t, s.RunSweep(context.Background()))
		assert.Equal(t, []temporal.SweepInput{{Limit: 25}}, starter.inputs)
	})

	t.Run("returns start errors", func(t *testing.T) {
		starter := &fakeStarter{err: errors.New("temporal unavailable")}
		s, err := New(testConfig(), starter, nil, zerolog.Nop())
		require.NoError(t, err)

		err = s.RunSweep(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "temporal unavailable")
	})
}

func TestSweepSkipsOverlappingRuns(t *testing.T) {
	starter := &fakeStarter{started: make(chan struct{}, 1), release: make(chan struct{})}
	s, err := New(testConfig(), starter, nil, zerolog.Nop())
	require.NoError(t, err)

	entries := s.cron.Entries()
	require.Len(t, entries, 1)
	job := entries[0].WrappedJob

	var finished atomic.Bool
	go func() {
		job.Run()
		finished.Store(true)
	}()
	<-starter.started

	// The first run is blocked inside the starter, so this one is skipped.
	job.Run()
	assert.Equal(t, 1, starter.calls())

	close(starter.release)
	assert.Eventually(t, finished.Load, time.Second, 10*time.Millisecond)
}

func TestPruneLedger(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("deletes entries older than the retention", func(t *testing.T) {
		pruner := &fakePruner{deleted: 42}
		s, err := New(testConfig(), &fakeStarter{}, pruner, zerolog.Nop())
		require.NoError(t, err)
		s.now = func() time.Time { return now }

		deleted, err := s.PruneLedger(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(42), deleted)
		assert.Equal(t, now.Add(-24*time.Hour), pruner.cutoff)
	})

	t.Run("returns prune errors", func(t *testing.T) {
		s, err := New(testConfig(), &fakeStarter{}, &fakePruner{err: errors.New("db down")}, zerolog.Nop())
		require.NoError(t, err)

		_, err = s.PruneLedger(context.Background())
		assert.Error(t, err)
	})

	t.Run("no pruner", func(t *testing.T) {
		s, err := New(testConfig(), &fakeStarter{}, nil, zerolog.Nop())
		require.NoError(t, err)

		deleted, err := s.PruneLedger(context.Background())
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})
}

func TestStartStop(t *testing.T) {
	s, err := New(testConfig(), &fakeStarter{}, nil, zerolog.Nop())
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
