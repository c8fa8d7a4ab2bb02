package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/petal-labs/loom"
)

// fakeClock is a manually advanced clock for driving RunOnce.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestNew_RequiresJob(t *testing.T) {
	if _, err := New(Config{Expr: "* * * * *"}); err == nil {
		t.Error("New accepted a nil job")
	}
}

func TestNew_RejectsBadExpression(t *testing.T) {
	cfg := Config{Expr: "bad", Job: func(context.Context) error { return nil }}
	if _, err := New(cfg); err == nil {
		t.Error("New accepted an invalid cron expression")
	}
}

func TestNextRunAdvancesAfterActivation(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 30, 0, time.UTC)}
	ran := make(chan struct{}, 1)

	s, err := New(Config{
		Expr: "* * * * *",
		Job: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
		Now: clock.Now,
	})
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	first := s.NextRun()
	want := time.Date(2025, 3, 10, 12, 1, 0, 0, time.UTC)
	if !first.Equal(want) {
		t.Fatalf("NextRun = %v, want %v", first, want)
	}

	// Not due yet.
	s.RunOnce(context.Background())
	select {
	case <-ran:
		t.Fatal("job ran before its activation time")
	default:
	}

	clock.Advance(time.Minute)
	s.RunOnce(context.Background())
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run at its activation time")
	}

	if next := s.NextRun(); !next.After(first) {
		t.Errorf("NextRun = %v, want later than %v", next, first)
	}
}

func TestOverlappingActivationSkipped(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 30, 0, time.UTC)}
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	s, err := New(Config{
		Expr: "* * * * *",
		Job: func(context.Context) error {
			mu.Lock()
			calls++
			mu.Unlock()
			started <- struct{}{}
			<-release
			return nil
		},
		Now: clock.Now,
	})
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	clock.Advance(time.Minute)
	s.RunOnce(context.Background())
	<-started

	// The next activation comes due while the first job still runs.
	clock.Advance(time.Minute)
	s.RunOnce(context.Background())

	close(release)

	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 1 {
		t.Errorf("job calls = %d, want 1 (overlap skipped)", got)
	}
}

func TestStartStop(t *testing.T) {
	ran := make(chan struct{}, 4)
	s, err := New(Config{
		Expr:         "* * * * *",
		PollInterval: 10 * time.Millisecond,
		Job: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
		// Start one second before the minute boundary so an
		// activation fires almost immediately.
		Now: func() time.Time {
			return time.Now().UTC().Truncate(time.Minute).Add(59 * time.Second)
		},
	})
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	s.Start()
	s.Start() // second Start is a no-op

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error = %v", err)
	}
	// Stopping again is safe.
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop error = %v", err)
	}
}

func TestScheduledWalk(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 30, 0, time.UTC)}
	results := make(chan []any, 1)

	g := loom.NewGraph("scheduled")
	a := loom.Add(1)
	g.Connect(a, loom.Add(2), loom.Add(4))

	s, err := New(Config{
		Expr: "* * * * *",
		Job: func(context.Context) error {
			st := g.Stepper()
			st.Prepare(loom.PackArgs(1.0), a)
			if err := st.RunToEnd(0); err != nil {
				return err
			}
			entries := st.Flush()
			results <- entries[0].Packs[0].Args
			return nil
		},
		Now: clock.Now,
	})
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	clock.Advance(time.Minute)
	s.RunOnce(context.Background())

	select {
	case args := <-results:
		if len(args) != 1 || args[0] != 8.0 {
			t.Errorf("walk result = %v, want [8]", args)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled walk did not complete")
	}
}
