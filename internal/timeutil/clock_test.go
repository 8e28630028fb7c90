package timeutil

import (
	"context"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_SleepContext(t *testing.T) {
	clock := RealClock{}

	if err := clock.SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("SleepContext() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := clock.SleepContext(ctx, time.Hour); err != context.Canceled {
		t.Errorf("SleepContext() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled SleepContext should return promptly")
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)
	now := clock.Now()

	if !now.Equal(fixedTime) {
		t.Errorf("got %v, want %v", now, fixedTime)
	}
}

func TestMockClock_Set(t *testing.T) {
	clock := NewMockClock(time.Time{})
	newTime := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clock.Set(newTime)

	if !clock.Now().Equal(newTime) {
		t.Errorf("got %v, want %v", clock.Now(), newTime)
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Advance(time.Hour)
	expected := start.Add(time.Hour)

	if !clock.Now().Equal(expected) {
		t.Errorf("got %v, want %v", clock.Now(), expected)
	}
}

func TestMockClock_Since(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(now)
	past := now.Add(-5 * time.Minute)
	d := clock.Since(past)

	if d != 5*time.Minute {
		t.Errorf("got %v, want 5m", d)
	}
}

func TestMockClock_SleepAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Sleep(time.Second)
	clock.Sleep(2 * time.Second)
	sleeps := clock.Sleeps()

	if len(sleeps) != 2 {
		t.Fatalf("got %d sleeps, want 2", len(sleeps))
	}
	if sleeps[0] != time.Second {
		t.Errorf("first sleep: got %v, want 1s", sleeps[0])
	}
	if sleeps[1] != 2*time.Second {
		t.Errorf("second sleep: got %v, want 2s", sleeps[1])
	}
	if got := clock.Since(start); got != 3*time.Second {
		t.Errorf("virtual time advanced %v, want 3s", got)
	}
	if clock.Slept() != 3*time.Second {
		t.Errorf("Slept() = %v, want 3s", clock.Slept())
	}
}

func TestMockClock_OnSleep(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	var seen []time.Time
	clock.OnSleep = func(now time.Time) { seen = append(seen, now) }
	clock.Sleep(time.Minute)

	if len(seen) != 1 || !seen[0].Equal(start.Add(time.Minute)) {
		t.Errorf("OnSleep saw %v, want [%v]", seen, start.Add(time.Minute))
	}
}

func TestMockClock_SleepContextCancelled(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := clock.SleepContext(ctx, time.Minute); err != context.Canceled {
		t.Errorf("SleepContext() = %v, want context.Canceled", err)
	}
	if !clock.Now().Equal(start) {
		t.Error("cancelled SleepContext should not advance the clock")
	}
}
