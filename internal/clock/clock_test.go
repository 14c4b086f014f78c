package clock

import (
	"sync"
	"testing"
	"time"
)

func TestVirtualAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	clock := NewVirtual(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}
	if !clock.Now().Equal(updated) {
		t.Fatalf("Now should observe the advance, got %v", clock.Now())
	}

	clock.Set(start)
	if got := clock.Now(); !got.Equal(start) {
		t.Fatalf("expected %v after Set, got %v", start, got)
	}

	clock.Advance(-15 * time.Minute)
	if got := clock.Now(); !got.Equal(start.Add(-15 * time.Minute)) {
		t.Fatalf("negative advance should rewind, got %v", got)
	}
}

func TestVirtualConcurrentAdvance(t *testing.T) {
	start := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	clock := NewVirtual(start)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Minute)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	if got := clock.Now(); !got.Equal(start.Add(50 * time.Minute)) {
		t.Fatalf("expected 50 minutes of progress, got %v", got.Sub(start))
	}
}

func TestMinutes(t *testing.T) {
	tests := []struct {
		minutes  float64
		expected time.Duration
	}{
		{30, 30 * time.Minute},
		{0.5, 30 * time.Second},
		{1.25, 75 * time.Second},
		{-30, -30 * time.Minute},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Minutes(tt.minutes); got != tt.expected {
			t.Errorf("Minutes(%v) = %v, want %v", tt.minutes, got, tt.expected)
		}
	}
}
