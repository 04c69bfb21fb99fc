package app

import (
	"testing"
	"time"
)

func TestBackoff_NextDoublesAndCaps(t *testing.T) {
	b := newBackoff(time.Second, 5*time.Second)
	b.rand = func() float64 { return 0.5 } // zero jitter

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
}

func TestBackoff_Jitter(t *testing.T) {
	b := newBackoff(10*time.Second, time.Minute)

	b.rand = func() float64 { return 0 }
	if got := b.Next(); got != 8*time.Second {
		t.Errorf("Next() with min jitter = %v, want 8s", got)
	}

	b.Reset()
	b.rand = func() float64 { return 1 }
	if got := b.Next(); got != 12*time.Second {
		t.Errorf("Next() with max jitter = %v, want 12s", got)
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := newBackoff(time.Second, time.Minute)
	b.Next()
	b.Next()
	if b.Current() != 4*time.Second {
		t.Fatalf("Current() = %v, want 4s", b.Current())
	}
	b.Reset()
	if b.Current() != time.Second {
		t.Errorf("Current() after Reset = %v, want 1s", b.Current())
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := newBackoff(0, 0)
	if b.initial != DefaultBackoffInitial || b.max != DefaultBackoffInitial {
		t.Errorf("newBackoff(0, 0) = initial %v max %v", b.initial, b.max)
	}
}
