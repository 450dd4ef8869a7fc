package domain

import (
	"testing"
	"time"
)

func TestRunner_OnlineAt(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		lastSeen time.Time
		ttl      int
		want     bool
	}{
		{"just seen", now, 60, true},
		{"inside the window", now.Add(-90 * time.Second), 60, true},
		{"one missed heartbeat tolerated", now.Add(-119 * time.Second), 60, true},
		{"outside the window", now.Add(-130 * time.Second), 60, false},
		{"exactly at the boundary", now.Add(-120 * time.Second), 60, false},
		{"zero ttl falls back to default", now.Add(-90 * time.Second), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Runner{ID: "r1", LastSeenAt: tt.lastSeen, TTLSeconds: tt.ttl}
			if got := r.OnlineAt(now); got != tt.want {
				t.Errorf("OnlineAt = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunner_Seen_Monotonic(t *testing.T) {
	now := time.Now()
	r := &Runner{ID: "r1", LastSeenAt: now}

	// Отметка из прошлого не должна откатывать LastSeenAt.
	r.Seen(now.Add(-time.Minute))
	if !r.LastSeenAt.Equal(now) {
		t.Error("LastSeenAt must not move backwards")
	}

	later := now.Add(time.Minute)
	r.Seen(later)
	if !r.LastSeenAt.Equal(later) {
		t.Error("LastSeenAt should advance")
	}
}
