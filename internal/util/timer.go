package util

import (
	"sync"
	"time"
)

// Stopwatch measures total elapsed time and named phase laps.
type Stopwatch struct {
	start time.Time

	mu   sync.Mutex
	last time.Time
	laps map[string]int64
}

// StartStopwatch creates a stopwatch starting at the current time.
func StartStopwatch() *Stopwatch {
	now := time.Now()
	return &Stopwatch{start: now, last: now, laps: make(map[string]int64)}
}

// Lap records the milliseconds since the previous lap under name and returns it.
func (s *Stopwatch) Lap(name string) int64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	ms := now.Sub(s.last).Milliseconds()
	s.laps[name] += ms
	s.last = now
	return ms
}

// Laps returns a copy of the recorded phase durations in milliseconds.
func (s *Stopwatch) Laps() map[string]int64 {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.laps))
	for k, v := range s.laps {
		out[k] = v
	}
	return out
}

// ElapsedMs returns the elapsed milliseconds since start.
func (s *Stopwatch) ElapsedMs() int64 {
	if s == nil || s.start.IsZero() {
		return 0
	}
	return time.Since(s.start).Milliseconds()
}
