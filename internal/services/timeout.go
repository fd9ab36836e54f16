package services

import (
	"sync"
	"time"
)

// TimeoutSupervisor owns the per-participant answer-deadline timers. Arm
// schedules a one-shot callback for a deadline; Disarm cancels it if still
// pending. Disarming a timer that already fired (or was never armed) is a
// no-op, so callers never need to know whether they won the race — the fired
// callback is expected to re-check participant state before acting.
type TimeoutSupervisor struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimeoutSupervisor creates an empty supervisor
func NewTimeoutSupervisor() *TimeoutSupervisor {
	return &TimeoutSupervisor{
		timers: make(map[string]*time.Timer),
	}
}

// Arm schedules fn to run once at deadline. Re-arming an existing key
// replaces the pending timer.
func (s *TimeoutSupervisor) Arm(key string, deadline time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(time.Until(deadline), func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

// Disarm cancels a pending timer. Returns false when no timer was pending,
// which includes the case where the callback has already started.
func (s *TimeoutSupervisor) Disarm(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return false
	}
	delete(s.timers, key)
	return t.Stop()
}

// Pending returns the number of armed timers
func (s *TimeoutSupervisor) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// StopAll cancels every pending timer; used at shutdown
func (s *TimeoutSupervisor) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}
