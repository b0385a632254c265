package testsession

import (
	"sync"
	"time"
)

// timerSet owns the one-shot deadline timer of each live session. Stopping
// a timer that has fired, was already stopped, or never existed is a no-op.
type timerSet struct {
	mu     sync.Mutex
	timers map[string]*timerEntry
	closed bool
}

type timerEntry struct {
	t *time.Timer
}

func newTimerSet() *timerSet {
	return &timerSet{timers: make(map[string]*timerEntry)}
}

// arm schedules fire after d, replacing any timer already armed for id.
func (s *timerSet) arm(id string, d time.Duration, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if old, ok := s.timers[id]; ok {
		old.t.Stop()
	}

	e := &timerEntry{}
	s.timers[id] = e
	e.t = time.AfterFunc(d, func() {
		s.mu.Lock()
		current := s.timers[id] == e
		if current {
			delete(s.timers, id)
		}
		s.mu.Unlock()
		if current {
			fire()
		}
	})
}

// stop cancels the timer for id. It reports whether a pending timer was
// cancelled.
func (s *timerSet) stop(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	return e.t.Stop()
}

func (s *timerSet) armed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

func (s *timerSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// close stops every timer and refuses new ones.
func (s *timerSet) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, e := range s.timers {
		e.t.Stop()
		delete(s.timers, id)
	}
}
