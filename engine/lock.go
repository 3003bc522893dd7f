package engine

import (
	"sync"
	"time"
)

// lockTable serializes mutations per session. Cross-session operations run in
// parallel; within one session every mutating call holds the session slot for
// its full validate-and-append span. Acquisition times out rather than
// queueing a request thread forever.
type lockTable struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[string]chan struct{})}
}

func (l *lockTable) slot(sessionID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[sessionID]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[sessionID] = s
	}
	return s
}

// acquire takes the session slot or fails with ErrSessionBusy after timeout.
func (l *lockTable) acquire(sessionID string, timeout time.Duration) error {
	s := l.slot(sessionID)
	select {
	case s <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrSessionBusy
	}
}

func (l *lockTable) release(sessionID string) {
	<-l.slot(sessionID)
}
