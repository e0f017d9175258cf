package classify

import (
	"sync"
	"time"
)

// Guard suppresses calendar detection while direct-matched handlers run.
// Each hold ends on explicit release or at its deadline, whichever comes
// first; overlapping holds are counted so one release cannot clear
// another's suppression.
type Guard struct {
	mu    sync.Mutex
	holds int
}

// Hold suppresses detection for at most window. The returned release is
// safe to call more than once. Holding a nil Guard does nothing.
func (g *Guard) Hold(window time.Duration) (release func()) {
	if g == nil {
		return func() {}
	}
	g.mu.Lock()
	g.holds++
	g.mu.Unlock()

	var once sync.Once
	drop := func() {
		once.Do(func() {
			g.mu.Lock()
			g.holds--
			g.mu.Unlock()
		})
	}
	timer := time.AfterFunc(window, drop)
	return func() {
		timer.Stop()
		drop()
	}
}

// Suppressed reports whether any hold is active.
func (g *Guard) Suppressed() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holds > 0
}
