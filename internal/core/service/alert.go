package service

import (
	"context"
	"log"
	"sync"

	"github.com/rl1809/table-order/internal/port"
)

// AlertDispatcher plays an audio cue when the pending count rises. It only
// remembers the last count it saw, so a drop followed by a rise fires again.
type AlertDispatcher struct {
	player port.SoundPlayer

	mu       sync.Mutex
	previous int
	muted    bool
	alive    func() bool

	wg sync.WaitGroup
}

func NewAlertDispatcher(player port.SoundPlayer) *AlertDispatcher {
	return &AlertDispatcher{
		player: player,
		alive:  func() bool { return true },
	}
}

// SetLiveness installs the owning view's liveness check. Playback results
// arriving after the view is gone are dropped.
func (a *AlertDispatcher) SetLiveness(alive func() bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alive = alive
}

func (a *AlertDispatcher) SetMuted(muted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.muted = muted
}

func (a *AlertDispatcher) Muted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.muted
}

// Observe records pending and reports whether a cue was started. The count is
// recorded even while muted, so unmuting never replays an old rise.
func (a *AlertDispatcher) Observe(ctx context.Context, pending int) bool {
	a.mu.Lock()
	fire := pending > a.previous && !a.muted
	a.previous = pending
	alive := a.alive
	a.mu.Unlock()

	if !fire || a.player == nil {
		return fire
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := a.player.Play(ctx)
		if err == nil || !alive() {
			return
		}
		log.Printf("alert: playback failed: %v", err)
	}()
	return true
}

// Wait blocks until every started cue has finished.
func (a *AlertDispatcher) Wait() {
	a.wg.Wait()
}
