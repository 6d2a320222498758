package rotation

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Debounce decides whether a sampled completion signal is accepted. A
// signal is accepted only when at least grace has passed since the last
// swap and at least cooldown has passed since the last accepted signal.
// Both conditions are required; neither takes precedence.
type Debounce struct {
	mu       sync.Mutex
	grace    time.Duration
	cooldown *rate.Limiter
	last     time.Time
}

func NewDebounce(cooldown, grace time.Duration) *Debounce {
	limit := rate.Inf
	if cooldown > 0 {
		limit = rate.Every(cooldown)
	}
	return &Debounce{
		grace:    grace,
		cooldown: rate.NewLimiter(limit, 1),
	}
}

// Accept reports whether a signal sampled at now should be acted on and,
// if so, records now as the last accepted signal.
func (d *Debounce) Accept(now, lastSwap time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if now.Sub(lastSwap) < d.grace {
		return false
	}
	if !d.cooldown.AllowN(now, 1) {
		return false
	}
	d.last = now
	return true
}

// LastAccepted returns when a signal was last accepted.
func (d *Debounce) LastAccepted() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
