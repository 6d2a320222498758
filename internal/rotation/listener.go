package rotation

import (
	"context"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/slotshuffler/internal/slotpool"
)

// Listener waits for the completion signal and marks the active slot
// complete. A Listener fires at most once per Listen call.
type Listener struct {
	poll     time.Duration
	state    *State
	pool     *slotpool.Pool
	cancel   *Token
	debounce *Debounce
	signal   CompletionSignal
	audio    AudioCue

	now func() time.Time
}

// NewListener creates a Listener. audio may be nil.
func NewListener(cfg Config, state *State, pool *slotpool.Pool, cancel *Token, debounce *Debounce, signal CompletionSignal, audio AudioCue) *Listener {
	if audio == nil {
		audio = nopAudio{}
	}
	return &Listener{
		poll:     cfg.ListenerPoll,
		state:    state,
		pool:     pool,
		cancel:   cancel,
		debounce: debounce,
		signal:   signal,
		audio:    audio,
		now:      time.Now,
	}
}

// Listen samples the completion signal every poll interval until a signal
// is accepted, in which case it returns nil, or ctx ends.
func (l *Listener) Listen(ctx context.Context) error {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.sample(ctx) {
				return nil
			}
		}
	}
}

// sample checks the signal once and reports whether it was accepted.
func (l *Listener) sample(ctx context.Context) bool {
	if !l.signal.IsAsserted() {
		return false
	}

	now := l.now()
	active, lastSwap := l.state.snapshot()
	if !l.debounce.Accept(now, lastSwap) {
		slog.Debug("completion signal ignored", "sinceSwap", now.Sub(lastSwap))
		return false
	}

	if active != "" && l.pool.Remove(active) {
		slog.Info("slot complete", "slot", active, "remaining", l.pool.Size())
	}

	l.cancel.Set()

	if l.pool.Size() > 1 {
		if err := l.audio.Play(ctx, CueSlotComplete, false); err != nil {
			slog.Warn("failed to play audio cue", "cue", CueSlotComplete, "error", err)
		}
	}
	return true
}
