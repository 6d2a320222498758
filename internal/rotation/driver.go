package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/slotshuffler/internal/slotpool"
)

// Collaborators are the external devices a run drives. Audio and Status
// may be nil.
type Collaborators struct {
	Input  InputEmulator
	Audio  AudioCue
	Status StatusSink
	Signal CompletionSignal
}

// Driver composes the Scheduler and the Listener for one run.
type Driver struct {
	cfg       Config
	pool      *slotpool.Pool
	state     *State
	cancel    *Token
	scheduler *Scheduler
	listener  *Listener
	signal    CompletionSignal
	audio     AudioCue

	countdownStep time.Duration
}

func NewDriver(cfg Config, pool *slotpool.Pool, c Collaborators) *Driver {
	state := &State{}
	cancel := NewToken()
	audio := c.Audio
	if audio == nil {
		audio = nopAudio{}
	}
	return &Driver{
		cfg:           cfg,
		pool:          pool,
		state:         state,
		cancel:        cancel,
		scheduler:     NewScheduler(cfg, state, pool, cancel, c.Input, audio, c.Status),
		listener:      NewListener(cfg, state, pool, cancel, NewDebounce(cfg.Cooldown, cfg.Grace), c.Signal, audio),
		signal:        c.Signal,
		audio:         audio,
		countdownStep: time.Second,
	}
}

// State exposes the rotation state for inspection.
func (d *Driver) State() *State {
	return d.state
}

// WaitForStart plays the begin cue, blocks until the completion signal is
// asserted and then counts down.
func (d *Driver) WaitForStart(ctx context.Context, key string) error {
	slog.Info(fmt.Sprintf("press %s to begin", key))
	d.playCue(ctx, CueBegin)

	ticker := time.NewTicker(d.cfg.ListenerPoll)
	defer ticker.Stop()
	for !d.signal.IsAsserted() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	// The start press must not count as a completion.
	d.state.touch(time.Now())

	d.playCue(ctx, CueCountdown)
	for i := d.cfg.Countdown; i > 0; i-- {
		slog.Info("starting in", "seconds", i)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.countdownStep):
		}
	}
	return nil
}

// Run rotates through the pool until it is empty, a cycle fails or ctx
// ends. It returns nil once the challenge is completed.
func (d *Driver) Run(ctx context.Context) error {
	for {
		d.cancel.Clear()

		listenCtx, stopListener := context.WithCancel(ctx)
		listenerDone := make(chan struct{})
		go func() {
			defer close(listenerDone)
			if err := d.listener.Listen(listenCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("completion listener stopped", "error", err)
			}
		}()

		fired, err := d.cycles(ctx, listenerDone)
		stopListener()
		<-listenerDone

		switch {
		case err != nil:
			return err
		case !fired:
			return nil
		}
	}
}

// cycles runs scheduler cycles until the listener exits or the run ends.
// It reports whether the listener fired.
func (d *Driver) cycles(ctx context.Context, listenerDone <-chan struct{}) (bool, error) {
	for {
		outcome, err := d.scheduler.RunCycle(ctx)
		if err != nil {
			return false, err
		}
		if outcome == Finished {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}

		select {
		case <-listenerDone:
			return true, nil
		default:
		}
	}
}

func (d *Driver) playCue(ctx context.Context, cue string) {
	if err := d.audio.Play(ctx, cue, false); err != nil {
		slog.Warn("failed to play audio cue", "cue", cue, "error", err)
	}
}
