package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/USA-RedDragon/slotshuffler/internal/slotpool"
)

// Outcome tells the Driver what to do after a cycle.
type Outcome int

const (
	// Continue means another cycle should run.
	Continue Outcome = iota
	// Finished means every slot is complete and the run is over.
	Finished
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

var (
	ErrSwapFailed       = errors.New("slot swap failed")
	ErrCheckpointFailed = errors.New("checkpoint save failed")
)

// statusTimeout bounds a single status update so a slow sink can't stall
// the rotation.
const statusTimeout = 2 * time.Second

// Scheduler runs rotation cycles: activate a slot, wait a random time,
// save a checkpoint.
type Scheduler struct {
	cfg    Config
	state  *State
	pool   *slotpool.Pool
	cancel *Token
	input  InputEmulator
	audio  AudioCue
	status StatusSink

	now func() time.Time
	rng *rand.Rand
}

// NewScheduler creates a Scheduler. audio and status may be nil.
func NewScheduler(cfg Config, state *State, pool *slotpool.Pool, cancel *Token, input InputEmulator, audio AudioCue, status StatusSink) *Scheduler {
	if audio == nil {
		audio = nopAudio{}
	}
	if status == nil {
		status = nopStatus{}
	}
	return &Scheduler{
		cfg:    cfg,
		state:  state,
		pool:   pool,
		cancel: cancel,
		input:  input,
		audio:  audio,
		status: status,
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec
	}
}

// RunCycle performs one rotation cycle. It returns Finished once the pool
// is empty. Errors are fatal: the active slot no longer reflects the
// intended pick, or a checkpoint could not be saved.
func (s *Scheduler) RunCycle(ctx context.Context) (Outcome, error) {
	remaining := s.pool.Size()

	switch {
	case remaining == 0:
		return s.finish(ctx), nil
	case remaining == 1 && s.state.consumeFinal():
		slot, err := s.pool.PickRandomExcluding("")
		if err != nil {
			return Continue, fmt.Errorf("invariant violated picking final slot: %w", err)
		}
		slog.Info("final rotation", "slot", slot)
		if s.cfg.FinalSlot != "" && s.cfg.FinalSlot != slot {
			slog.Warn("final slot differs from the configured one", "slot", slot, "expected", s.cfg.FinalSlot)
		}
		s.playCue(ctx, CueFinalRotation)
		if err := s.activate(ctx, slot, remaining); err != nil {
			return Continue, err
		}
	case remaining == 1:
		// The sole slot stays loaded; only the wait and checkpoint repeat.
		s.updateStatus(ctx, remaining)
		s.state.touch(s.now())
		slog.Debug("single slot remains, keeping it active", "slot", s.state.Active())
	default:
		slot, err := s.pool.PickRandomExcluding(s.state.Active())
		if err != nil {
			return Continue, fmt.Errorf("invariant violated picking slot: %w", err)
		}
		if err := s.activate(ctx, slot, remaining); err != nil {
			return Continue, err
		}
	}

	slog.Info("remaining slots", "slots", s.pool.Snapshot())

	if s.wait(ctx, s.slotDuration()) {
		slog.Debug("slot wait interrupted")
	}

	if err := s.checkpoint(); err != nil {
		return Continue, err
	}
	return Continue, nil
}

// activate selects slot in the host application and loads its state.
// State is only updated once both presses succeeded.
func (s *Scheduler) activate(ctx context.Context, slot string, remaining int) error {
	s.updateStatus(ctx, remaining)

	if err := s.input.PressRelease(slot, s.cfg.SlotKeyHold); err != nil {
		slog.Error("swap failed", "slot", slot, "error", err)
		return fmt.Errorf("%w: selecting slot %s: %w", ErrSwapFailed, slot, err)
	}
	if err := s.input.PressRelease(s.cfg.LoadStateKey, s.cfg.LoadKeyHold); err != nil {
		slog.Error("swap failed", "slot", slot, "error", err)
		return fmt.Errorf("%w: loading slot %s: %w", ErrSwapFailed, slot, err)
	}

	s.state.activate(slot, s.now())
	slog.Info("swapping to slot", "slot", slot, "remaining", remaining)
	return nil
}

func (s *Scheduler) checkpoint() error {
	if err := s.input.PressRelease(s.cfg.SaveStateKey, s.cfg.SlotKeyHold); err != nil {
		slog.Error("checkpoint failed", "slot", s.state.Active(), "error", err)
		return fmt.Errorf("%w: %w", ErrCheckpointFailed, err)
	}
	slog.Debug("checkpoint saved", "slot", s.state.Active())
	time.Sleep(s.cfg.Settle)
	return nil
}

func (s *Scheduler) finish(ctx context.Context) Outcome {
	slog.Info("challenge completed")
	s.updateStatus(ctx, 0)
	s.playCue(ctx, CueChallengeComplete)

	t := time.NewTimer(s.cfg.TrailingDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return Finished
}

// slotDuration draws uniformly from [MinSlotTime, MaxSlotTime].
func (s *Scheduler) slotDuration() time.Duration {
	spread := s.cfg.MaxSlotTime - s.cfg.MinSlotTime
	if spread <= 0 {
		return s.cfg.MinSlotTime
	}
	return s.cfg.MinSlotTime + time.Duration(s.rng.Int64N(int64(spread)+1))
}

// wait blocks for d or until the cancellation token is set or ctx ends.
// It reports whether the wait ended early.
func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	if s.cancel.IsSet() {
		return true
	}
	if d <= 0 {
		return false
	}

	deadline := time.NewTimer(d)
	defer deadline.Stop()

	if s.cfg.WaitPoll <= 0 {
		select {
		case <-deadline.C:
			return false
		case <-s.cancel.Done():
			return true
		case <-ctx.Done():
			return true
		}
	}

	ticker := time.NewTicker(s.cfg.WaitPoll)
	defer ticker.Stop()
	for {
		select {
		case <-deadline.C:
			return false
		case <-ticker.C:
			if s.cancel.IsSet() {
				return true
			}
		case <-ctx.Done():
			return true
		}
	}
}

func (s *Scheduler) updateStatus(ctx context.Context, remaining int) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	if err := s.status.SetText(ctx, s.cfg.StatusLabel, fmt.Sprintf(s.cfg.StatusFormat, remaining)); err != nil {
		slog.Warn("failed to update status text", "label", s.cfg.StatusLabel, "error", err)
	}
}

func (s *Scheduler) playCue(ctx context.Context, cue string) {
	if err := s.audio.Play(ctx, cue, false); err != nil {
		slog.Warn("failed to play audio cue", "cue", cue, "error", err)
	}
}
