package rotation

import (
	"context"
	"time"
)

// Logical audio cue names. The audio backend maps them to files.
const (
	CueBegin             = "begin"
	CueCountdown         = "countdown"
	CueFinalRotation     = "final-rotation"
	CueSlotComplete      = "slot-complete"
	CueChallengeComplete = "challenge-complete"
)

// InputEmulator presses and releases a named input of the host
// application, holding it for hold.
type InputEmulator interface {
	PressRelease(key string, hold time.Duration) error
}

// AudioCue plays a named cue. With block set, Play returns once playback
// has finished.
type AudioCue interface {
	Play(ctx context.Context, cue string, block bool) error
}

// StatusSink updates an on-screen text element.
type StatusSink interface {
	SetText(ctx context.Context, label, text string) error
}

// CompletionSignal reports whether the "mark complete" trigger is
// currently asserted.
type CompletionSignal interface {
	IsAsserted() bool
}

type nopAudio struct{}

func (nopAudio) Play(context.Context, string, bool) error { return nil }

type nopStatus struct{}

func (nopStatus) SetText(context.Context, string, string) error { return nil }
