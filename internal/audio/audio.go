// Package audio plays the named cues that accompany a run.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

const (
	// SampleRate matches the mixer rate that avoids crackling on most
	// capture setups.
	SampleRate beep.SampleRate = 48000
	bufferSize                 = 1024
	resampleQuality            = 4
)

var (
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrUnknownCue        = errors.New("unknown audio cue")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Player maps cue names to files in a directory and plays them through
// the default output device.
type Player struct {
	dir  string
	cues map[string]string
	play func(beep.Streamer)
}

// NewPlayer opens the speaker. cues maps cue names to file names relative
// to dir.
func NewPlayer(dir string, cues map[string]string) (*Player, error) {
	if err := speaker.Init(SampleRate, bufferSize); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return &Player{
		dir:  dir,
		cues: cues,
		play: func(s beep.Streamer) { speaker.Play(s) },
	}, nil
}

// Play starts cue. With block set it returns when playback has finished
// or ctx ends; otherwise it returns once playback has started.
func (p *Player) Play(ctx context.Context, cue string, block bool) error {
	file, ok := p.cues[cue]
	if !ok || file == "" {
		return fmt.Errorf("%w: %s", ErrUnknownCue, cue)
	}

	streamer, format, err := decode(filepath.Join(p.dir, file))
	if err != nil {
		return err
	}

	var s beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, SampleRate, streamer)
	}

	done := make(chan struct{})
	p.play(beep.Seq(s, beep.Callback(func() {
		if err := streamer.Close(); err != nil {
			slog.Debug("failed to close audio stream", "cue", cue, "error", err)
		}
		close(done)
	})))
	slog.Debug("playing audio cue", "cue", cue, "file", file, "length", format.SampleRate.D(streamer.Len()).Round(time.Millisecond))

	if !block {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the output device.
func (p *Player) Close() {
	speaker.Close()
}

func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".mp3" && ext != ".wav" {
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open audio file: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	if ext == ".mp3" {
		streamer, format, err = mp3.Decode(f)
	} else {
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return streamer, format, nil
}

// Silent satisfies the cue interface without an output device.
type Silent struct{}

func (Silent) Play(context.Context, string, bool) error { return nil }
