package rotation

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type fakeInput struct {
	mu     sync.Mutex
	keys   []string
	failOn string
}

func (f *fakeInput) PressRelease(key string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key == f.failOn {
		return errors.New("device gone")
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeInput) pressed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.keys)
}

func (f *fakeInput) count(key string) int {
	n := 0
	for _, k := range f.pressed() {
		if k == key {
			n++
		}
	}
	return n
}

type fakeAudio struct {
	mu   sync.Mutex
	cues []string
}

func (f *fakeAudio) Play(_ context.Context, cue string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cues = append(f.cues, cue)
	return nil
}

func (f *fakeAudio) played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.cues)
}

type fakeStatus struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeStatus) SetText(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeStatus) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.texts)
}

func (f *fakeStatus) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type fakeSignal struct {
	asserted atomic.Bool
}

func (f *fakeSignal) IsAsserted() bool { return f.asserted.Load() }

// fastConfig keeps every delay short enough for unit tests.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.MinSlotTime = 0
	cfg.MaxSlotTime = 0
	cfg.WaitPoll = 5 * time.Millisecond
	cfg.SlotKeyHold = 0
	cfg.LoadKeyHold = 0
	cfg.Settle = 0
	cfg.TrailingDelay = 10 * time.Millisecond
	cfg.ListenerPoll = 5 * time.Millisecond
	cfg.Cooldown = 0
	cfg.Grace = 0
	return cfg
}
