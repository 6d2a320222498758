// Package trigger turns key presses read from the controlling terminal
// into a pollable completion signal.
//
// A terminal only reports key presses, not whether a key is held down, so
// a press counts as asserted for a short hold window afterwards. The
// window should be longer than the listener poll interval so every press
// is sampled at least once.
package trigger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-tty"
)

// DefaultHold is how long a key press stays asserted.
const DefaultHold = 250 * time.Millisecond

var ErrDeviceUnavailable = errors.New("terminal unavailable")

// runeReader is the part of *tty.TTY the Terminal reads from.
type runeReader interface {
	ReadRune() (rune, error)
}

// Terminal watches a terminal for a single key.
type Terminal struct {
	key  rune
	hold time.Duration
	now  func() time.Time

	lastPress atomic.Int64 // UnixNano, 0 if never pressed
	closeOnce sync.Once
	closer    func() error
	done      chan struct{}
}

// Open puts the controlling terminal in raw mode and starts watching it
// for key.
func Open(key rune, hold time.Duration) (*Terminal, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	term := newTerminal(t, key, hold)
	term.closer = t.Close
	return term, nil
}

func newTerminal(r runeReader, key rune, hold time.Duration) *Terminal {
	t := &Terminal{
		key:  key,
		hold: hold,
		now:  time.Now,
		done: make(chan struct{}),
	}
	go t.read(r)
	return t
}

func (t *Terminal) read(r runeReader) {
	defer close(t.done)
	for {
		ch, err := r.ReadRune()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("stopped reading terminal", "error", err)
			}
			return
		}
		if ch == t.key {
			t.lastPress.Store(t.now().UnixNano())
		}
	}
}

// IsAsserted reports whether the key was pressed within the hold window.
func (t *Terminal) IsAsserted() bool {
	last := t.lastPress.Load()
	if last == 0 {
		return false
	}
	return t.now().Sub(time.Unix(0, last)) < t.hold
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.closer != nil {
			err = t.closer()
		}
	})
	return err
}
