// Package keyboard emulates key presses so the emulator running in the
// foreground switches, loads and saves its state slots.
//
// On Linux the key events are injected through /dev/uinput, which needs
// write access (usually membership of the input group or root).
package keyboard

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

// uinputSettle is how long the kernel needs before a freshly created
// uinput device delivers events.
const uinputSettle = 2 * time.Second

var (
	ErrDeviceUnavailable = errors.New("keyboard device unavailable")
	ErrUnknownKey        = errors.New("unknown key")
)

//nolint:gochecknoglobals
var keyCodes = map[string]int{
	"0":     keybd_event.VK_0,
	"1":     keybd_event.VK_1,
	"2":     keybd_event.VK_2,
	"3":     keybd_event.VK_3,
	"4":     keybd_event.VK_4,
	"5":     keybd_event.VK_5,
	"6":     keybd_event.VK_6,
	"7":     keybd_event.VK_7,
	"8":     keybd_event.VK_8,
	"9":     keybd_event.VK_9,
	"f1":    keybd_event.VK_F1,
	"f2":    keybd_event.VK_F2,
	"f3":    keybd_event.VK_F3,
	"f4":    keybd_event.VK_F4,
	"f5":    keybd_event.VK_F5,
	"f6":    keybd_event.VK_F6,
	"f7":    keybd_event.VK_F7,
	"f8":    keybd_event.VK_F8,
	"f9":    keybd_event.VK_F9,
	"f10":   keybd_event.VK_F10,
	"f11":   keybd_event.VK_F11,
	"f12":   keybd_event.VK_F12,
	"space": keybd_event.VK_SPACE,
	"enter": keybd_event.VK_ENTER,
}

// Known reports whether name can be pressed by the Emulator.
func Known(name string) bool {
	_, ok := lookup(name)
	return ok
}

func lookup(name string) (int, bool) {
	code, ok := keyCodes[strings.ToLower(name)]
	return code, ok
}

// presser is the subset of keybd_event.KeyBonding the Emulator drives.
type presser interface {
	SetKeys(keys ...int)
	Press() error
	Release() error
	Clear()
}

// Emulator presses and releases named keys. Calls are serialized since a
// key bonding holds a single set of keys.
type Emulator struct {
	mu sync.Mutex
	kb presser
}

// NewEmulator opens the virtual keyboard device.
func NewEmulator() (*Emulator, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	slog.Debug("waiting for virtual keyboard to settle", "delay", uinputSettle)
	time.Sleep(uinputSettle)

	return &Emulator{kb: &kb}, nil
}

// PressRelease presses key, holds it for hold and releases it. The key is
// released even if the press reported an error.
func (e *Emulator) PressRelease(key string, hold time.Duration) error {
	code, ok := lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.kb.Clear()
	e.kb.SetKeys(code)

	pressErr := e.kb.Press()
	time.Sleep(hold)
	releaseErr := e.kb.Release()

	if err := errors.Join(pressErr, releaseErr); err != nil {
		return fmt.Errorf("failed to press %q: %w", key, err)
	}

	slog.Debug("key pressed", "key", key, "hold", hold)
	return nil
}
