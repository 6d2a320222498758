package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/USA-RedDragon/slotshuffler/internal/keyboard"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type StatusBackend string

const (
	StatusBackendNone  StatusBackend = "none"
	StatusBackendOBS   StatusBackend = "obs"
	StatusBackendRedis StatusBackend = "redis"
)

type Config struct {
	LogLevel  LogLevel `name:"log-level" description:"Logging level for the application. One of debug, info, warn, or error" default:"info"`
	Slots     []string `name:"slots" description:"Save slots to rotate through. Each slot is also the key that selects it" default:"1,2,3,4,5,6,7,8,9,0"`
	FinalSlot string   `name:"final-slot" description:"Optional slot expected to be played last, logged when only one slot remains"`
	Timing    Timing   `name:"timing" description:"Rotation timing configuration"`
	Keys      Keys     `name:"keys" description:"Key bindings used to drive the emulator"`
	Audio     Audio    `name:"audio" description:"Audio cue configuration"`
	Status    Status   `name:"status" description:"On-screen status text configuration"`
}

// Timing holds every duration the scheduler and listener use.
type Timing struct {
	MinSlotTime  time.Duration `name:"min-slot-time" description:"Minimum time a slot stays active" default:"2s"`
	MaxSlotTime  time.Duration `name:"max-slot-time" description:"Maximum time a slot stays active" default:"20s"`
	Cooldown     time.Duration `name:"cooldown" description:"Minimum time between two accepted completion signals" default:"2s"`
	Grace        time.Duration `name:"grace" description:"Completion signals within this long after a swap are ignored" default:"1s"`
	ListenerPoll time.Duration `name:"listener-poll" description:"How often the completion signal is sampled" default:"50ms"`
	// WaitPoll of zero waits on the cancellation channel directly.
	WaitPoll      time.Duration `name:"wait-poll" description:"How often the slot wait checks for cancellation. 0 waits on the cancellation signal directly" default:"100ms"`
	SlotKeyHold   time.Duration `name:"slot-key-hold" description:"How long the slot select key is held" default:"50ms"`
	LoadKeyHold   time.Duration `name:"load-key-hold" description:"How long the load state key is held" default:"100ms"`
	Settle        time.Duration `name:"settle" description:"Delay after saving state so the emulator can process it" default:"100ms"`
	TrailingDelay time.Duration `name:"trailing-delay" description:"How long to wait after the challenge is completed before exiting" default:"60s"`
	Countdown     uint          `name:"countdown" description:"Seconds counted down before the first rotation" default:"3"`
}

type Keys struct {
	Completion string `name:"completion" description:"Terminal key that marks the active slot complete" default:"space"`
	LoadState  string `name:"load-state" description:"Emulator key that loads the active slot" default:"F7"`
	SaveState  string `name:"save-state" description:"Emulator key that saves the active slot" default:"F5"`
}

type Audio struct {
	Enabled           bool   `name:"enabled" description:"Whether to play audio cues" default:"true"`
	Directory         string `name:"directory" description:"Directory containing the audio cue files" default:"."`
	Begin             string `name:"begin" description:"Cue played while waiting for the start signal" default:"Press Spacebar To Begin.mp3"`
	Countdown         string `name:"countdown" description:"Cue played at the start of the countdown" default:"Starting in 3 2 1.mp3"`
	FinalRotation     string `name:"final-rotation" description:"Cue played when the last remaining slot is loaded" default:"Final Speedrun.mp3"`
	SlotComplete      string `name:"slot-complete" description:"Cue played when a slot is marked complete" default:"Speedrun Complete.mp3"`
	ChallengeComplete string `name:"challenge-complete" description:"Cue played when every slot is complete" default:"You Have Completed The Challenge.mp3"`
}

type Status struct {
	Backend StatusBackend `name:"backend" description:"Where to publish the remaining slot count. One of none, obs, or redis" default:"none"`
	Source  string        `name:"source" description:"Name of the text element to update" default:"RACES LEFT"`
	Format  string        `name:"format" description:"Status text format. %d is replaced with the remaining slot count" default:"SPEEDRUNS LEFT: %d"`
	OBS     OBS           `name:"obs" description:"OBS websocket configuration"`
	Redis   Redis         `name:"redis" description:"Redis status mirror configuration"`
}

// OBS talks to obs-websocket 5.x.
type OBS struct {
	URL      string `name:"url" description:"OBS websocket URL" default:"ws://localhost:4455"`
	Password string `name:"password" description:"OBS websocket password, empty when authentication is disabled"`
}

type Redis struct {
	Addr     string `name:"addr" description:"Redis server address" default:"localhost:6379"`
	Password string `name:"password" description:"Redis password"`
	DB       int    `name:"db" description:"Redis database number"`
	Key      string `name:"key" description:"Key the status text is stored under" default:"slotshuffler:status"`
	Channel  string `name:"channel" description:"Channel the status text is published on, empty to disable publishing"`
}

var (
	ErrInvalidLogLevel      = errors.New("invalid log level provided")
	ErrNoSlots              = errors.New("at least one slot must be configured")
	ErrInvalidSlot          = errors.New("slot has no matching key")
	ErrDuplicateSlot        = errors.New("duplicate slot provided")
	ErrInvalidFinalSlot     = errors.New("final slot is not one of the configured slots")
	ErrInvalidSlotTime      = errors.New("invalid slot time range provided")
	ErrInvalidDuration      = errors.New("durations must not be negative")
	ErrInvalidListenerPoll  = errors.New("listener poll interval must be positive")
	ErrInvalidKey           = errors.New("invalid key binding provided")
	ErrInvalidCompletionKey = errors.New("invalid completion key provided")
	ErrInvalidAudioDir      = errors.New("audio directory must be set when audio is enabled")
	ErrInvalidStatusBackend = errors.New("invalid status backend provided")
	ErrInvalidStatusSource  = errors.New("status source must be set")
	ErrInvalidStatusFormat  = errors.New("status format must contain exactly one %d verb")
	ErrInvalidOBSURL        = errors.New("invalid OBS websocket URL provided")
	ErrInvalidRedisAddr     = errors.New("invalid Redis address provided")
	ErrInvalidRedisKey      = errors.New("invalid Redis key provided")
)

func (c Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return ErrInvalidLogLevel
	}

	if len(c.Slots) == 0 {
		return ErrNoSlots
	}

	seen := make(map[string]struct{}, len(c.Slots))
	for _, slot := range c.Slots {
		if _, ok := seen[slot]; ok {
			return ErrDuplicateSlot
		}
		seen[slot] = struct{}{}

		if !keyboard.Known(slot) {
			return ErrInvalidSlot
		}
	}

	if c.FinalSlot != "" && !slices.Contains(c.Slots, c.FinalSlot) {
		return ErrInvalidFinalSlot
	}

	if err := c.Timing.validate(); err != nil {
		return err
	}

	if !keyboard.Known(c.Keys.LoadState) || !keyboard.Known(c.Keys.SaveState) {
		return ErrInvalidKey
	}

	if _, ok := CompletionRune(c.Keys.Completion); !ok {
		return ErrInvalidCompletionKey
	}

	if c.Audio.Enabled && c.Audio.Directory == "" {
		return ErrInvalidAudioDir
	}

	return c.Status.validate()
}

func (t Timing) validate() error {
	durations := []time.Duration{
		t.MinSlotTime, t.MaxSlotTime, t.Cooldown, t.Grace, t.WaitPoll,
		t.SlotKeyHold, t.LoadKeyHold, t.Settle, t.TrailingDelay,
	}
	for _, d := range durations {
		if d < 0 {
			return ErrInvalidDuration
		}
	}

	if t.MinSlotTime > t.MaxSlotTime {
		return ErrInvalidSlotTime
	}

	if t.ListenerPoll <= 0 {
		return ErrInvalidListenerPoll
	}

	return nil
}

func (s Status) validate() error {
	// A bad format shows up as %!d(MISSING) or %!(EXTRA ...) in the output.
	if strings.Count(s.Format, "%d") != 1 || strings.Contains(fmt.Sprintf(s.Format, 0), "%!") {
		return ErrInvalidStatusFormat
	}

	switch s.Backend {
	case StatusBackendNone:
		return nil
	case StatusBackendOBS:
		if s.OBS.URL == "" {
			return ErrInvalidOBSURL
		}
	case StatusBackendRedis:
		if s.Redis.Addr == "" {
			return ErrInvalidRedisAddr
		}
		if s.Redis.Key == "" {
			return ErrInvalidRedisKey
		}
	default:
		return ErrInvalidStatusBackend
	}

	if s.Source == "" {
		return ErrInvalidStatusSource
	}

	return nil
}

// CompletionRune maps the completion key name to the rune the terminal
// delivers for it. Single characters map to themselves.
func CompletionRune(key string) (rune, bool) {
	switch key {
	case "space":
		return ' ', true
	case "enter":
		return '\r', true
	case "tab":
		return '\t', true
	}
	r := []rune(key)
	if len(r) != 1 {
		return 0, false
	}
	return r[0], true
}
