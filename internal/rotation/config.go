package rotation

import "time"

type Config struct {
	MinSlotTime time.Duration
	MaxSlotTime time.Duration
	// WaitPoll is how often the slot wait checks the cancellation token.
	// Zero waits on the token's channel instead of polling.
	WaitPoll      time.Duration
	SlotKeyHold   time.Duration
	LoadKeyHold   time.Duration
	Settle        time.Duration
	TrailingDelay time.Duration

	Cooldown     time.Duration
	Grace        time.Duration
	ListenerPoll time.Duration

	LoadStateKey string
	SaveStateKey string

	StatusLabel  string
	StatusFormat string

	FinalSlot string
	Countdown uint
}

func DefaultConfig() Config {
	return Config{
		MinSlotTime:   2 * time.Second,
		MaxSlotTime:   20 * time.Second,
		WaitPoll:      100 * time.Millisecond,
		SlotKeyHold:   50 * time.Millisecond,
		LoadKeyHold:   100 * time.Millisecond,
		Settle:        100 * time.Millisecond,
		TrailingDelay: 60 * time.Second,
		Cooldown:      2 * time.Second,
		Grace:         time.Second,
		ListenerPoll:  50 * time.Millisecond,
		LoadStateKey:  "F7",
		SaveStateKey:  "F5",
		StatusLabel:   "RACES LEFT",
		StatusFormat:  "SPEEDRUNS LEFT: %d",
		Countdown:     3,
	}
}
