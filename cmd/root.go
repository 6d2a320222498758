package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/USA-RedDragon/configulator"
	"github.com/USA-RedDragon/slotshuffler/internal/audio"
	"github.com/USA-RedDragon/slotshuffler/internal/config"
	"github.com/USA-RedDragon/slotshuffler/internal/keyboard"
	"github.com/USA-RedDragon/slotshuffler/internal/rotation"
	"github.com/USA-RedDragon/slotshuffler/internal/slotpool"
	"github.com/USA-RedDragon/slotshuffler/internal/status"
	"github.com/USA-RedDragon/slotshuffler/internal/trigger"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "slotshuffler",
		Short:   "Randomly rotate between emulator save slots until every run is complete",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("slotshuffler - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return fmt.Errorf("failed to get config from context")
	}

	cfg, err := c.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	input, err := keyboard.NewEmulator()
	if err != nil {
		return fmt.Errorf("failed to open virtual keyboard: %w", err)
	}

	completionKey, _ := config.CompletionRune(cfg.Keys.Completion)
	signal, err := trigger.Open(completionKey, trigger.DefaultHold)
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	defer func() {
		if err := signal.Close(); err != nil {
			slog.Error("failed to restore terminal", "error", err)
		}
	}()

	var cues rotation.AudioCue = audio.Silent{}
	if cfg.Audio.Enabled {
		player, err := audio.NewPlayer(cfg.Audio.Directory, map[string]string{
			rotation.CueBegin:             cfg.Audio.Begin,
			rotation.CueCountdown:         cfg.Audio.Countdown,
			rotation.CueFinalRotation:     cfg.Audio.FinalRotation,
			rotation.CueSlotComplete:      cfg.Audio.SlotComplete,
			rotation.CueChallengeComplete: cfg.Audio.ChallengeComplete,
		})
		if err != nil {
			return fmt.Errorf("failed to open audio output: %w", err)
		}
		defer player.Close()
		cues = player
	}

	sink, closeSink, err := openStatus(ctx, cfg.Status)
	if err != nil {
		return fmt.Errorf("failed to open status display, is OBS running with websockets enabled?: %w", err)
	}
	defer closeSink()

	driver := rotation.NewDriver(rotationConfig(cfg), slotpool.New(cfg.Slots), rotation.Collaborators{
		Input:  input,
		Audio:  cues,
		Status: sink,
		Signal: signal,
	})

	stop := func(sig os.Signal) {
		slog.Info("received signal, shutting down...", "signal", sig.String())
		cancel()
	}
	shutdown.AddWithParam(stop)
	go shutdown.Listen(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	if err := driver.WaitForStart(ctx, cfg.Keys.Completion); err != nil {
		return ignoreCanceled(err)
	}

	if err := driver.Run(ctx); err != nil {
		return ignoreCanceled(err)
	}
	slog.Info("every slot is complete, exiting")
	return nil
}

func setupLogger(level config.LogLevel) {
	var logger *slog.Logger
	switch level {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	}
	slog.SetDefault(logger.With("run", uuid.NewString()))
}

func rotationConfig(cfg config.Config) rotation.Config {
	return rotation.Config{
		MinSlotTime:   cfg.Timing.MinSlotTime,
		MaxSlotTime:   cfg.Timing.MaxSlotTime,
		WaitPoll:      cfg.Timing.WaitPoll,
		SlotKeyHold:   cfg.Timing.SlotKeyHold,
		LoadKeyHold:   cfg.Timing.LoadKeyHold,
		Settle:        cfg.Timing.Settle,
		TrailingDelay: cfg.Timing.TrailingDelay,
		Cooldown:      cfg.Timing.Cooldown,
		Grace:         cfg.Timing.Grace,
		ListenerPoll:  cfg.Timing.ListenerPoll,
		LoadStateKey:  cfg.Keys.LoadState,
		SaveStateKey:  cfg.Keys.SaveState,
		StatusLabel:   cfg.Status.Source,
		StatusFormat:  cfg.Status.Format,
		FinalSlot:     cfg.FinalSlot,
		Countdown:     cfg.Timing.Countdown,
	}
}

// openStatus returns the configured status sink, or nil when disabled.
func openStatus(ctx context.Context, cfg config.Status) (rotation.StatusSink, func(), error) {
	switch cfg.Backend {
	case config.StatusBackendOBS:
		obs, err := status.DialOBS(ctx, cfg.OBS.URL, cfg.OBS.Password)
		if err != nil {
			return nil, nil, err
		}
		return obs, func() {
			if err := obs.Close(); err != nil {
				slog.Error("error closing OBS connection", "error", err)
			}
		}, nil
	case config.StatusBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		r, err := status.NewRedis(ctx, rdb, cfg.Redis.Key, status.WithChannel(cfg.Redis.Channel))
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return r, func() {
			if err := r.Close(); err != nil {
				slog.Error("error closing Redis connection", "error", err)
			}
		}, nil
	default:
		return nil, func() {}, nil
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
