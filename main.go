package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/USA-RedDragon/configulator"
	"github.com/USA-RedDragon/slotshuffler/cmd"
	"github.com/USA-RedDragon/slotshuffler/internal/config"
)

// https://goreleaser.com/cookbooks/using-main.version/
//
//nolint:gochecknoglobals
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := cmd.NewCommand(version, commit)

	c := configulator.New[config.Config]().
		WithEnvironmentVariables(&configulator.EnvironmentVariableOptions{
			Separator: "_",
		}).
		WithFile(&configulator.FileOptions{
			Paths: []string{"config.yaml"},
		}).
		WithPFlags(rootCmd.Flags(), nil)

	rootCmd.SetContext(c.WithContext(context.Background()))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Encountered an error.", "error", err.Error())
		os.Exit(1)
	}
}
