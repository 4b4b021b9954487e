package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hoanghai1803/sprout/internal/config"
)

type rootOptions struct {
	configPath string
	envFile    string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "sprout",
		Short:        "Generate and publish blog articles for Sprout",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.toml", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")

	cmd.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newTitlesCmd(opts),
		newModelCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// load reads the dotenv file, then the config, and installs the logger.
// Provider keys are read from the environment at call time, so the dotenv
// file must be loaded first.
func (o *rootOptions) load() error {
	if o.envFile != "" {
		err := godotenv.Load(o.envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", o.envFile, err)
		}
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))
	return nil
}
