// Package cli defines the command-line interface for jiradraft.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/jiradraft/internal/logging"
)

// Options stores global CLI options shared between commands.
type Options struct {
	ConfigPath string
	LogLevel   logging.Level
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		LogLevel: logging.LevelInfo,
	}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "jiradraft",
		Short:         "jiradraft drafts Jira reply comments in your voice",
		Long:          "jiradraft reads a rendered Jira issue page, finds the latest question addressed to you and drafts a reply through an OpenAI-compatible chat completion service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envVars := baseEnv{}
			if err := parseEnv(&envVars); err != nil {
				return err
			}

			levelValue := cmd.Flag("log-level").Value.String()
			if !cmd.Flags().Changed("log-level") && envPresent("JIRADRAFT_LOG_LEVEL") {
				levelValue = envVars.LogLevel
			}
			if !cmd.Flags().Changed("config") && envPresent("JIRADRAFT_CONFIG") {
				opts.ConfigPath = envVars.ConfigPath
			}

			level := logging.ParseLevel(levelValue)
			opts.LogLevel = level
			logger = logging.NewLogger(cmd.ErrOrStderr(), level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to the settings file (default: <user config dir>/jiradraft/config.env)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newDraftCommand(opts),
		newInspectCommand(opts),
		newConfigCommand(opts),
		newServeCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}

// reportedError marks an error the user has already been shown.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// Reported reports whether err was already shown to the user by the command itself.
func Reported(err error) bool {
	var re reportedError
	return errors.As(err, &re)
}
