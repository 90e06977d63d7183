package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	logrotate "github.com/axondata/go-logrotate"
)

// commandContext carries the persistent flags shared by every subcommand.
type commandContext struct {
	configPath    string
	logDir        string
	logLevel      string
	logFormat     string
	maxActive     int
	retentionDays int
	sequenceOrder string
}

// config loads the config file and applies the flags that were set.
func (c *commandContext) config(cmd *cobra.Command) (logrotate.Config, error) {
	cfg, err := logrotate.LoadConfig(c.configPath)
	if err != nil {
		return logrotate.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-dir") {
		if cfg.LockFile == filepath.Join(cfg.LogDir, logrotate.DefaultLockFileName) {
			cfg.LockFile = ""
		}
		cfg.LogDir = c.logDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = c.logFormat
	}
	if flags.Changed("max-active") {
		cfg.MaxNumberActiveFiles = c.maxActive
	}
	if flags.Changed("retention-days") {
		cfg.RetentionDays = c.retentionDays
	}
	if flags.Changed("sequence-order") {
		cfg.SequenceOrder = logrotate.SequenceOrder(c.sequenceOrder)
	}
	return cfg, nil
}

func (c *commandContext) manager(cmd *cobra.Command) (*logrotate.Manager, error) {
	cfg, err := c.config(cmd)
	if err != nil {
		return nil, err
	}
	return logrotate.New(cfg)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "logrotated",
		Short:         "Rotate, compress and prune a log directory",
		Version:       logrotate.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path (TOML)")
	flags.StringVarP(&ctx.logDir, "log-dir", "d", "", "Log directory to manage")
	flags.StringVar(&ctx.logLevel, "log-level", logrotate.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&ctx.logFormat, "log-format", logrotate.DefaultLogFormat, "Log format (console, json)")
	flags.IntVar(&ctx.maxActive, "max-active", logrotate.DefaultMaxNumberActiveFiles, "Active files kept per live process")
	flags.IntVar(&ctx.retentionDays, "retention-days", logrotate.DefaultRetentionDays, "Days archived files are kept")
	flags.StringVar(&ctx.sequenceOrder, "sequence-order", string(logrotate.SequenceOrderLexical), "Sequence ranking (lexical, numeric)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("logrotated %s\n", logrotate.GetVersion().Version))

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newGzipCommand(ctx))
	rootCmd.AddCommand(newReadCommand(ctx, "tail"))
	rootCmd.AddCommand(newReadCommand(ctx, "head"))
	rootCmd.AddCommand(newFollowCommand(ctx))

	return rootCmd
}
