package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	logrotate "github.com/axondata/go-logrotate"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the log directory until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager(cmd)
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), mgr)
		},
	}
}

func runDaemon(parent context.Context, mgr *logrotate.Manager) error {
	cfg := mgr.Config()

	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lock := flock.New(cfg.LockFile)
	ok, err := lock.TryLock()
	if err != nil {
		return &logrotate.OpError{Op: logrotate.OpLock, Path: cfg.LockFile, Err: err}
	}
	if !ok {
		return &logrotate.OpError{Op: logrotate.OpLock, Path: cfg.LockFile, Err: logrotate.ErrLocked}
	}
	defer func() { _ = lock.Unlock() }()

	if cfg.PidFile != "" {
		pid := []byte(strconv.Itoa(os.Getpid()) + "\n")
		if err := renameio.WriteFile(cfg.PidFile, pid, logrotate.FileMode); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer func() { _ = os.Remove(cfg.PidFile) }()
	}

	if err := mgr.Start(signalCtx); err != nil {
		return err
	}
	<-signalCtx.Done()

	return mgr.Stop()
}
