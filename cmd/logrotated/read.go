package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	logrotate "github.com/axondata/go-logrotate"
)

func newReadCommand(ctx *commandContext, mode string) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   mode + " FILE",
		Short: fmt.Sprintf("Print the %s lines of a file", map[string]string{"tail": "last", "head": "first"}[mode]),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkLines(lines); err != nil {
				return err
			}
			mgr, err := ctx.manager(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			done := make(chan int, 1)
			opts := logrotate.ReadOptions{
				File:    args[0],
				Lines:   lineCount(lines),
				OnData:  func(b []byte) { _, _ = out.Write(b) },
				OnClose: func(code int) { done <- code },
			}
			read := mgr.Tail
			if mode == "head" {
				read = mgr.Head
			}
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}
			if err := read(opts); err != nil {
				return err
			}
			if code := <-done; code != 0 {
				return fmt.Errorf("%s exited with code %d", mode, code)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", logrotate.DefaultReadLines, "Number of lines, 0 for none")
	return cmd
}

// lineCount maps the -n flag onto the library's line options, where zero
// selects the default.
func lineCount(n int) int {
	if n == 0 {
		return logrotate.NoLines
	}
	return n
}

func checkLines(n int) error {
	if n < 0 {
		return fmt.Errorf("-n must not be negative, got %d", n)
	}
	return nil
}

func newFollowCommand(ctx *commandContext) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "follow FILE",
		Short: "Print the last lines of a file and keep printing as it grows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkLines(lines); err != nil {
				return err
			}
			mgr, err := ctx.manager(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = mgr.Stop() }()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return follow(signalCtx, mgr, cmd, args[0], lines)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", logrotate.DefaultReadLines, "Number of lines to start with, 0 for none")
	return cmd
}

func follow(ctx context.Context, mgr *logrotate.Manager, cmd *cobra.Command, file string, lines int) error {
	out := cmd.OutOrStdout()
	registered := make(chan error, 1)
	closed := make(chan int, 1)
	var id logrotate.ListenerID

	err := mgr.TailFollow(logrotate.FollowOptions{
		File:    file,
		Lines:   lineCount(lines),
		OnData:  func(b []byte) { _, _ = out.Write(b) },
		OnClose: func(code int) { closed <- code },
		OnRegistration: func(err error, _ string, listener logrotate.ListenerID) {
			id = listener
			registered <- err
		},
	})
	if err != nil {
		return err
	}
	if err := <-registered; err != nil {
		return err
	}
	defer mgr.StopTailFollowing(file, id)

	select {
	case <-ctx.Done():
		return nil
	case code := <-closed:
		return fmt.Errorf("follow exited with code %d", code)
	}
}
