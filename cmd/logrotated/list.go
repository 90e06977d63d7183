package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	logrotate "github.com/axondata/go-logrotate"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "Show how each file in the log directory is classified",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager(cmd)
			if err != nil {
				return err
			}
			classified, err := mgr.Classify(cmd.Context())
			if err != nil {
				return err
			}
			live, err := logrotate.DefaultLiveness().Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(classified.Active)+len(classified.Archived) == 0 {
				fmt.Fprintln(out, "No log files found")
				return nil
			}
			fmt.Fprintln(out, renderClassification(afero.NewOsFs(), classified, live, mgr.RetentionHorizon()))
			return nil
		},
	}
}

func renderClassification(fs afero.Fs, c logrotate.Classification, live logrotate.LiveSet, horizon time.Time) string {
	describe := func(path string) (string, string, time.Time) {
		info, err := fs.Stat(path)
		if err != nil {
			return "-", "-", time.Time{}
		}
		return humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()), info.ModTime()
	}

	rows := make([][]string, 0, len(c.Active)+len(c.Archived))
	for _, rec := range c.Active {
		size, modified, _ := describe(rec.Path)
		note := "live"
		if !live.Alive(rec.PID) {
			note = "dead, will compress"
		}
		rows = append(rows, []string{filepath.Base(rec.Path), "active", strconv.Itoa(rec.PID), rec.RawSequence, size, modified, note})
	}
	for _, rec := range c.Archived {
		size, modified, mtime := describe(rec.Path)
		note := ""
		if !mtime.IsZero() && mtime.Before(horizon) {
			note = "expired, will prune"
		}
		rows = append(rows, []string{filepath.Base(rec.Path), "archived", strconv.Itoa(rec.PID), rec.RawSequence, size, modified, note})
	}

	headers := []string{"File", "Kind", "PID", "Seq", "Size", "Modified", "Note"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}
	return renderTable(headers, rows, aligns)
}
