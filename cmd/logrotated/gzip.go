package main

import (
	"github.com/spf13/cobra"
)

func newGzipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "gzip FILE...",
		Short: "Compress files into .gz siblings and remove the originals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager(cmd)
			if err != nil {
				return err
			}
			for _, path := range args {
				if err := mgr.Gzip(cmd.Context(), path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
