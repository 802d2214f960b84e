package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recera/patchview/cmd/patchview/internal/ui"
)

func newExploreCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Explore the grid in the terminal",
		Long: `Opens an interactive terminal explorer. Drag on either grid panel to move the
position; the charts below follow it. Arrow keys nudge the position by one
cell.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loader := a.loader()
			if err := loader.Load(); err != nil {
				a.log.Warn("Signal data not loaded", zap.Error(err))
			}
			if *a.cfg.Data.Watch {
				go func() {
					if err := loader.Watch(ctx); err != nil {
						a.log.Warn("File watching disabled", zap.Error(err))
					}
				}()
			}

			return ui.Run(ctx, ui.Options{
				Explorer:        a.cfg.ExplorerOptions(),
				Data:            loader,
				RefreshInterval: time.Duration(a.cfg.Data.RefreshInterval),
			})
		},
	}
	return cmd
}
