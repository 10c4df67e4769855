package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tabwarden/tabwarden/internal/janitor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background janitor until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}

		if !cfg.Janitor.Enabled {
			return fmt.Errorf("janitor is disabled; enable janitor.enabled to serve")
		}

		j := janitor.New(comp.lock, comp.notifier, cfg.Janitor.Schedule)
		if err := j.Start(); err != nil {
			return err
		}
		defer j.Stop()

		fmt.Fprintln(cmd.OutOrStdout(), "janitor running; press Ctrl-C to stop")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
