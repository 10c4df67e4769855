package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabwarden/tabwarden/internal/capture"
	"github.com/tabwarden/tabwarden/internal/classify"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <capture-file>",
	Short: "Classify a captured tab snapshot and lock it behind the launchpad",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}

		snap, err := capture.LoadSnapshot(args[0])
		if err != nil {
			return err
		}

		sess, err := comp.warden.Classify(context.Background(), snap.Tabs, classify.Options{
			Context: comp.context,
			Debug:   cfg.Classify.Debug,
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderResult(sess.SessionID, sess.Result))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
