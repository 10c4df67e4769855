package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabwarden/tabwarden/internal/errors"
)

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show the current state of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}

		var sessionID string
		if len(args) > 0 {
			sessionID = args[0]
		} else {
			sessionID, err = resolveSessionID(comp)
			if err != nil {
				return err
			}
		}

		view, err := comp.warden.View(sessionID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderView(sessionID, view))

		rec, err := comp.lock.Status()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderLock(rec))
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List known sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}

		ids, err := comp.warden.Sessions()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
			return nil
		}

		t := newTable("Session", "Unresolved", "Total")
		for _, id := range ids {
			view, err := comp.warden.View(id)
			if err != nil {
				if errors.IsCategory(err, errors.ErrInvalidInput) {
					t.Row(id, "?", "?")
					continue
				}
				return err
			}
			t.Row(id, fmt.Sprintf("%d", view.UnresolvedCount), fmt.Sprintf("%d", view.Total))
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionsCmd)
}
