package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabwarden/tabwarden/internal/errors"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Inspect and manage the launchpad lock",
}

var lockStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show who holds the launchpad",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}
		rec, err := comp.lock.Status()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderLock(rec))
		return nil
	},
}

var lockForce bool

var lockClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Release the launchpad once every item is resolved",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}

		if lockForce {
			if err := comp.lock.ForceClear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "launchpad force-cleared")
			return nil
		}

		rec, err := comp.lock.Status()
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "launchpad is already unlocked")
			return nil
		}

		if err := comp.warden.ClearLock(rec.SessionID); err != nil {
			if errors.IsCategory(err, errors.ErrConflict) {
				return errors.Wrap(err, "resolve the remaining items or pass --force")
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "launchpad cleared")
		return nil
	},
}

var (
	resumeGoal  string
	resumeFocus string
)

var lockResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Store resume context on the held lock",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}

		rec, err := comp.lock.Status()
		if err != nil {
			return err
		}
		if rec == nil {
			return errors.NotFound("launchpad is not locked")
		}

		if err := comp.warden.UpdateResume(rec.SessionID, resumeGoal, resumeFocus); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "resume context saved")
		return nil
	},
}

func init() {
	lockClearCmd.Flags().BoolVar(&lockForce, "force", false, "abandon the session even with unresolved items")
	lockResumeCmd.Flags().StringVar(&resumeGoal, "goal", "", "what this session is trying to finish")
	lockResumeCmd.Flags().StringVar(&resumeFocus, "focus", "", "category to pick back up first")
	lockCmd.AddCommand(lockStatusCmd)
	lockCmd.AddCommand(lockClearCmd)
	lockCmd.AddCommand(lockResumeCmd)
	rootCmd.AddCommand(lockCmd)
}
