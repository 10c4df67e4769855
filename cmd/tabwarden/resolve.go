package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabwarden/tabwarden/internal/disposition"
	"github.com/tabwarden/tabwarden/internal/errors"
)

var (
	resolveSession  string
	resolveTarget   string
	resolveTo       string
	resolveFrom     string
	resolvePriority string
	resolveUndoes   string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <action> [item]",
	Short: "Record a disposition for a classified item",
	Long: `Record one disposition event against the current session.

Actions: trash, complete, promote, regroup, reprioritize, later, defer, undo.
Undo takes --undoes <entry-id> instead of an item.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}

		sessionID, err := resolveSessionID(comp)
		if err != nil {
			return err
		}

		entry := disposition.Entry{
			Action:   disposition.Action(args[0]),
			Target:   resolveTarget,
			From:     resolveFrom,
			To:       resolveTo,
			Priority: resolvePriority,
			Undoes:   resolveUndoes,
		}
		if len(args) > 1 {
			entry.ItemID = args[1]
		}

		view, err := comp.warden.Dispose(context.Background(), sessionID, entry)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderView(sessionID, view))
		return nil
	},
}

// resolveSessionID prefers the explicit flag, then the lock holder, then the
// newest session on disk.
func resolveSessionID(comp *components) (string, error) {
	if resolveSession != "" {
		return resolveSession, nil
	}
	if rec, err := comp.lock.Status(); err != nil {
		return "", err
	} else if rec != nil {
		return rec.SessionID, nil
	}
	latest, err := comp.warden.Latest()
	if err != nil {
		if errors.IsCategory(err, errors.ErrNotFound) {
			return "", errors.NotFound("no sessions; run `tabwarden classify` first")
		}
		return "", err
	}
	return latest.SessionID, nil
}

func init() {
	resolveCmd.Flags().StringVar(&resolveSession, "session", "", "session id (default: the locked session)")
	resolveCmd.Flags().StringVar(&resolveTarget, "target", "", "promotion target (promote)")
	resolveCmd.Flags().StringVar(&resolveTo, "to", "", "destination category (regroup)")
	resolveCmd.Flags().StringVar(&resolveFrom, "from", "", "source category (regroup)")
	resolveCmd.Flags().StringVar(&resolvePriority, "priority", "", "priority value (reprioritize)")
	resolveCmd.Flags().StringVar(&resolveUndoes, "undoes", "", "entry id to reverse (undo)")
	rootCmd.AddCommand(resolveCmd)
}
