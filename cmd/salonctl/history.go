package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
)

var (
	historyAction     string
	historyEntity     string
	historyLimit      int
	historyRolledBack bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and roll back admin changes",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent history entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := core.History.List(cmd.Context(), repositories.HistoryFilter{
			Action:            entities.HistoryAction(historyAction),
			EntityID:          historyEntity,
			IncludeRolledBack: historyRolledBack,
			Limit:             historyLimit,
		})
		if err != nil {
			return err
		}
		return writeHistory(cmd.OutOrStdout(), entries)
	},
}

var historyRollbackCmd = &cobra.Command{
	Use:   "rollback <entry-id>",
	Short: "Revert one history entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := core.History.Rollback(cmd.Context(), actorID, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s (%s %s)\n", entry.ID, entry.Action, entry.EntityID)
		return nil
	},
}

var historyUndoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert the most recent change that has not been rolled back",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := core.History.Undo(cmd.Context(), actorID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "undid %s (%s %s)\n", entry.ID, entry.Action, entry.EntityID)
		return nil
	},
}

func init() {
	historyListCmd.Flags().StringVar(&historyAction, "action", "", "only entries with this action (e.g. salon.update)")
	historyListCmd.Flags().StringVar(&historyEntity, "entity", "", "only entries for this salon or review id")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show")
	historyListCmd.Flags().BoolVar(&historyRolledBack, "all", false, "include entries that were already rolled back")
	historyCmd.AddCommand(historyListCmd, historyRollbackCmd, historyUndoCmd)
}

func writeHistory(out io.Writer, entries []*entities.HistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "no history entries")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTION\tENTITY\tACTOR\tCREATED\tSTATUS\tDESCRIPTION")
	for _, e := range entries {
		status := "active"
		if e.RolledBack() {
			status = "rolled back by " + e.RolledBackBy
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Action, e.EntityID, e.ActorID, e.CreatedAt.UTC().Format(time.RFC3339), status, e.Description)
	}
	return tw.Flush()
}
