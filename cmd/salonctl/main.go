// Command salonctl runs admin maintenance against the salon booking backend:
// inspecting and rolling back the history log and recomputing ratings.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zatekoja/salonbooking/backend/internal/bootstrap"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
	"github.com/zatekoja/salonbooking/backend/pkg/config"
)

var (
	actorID string
	core    *bootstrap.Core
)

var rootCmd = &cobra.Command{
	Use:          "salonctl",
	Short:        "Salon booking admin tool",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		observability.InitLogger("salonctl", cfg.Environment)

		// rating and rollback changes must reach live clients and the search index
		core, err = bootstrap.New(cmd.Context(), cfg, bootstrap.Options{Redis: true, Search: true})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if core != nil {
			core.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "salonctl", "actor id recorded on rollbacks")
	rootCmd.AddCommand(historyCmd, ratingsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
