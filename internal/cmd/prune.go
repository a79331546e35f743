package cmd

import (
	"fmt"

	"github.com/rosterdev/roster/internal/config"
	"github.com/rosterdev/roster/internal/event"
	"github.com/rosterdev/roster/internal/logging"
	"github.com/rosterdev/roster/internal/registry"
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove stale entries from the registry now",
	Long: `Prune forces a staleness pass over the shared registry. Stale entries
are also removed opportunistically by every reader and writer, so this
is only needed to tidy up eagerly.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := registry.NewClient(cfg, logging.NopLogger(), event.NewBus())
	removed := client.Prune(cmd.Context())

	if removed == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "registry already clean")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale entr%s\n", removed, plural(removed, "y", "ies"))
	}
	return nil
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
