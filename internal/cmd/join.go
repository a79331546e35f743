package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rosterdev/roster/internal/config"
	"github.com/rosterdev/roster/internal/event"
	"github.com/rosterdev/roster/internal/logging"
	"github.com/rosterdev/roster/internal/registry"
	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Register this process in the registry and heartbeat until interrupted",
	Long: `Join publishes an entry for this process into the shared registry and
keeps it alive with periodic heartbeats. On SIGINT/SIGTERM the entry is
removed; if the process dies without cleaning up, peers evict the entry
once it goes stale.`,
	RunE: runJoin,
}

var (
	joinWorkspace string
	joinName      string
)

func init() {
	rootCmd.AddCommand(joinCmd)
	joinCmd.Flags().StringVarP(&joinWorkspace, "workspace", "w", "", "Workspace path to advertise")
	joinCmd.Flags().StringVarP(&joinName, "name", "n", "", "Display name to advertise")
}

func runJoin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	bus := event.NewBus()
	opts := []registry.Option{}
	if joinWorkspace != "" {
		opts = append(opts, registry.WithWorkspacePath(joinWorkspace))
	}
	if joinName != "" {
		opts = append(opts, registry.WithDisplayName(joinName))
	}
	client := registry.NewClient(cfg, logger, bus, opts...)

	ctx := cmd.Context()
	if err := client.Register(ctx); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprintf(cmd.OutOrStdout(), "joined registry as %s (pid %d)\n", client.SessionID(), os.Getpid())
	fmt.Fprintln(cmd.OutOrStdout(), "heartbeating; press Ctrl-C to leave")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	// Bounded so a wedged filesystem cannot block shutdown; the entry
	// ages out via staleness if this does not complete.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), cfg.Lock.WaitCeiling()*2)
	defer cancel()
	if err := client.Cleanup(cleanupCtx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "left registry")
	return nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
}
