package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rosterdev/roster/internal/config"
	"github.com/rosterdev/roster/internal/event"
	"github.com/rosterdev/roster/internal/registry"
	"github.com/rosterdev/roster/internal/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the live instance list whenever the registry changes",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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
	client := registry.NewClient(cfg, logger, bus)

	// Coalesce bursts of change events into one refresh.
	refresh := make(chan struct{}, 1)
	notify := func() {
		select {
		case refresh <- struct{}{}:
		default:
		}
	}

	path := filepath.Join(cfg.Registry.ResolveDir(), cfg.Registry.FileName)
	watcher, err := watch.New(path, cfg.Watch.Mode, cfg.Watch.PollInterval(), logger, notify)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	printInstances(cmd, client)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-refresh:
			printInstances(cmd, client)
		case <-sigCh:
			return nil
		case <-cmd.Context().Done():
			return nil
		}
	}
}

func printInstances(cmd *cobra.Command, client *registry.Client) {
	instances := client.Instances(cmd.Context())

	faint := color.New(color.Faint)
	faint.Fprintf(cmd.OutOrStdout(), "-- %s --\n", time.Now().Format(time.TimeOnly))
	if len(instances) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no live instances")
		return
	}
	for _, inst := range instances {
		fmt.Fprintf(cmd.OutOrStdout(), "%d  %s  %s  %.1f MB  up %s\n",
			inst.ProcessID,
			inst.DisplayName,
			inst.WorkspacePath,
			inst.MemoryMB,
			inst.Uptime,
		)
	}
}
