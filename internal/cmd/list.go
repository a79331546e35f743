package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rosterdev/roster/internal/config"
	"github.com/rosterdev/roster/internal/event"
	"github.com/rosterdev/roster/internal/logging"
	"github.com/rosterdev/roster/internal/registry"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List live instances from the shared registry",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := registry.NewClient(cfg, logging.NopLogger(), event.NewBus())
	instances := client.Instances(cmd.Context())

	if len(instances) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no live instances")
		return nil
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	bold.Fprintln(w, "PID\tNAME\tWORKSPACE\tMEMORY\tUPTIME")
	for _, inst := range instances {
		workspace := inst.WorkspacePath
		if workspace == "" {
			workspace = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f MB\t%s\n",
			inst.ProcessID,
			cyan.Sprint(inst.DisplayName),
			workspace,
			inst.MemoryMB,
			inst.Uptime,
		)
	}
	return w.Flush()
}
