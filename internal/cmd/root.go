// Package cmd implements the roster command-line interface.
package cmd

import (
	"strings"

	"github.com/rosterdev/roster/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Track running instances of an application on this machine",
	Long: `Roster coordinates multiple independently-running instances of the
same desktop application through a shared on-disk registry: each
instance publishes its own state, discovers its peers, shows their
liveness, and evicts dead entries.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/roster/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().String("registry-dir", "", "override the shared registry directory")
	_ = viper.BindPFlag("registry.dir", rootCmd.PersistentFlags().Lookup("registry-dir"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/roster")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ROSTER")
	// Replace dots with underscores for nested keys in env vars
	// e.g., ROSTER_HEARTBEAT_INTERVAL_MS for heartbeat.interval_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
