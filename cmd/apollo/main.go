package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/apollo/pkg/config"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "apollo",
	Short: "Apollo - per-host self-healing daemon for consul service pools",
	Long: `Apollo watches the health of the local host's services, reflects it
into consul TTL checks, and runs a repair command when the host degrades.

One instance runs per host. Before taking the host out of rotation Apollo
checks the cluster-wide failure budget against consul, so a correlated
failure never withdraws more hosts than the pool can afford.`,
	Version:      Version,
	SilenceUsage: true,
	RunE:         runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Apollo version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.Flags().String("config", config.DefaultConfigPath, "Path to the YAML configuration file")
	rootCmd.Flags().String("pid-file", config.DefaultPIDFile, "Path to the pid file")
	rootCmd.Flags().Bool("debug", false, "Enable debug logging")
}
