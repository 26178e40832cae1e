package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config string
}

var rootCmd = &cobra.Command{
	Use:   "huntbook",
	Short: "Run a catalog of hunting queries against a security data backend",
	Long: "Huntbook executes a catalog of parameterized hunting queries for a\n" +
		"device or user under investigation, tracks hit counts across runs,\n" +
		"and renders a per-entity HTML report of everything it executed.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.config, "config", "", "Config file path (default: huntbook.yaml if present)")
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}
