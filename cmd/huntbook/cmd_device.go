package main

import (
	"github.com/spf13/cobra"

	"huntbook/internal/hunt"
)

var deviceCmd = &cobra.Command{
	Use:   "device <device-id>",
	Short: "Run the device catalog against one device",
	Long: `Run every query in the device catalog for the given device ID
(40 hex characters), then render the HTML report.

Usage:
  huntbook device 4899b38f0d6a46a4be5b1b25a2c6e3b04f7d8a91
  huntbook device <id> --timeframe 30d --export`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHuntCommand(cmd, hunt.KindDevice, args[0])
	},
}

func init() {
	addHuntFlags(deviceCmd)
}
