package main

import (
	"github.com/spf13/cobra"

	"huntbook/internal/hunt"
)

var userCmd = &cobra.Command{
	Use:   "user <user-principal-name>",
	Short: "Run the user catalog against one account",
	Long: `Run every query in the user catalog for the given user principal
name (local@domain), then render the HTML report.

Usage:
  huntbook user jdoe@contoso.com
  huntbook user jdoe@contoso.com --echo --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHuntCommand(cmd, hunt.KindUser, args[0])
	},
}

func init() {
	addHuntFlags(userCmd)
}
