package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is the release version, overridden at build time via
// -ldflags "-X .../cmd.Version=v1.2.3".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "vouch",
	Short: "Vouch is a peer-approval authentication service",
	Long: `Passwordless authentication by community vouching: a member logging in
on a new device is approved by an admin, by themself from a trusted
device, or by a quorum of peers.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
