// ABOUTME: Root cobra command for sessionctl; sessions/connections/zones are its subcommands
package main

import (
	"github.com/spf13/cobra"

	"github.com/resonatefm/sessioncore/internal/version"
)

var flagAddr string

var rootCmd = &cobra.Command{
	Use:     "sessionctl",
	Short:   "Control a running sessiond over its websocket protocol",
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "localhost:8927", "sessiond host:port")
	rootCmd.AddCommand(sessionsCmd, connectionsCmd, zonesCmd)
}
