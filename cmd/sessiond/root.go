// ABOUTME: Root cobra command; serve/gen/clean/dynamic-routes are its subcommands
// ABOUTME: Grounded on ManuGH-xg2g's cmd/daemon status_cmd.go package-level cobra.Command + init() style
package main

import (
	"github.com/spf13/cobra"

	"github.com/resonatefm/sessioncore/internal/version"
)

var (
	flagDBPath string
	flagPort   int
	flagName   string
	flagNoMDNS bool
	flagTUI    bool
	flagOutput string
)

var rootCmd = &cobra.Command{
	Use:     "sessiond",
	Short:   "Distributed playback session and synchronization core",
	Version: version.Version,
	Long: "sessiond runs the session core's websocket protocol engine, playback\n" +
		"handler, and persistence layer as one process. With no subcommand it\n" +
		"runs serve.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "sessioncore.db", "sqlite database path")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 8927, "websocket listen port")
	rootCmd.PersistentFlags().StringVar(&flagName, "name", "", "advertised server name (default: hostname-sessioncore)")
	rootCmd.PersistentFlags().BoolVar(&flagNoMDNS, "no-mdns", false, "disable mDNS advertisement")
	rootCmd.PersistentFlags().BoolVar(&flagTUI, "tui", false, "run a live status dashboard instead of plain log output")
	rootCmd.AddCommand(serveCmd, genCmd, cleanCmd, dynamicRoutesCmd)
}
