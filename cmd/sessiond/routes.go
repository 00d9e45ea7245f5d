// ABOUTME: gen/clean/dynamic-routes subcommands, backed by internal/routesgen
// ABOUTME: Spec §6 CLI surface: emit, remove, or print the websocket route manifest
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resonatefm/sessioncore/internal/routesgen"
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Write the websocket route manifest to --output",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := routesgen.WriteFile(flagOutput)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the generated route manifest from --output",
	RunE: func(cmd *cobra.Command, args []string) error {
		return routesgen.RemoveFile(flagOutput)
	},
}

var dynamicRoutesCmd = &cobra.Command{
	Use:   "dynamic-routes",
	Short: "Print the websocket route manifest to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := routesgen.Build().JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	genCmd.Flags().StringVar(&flagOutput, "output", ".", "output directory for the generated manifest")
	cleanCmd.Flags().StringVar(&flagOutput, "output", ".", "output directory the manifest was generated into")
}
