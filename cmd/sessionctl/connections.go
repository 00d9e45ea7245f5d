// ABOUTME: sessionctl connections subcommand: list
package main

import (
	"github.com/spf13/cobra"

	"github.com/resonatefm/sessioncore/internal/wsproto"
)

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "Inspect registered connections",
}

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := request(flagAddr, wsproto.TypeGetConnections, struct{}{}, wsproto.TypeConnections)
		if err != nil {
			return err
		}
		payload, err := decode[wsproto.ConnectionsPayload](raw)
		if err != nil {
			return err
		}
		return printJSON(cmd, payload.Connections)
	},
}

func init() {
	connectionsCmd.AddCommand(connectionsListCmd)
}
