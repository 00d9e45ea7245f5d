// ABOUTME: sessionctl zones subcommand: list
// ABOUTME: GET_AUDIO_ZONES replies with one AUDIO_ZONE_WITH_SESSIONS envelope per zone, collected via requestMany
package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/resonatefm/sessioncore/internal/wsproto"
)

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Inspect audio zones",
}

var zonesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every audio zone and the sessions currently bound to it",
	RunE: func(cmd *cobra.Command, args []string) error {
		raws, err := requestMany(flagAddr, wsproto.TypeGetAudioZones, struct{}{}, wsproto.TypeAudioZoneWithSessions, 400*time.Millisecond)
		if err != nil {
			return err
		}
		zones := make([]wsproto.AudioZoneWithSessionsPayload, 0, len(raws))
		for _, raw := range raws {
			z, err := decode[wsproto.AudioZoneWithSessionsPayload](raw)
			if err != nil {
				return err
			}
			zones = append(zones, z)
		}
		return printJSON(cmd, zones)
	},
}

func init() {
	zonesCmd.AddCommand(zonesListCmd)
}
