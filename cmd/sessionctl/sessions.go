// ABOUTME: sessionctl sessions subcommands: list/create/delete/update (update patches play/stop/seek)
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resonatefm/sessioncore/internal/wsproto"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and control sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every session",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := request(flagAddr, wsproto.TypeGetSessions, struct{}{}, wsproto.TypeSessions)
		if err != nil {
			return err
		}
		payload, err := decode[wsproto.SessionsPayload](raw)
		if err != nil {
			return err
		}
		return printJSON(cmd, payload.Sessions)
	},
}

var (
	sessCreateName string
	sessCreateZone uint64
)

var sessionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := wsproto.CreateSessionPayload{Name: sessCreateName}
		if cmd.Flags().Changed("zone") {
			payload.AudioZoneID = &sessCreateZone
		}
		raw, err := request(flagAddr, wsproto.TypeCreateSession, payload, wsproto.TypeSessions)
		if err != nil {
			return err
		}
		out, err := decode[wsproto.SessionsPayload](raw)
		if err != nil {
			return err
		}
		return printJSON(cmd, out.Sessions)
	},
}

var sessDeleteID uint64

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := request(flagAddr, wsproto.TypeDeleteSession, wsproto.DeleteSessionPayload{SessionID: sessDeleteID}, wsproto.TypeSessions)
		if err != nil {
			return err
		}
		out, err := decode[wsproto.SessionsPayload](raw)
		if err != nil {
			return err
		}
		return printJSON(cmd, out.Sessions)
	},
}

var (
	sessUpdateID  uint64
	sessUpdatePlay bool
	sessUpdateStop bool
	sessUpdateSeek float64
)

var sessionsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Apply a playback patch to a session (play/stop/seek)",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := wsproto.UpdateSessionPayload{SessionID: sessUpdateID}
		if cmd.Flags().Changed("play") {
			payload.Play = &sessUpdatePlay
		}
		if cmd.Flags().Changed("stop") {
			payload.Stop = &sessUpdateStop
		}
		if cmd.Flags().Changed("seek") {
			payload.Seek = &sessUpdateSeek
		}
		raw, err := request(flagAddr, wsproto.TypeUpdateSession, payload, wsproto.TypeSessions)
		if err != nil {
			return err
		}
		out, err := decode[wsproto.SessionsPayload](raw)
		if err != nil {
			return err
		}
		return printJSON(cmd, out.Sessions)
	},
}

func init() {
	sessionsCreateCmd.Flags().StringVar(&sessCreateName, "name", "", "session name")
	sessionsCreateCmd.Flags().Uint64Var(&sessCreateZone, "zone", 0, "audio zone id to target")
	_ = sessionsCreateCmd.MarkFlagRequired("name")

	sessionsDeleteCmd.Flags().Uint64Var(&sessDeleteID, "id", 0, "session id")
	_ = sessionsDeleteCmd.MarkFlagRequired("id")

	sessionsUpdateCmd.Flags().Uint64Var(&sessUpdateID, "id", 0, "session id")
	sessionsUpdateCmd.Flags().BoolVar(&sessUpdatePlay, "play", false, "start/resume playback")
	sessionsUpdateCmd.Flags().BoolVar(&sessUpdateStop, "stop", false, "stop playback")
	sessionsUpdateCmd.Flags().Float64Var(&sessUpdateSeek, "seek", 0, "seek position in seconds")
	_ = sessionsUpdateCmd.MarkFlagRequired("id")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsCreateCmd, sessionsDeleteCmd, sessionsUpdateCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
