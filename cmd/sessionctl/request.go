// ABOUTME: One-shot request/wait-for-reply helper shared by every subcommand
// ABOUTME: Dials, sends one envelope, waits for the first reply of the wanted type, disconnects
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/resonatefm/sessioncore/internal/client"
)

const requestTimeout = 5 * time.Second

// request dials addr, sends one envelope of sendType, and returns the
// payload of the first inbound envelope of wantType — discarding anything
// else (notably the CONNECTION_ID handshake reply every connection gets
// first). The connection is torn down before returning.
func request(addr, sendType string, payload any, wantType string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	capture := client.NewCaptureDispatcher()
	engine, done, err := client.Dial(ctx, addr, capture, nil)
	if err != nil {
		return nil, err
	}

	if err := engine.Send(sendType, payload); err != nil {
		return nil, fmt.Errorf("sessionctl: send %s: %w", sendType, err)
	}

	for {
		select {
		case env := <-capture.Envelopes:
			if env.Type == wantType {
				return env.Payload, nil
			}
		case err := <-done:
			return nil, fmt.Errorf("sessionctl: connection closed before %s arrived: %w", wantType, err)
		case <-ctx.Done():
			return nil, fmt.Errorf("sessionctl: timed out waiting for %s", wantType)
		}
	}
}

// requestMany is for replies spread across more than one envelope of the
// same type with no terminator (GET_AUDIO_ZONES replies with one
// AUDIO_ZONE_WITH_SESSIONS per zone). It collects every matching envelope
// until idle passes with none arriving, then returns what it has.
func requestMany(addr, sendType string, payload any, wantType string, idle time.Duration) ([]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	capture := client.NewCaptureDispatcher()
	engine, done, err := client.Dial(ctx, addr, capture, nil)
	if err != nil {
		return nil, err
	}
	if err := engine.Send(sendType, payload); err != nil {
		return nil, fmt.Errorf("sessionctl: send %s: %w", sendType, err)
	}

	var collected []json.RawMessage
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case env := <-capture.Envelopes:
			if env.Type != wantType {
				continue
			}
			collected = append(collected, env.Payload)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(idle)
		case <-timer.C:
			return collected, nil
		case <-done:
			return collected, nil
		case <-ctx.Done():
			return collected, nil
		}
	}
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
