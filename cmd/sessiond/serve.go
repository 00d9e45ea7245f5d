// ABOUTME: serve wires every component into one running process: store, playback, wsproto hub, optional mDNS/TUI
// ABOUTME: Grounded on the teacher's cmd/resonate-server/main.go (flag->Config mapping, signal handling) and Server.Start/Stop
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/resonatefm/sessioncore/internal/appstate"
	"github.com/resonatefm/sessioncore/internal/config"
	"github.com/resonatefm/sessioncore/internal/decode"
	"github.com/resonatefm/sessioncore/internal/decode/localsink"
	"github.com/resonatefm/sessioncore/internal/discovery"
	"github.com/resonatefm/sessioncore/internal/logging"
	"github.com/resonatefm/sessioncore/internal/metrics"
	"github.com/resonatefm/sessioncore/internal/musicapi"
	"github.com/resonatefm/sessioncore/internal/playback"
	"github.com/resonatefm/sessioncore/internal/store"
	"github.com/resonatefm/sessioncore/internal/target"
	"github.com/resonatefm/sessioncore/internal/tui"
	"github.com/resonatefm/sessioncore/internal/wsproto"

	tea "github.com/charmbracelet/bubbletea"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session core (default command)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// connDispatcher adapts one shared *appstate.Dispatcher to wsproto.Hub's
// per-connection newDispatcher factory. Every field the Dispatcher touches
// (current_sessions, active_players, ...) is genuinely process-wide per
// spec §5/§4.7, so there is exactly one *appstate.Dispatcher for the whole
// process; only GET_CONNECTION_ID's reply needs to vary per connection, so
// that one message type is intercepted here and everything else falls
// through to the shared Dispatcher.
type connDispatcher struct {
	connectionID string
	shared       *appstate.Dispatcher
}

func (c connDispatcher) HandleInbound(ctx context.Context, env wsproto.Envelope) ([]wsproto.Outbound, error) {
	if env.Type == wsproto.TypeGetConnectionID {
		return []wsproto.Outbound{{Type: wsproto.TypeConnectionID, Payload: wsproto.ConnectionIDPayload{ConnectionID: c.connectionID}}}, nil
	}
	return c.shared.HandleInbound(ctx, env)
}

var _ wsproto.Dispatcher = connDispatcher{}

// statusProvider adapts *appstate.State to tui.StatusProvider.
type statusProvider struct {
	state *appstate.State
}

func (p statusProvider) Snapshot() tui.Status {
	sessions := p.state.CurrentSessions()
	zones := p.state.CurrentAudioZones()
	players := p.state.ActivePlayers(context.Background())
	return tui.Status{
		Sessions:    len(sessions),
		Connections: len(p.state.CurrentConnections()),
		Players:     len(players),
		AudioZones:  len(zones),
	}
}

func runServe(ctx context.Context) error {
	cfg := config.FromEnv()
	logging.Configure(logging.Config{Level: cfg.LogLevel, Service: "sessiond"})
	log := logging.WithComponent("sessiond")

	serverName := flagName
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-sessioncore", hostname)
	}

	db, err := store.Open(store.DefaultConfig(flagDBPath))
	if err != nil {
		return fmt.Errorf("sessiond: open store: %w", err)
	}

	state := appstate.New()
	musicAPI := musicapi.Unconfigured{}

	runner := &playback.Runner{
		MusicAPI: musicAPI,
		NewSink: func(h target.Handle, spec decode.SignalSpec, bufferFor time.Duration) (decode.AudioDecode, error) {
			return localsink.Open(spec, bufferFor)
		},
		Pool: decode.NewPool(cfg.MaxThreads),
	}

	handler := playback.NewHandler(musicAPI, db, state, runner, nil)
	dispatcher := appstate.NewDispatcher(state, db, musicAPI, handler)

	hub := wsproto.NewHub(func(connectionID string) wsproto.Dispatcher {
		return connDispatcher{connectionID: connectionID, shared: dispatcher}
	}, dispatcher)
	dispatcher.SetBroadcaster(hub)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		metrics.IncWebsocketConnections()
		defer metrics.DecWebsocketConnections()
		if err := hub.ServeHTTP(r.Context(), w, r); err != nil {
			log.Error().Err(err).Msg("websocket connection ended")
		}
	})

	addr := fmt.Sprintf(":%d", flagPort)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	var mdnsServer *discovery.Server
	if !flagNoMDNS {
		mdnsServer, err = discovery.Advertise(serverName, flagPort, []string{"path=/ws"})
		if err != nil {
			log.Warn().Err(err).Msg("mDNS advertisement failed to start, continuing without it")
		}
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var program *tea.Program
	if flagTUI {
		model := tui.New(statusProvider{state: state}, time.Second)
		program = tea.NewProgram(model)
		go func() {
			if _, err := program.Run(); err != nil {
				log.Error().Err(err).Msg("tui exited with error")
			}
			cancel()
		}()
	} else {
		log.Info().Str("name", serverName).Int("port", flagPort).Msg("sessiond listening")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.ListenAndServe() }()

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("listener failed")
		}
	case <-serveCtx.Done():
	}

	if program != nil {
		program.Quit()
	}
	if mdnsServer != nil {
		_ = mdnsServer.Shutdown()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
