// sink is a stand-in trading engine: it accepts the bridge's consumer
// channel and prints every event it receives.
// Usage: go run ./cmd/sink --addr :8080
//
// Point the bridge at it with ENGINE_URL=ws://localhost:8080/ws.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	verbose := flag.Bool("verbose", false, "print full payload JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var received atomic.Int64
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	router := mux.NewRouter()
	router.Path("/ws").Methods(http.MethodGet).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()

		logger.Info("bridge connected", "remote", r.RemoteAddr, "user_agent", r.UserAgent())
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Info("bridge disconnected", "remote", r.RemoteAddr, "error", err)
				return
			}
			received.Add(1)
			printEvent(msg, *verbose)
		}
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("sink listening", "addr", *addr, "path", "/ws")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("sink server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	logger.Info("sink stopped", "events_received", received.Load())
}

func printEvent(msg []byte, verbose bool) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		fmt.Printf("[INVALID] %s\n", msg)
		return
	}

	if verbose {
		fmt.Printf("[%s] %s\n", env.Type, env.Payload)
		return
	}

	var p struct {
		SeriesID  string `json:"series_id"`
		MarketID  string `json:"market_id"`
		Action    string `json:"action"`
		Reason    string `json:"reason"`
		GameState *struct {
			Map   string `json:"map"`
			Round int    `json:"round"`
			T     int    `json:"terrorist_score"`
			CT    int    `json:"ct_score"`
		} `json:"game_state"`
		Discovery []json.RawMessage `json:"discovery"`
	}
	json.Unmarshal(env.Payload, &p)

	switch env.Type {
	case "market_created":
		fmt.Printf("[MARKET] series=%s market=%s\n", p.SeriesID, p.MarketID)
	case "series_state":
		if p.GameState != nil {
			fmt.Printf("[STATE] series=%s map=%s round=%d T=%d CT=%d\n",
				p.SeriesID, p.GameState.Map, p.GameState.Round, p.GameState.T, p.GameState.CT)
		}
	case "circuit_breaker":
		fmt.Printf("[BREAKER] market=%s action=%s reason=%s\n", p.MarketID, p.Action, p.Reason)
	case "game_event":
		fmt.Printf("[DISCOVERY] series=%d\n", len(p.Discovery))
	default:
		fmt.Printf("[%s] %s\n", env.Type, env.Payload)
	}
}
