package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rickgao/esports-bridge/internal/breaker"
	"github.com/rickgao/esports-bridge/internal/connection"
	"github.com/rickgao/esports-bridge/internal/discovery"
	"github.com/rickgao/esports-bridge/internal/inplay"
	"github.com/rickgao/esports-bridge/internal/journal"
	"github.com/rickgao/esports-bridge/internal/market"
	"github.com/rickgao/esports-bridge/internal/metrics"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ConsumerStatus reports the consumer channel.
type ConsumerStatus interface {
	Stats() connection.ManagerStats
}

// BreakerStatus reports provider health.
type BreakerStatus interface {
	Stats() breaker.Stats
}

// DiscoveryStatus reports the discovery loop.
type DiscoveryStatus interface {
	Status() discovery.Status
}

// MarketView exposes tracked markets.
type MarketView interface {
	Snapshot() []market.Market
	Market(seriesID string) (market.Market, bool)
}

// SessionView exposes in-play sessions.
type SessionView interface {
	Sessions() []inplay.SessionInfo
}

// JournalStatus reports the optional event journal.
type JournalStatus interface {
	Stats() journal.Stats
}

// Pinger checks database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sources are the components the ops endpoints read from. Journal and
// Database may be nil when the journal is disabled.
type Sources struct {
	Consumer  ConsumerStatus
	Breaker   BreakerStatus
	Discovery DiscoveryStatus
	Markets   MarketView
	Sessions  SessionView
	Journal   JournalStatus
	Database  Pinger
}

// Health is the /health response body.
type Health struct {
	Status     string         `json:"status"`
	Instance   string         `json:"instance"`
	Version    string         `json:"version"`
	Components map[string]any `json:"components"`
}

// Server is the ops HTTP server.
type Server struct {
	addr     string
	instance string
	version  string
	src      Sources
	logger   *slog.Logger
	router   *mux.Router
}

// NewServer builds the router. metricsPath defaults to /metrics.
func NewServer(addr, instance, version, metricsPath string, src Sources, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	s := &Server{
		addr:     addr,
		instance: instance,
		version:  version,
		src:      src,
		logger:   logger,
	}

	r := mux.NewRouter()
	r.Path("/health").Methods(http.MethodGet).HandlerFunc(s.handleHealth)
	r.Path("/debug/markets").Methods(http.MethodGet).HandlerFunc(s.handleMarkets)
	r.Path("/debug/markets/{series_id}").Methods(http.MethodGet).HandlerFunc(s.handleMarket)
	r.Path("/debug/sessions").Methods(http.MethodGet).HandlerFunc(s.handleSessions)
	r.Path(metricsPath).Methods(http.MethodGet).Handler(metrics.Handler())
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.logger.Debug("unmatched ops request", "method", req.Method, "path", req.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})
	s.router = r

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting ops server", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ops server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown ops server: %w", err)
	}
	s.logger.Info("ops server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := Health{
		Status:     StatusHealthy,
		Instance:   s.instance,
		Version:    s.version,
		Components: make(map[string]any),
	}
	degrade := func() {
		if health.Status == StatusHealthy {
			health.Status = StatusDegraded
		}
	}

	if s.src.Consumer != nil {
		stats := s.src.Consumer.Stats()
		health.Components["consumer"] = stats
		if !stats.Connected {
			degrade()
		}
	}

	if s.src.Breaker != nil {
		stats := s.src.Breaker.Stats()
		health.Components["provider"] = stats
		if stats.FeedsSuspended {
			degrade()
		}
	}

	if s.src.Discovery != nil {
		health.Components["discovery"] = s.src.Discovery.Status()
	}

	if s.src.Markets != nil {
		markets := s.src.Markets.Snapshot()
		active := 0
		for _, m := range markets {
			if m.Active {
				active++
			}
		}
		health.Components["markets"] = map[string]int{
			"known":  len(markets),
			"active": active,
		}
	}

	if s.src.Journal != nil {
		health.Components["journal"] = s.src.Journal.Stats()
	}

	if s.src.Database != nil {
		if err := s.src.Database.Ping(ctx); err != nil {
			health.Status = StatusUnhealthy
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}
	}

	code := http.StatusOK
	if health.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, health)
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	if s.src.Markets == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	markets := s.src.Markets.Snapshot()
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := markets[:0]
		for _, m := range markets {
			if string(m.Status) == status {
				filtered = append(filtered, m)
			}
		}
		markets = filtered
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(markets),
		"markets": markets,
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	if s.src.Markets == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	seriesID := mux.Vars(r)["series_id"]
	m, ok := s.src.Markets.Market(seriesID)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown series " + seriesID})
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.src.Sessions == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	sessions := s.src.Sessions.Sessions()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode ops response", "error", err)
	}
}
