package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"hammer-relay/internal/config"
	"hammer-relay/internal/monitor"
	"hammer-relay/internal/relay"
	"hammer-relay/internal/storage"
)

// Server is the HTTP front of the relay.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	cfg        *config.Config
	relay      *relay.Relay
	startTime  time.Time
}

// NewServer creates and configures the HTTP server with all routes and middleware.
func NewServer(cfg *config.Config, rl *relay.Relay, primer *relay.Primer, db *storage.DB, auditWriter *storage.AuditWriter, metrics *monitor.Metrics) *Server {
	handlers := NewHandlers(rl, primer, db, auditWriter, metrics)

	s := &Server{
		handlers:  handlers,
		cfg:       cfg,
		relay:     rl,
		startTime: time.Now(),
	}

	if len(cfg.Security.AllowedKeys) == 0 && !cfg.Security.AllowUnauthenticated {
		log.Warn().Msg("no API keys configured and allow_unauthenticated is false, history endpoints will reject all requests")
	}

	// Verification history, wrapped with auth
	historyMux := http.NewServeMux()
	historyMux.HandleFunc("GET /verifications", handlers.HandleListVerifications)
	historyMux.HandleFunc("GET /verifications/{id}", handlers.HandleGetVerification)
	authedHistory := AuthMiddleware(cfg.Security.AllowedKeys, cfg.Security.AllowUnauthenticated)(historyMux)

	// Public relay surface
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handlers.HandleRoot)
	mux.HandleFunc("POST /verify/{$}", handlers.HandleVerify)
	mux.HandleFunc("POST /verify", handlers.HandleVerify)
	mux.HandleFunc("GET /learnhammer/{$}", handlers.HandleLearn)
	mux.HandleFunc("GET /learnhammer", handlers.HandleLearn)
	mux.HandleFunc("GET /health", s.handleHealth(db))
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}
	if dir := cfg.Static.WellKnownDir; dir != "" {
		mux.Handle("GET /.well-known/", http.StripPrefix("/.well-known/", http.FileServer(http.Dir(dir))))
	}
	mux.Handle("/verifications", authedHistory)
	mux.Handle("/verifications/", authedHistory)

	// Apply middleware chain (outermost first)
	var handler http.Handler = mux
	handler = MetricsMiddleware(metrics)(handler)
	handler = RateLimitMiddleware(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)(handler)
	handler = MaxBodyMiddleware(cfg.Server.MaxRequestBody)(handler)
	handler = CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowCredentials)(handler)
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests. Uses TLS if configured.
func (s *Server) Start() error {
	if s.cfg.TLS.Enabled {
		log.Info().
			Str("addr", s.httpServer.Addr).
			Str("cert", s.cfg.TLS.CertFile).
			Msg("starting HTTPS server with TLS")

		s.httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		return s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	}

	log.Info().
		Str("addr", s.httpServer.Addr).
		Str("checker", s.cfg.Checker.URL).
		Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbOK := db == nil || db.Healthy(r.Context())

		resp := HealthResponse{
			Status:     "ok",
			Database:   dbOK,
			CheckerURL: s.cfg.Checker.URL,
			Failures:   s.relay.Failures().Len(),
			Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		}

		if !dbOK {
			resp.Status = "degraded"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, resp)
	}
}
