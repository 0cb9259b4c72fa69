package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/gymdash/internal/backup"
	"github.com/dukerupert/gymdash/internal/handler"
	"github.com/dukerupert/gymdash/internal/metrics"
	"github.com/dukerupert/gymdash/internal/middleware"
	"github.com/dukerupert/gymdash/internal/store"
	"github.com/dukerupert/gymdash/internal/subscription"
	ws "github.com/dukerupert/gymdash/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the HTTP surface.
type Options struct {
	// Now is the dashboard clock. Defaults to time.Now.
	Now            func() time.Time
	Mode           subscription.Mode
	StaffTokenHash string
	MetricsEnabled bool
	WSOrigins      []string
	// WriteRateLimit is the number of write requests per client per minute.
	WriteRateLimit int
	// TrustProxy keys the rate limit on forwarding headers instead of the
	// connection's peer address.
	TrustProxy     bool
	Backup         backup.Config
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	memberH     *handler.MemberHandler
	dashboardH  *handler.DashboardHandler
	backupH     *handler.BackupHandler
	backups     *backup.Manager
	rateLimiter *middleware.RateLimiter
	registry    *prometheus.Registry
	opts        Options
	logger      *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WriteRateLimit <= 0 {
		opts.WriteRateLimit = 60
	}

	hub := ws.NewHub(logger.With("component", "websocket"))
	memberStore := store.NewMemberStore(db)

	backupMgr := backup.NewManager(opts.Backup, db, func(st backup.Status) {
		hub.Broadcast(ws.NewMessage("backup", string(st.State), "", map[string]any{
			"in_progress": st.InProgress,
			"error":       st.Error,
		}))
	}, logger.With("component", "backup"))

	s := &Server{
		db:          db,
		hub:         hub,
		memberH:     handler.NewMemberHandler(memberStore, hub, opts.Now, logger.With("component", "member")),
		dashboardH:  handler.NewDashboardHandler(memberStore, opts.Now, opts.Mode, logger.With("component", "dashboard")),
		backupH:     handler.NewBackupHandler(backupMgr, logger.With("component", "backup")),
		backups:     backupMgr,
		rateLimiter: middleware.NewRateLimiter(opts.WriteRateLimit, time.Minute),
		opts:        opts,
		logger:      logger,
	}

	if opts.MetricsEnabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			metrics.NewCollector(memberStore, opts.Now, opts.Mode),
		)
	}

	return s
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) BackupManager() *backup.Manager {
	return s.backups
}

func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("GET /api/members/export.xlsx", s.memberH.Export)
	mux.HandleFunc("GET /api/members/{id}", s.memberH.Get)
	mux.Handle("POST /api/members", s.write(s.memberH.Create))
	mux.Handle("PATCH /api/members/{id}", s.write(s.memberH.Update))
	mux.Handle("DELETE /api/members/{id}", s.write(s.memberH.Delete))

	mux.HandleFunc("GET /api/dashboard", s.dashboardH.Get)

	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.Handle("POST /api/backups", s.write(s.backupH.Run))

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.opts.WSOrigins...))

	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
			ErrorLog:      slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
			ErrorHandling: promhttp.ContinueOnError,
		}))
	}

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

// write guards a mutating route with the staff token and the per-client
// write rate limit.
func (s *Server) write(h http.HandlerFunc) http.Handler {
	key := middleware.RemoteIP
	if s.opts.TrustProxy {
		key = middleware.RealIP
	}
	limited := middleware.RateLimit(s.rateLimiter, key)(h)
	return middleware.RequireStaffToken(s.opts.StaffTokenHash)(limited)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
