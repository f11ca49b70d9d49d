package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/inventura/internal/auth"
	"github.com/erazemk/inventura/internal/importer"
	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/model"
)

// DefaultMaxUploadBytes limits spreadsheet uploads when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// Options configures the API router.
type Options struct {
	Issuer         *auth.TokenIssuer
	Importer       *importer.Reader
	Metrics        *metrics.Metrics
	ServeMetrics   bool
	UserCacheTTL   time.Duration
	MaxUploadBytes int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, opts Options) (http.Handler, error) {
	if opts.Metrics == nil {
		m, err := metrics.New(prometheus.NewRegistry())
		if err != nil {
			return nil, err
		}
		opts.Metrics = m
	}
	if opts.Importer == nil {
		opts.Importer = importer.NewReader(importer.DefaultColumnMap())
	}
	if opts.UserCacheTTL <= 0 {
		opts.UserCacheTTL = time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	m := opts.Metrics

	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Issuer: opts.Issuer}
	usersHandler := &UsersHandler{DB: db}
	cyclesHandler := &CyclesHandler{DB: db, Metrics: m}
	expectedHandler := &ExpectedHandler{DB: db, Metrics: m, Importer: opts.Importer, MaxUploadBytes: opts.MaxUploadBytes}
	scansHandler := &ScansHandler{DB: db, Metrics: m}
	locationsHandler := &LocationsHandler{DB: db, Metrics: m}
	discrepanciesHandler := &DiscrepanciesHandler{DB: db, Metrics: m}
	reportsHandler := &ReportsHandler{DB: db, Metrics: m}
	auditHandler := &AuditHandler{DB: db, Metrics: m}

	users := cache.New(opts.UserCacheTTL, 2*opts.UserCacheTTL)
	authMW := AuthMiddleware(opts.Issuer, db, users)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireResponsible := RequireRole(model.RoleResponsible)

	// Public: user picker.
	mux.HandleFunc("GET /api/users", usersHandler.List)
	mux.HandleFunc("POST /api/auth/select", authHandler.Select)

	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))

	mux.Handle("GET /api/dashboard", authMW(http.HandlerFunc(cyclesHandler.Dashboard)))

	// Cycles: read (all roles), open/close (responsible+).
	mux.Handle("GET /api/cycles", authMW(http.HandlerFunc(cyclesHandler.List)))
	mux.Handle("POST /api/cycles", authMW(requireResponsible(http.HandlerFunc(cyclesHandler.Create))))
	mux.Handle("GET /api/cycles/active", authMW(http.HandlerFunc(cyclesHandler.Active)))
	mux.Handle("GET /api/cycles/{id}", authMW(http.HandlerFunc(cyclesHandler.Get)))
	mux.Handle("GET /api/cycles/{id}/readiness", authMW(http.HandlerFunc(cyclesHandler.Readiness)))
	mux.Handle("POST /api/cycles/{id}/close", authMW(requireResponsible(http.HandlerFunc(cyclesHandler.Close))))

	// Expected stock: read (all roles), import (responsible+).
	mux.Handle("GET /api/cycles/{id}/expected", authMW(http.HandlerFunc(expectedHandler.List)))
	mux.Handle("PUT /api/cycles/{id}/expected", authMW(requireResponsible(http.HandlerFunc(expectedHandler.Replace))))
	mux.Handle("POST /api/cycles/{id}/expected/upload", authMW(requireResponsible(http.HandlerFunc(expectedHandler.Upload))))

	// Scanning and location verification (all roles).
	mux.Handle("GET /api/cycles/{id}/scans", authMW(http.HandlerFunc(scansHandler.List)))
	mux.Handle("POST /api/cycles/{id}/scans", authMW(http.HandlerFunc(scansHandler.Create)))
	mux.Handle("GET /api/cycles/{id}/locations", authMW(http.HandlerFunc(locationsHandler.List)))
	mux.Handle("GET /api/cycles/{id}/locations/{code}", authMW(http.HandlerFunc(locationsHandler.Items)))
	mux.Handle("POST /api/cycles/{id}/locations/{code}/verify", authMW(http.HandlerFunc(locationsHandler.Verify)))
	mux.Handle("DELETE /api/cycles/{id}/locations/{code}/verify", authMW(http.HandlerFunc(locationsHandler.Reopen)))

	// Discrepancies (all roles).
	mux.Handle("GET /api/cycles/{id}/discrepancies", authMW(http.HandlerFunc(discrepanciesHandler.List)))
	mux.Handle("GET /api/cycles/{id}/statistics", authMW(http.HandlerFunc(discrepanciesHandler.Statistics)))
	mux.Handle("POST /api/discrepancies/{id}/confirm", authMW(http.HandlerFunc(discrepanciesHandler.Confirm)))

	mux.Handle("GET /api/cycles/{id}/report.xlsx", authMW(http.HandlerFunc(reportsHandler.Download)))
	mux.Handle("GET /api/audit", authMW(http.HandlerFunc(auditHandler.List)))

	if opts.ServeMetrics {
		mux.Handle("GET /metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	}

	return LoggingMiddleware(m)(mux), nil
}
