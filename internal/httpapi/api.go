// Package httpapi is the HTTP layer: routing, middleware, the cookie auth
// gate and the form-encoded handlers behind the review UI.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"listencheck.org/internal/audit"
	"listencheck.org/internal/auth"
	"listencheck.org/internal/importer"
	"listencheck.org/internal/mailer"
	"listencheck.org/internal/obs"
	"listencheck.org/internal/review"
	"listencheck.org/internal/storage"
)

// ReadyProbe reports readiness, pinging the DB when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options collects the collaborators the API needs.
type Options struct {
	Auth     *auth.Service
	Review   *review.Service
	Activity audit.Store
	Resolver storage.Resolver
	Mailer   mailer.Mailer
	Importer *importer.Importer
	Cookies  *auth.CookieCodec
	Ready    ReadyProbe
	Version  string
}

// API is the HTTP layer.
type API struct {
	mux      *http.ServeMux
	auth     *auth.Service
	review   *review.Service
	activity audit.Store
	recorder *audit.Recorder
	resolver storage.Resolver
	mailer   mailer.Mailer
	importer *importer.Importer
	cookies  *auth.CookieCodec

	readyProbe ReadyProbe
	version    string
}

func New(o Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       o.Auth,
		review:     o.Review,
		activity:   o.Activity,
		recorder:   audit.NewRecorder(o.Activity),
		resolver:   o.Resolver,
		mailer:     o.Mailer,
		importer:   o.Importer,
		cookies:    o.Cookies,
		readyProbe: o.Ready,
		version:    o.Version,
	}

	// review surface
	a.mux.HandleFunc("/", a.requireUser(a.handleHome))
	a.mux.HandleFunc("/api/transcript", a.requireUser(a.handleTranscriptAction))

	// auth flow
	a.mux.HandleFunc("/login", a.handleLogin)
	a.mux.HandleFunc("/login-password", a.handleLoginPassword)
	a.mux.HandleFunc("/verify", a.handleVerify)
	a.mux.HandleFunc("/logout", a.handleLogout)

	// admin surface
	a.mux.HandleFunc("/admin/users", a.requireAdmin(a.handleAdminUsers))
	a.mux.HandleFunc("/admin/labels", a.requireAdmin(a.handleAdminLabels))
	a.mux.HandleFunc("/admin/logs", a.requireAdmin(a.handleAdminLogs))
	a.mux.HandleFunc("/admin/import", a.requireAdmin(a.handleAdminImport))
	a.mux.HandleFunc("/api/import-transcripts", a.requireAdmin(a.handleRunImport))

	// health/ready/metrics
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 30, 10)
	h = SecurityHeaders(h)
	h = Logging(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "listencheck-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
