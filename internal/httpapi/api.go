// Package httpapi is the local API the UI shell talks to: session, sign-up
// and blood journal endpoints, a state event stream and health probes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"lifedrop.org/internal/journal"
	"lifedrop.org/internal/obs"
	"lifedrop.org/internal/registration"
	"lifedrop.org/internal/session"
)

const serviceName = "lifedropd"

type readinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe is ready once the session restore has run and the gateway answers.
type ReadyProbe struct {
	Sessions *session.Store
	Ping     func(ctx context.Context) error
}

var errRestorePending = errors.New("session restore pending")

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Sessions != nil && rp.Sessions.State().Loading {
		return errRestorePending
	}
	if rp.Ping == nil {
		return nil
	}
	return rp.Ping(ctx)
}

// Options wires the API.
type Options struct {
	Sessions *session.Store
	Journal  *journal.Store
	// NewFlow starts a fresh sign-up form.
	NewFlow func() *registration.Flow
	Ready   readinessChecker
	Version string
	Logger  *slog.Logger
	Clock   func() time.Time

	RateBurst       int
	RatePerSecond   int
	MaxBodyBytes    int64
	DefaultRadiusKm float64
	DefaultLimit    int
}

// API is the HTTP layer.
type API struct {
	router   chi.Router
	sessions *session.Store
	journal  *journal.Store
	newFlow  func() *registration.Flow
	ready    readinessChecker
	version  string
	logger   *slog.Logger
	now      func() time.Time

	flowMu sync.Mutex
	flow   *registration.Flow

	rateBurst     int
	ratePerSec    int
	maxBodyBytes  int64
	defaultRadius float64
	defaultLimit  int
}

func New(o Options) *API {
	a := &API{
		sessions:      o.Sessions,
		journal:       o.Journal,
		newFlow:       o.NewFlow,
		ready:         o.Ready,
		version:       o.Version,
		logger:        o.Logger,
		now:           o.Clock,
		rateBurst:     o.RateBurst,
		ratePerSec:    o.RatePerSecond,
		maxBodyBytes:  o.MaxBodyBytes,
		defaultRadius: o.DefaultRadiusKm,
		defaultLimit:  o.DefaultLimit,
	}
	if a.ready == nil {
		a.ready = ReadyProbe{Sessions: a.sessions}
	}
	if a.logger == nil {
		a.logger = obs.Logger()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.newFlow == nil {
		sessions := a.sessions
		a.newFlow = func() *registration.Flow { return registration.New(sessions) }
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 64 << 10
	}
	a.flow = a.newFlow()
	a.router = a.routes()
	return a
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Handle("/metrics", obs.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/session", a.getSession)
		v1.Post("/session", a.login)
		v1.Post("/session/logout", a.logout)
		v1.Patch("/profile", a.updateProfile)
		v1.Get("/profile/stats", a.profileStats)

		v1.Get("/registration", a.getRegistration)
		v1.Post("/registration/basic", a.registrationBasic)
		v1.Post("/registration/back", a.registrationBack)
		v1.Post("/registration/submit", a.registrationSubmit)
		v1.Post("/registration/reset", a.registrationReset)

		v1.Get("/blood", a.getJournal)
		v1.Get("/blood/centers", a.donationCenters)
		v1.Post("/blood/requests", a.addBloodRequest)
		v1.Get("/blood/requests/urgent", a.urgentRequests)
		v1.Post("/blood/donations", a.addDonation)
		v1.Post("/blood/donors/search", a.findDonors)
		v1.Post("/notifications", a.addNotification)

		v1.Get("/events", a.Stream)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", "")
	})
	return r
}

// Handler returns the router wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    a.now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// currentFlow returns the sign-up form in progress.
func (a *API) currentFlow() *registration.Flow {
	a.flowMu.Lock()
	defer a.flowMu.Unlock()
	return a.flow
}

func (a *API) replaceFlow() *registration.Flow {
	a.flowMu.Lock()
	defer a.flowMu.Unlock()
	a.flow = a.newFlow()
	return a.flow
}

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg, field string) {
	writeJSON(w, status, errorBody{
		Error:     msg,
		Code:      code,
		Field:     field,
		RequestID: requestIDFrom(r.Context()),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", "")
			return false
		}
		writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON body", "")
		return false
	}
	return true
}
