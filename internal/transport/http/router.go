// Package httptransport is the thin HTTP layer. Handlers delegate to
// domain services without embedding business logic so transport
// concerns stay isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"identity-dna/internal/domain"
	"identity-dna/internal/ledger"
	"identity-dna/internal/readcache"
	id "identity-dna/pkg/domain"
)

// EventIntake accepts inbound source events. The sync orchestrator
// satisfies this.
type EventIntake interface {
	HandleEvent(e domain.Event) error
}

// ProfileService defines the profile operations the API exposes.
type ProfileService interface {
	Create(ctx context.Context, userID id.UserID, username string) (domain.Profile, error)
	CurrentVersion(ctx context.Context, userID id.UserID) (int64, error)
	History(ctx context.Context, userID id.UserID, limit int) ([]domain.ChangeRecord, error)
	RequestErasure(ctx context.Context, userID id.UserID) (string, error)
	Delete(ctx context.Context, userID id.UserID, confirmation string) error
}

// ReadCache serves versioned profile reads.
type ReadCache interface {
	Sync(ctx context.Context, userID id.UserID) (readcache.CachedProfile, error)
	Invalidate(userID id.UserID)
}

// LedgerReader exposes the authoritative XP totals.
type LedgerReader interface {
	Read(ctx context.Context, userID id.UserID) (ledger.ReadResult, error)
}

// QuarantineReader lists blocked sources.
type QuarantineReader interface {
	List(ctx context.Context) ([]domain.QuarantineEntry, error)
}

// Pinger reports upstream source reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// Handler wires the public endpoints to their services.
type Handler struct {
	events     EventIntake
	profiles   ProfileService
	reads      ReadCache
	ledger     LedgerReader
	quarantine QuarantineReader
	sources    Pinger
	logger     *slog.Logger
}

// New constructs the handler. sources and quarantine may be nil; the
// corresponding endpoints then degrade gracefully.
func New(events EventIntake, profiles ProfileService, reads ReadCache, lr LedgerReader, opts ...Option) *Handler {
	h := &Handler{
		events:   events,
		profiles: profiles,
		reads:    reads,
		ledger:   lr,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Option configures a Handler.
type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func WithQuarantine(q QuarantineReader) Option {
	return func(h *Handler) { h.quarantine = q }
}

func WithPinger(p Pinger) Option {
	return func(h *Handler) { h.sources = p }
}

// NewRouter mounts all endpoints with the standard middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", h.HandleEvent)

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", h.HandleCreateProfile)
			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", h.HandleGetProfile)
				r.Delete("/", h.HandleDeleteProfile)
				r.Get("/version", h.HandleGetVersion)
				r.Get("/history", h.HandleGetHistory)
				r.Get("/ledger", h.HandleGetLedger)
				r.Post("/erasure", h.HandleRequestErasure)
			})
		})

		r.Get("/quarantine", h.HandleListQuarantine)
	})

	return r
}
