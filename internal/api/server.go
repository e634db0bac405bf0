// Package api exposes the settlement service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/observability"
	"solana-swap-vault/internal/swap"
	"solana-swap-vault/internal/verification"
)

// Settlement is the subset of settlement.Service the API needs.
type Settlement interface {
	Initialize(ctx context.Context, admin, mint domain.Identity) (*domain.Vault, *domain.TokenVaultBinding, error)
	GetVault(ctx context.Context, address domain.Identity) (*domain.Vault, *domain.TokenVaultBinding, error)
	Deposit(ctx context.Context, vaultAddr, caller domain.Identity, amount uint64) (*domain.LedgerEntry, error)
	Withdraw(ctx context.Context, vaultAddr, caller domain.Identity, amount uint64) (*domain.LedgerEntry, error)
	BuyNative(ctx context.Context, vaultAddr, caller domain.Identity, amountToken uint64) (*domain.LedgerEntry, error)
	Quote(ctx context.Context, amountToken uint64) (swap.Settlement, error)
	Ledger(ctx context.Context, vaultAddr domain.Identity, afterSeq int64, limit int) ([]*domain.LedgerEntry, error)
	Activity(ctx context.Context, vaultAddr domain.Identity, from, to int64) ([]*domain.LedgerEntry, error)
	DustTotals(ctx context.Context) ([]domain.DustTotal, error)
	PricingDescription() string
}

// Verifier replays a vault ledger against the stored balance.
type Verifier interface {
	VerifyVault(ctx context.Context, address domain.Identity) (*verification.VerificationResult, error)
}

// Config captures the dependencies required to construct the server.
type Config struct {
	Settlement Settlement
	Verifier   Verifier // optional, enables /verify
	Logger     *logrus.Entry
	Now        func() time.Time
}

// Server serves the vault API.
type Server struct {
	svc      Settlement
	verifier Verifier
	log      *logrus.Entry
	now      func() time.Time
	started  time.Time
	router   http.Handler
}

const requestIDHeader = "X-Request-ID"

type ctxKey struct{}

// New constructs the router.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		svc:      cfg.Settlement,
		verifier: cfg.Verifier,
		log:      log.WithField("component", "api"),
		now:      now,
		started:  now(),
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(chimw.RealIP)
	r.Use(s.accessLog)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", observability.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/vaults", s.handleInitialize)
		v1.Route("/vaults/{address}", func(vr chi.Router) {
			vr.Get("/", s.handleGetVault)
			vr.Post("/deposit", s.handleDeposit)
			vr.Post("/withdraw", s.handleWithdraw)
			vr.Post("/swap", s.handleSwap)
			vr.Get("/ledger", s.handleLedger)
			vr.Get("/activity", s.handleActivity)
			if s.verifier != nil {
				vr.Get("/verify", s.handleVerify)
			}
		})
		v1.Get("/quote", s.handleQuote)
		v1.Get("/dust", s.handleDust)
	})
	return r
}

// requestID tags each request with a UUID, reusing a client-supplied one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"request_id": requestIDFrom(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
		}).Debug("request served")
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status  string    `json:"status"`
	Uptime  string    `json:"uptime"`
	Started time.Time `json:"started"`
	Pricing string    `json:"pricing"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "running",
		Uptime:  s.now().Sub(s.started).Truncate(time.Second).String(),
		Started: s.started,
		Pricing: s.svc.PricingDescription(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
