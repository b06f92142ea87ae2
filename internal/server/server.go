package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/chorehub/internal/escrow"
	"github.com/dukerupert/chorehub/internal/gateway"
	"github.com/dukerupert/chorehub/internal/handler"
	"github.com/dukerupert/chorehub/internal/lifecycle"
	"github.com/dukerupert/chorehub/internal/middleware"
	"github.com/dukerupert/chorehub/internal/notify"
	"github.com/dukerupert/chorehub/internal/payout"
	"github.com/dukerupert/chorehub/internal/store"
	"github.com/dukerupert/chorehub/internal/tasks"
	"github.com/dukerupert/chorehub/internal/ws"
)

// Config carries the external endpoints and credentials the server wires in.
type Config struct {
	// Capture gateway (escrow funding).
	GatewayURL       string
	GatewayKeyID     string
	GatewayKeySecret string
	// Transfer gateway (worker payouts).
	StripeKey string
	// Optional notification sink.
	NotifyURL    string
	NotifyAPIKey string
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	runner       *tasks.Runner
	authH        *handler.AuthHandler
	choreH       *handler.ChoreHandler
	applicationH *handler.ApplicationHandler
	paymentH     *handler.PaymentHandler
	payoutH      *handler.PayoutHandler
	resolutionH  *handler.ResolutionHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	runner := tasks.NewRunner(logger.With("component", "tasks"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	choreStore := store.NewChoreStore(db)
	applicationStore := store.NewApplicationStore(db)
	paymentStore := store.NewPaymentStore(db)
	payoutStore := store.NewPayoutStore(db)
	cancellationStore := store.NewCancellationStore(db)
	disputeStore := store.NewDisputeStore(db)

	orders := gateway.NewOrderClient(cfg.GatewayURL, cfg.GatewayKeyID, cfg.GatewayKeySecret)
	signer := gateway.NewSigner(cfg.GatewayKeySecret)
	transfers := gateway.NewStripeGateway(cfg.StripeKey)
	sink := notify.NewClient(cfg.NotifyURL, cfg.NotifyAPIKey)

	payoutCoord := payout.NewCoordinator(payoutStore, choreStore, userStore, transfers, logger.With("component", "payout"))
	escrowCoord := escrow.NewCoordinator(db, choreStore, paymentStore, orders, signer, hub, logger.With("component", "escrow"))
	engine := lifecycle.NewEngine(
		db, choreStore, applicationStore, userStore, cancellationStore, disputeStore,
		payoutCoord, sink, runner, hub, logger.With("component", "lifecycle"),
	)

	return &Server{
		db:           db,
		hub:          hub,
		runner:       runner,
		authH:        handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		choreH:       handler.NewChoreHandler(engine, choreStore, logger.With("component", "chore")),
		applicationH: handler.NewApplicationHandler(applicationStore, choreStore, logger.With("component", "application")),
		paymentH:     handler.NewPaymentHandler(escrowCoord, logger.With("component", "payment")),
		payoutH:      handler.NewPayoutHandler(payoutCoord, payoutStore, choreStore, logger.With("component", "payout_handler")),
		resolutionH:  handler.NewResolutionHandler(engine, logger.With("component", "resolution")),
		sessionStore: sessionStore,
		userStore:    userStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Runner returns the detached task runner so main can drain it on shutdown.
func (s *Server) Runner() *tasks.Runner {
	return s.runner
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	// The capture gateway's callback authenticates with its signature.
	outerMux.HandleFunc("POST /payments/verify", s.rateLimitedHandler(s.paymentH.Verify))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("PUT /api/me/payout-destination", s.authH.SetPayoutDestination)

	// Chore lifecycle
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PATCH /api/chores/{id}", s.choreH.Edit)
	mux.HandleFunc("POST /api/chores/{id}/publish", s.choreH.Publish)
	mux.HandleFunc("POST /api/chores/{id}/assign", s.choreH.Assign)
	mux.HandleFunc("POST /api/chores/{id}/start", s.choreH.Start)
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)
	mux.HandleFunc("POST /api/chores/{id}/cancel", s.choreH.Cancel)

	// Applications
	mux.HandleFunc("POST /api/chores/{id}/applications", s.applicationH.Apply)
	mux.HandleFunc("GET /api/chores/{id}/applications", s.applicationH.ListByChore)

	// Escrow
	mux.HandleFunc("POST /api/chores/{id}/escrow", s.paymentH.CreateIntent)

	// Payouts
	mux.HandleFunc("POST /api/chores/{id}/payout", s.payoutH.Create)
	mux.HandleFunc("GET /api/chores/{id}/payout", s.payoutH.Get)
	mux.HandleFunc("POST /api/payouts/{id}/retry", s.payoutH.Retry)

	// Cancellation requests and disputes
	mux.HandleFunc("POST /api/chores/{id}/cancellation-requests", s.resolutionH.RequestCancellation)
	mux.HandleFunc("POST /api/cancellation-requests/{id}/resolve", s.resolutionH.ResolveCancellation)
	mux.HandleFunc("POST /api/chores/{id}/disputes", s.resolutionH.RaiseDispute)
	mux.HandleFunc("POST /api/disputes/{id}/review", s.resolutionH.ReviewDispute)
	mux.HandleFunc("POST /api/disputes/{id}/resolve", s.resolutionH.ResolveDispute)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))
}
