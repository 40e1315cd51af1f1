package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/services"
)

var tracer = otel.Tracer("gastos/http")

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the application services the API exposes.
type Services struct {
	Ledger       *services.LedgerService
	Accounts     *services.AccountService
	Recurring    *services.RecurringService
	Processor    *services.RecurringProcessor
	Stats        *services.StatsService
	Installments *services.InstallmentService
	Budgets      *services.BudgetService
	Store        Pinger
	Metrics      *metrics.Metrics
}

type Server struct {
	http.Server
	svc     Services
	limiter *ratelimit.Limiter

	stopPrune    chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server. A nil
// logger falls back to the slog default.
func NewServer(addr string, svc Services, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	s := &Server{
		svc:       svc,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		stopPrune: make(chan struct{}),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.pruneClients()
	return s
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(applog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.svc.Metrics != nil {
		r.Handle("/metrics", s.svc.Metrics.Handler())
	}

	r.Route("/v1/users/{userID}", func(r chi.Router) {
		r.Use(s.limiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		}))

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings/exchange-rate", s.handleUpdateExchangeRate)

		r.Route("/expenses", s.entryRoutes(core.KindExpense))
		r.Route("/incomes", s.entryRoutes(core.KindIncome))

		r.Route("/credit-cards", func(r chi.Router) {
			r.Get("/", s.handleListCreditCards)
			r.Post("/", s.handleCreateCreditCard)
			r.Get("/{cardID}", s.handleGetCreditCard)
		})

		r.Route("/credit-card-payments", func(r chi.Router) {
			r.Get("/", s.handleListPayments)
			r.Post("/", s.handleCreatePayment)
			r.Put("/{paymentID}", s.handleUpdatePayment)
			r.Delete("/{paymentID}", s.handleDeletePayment)
		})

		r.Route("/bank-accounts", func(r chi.Router) {
			r.Get("/", s.handleListBankAccounts)
			r.Post("/", s.handleCreateBankAccount)
			r.Get("/{accountID}/balance", s.handleGetBalance)
			r.Post("/{accountID}/deduct", s.handleDeduct)
			r.Post("/{accountID}/reset", s.handleResetBalance)
		})

		r.Route("/recurring", func(r chi.Router) {
			r.Get("/", s.handleListRecurring)
			r.Post("/", s.handleCreateRecurring)
			r.Post("/process", s.handleProcessRecurring)
			r.Get("/{recurringID}", s.handleGetRecurring)
			r.Put("/{recurringID}", s.handleUpdateRecurring)
			r.Delete("/{recurringID}", s.handleDeleteRecurring)
			r.Put("/{recurringID}/active", s.handleSetRecurringActive)
		})

		r.Route("/installments", func(r chi.Router) {
			r.Get("/", s.handleListInstallments)
			r.Post("/", s.handleCreateInstallment)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Post("/", s.handleCreateBudget)
			r.Get("/status", s.handleBudgetStatus)
			r.Get("/{budgetID}", s.handleGetBudget)
			r.Put("/{budgetID}", s.handleUpdateBudget)
			r.Delete("/{budgetID}", s.handleDeleteBudget)
		})
	})

	return r
}

func (s *Server) pruneClients() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.limiter.Prune()
		case <-s.stopPrune:
			return
		}
	}
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.stopPrune)
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Store.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
