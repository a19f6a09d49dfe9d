package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/config"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/db"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/migrations"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/prefill"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/rates"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/seed"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/store"
)

const (
	sessionMaxIdle  = 2 * time.Hour
	sweepInterval   = 10 * time.Minute
	shutdownTimeout = 5 * time.Second
)

type server struct {
	auth           *authService
	store          *store.Store
	sessions       *sessionRegistry
	recommender    *prefill.Recommender
	permissiveNext bool
	logger         *zap.Logger
	now            func() time.Time
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		logger.Fatal("failed to run database migrations", zap.Error(err))
	}

	if _, err := seed.Run(database, seed.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		Demo:          cfg.SeedDemo,
	}, logger); err != nil {
		logger.Fatal("failed to seed database", zap.Error(err))
	}

	table, err := rates.Load(cfg.RatesFile)
	if err != nil {
		logger.Fatal("failed to load rate table", zap.String("path", cfg.RatesFile), zap.Error(err))
	}

	srv := &server{
		auth:           newAuthService(database, cfg.SessionSecret),
		store:          store.New(database),
		sessions:       newSessionRegistry(time.Now),
		recommender:    prefill.New(table, cfg.HoursPerSubject),
		permissiveNext: cfg.PermissiveNext(),
		logger:         logger,
		now:            time.Now,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.sweepSessions(ctx)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.routes(),
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.AppEnv))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDev() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.middleware)

		r.Get("/subjects", s.handleSubjects)
		r.Get("/settlements", s.handleSettlementsList)
		r.Get("/settlements/{id}", s.handleSettlementDetail)

		r.Post("/wizard", s.handleWizardCreate)
		r.Route("/wizard/{id}", func(r chi.Router) {
			r.Get("/", s.handleWizardGet)
			r.Delete("/", s.handleWizardDelete)
			r.Post("/goto/{step}", s.handleGoTo)
			r.Post("/next", s.handleNext)
			r.Post("/previous", s.handlePrevious)
			r.Post("/reset", s.handleReset)
			r.Patch("/step/{n}", s.handleStepUpdate)
			r.Post("/step/{n}/validate", s.handleStepValidate)
			r.Get("/students", s.handleStudents)
			r.Patch("/students/{studentID}", s.handleStudentDetail)
			r.Patch("/family", s.handleFamilyDetail)
			r.Patch("/rates/{subjectID}", s.handleRateUpdate)
			r.Post("/prefill", s.handlePrefill)
			r.Get("/pricing", s.handlePricing)
			r.Get("/installments", s.handleInstallments)
			r.Post("/submit", s.handleSubmit)
		})
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("request_id", requestID(r)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.sweep(sessionMaxIdle); n > 0 {
				s.logger.Info("dropped idle wizard sessions", zap.Int("count", n), zap.Int("remaining", s.sessions.count()))
			}
		}
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.count(),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	valid, err := s.auth.validateCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Error("authentication failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "authentication error")
		return
	}
	if !valid {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.auth.setSessionCookie(w, req.Email)
	writeJSON(w, http.StatusOK, map[string]string{"email": req.Email})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
