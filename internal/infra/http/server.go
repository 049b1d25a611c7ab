// Package http runs the public API listener and the admin listener.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cloudshare/internal/config"
	"cloudshare/internal/infra/api"
	"cloudshare/internal/infra/api/apiv1"
	"cloudshare/internal/infra/auth"
	"cloudshare/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// NewRouter builds the public router. Middleware order: trace id, request
// log, recovery, timeout, authentication.
func NewRouter(cfg config.ServerConfig, authCfg config.AuthConfig, verifier auth.TokenVerifier, srv *apiv1.Server, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		api.TraceID(),
		api.RequestLog(logger),
		api.Recover(logger),
		api.Timeout(cfg.RequestTimeout),
		auth.Gate(verifier, auth.GateOptions{ExemptPaths: authCfg.PublicPaths, Logger: logger}),
	)
	srv.Register(r)
	return r
}

// NewAdminRouter serves /metrics and /health. Every check must pass for /health to answer 200.
func NewAdminRouter(checks map[string]HealthCheck, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				http.Error(w, name+": "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return api.Chain(r, api.TraceID(), api.RequestLog(logger), api.Recover(logger))
}

type Server struct {
	public *http.Server
	admin  *http.Server
	log    *zerolog.Logger
}

func NewServer(cfg *config.Config, public, admin http.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		public: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      public,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		admin: &http.Server{
			Addr:    cfg.Admin.Addr,
			Handler: admin,
		},
		log: logger,
	}
}

// Start serves both listeners until one fails or ctx is done, then drains
// both within grace.
func (s *Server) Start(ctx context.Context, grace time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{s.public, s.admin} {
		srv := srv
		g.Go(func() error {
			s.log.Info().Str("addr", srv.Addr).Msg("http listener starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
		defer cancel()
		s.log.Info().Msg("http listeners shutting down")
		return errors.Join(s.public.Shutdown(sctx), s.admin.Shutdown(sctx))
	})
	return g.Wait()
}
