package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cortexai/orderlens/internal/handler"
	"github.com/rs/zerolog/log"
)

type Server struct {
	comps *Components
	http  *http.Server
}

// New serves comps over HTTP. The exchange timeout lives in the orchestrator,
// so WriteTimeout leaves headroom above it.
func New(comps *Components) *Server {
	cfg := comps.Config
	health := map[string]handler.HealthChecker{
		"order_store":  comps.Orders,
		"vector_store": comps.Vectors,
	}

	writeTimeout := time.Duration(cfg.AgentTimeout)*time.Second + 15*time.Second
	return &Server{
		comps: comps,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      Routes(cfg, comps.Orchestrator, health),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  120 * time.Second,
		},
	}
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)
		if closeErr := s.comps.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing order store")
		} else {
			log.Info().Msg("order store closed")
		}
		return err
	case err := <-errCh:
		return err
	}
}
