package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NicolasHaas/nforce/pkg/crypto"
	"github.com/NicolasHaas/nforce/pkg/datastore"
)

// Run starts the server and blocks until shutdown signal.
func (s *Server) Run() error {
	if s.store == nil {
		return fmt.Errorf("server: missing store dependency")
	}
	st := s.store
	defer func() { _ = st.Close() }()

	// Ensure at least one API token exists so a closed server is reachable
	if !s.cfg.Open {
		if err := s.ensureAdminToken(st); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("N-FORCE API listening", "addr", s.cfg.Addr, "open", s.cfg.Open)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Start periodic metrics logging (every 60s)
	s.metrics.StartPeriodicLog(60*time.Second, s.ctx.Done())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.cancel()
		return fmt.Errorf("server: listen on %s: %w", s.cfg.Addr, err)
	case sig := <-sigCh:
		slog.Info("shutting down...", "signal", sig.String())
	}

	s.cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Shutdown stops background work. Exposed for tests; Run calls it via
// signal handling.
func (s *Server) Shutdown() {
	s.cancel()
}

// ensureAdminToken creates an API token only on first run (no tokens exist).
func (s *Server) ensureAdminToken(st datastore.DataProviderFactory) error {
	hasTokens, err := st.NonTx().HasTokens()
	if err != nil {
		return fmt.Errorf("server: check tokens: %w", err)
	}
	if hasTokens {
		return nil // tokens already exist, don't generate more
	}

	rawToken, err := crypto.GenerateToken()
	if err != nil {
		return fmt.Errorf("server: generate API token: %w", err)
	}
	if err := st.NonTx().CreateToken(crypto.HashToken(rawToken)); err != nil {
		return fmt.Errorf("server: store API token: %w", err)
	}
	s.metrics.TokensCreated.Add(1)

	slog.Info("========================================")
	slog.Info("API TOKEN (save this!):", "token", rawToken)
	slog.Info("========================================")
	return nil
}
