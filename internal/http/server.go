// Package http exposes the books over a small JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"pacioli/internal/ledger"
	"pacioli/internal/log"
	"pacioli/internal/memoranda"
)

type Server struct {
	http.Server
	ledgers      *ledger.Service
	memos        *memoranda.Service
	maxUpload    int64
	shutdownOnce sync.Once
}

// NewServer wires the API routes. addr is host:port; maxUpload caps the
// memorandum upload body size in bytes.
func NewServer(addr string, ledgers *ledger.Service, memos *memoranda.Service, maxUpload int64, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledgers:   ledgers,
		memos:     memos,
		maxUpload: maxUpload,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /ledgers", s.handleGeneralLedger)
	mux.HandleFunc("GET /ledgers/{account}", s.handleLedger)
	mux.HandleFunc("GET /ledgers/{account}/balance", s.handleBalance)

	mux.HandleFunc("GET /journal", s.handleGeneralJournal)
	mux.HandleFunc("GET /journal/{id}", s.handleJournalEntry)

	mux.HandleFunc("GET /chart", s.handleChart)

	mux.HandleFunc("GET /memoranda", s.handleListMemoranda)
	mux.HandleFunc("POST /memoranda", s.handleUploadMemorandum)
	mux.HandleFunc("GET /memoranda/{id}/transactions", s.handleMemorandumTransactions)
	mux.HandleFunc("DELETE /memoranda/{id}", s.handleDeleteMemorandum)

	handler := http.Handler(mux)
	handler = securityHeaders(handler)
	if logger != nil {
		handler = log.Middleware(logger)(handler)
	}
	s.Server.Handler = handler

	return s
}

// Shutdown gracefully shuts down the server. Safe to call more than
// once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
