package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"recmon/internal/report"
	"recmon/internal/viewmodels"
)

const (
	// HTTP timeouts.
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fresh reports over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var servePort string

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Server port")
	rootCmd.AddCommand(serveCmd)
}

// Server answers report requests by building a new snapshot each time.
type Server struct {
	assembler    *report.Assembler
	statsMu      sync.Mutex
	requestCount int64
	errorCount   int64
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	asm, err := newAssembler(cfg, resolveBoardID(cfg))
	if err != nil {
		return err
	}

	s := &Server{assembler: asm}

	srv := &http.Server{
		Addr:           ":" + servePort,
		Handler:        s.routes(),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: 1 << 16,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Printf("[INFO] Server starting on port %s for %s", servePort, cfg.RecordingsDir)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("[INFO] Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] Server shutdown error: %v", err)
		return err
	}
	log.Println("[INFO] Server shutdown complete")
	return nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/report", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Use(loggingMiddleware)
	return r
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.countRequest()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.assembler.Build(r.Context())); err != nil {
		s.countError()
		log.Printf("[ERROR] Failed to encode report: %v", err)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.countRequest()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := fmt.Fprint(w, viewmodels.BuildSummary(s.assembler.Build(r.Context())).Render()); err != nil {
		log.Printf("[WARN] Error writing summary: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.countRequest()

	s.statsMu.Lock()
	requests, errs := s.requestCount, s.errorCount
	s.statsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(healthResponse{
		Status:   "healthy",
		BoardID:  s.assembler.BoardID,
		Requests: requests,
		Errors:   errs,
	}); err != nil {
		log.Printf("[WARN] Error writing health response: %v", err)
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	BoardID  string `json:"board_id"`
	Requests int64  `json:"requests"`
	Errors   int64  `json:"errors"`
}

func (s *Server) countRequest() {
	s.statsMu.Lock()
	s.requestCount++
	s.statsMu.Unlock()
}

func (s *Server) countError() {
	s.statsMu.Lock()
	s.errorCount++
	s.statsMu.Unlock()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)

		if duration > time.Second {
			log.Printf("[WARN] Slow request: %s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, duration)
		} else {
			log.Printf("[DEBUG] %s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, duration)
		}
	})
}
