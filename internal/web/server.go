package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/llm"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the dashboard.
func NewServer(db *sql.DB, cfg *config.Config, factory llm.Factory, baseDir, version, bind string, port int) *http.Server {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-FS: %v", err)
	}

	renderer := NewRenderer(templateSub, version)

	h := &Handlers{
		db:       db,
		cfg:      cfg,
		factory:  factory,
		baseDir:  baseDir,
		renderer: renderer,
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/templates", http.StatusFound)
	})
	mux.HandleFunc("GET /templates", h.HandleList)
	mux.HandleFunc("GET /templates/{id}", h.HandleDetail)
	mux.HandleFunc("GET /stats", h.HandleStatsPage)

	// JSON API
	mux.HandleFunc("POST /api/generate", h.HandleGenerate)
	mux.HandleFunc("POST /api/optimize", h.HandleOptimize)
	mux.HandleFunc("POST /api/test", h.HandleTest)
	mux.HandleFunc("POST /api/learn", h.HandleLearn)
	mux.HandleFunc("GET /api/templates", h.HandleTemplates)
	mux.HandleFunc("GET /api/stats", h.HandleStats)
	mux.HandleFunc("GET /api/export", h.HandleExport)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	// Wrap with security headers
	handler := securityHeaders(mux)

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: handler,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("PromptForge dashboard running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
