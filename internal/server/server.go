// Package server provides the prediction web app: an HTML form that ranks
// cities for a pasted job description, plus a small JSON API.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/khrees2412/jobhunter/pkg/models"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Title is shown on the index page
const Title = "Job Hunter: Matching Data Scientists With Cities"

// Predictor ranks cities for a job description
type Predictor interface {
	Rank(doc string) ([]models.CityScore, error)
}

// Config holds server configuration
type Config struct {
	Addr              string
	RequestsPerMinute int // per client; zero disables limiting
	Burst             int
	ShutdownTimeout   time.Duration
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	predictor   Predictor
	logger      *zap.Logger
	rateLimiter *clientLimiter
	index       *template.Template
	cfg         Config
}

// New creates a server around a fitted predictor
func New(cfg Config, predictor Predictor, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	index, err := template.New("index.html").
		Funcs(template.FuncMap{"percent": func(p float64) float64 { return p * 100 }}).
		ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		predictor:   predictor,
		logger:      logger,
		rateLimiter: newClientLimiter(cfg.RequestsPerMinute, cfg.Burst),
		index:       index,
		cfg:         cfg,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler wrapped in middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index", s.handleIndex)
	mux.HandleFunc("POST /predict", s.handlePredictForm)
	mux.HandleFunc("POST /api/predict", s.handlePredictJSON)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.withRateLimit(s.withLogging(mux))
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		errc <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-errc
	s.logger.Info("server stopped")
	return nil
}

// withRateLimit rejects clients that exceed their request budget
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || s.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		if !s.rateLimiter.allow(extractClientID(r)) {
			w.Header().Set("Retry-After", "60")
			s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// extractClientID uses the IP address from RemoteAddr
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
