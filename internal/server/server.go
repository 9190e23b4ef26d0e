package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/threatlens/internal/database"
	"github.com/nao1215/threatlens/internal/model"
	"github.com/nao1215/threatlens/internal/normalize"
	"github.com/nao1215/threatlens/internal/scanner"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":3000"

	// DefaultMaxBodySize caps request bodies (1 MiB).
	DefaultMaxBodySize int64 = 1 << 20

	// DefaultHistoryLimit is the number of scans returned by /api/history
	// when no limit is given.
	DefaultHistoryLimit = 20

	// maxHistoryLimit caps the limit query parameter.
	maxHistoryLimit = 500

	shutdownTimeout = 10 * time.Second
)

// ErrHistoryDisabled is reported by history routes when no store is configured.
var ErrHistoryDisabled = errors.New("scan history is disabled")

// Scanner performs single scans.
type Scanner interface {
	Scan(ctx context.Context, kind model.Kind, target string) (*model.Scan, error)
	Source() string
}

// HistoryStore persists scans.
type HistoryStore interface {
	SaveScan(ctx context.Context, scan *model.Scan) error
	GetScan(ctx context.Context, id string) (*model.Scan, error)
	ListScans(ctx context.Context, filter database.Filter) ([]*model.Scan, error)
}

// Server serves the threatlens HTTP API.
type Server struct {
	scanner      Scanner
	store        HistoryStore
	normalizer   *normalize.Normalizer
	validate     *validator.Validate
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	addr         string
	maxBodySize  int64
	historyLimit int
	logger       *slog.Logger
	server       *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHistoryStore enables the history routes and saves every scan to store.
func WithHistoryStore(store HistoryStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics uses m for request metrics and serves gatherer on /metrics.
// Pass the same Metrics to scanner.WithObserver to record scan metrics.
func WithMetrics(m *Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithMaxBodySize caps request bodies.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// WithHistoryLimit sets the default number of scans returned by /api/history.
func WithHistoryLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// New creates a Server that scans with sc.
func New(sc Scanner, opts ...Option) *Server {
	s := &Server{
		scanner:      sc,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		addr:         DefaultAddr,
		maxBodySize:  DefaultMaxBodySize,
		historyLimit: DefaultHistoryLimit,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.metrics = NewMetrics(reg)
		s.gatherer = reg
	}
	s.normalizer = normalize.New(normalize.WithLogger(s.logger))
	return s
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "POST /api/scan/url", "scan_url", s.handleScanURL)
	s.route(mux, "POST /api/scan/message", "scan_message", s.handleScanMessage)
	s.route(mux, "POST /api/normalize", "normalize", s.handleNormalize)
	s.route(mux, "GET /api/history", "history", s.handleHistory)
	s.route(mux, "GET /api/history/{id}", "history_item", s.handleHistoryItem)
	s.route(mux, "GET /healthz", "healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Start begins accepting HTTP connections.
// It blocks until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.addr, "provider", s.scanner.Source())
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down HTTP server")
		return s.shutdown()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return err
	}
	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// route registers h under pattern and counts its responses.
func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.RequestsTotal.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
	}))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type urlScanRequest struct {
	URL string `json:"url" validate:"required,max=4096"`
}

type messageScanRequest struct {
	Message string `json:"message" validate:"required,max=65536"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleScanURL(w http.ResponseWriter, r *http.Request) {
	var req urlScanRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	s.scan(w, r, model.KindURL, req.URL)
}

func (s *Server) handleScanMessage(w http.ResponseWriter, r *http.Request) {
	var req messageScanRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	s.scan(w, r, model.KindMessage, req.Message)
}

// decodeRequest reads and validates a JSON body, answering 400 on failure.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request, kind model.Kind, target string) {
	result, err := s.scanner.Scan(r.Context(), kind, target)
	switch {
	case errors.Is(err, scanner.ErrEmptyTarget):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("scan failed", "kind", kind, "error", err)
		s.writeError(w, http.StatusBadGateway, "analysis provider failed")
		return
	}

	if s.store != nil {
		if err := s.store.SaveScan(r.Context(), result); err != nil {
			s.logger.Warn("failed to save scan", "id", result.ID, "error", err)
		}
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleNormalize normalizes a raw model answer sent as the request body.
// The outcome is reported in the X-Threatlens-Outcome header.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	kind := model.KindURL
	if q := r.URL.Query().Get("kind"); q != "" {
		k, err := model.ParseKind(q)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		kind = k
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodySize))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	report, outcome := s.normalizer.Parse(string(raw), kind)
	w.Header().Set("X-Threatlens-Outcome", outcome.String())
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, ErrHistoryDisabled.Error())
		return
	}

	filter := database.Filter{Limit: s.historyLimit}
	q := r.URL.Query()
	if v := q.Get("kind"); v != "" {
		k, err := model.ParseKind(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Kind = k
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, maxHistoryLimit)
	}

	scans, err := s.store.ListScans(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list scans", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	s.writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, ErrHistoryDisabled.Error())
		return
	}

	id := r.PathValue("id")
	scan, err := s.store.GetScan(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get scan", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if scan == nil {
		s.writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	s.writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": s.scanner.Source(),
		"history":  s.store != nil,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response error", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// validationMessage converts validator errors to a short client-facing message.
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid (%s)", field, e.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}
