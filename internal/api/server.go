package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/mindspace/internal/domain"
	"github.com/pbaille/mindspace/internal/journal"
	"github.com/pbaille/mindspace/internal/logging"
	"github.com/pbaille/mindspace/internal/report"
	"github.com/pbaille/mindspace/internal/store"
	"github.com/pbaille/mindspace/internal/wellness"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ModelStatus reports whether classification is available
type ModelStatus interface {
	Loaded() bool
}

// Server handles HTTP requests for the mood journal API
type Server struct {
	journal  *journal.Journal
	history  *store.History
	status   ModelStatus
	addr     string
	location *time.Location
}

// Option is a functional option for Server
type Option func(*Server)

// WithModelStatus exposes classifier availability on /health
func WithModelStatus(s ModelStatus) Option {
	return func(srv *Server) {
		srv.status = s
	}
}

// WithLocation sets the time zone used to bucket chart days
func WithLocation(loc *time.Location) Option {
	return func(srv *Server) {
		if loc != nil {
			srv.location = loc
		}
	}
}

// New creates a new API server
func New(j *journal.Journal, addr string, opts ...Option) *Server {
	s := &Server{
		journal:  j,
		history:  j.History(),
		addr:     addr,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the instrumented HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Entries
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("POST /entries", s.addEntry)
	mux.HandleFunc("GET /entries/{id}", s.getEntry)

	// Views
	mux.HandleFunc("GET /chart", s.chart)
	mux.HandleFunc("GET /moods", s.moods)
	mux.HandleFunc("GET /tips/random", s.randomTip)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return otelhttp.NewHandler(withLogging(withCORS(mux)), "mindspace")
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("starting server", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		logging.From(r.Context()).Debug("request",
			"method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"history": s.history.State().String(),
	}
	if s.status != nil {
		resp["classifier_loaded"] = s.status.Loaded()
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddEntryRequest is the request body for submitting a journal entry
type AddEntryRequest struct {
	Content string `json:"content"`
}

// AddEntryResponse is the response for a submitted entry
type AddEntryResponse struct {
	Entry     *domain.MoodRecord `json:"entry"`
	Persisted bool               `json:"persisted"`
	Error     string             `json:"error,omitempty"`
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := s.journal.Submit(r.Context(), req.Content)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, AddEntryResponse{Entry: rec, Persisted: true})
	case errors.Is(err, journal.ErrEmptyEntry):
		writeError(w, http.StatusBadRequest, "content is required")
	case errors.Is(err, store.ErrStoreWrite):
		// classified and kept in memory, but not saved
		writeJSON(w, http.StatusInternalServerError, AddEntryResponse{Entry: rec, Persisted: false, Error: err.Error()})
	case errors.Is(err, store.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.history.Find(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	records := s.history.Records()
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": report.Page(records, offset, limit),
		"total":   len(records),
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	loc := s.location
	if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tz")
			return
		}
		loc = l
	}

	bars := report.Chart(s.history.Records(), loc)
	if bars == nil {
		bars = []report.DayBar{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":   bars,
		"legend": domain.Labels,
	})
}

func (s *Server) moods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"moods": report.Distribution(s.history.Records()),
	})
}

func (s *Server) randomTip(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"tip": wellness.RandomTip(wellness.Tips, nil)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
