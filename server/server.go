package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManupaDev/multi-agent-travel-planner/adapter/uistream"
	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/log"
	"github.com/ManupaDev/multi-agent-travel-planner/travel"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequirementsThreadPrefix keeps requirements threads apart from travel
// system threads that share a checkpoint store
const RequirementsThreadPrefix = "requirements/"

// maxBodyBytes bounds a chat request body
const maxBodyBytes = 1 << 20

// Runner is a compiled graph, usually a *graph.Runnable
type Runner interface {
	uistream.Source
	Run(ctx context.Context, in graph.Input, threadID string) (graph.Outcome, error)
}

// Option configures a Server
type Option func(*Server)

// WithRequirements also serves the requirements graph under /requirements
func WithRequirements(r Runner) Option {
	return func(s *Server) { s.requirements = r }
}

// WithAdapter sets the stream adapter. Defaults to uistream.New with the server logger.
func WithAdapter(a *uistream.Adapter) Option {
	return func(s *Server) { s.adapter = a }
}

// WithLogger sets the logger. Defaults to the log package default.
func WithLogger(l log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records request and stream metrics
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithGatherer sets what /metrics exposes. Defaults to prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithCORSOrigins sets the browser origins allowed to call the API
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, o := range origins {
			s.origins[strings.TrimRight(o, "/")] = true
		}
	}
}

// Server serves the travel graphs over HTTP
type Server struct {
	system       Runner
	requirements Runner
	adapter      *uistream.Adapter
	logger       log.Logger
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	origins      map[string]bool
}

// New creates a Server for the travel system graph
func New(system Runner, opts ...Option) *Server {
	s := &Server{system: system, origins: make(map[string]bool)}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrDefault(s.logger)
	if s.adapter == nil {
		s.adapter = uistream.New(uistream.WithLogger(s.logger))
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	return s
}

// Handler returns the HTTP handler with all routes mounted
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.cors)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Multi-Agent Travel Planner API"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/travel-system", func(r chi.Router) {
		r.Post("/chat", s.streamChat(s.system, "travel-system/chat", ""))
		r.Post("/chat-sync", s.syncChat(s.system, "travel-system/chat-sync", "", travelSystemResponse))
	})
	if s.requirements != nil {
		r.Route("/requirements", func(r chi.Router) {
			r.Post("/chat", s.streamChat(s.requirements, "requirements/chat", RequirementsThreadPrefix))
			r.Post("/chat-sync", s.syncChat(s.requirements, "requirements/chat-sync", RequirementsThreadPrefix, requirementsResponse))
		})
	}
	return r
}

func (s *Server) streamChat(runner Runner, route, prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := decodeBody(w, r, &req); err != nil {
			s.reject(w, route, http.StatusBadRequest, err)
			return
		}
		threadID := req.Thread()
		if threadID == "" {
			s.reject(w, route, http.StatusBadRequest, errors.New("id or thread_id is required"))
			return
		}
		message := req.UserText()
		if message == "" {
			s.reject(w, route, http.StatusBadRequest, errors.New("messages contain no user text"))
			return
		}

		s.logger.Info("server: %s thread %s (resume=%t)", route, threadID, req.Resume)
		s.stream(w, r, runner, route, input(message, req.Resume), prefix+threadID)
	}
}

// stream writes the events of one run to w. The run is cancelled when the
// client goes away or a write fails.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, runner Runner, route string, in graph.Input, threadID string) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.metrics.streamOpened()
	defer s.metrics.streamClosed()

	uistream.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	s.metrics.request(route, http.StatusOK)

	enc := uistream.NewEncoder(w)
	events := s.adapter.Stream(ctx, runner, in, threadID)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			s.logger.Warn("server: stream for thread %s stopped: %v", threadID, err)
			cancel()
			for range events {
			}
			return
		}
	}
}

func (s *Server) syncChat(runner Runner, route, prefix string, respond func(graph.Outcome) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SyncRequest
		if err := decodeBody(w, r, &req); err != nil {
			s.reject(w, route, http.StatusBadRequest, err)
			return
		}
		if req.ThreadID == "" {
			s.reject(w, route, http.StatusBadRequest, errors.New("thread_id is required"))
			return
		}
		message := strings.TrimSpace(req.Message)
		if message == "" {
			s.reject(w, route, http.StatusBadRequest, errors.New("message is required"))
			return
		}

		out, err := runner.Run(r.Context(), input(message, req.Resume), prefix+req.ThreadID)
		if err != nil {
			s.reject(w, route, statusFor(err), err)
			return
		}
		body, err := respond(out)
		if err != nil {
			s.reject(w, route, http.StatusInternalServerError, err)
			return
		}
		s.metrics.request(route, http.StatusOK)
		writeJSON(w, http.StatusOK, body)
	}
}

func requirementsResponse(out graph.Outcome) (any, error) {
	req, err := field[travel.Requirements](out.State, travel.FieldRequirements)
	if err != nil {
		return nil, err
	}
	return RequirementsResponse{
		Message:      reply(out),
		IsInterrupt:  out.IsSuspended(),
		Requirements: req,
	}, nil
}

func travelSystemResponse(out graph.Outcome) (any, error) {
	req, err := field[travel.Requirements](out.State, travel.FieldRequirements)
	if err != nil {
		return nil, err
	}
	itinerary, err := field[travel.Itinerary](out.State, travel.FieldItinerary)
	if err != nil {
		return nil, err
	}
	bookings, err := field[travel.Bookings](out.State, travel.FieldBookings)
	if err != nil {
		return nil, err
	}
	return TravelSystemResponse{
		Message:      reply(out),
		IsInterrupt:  out.IsSuspended(),
		Requirements: req,
		Itinerary:    itinerary,
		Bookings:     bookings,
	}, nil
}

// statusFor maps engine errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrThreadIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, graph.ErrThreadNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrThreadBusy),
		errors.Is(err, graph.ErrThreadSuspended),
		errors.Is(err, graph.ErrThreadNotSuspended):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) reject(w http.ResponseWriter, route string, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("server: %s failed: %v", route, err)
	} else {
		s.logger.Warn("server: %s rejected: %v", route, err)
	}
	s.metrics.request(route, code)
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	// reading to EOF lets the server notice a client that goes away
	_, _ = io.Copy(io.Discard, body)
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			s.logger.Debug("server: %s %s %d %s [%s]", r.Method, r.URL.Path, status,
				time.Since(start).Round(time.Millisecond), middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}
