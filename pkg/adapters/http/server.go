package http

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

	"github.com/aretw0/undolog"
	"github.com/aretw0/undolog/internal/demo"
	"github.com/aretw0/undolog/internal/logging"
	"github.com/aretw0/undolog/pkg/domain"
	"github.com/aretw0/undolog/pkg/ports"
	"github.com/aretw0/undolog/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sessions is the registry the server drives.
type Sessions = session.Manager[*demo.Session]

// Server serves the demo sessions over HTTP.
type Server struct {
	Sessions *Sessions
	Journal  ports.Journal
	Streams  *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithJournal exposes the journal under /sessions/{id}/journal.
func WithJournal(j ports.Journal) Option {
	return func(s *Server) {
		s.Journal = j
	}
}

// WithStreams sets the stream manager whose hooks the sessions publish to.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetrics exposes g under /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Outcome is the response body of every session operation.
type Outcome struct {
	Remaining int         `json:"remaining"`
	Nothing   bool        `json:"nothing,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	TxID      domain.TxID `json:"tx,omitempty"`
	Words     []string    `json:"words,omitempty"`
	Session   demo.View   `json:"session"`
}

type greetRequest struct {
	Name string `json:"name"`
}

type createRequest struct {
	ID string `json:"id"`
}

// errBadRequest marks client input errors.
var errBadRequest = errors.New("bad request")

// NewHandler creates the HTTP handler for the session registry.
func NewHandler(sessions *Sessions, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/greetings", s.Greet)
			r.Post("/undo", s.Undo)
			r.Post("/purge", s.Purge)
			r.Post("/merge", s.Merge)
			r.Post("/handles/{tx}/undo", s.UndoHandle)
			r.Get("/journal", s.GetJournal)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "undolog-http",
		"version": strings.TrimSpace(undolog.Version),
	})
}

// CreateSession handles POST /sessions. The body is optional.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, fmt.Errorf("%w: invalid request body: %v", errBadRequest, err))
		return
	}

	id, err := s.Sessions.Create(r.Context(), body.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("Session created", "session_id", id)
	s.withSession(w, r, id, http.StatusCreated, func(sess *demo.Session) (Outcome, error) {
		return Outcome{Remaining: sess.Log.Len()}, nil
	})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Sessions.List()})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, chi.URLParam(r, "id"), http.StatusOK, func(sess *demo.Session) (Outcome, error) {
		return Outcome{Remaining: sess.Log.Len()}, nil
	})
}

// DeleteSession handles DELETE /sessions/{id}. The session's log is purged.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("Session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Greet handles POST /sessions/{id}/greetings.
func (s *Server) Greet(w http.ResponseWriter, r *http.Request) {
	var body greetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid request body: %v", errBadRequest, err))
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		s.writeError(w, fmt.Errorf("%w: name is required", errBadRequest))
		return
	}

	s.withSession(w, r, chi.URLParam(r, "id"), http.StatusCreated, func(sess *demo.Session) (Outcome, error) {
		tx, words, err := sess.Greet(body.Name)
		return Outcome{Remaining: sess.Log.Len(), TxID: tx, Words: words}, err
	})
}

// Undo handles POST /sessions/{id}/undo?count=&all=.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	count, all, err := countParams(r, "count")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.withSession(w, r, chi.URLParam(r, "id"), http.StatusOK, func(sess *demo.Session) (Outcome, error) {
		remaining, err := sess.Undo(count, all)
		return Outcome{Remaining: remaining}, err
	})
}

// Purge handles POST /sessions/{id}/purge?count=&all=. Without parameters everything is purged.
func (s *Server) Purge(w http.ResponseWriter, r *http.Request) {
	count, all, err := countParams(r, "count")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !r.URL.Query().Has("count") && !r.URL.Query().Has("all") {
		all = true
	}
	s.withSession(w, r, chi.URLParam(r, "id"), http.StatusOK, func(sess *demo.Session) (Outcome, error) {
		remaining, err := sess.Purge(count, all)
		return Outcome{Remaining: remaining}, err
	})
}

// Merge handles POST /sessions/{id}/merge?last=&all=. Without parameters everything is merged.
func (s *Server) Merge(w http.ResponseWriter, r *http.Request) {
	last, all, err := countParams(r, "last")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !r.URL.Query().Has("last") && !r.URL.Query().Has("all") {
		all = true
	}
	s.withSession(w, r, chi.URLParam(r, "id"), http.StatusOK, func(sess *demo.Session) (Outcome, error) {
		tx := sess.Merge(last, all)
		return Outcome{Remaining: sess.Log.Len(), TxID: tx}, nil
	})
}

// UndoHandle handles POST /sessions/{id}/handles/{tx}/undo.
func (s *Server) UndoHandle(w http.ResponseWriter, r *http.Request) {
	tx, err := strconv.ParseUint(chi.URLParam(r, "tx"), 10, 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid transaction id", errBadRequest))
		return
	}
	s.withSession(w, r, chi.URLParam(r, "id"), http.StatusOK, func(sess *demo.Session) (Outcome, error) {
		remaining, err := sess.UndoHandle(domain.TxID(tx))
		return Outcome{Remaining: remaining, TxID: domain.TxID(tx)}, err
	})
}

// GetJournal handles GET /sessions/{id}/journal?limit=.
func (s *Server) GetJournal(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "journal disabled", http.StatusNotImplemented)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, fmt.Errorf("%w: invalid limit", errBadRequest))
			return
		}
		limit = n
	}

	events, err := s.Journal.Recent(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if events == nil {
		events = []domain.TxEvent{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")
	err := s.Sessions.WithLock(r.Context(), id, func(context.Context, *demo.Session) error { return nil })
	if err != nil {
		s.writeError(w, err)
		return
	}

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to session events", "session_id", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// withSession runs fn under the session lock and writes its outcome.
// "Nothing to do" results are reported as 200 with Nothing set.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, id string, status int, fn func(*demo.Session) (Outcome, error)) {
	var out Outcome
	err := s.Sessions.WithLock(r.Context(), id, func(_ context.Context, sess *demo.Session) error {
		var err error
		out, err = fn(sess)
		out.Session = sess.View()
		return err
	})

	switch {
	case err == nil:
		s.writeJSON(w, status, out)
	case undolog.IsNothing(err):
		out.Nothing = true
		out.Reason = err.Error()
		s.writeJSON(w, http.StatusOK, out)
	default:
		s.writeError(w, err)
	}
}

func countParams(r *http.Request, name string) (int, bool, error) {
	q := r.URL.Query()
	count := 1
	if v := q.Get(name); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false, fmt.Errorf("%w: invalid %s", errBadRequest, name)
		}
		count = n
	}
	all := false
	if v := q.Get("all"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return 0, false, fmt.Errorf("%w: invalid all", errBadRequest)
		}
		all = b
	}
	return count, all, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, demo.ErrUnknownHandle):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionExists), domain.IsUsageError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "err", err)
	} else {
		s.logger.Debug("Request rejected", "status", status, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
