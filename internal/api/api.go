// Package api provides HTTP handlers and the main API server logic for
// DeskPipe.
//
// It exposes RESTful endpoints for starting sessions, submitting user
// messages, driving solution and diagnostic flows, and searching the
// knowledge base. The API integrates the response orchestrator with the
// content store, the escalation notifier, and the optional query suggester.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/DeskPipe/internal/content"
	"github.com/BTreeMap/DeskPipe/internal/genai"
	"github.com/BTreeMap/DeskPipe/internal/notify"
	"github.com/BTreeMap/DeskPipe/internal/respond"
	"github.com/BTreeMap/DeskPipe/internal/scheduler"
	"github.com/BTreeMap/DeskPipe/internal/session"
	"github.com/BTreeMap/DeskPipe/internal/store"
)

// Server defaults.
const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"
	// DefaultSweepSchedule runs the idle-session sweep every five minutes.
	DefaultSweepSchedule = "*/5 * * * *"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr      string
	Profiles  store.ProfileStore
	Content   content.ContentStore
	Notifier  notify.Notifier
	Suggester genai.Suggester
	Timeout   time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithProfileStore sets the user-profile backend.
func WithProfileStore(profiles store.ProfileStore) Option {
	return func(o *Opts) { o.Profiles = profiles }
}

// WithContentStore sets the knowledge-article backend.
func WithContentStore(cs content.ContentStore) Option {
	return func(o *Opts) { o.Content = cs }
}

// WithNotifier sets the escalation notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Opts) { o.Notifier = n }
}

// WithSuggester sets the optional no-results query suggester.
func WithSuggester(s genai.Suggester) Option {
	return func(o *Opts) { o.Suggester = s }
}

// WithSessionTimeout overrides the idle timeout used by the sweep.
func WithSessionTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Server bundles the orchestrator with its collaborators and the HTTP mux.
type Server struct {
	orchestrator *respond.Orchestrator
	content      content.ContentStore
	notifier     notify.Notifier
	suggester    genai.Suggester
	sched        *scheduler.Scheduler
	addr         string
	timeout      time.Duration
}

// NewServer creates a Server from options. Missing collaborators get
// in-memory or no-op defaults.
func NewServer(opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Content == nil {
		cfg.Content = content.NewInMemoryContent()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NoopNotifier{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = session.DefaultSessionTimeout
	}
	slog.Debug("NewServer configured",
		"addr", cfg.Addr,
		"suggester_set", cfg.Suggester != nil,
		"session_timeout", cfg.Timeout)

	return &Server{
		orchestrator: respond.NewOrchestrator(cfg.Profiles),
		content:      cfg.Content,
		notifier:     cfg.Notifier,
		suggester:    cfg.Suggester,
		addr:         cfg.Addr,
		timeout:      cfg.Timeout,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.startSessionHandler)
	mux.HandleFunc("GET /sessions/{id}", s.sessionSummaryHandler)
	mux.HandleFunc("GET /sessions/{id}/history", s.sessionHistoryHandler)
	mux.HandleFunc("POST /sessions/{id}/messages", s.messageHandler)
	mux.HandleFunc("POST /sessions/{id}/solution", s.startSolutionHandler)
	mux.HandleFunc("POST /sessions/{id}/diagnostic", s.startDiagnosticHandler)
	mux.HandleFunc("POST /sessions/{id}/escalate", s.escalateHandler)
	mux.HandleFunc("POST /sessions/{id}/complete", s.completeHandler)
	mux.HandleFunc("POST /search", s.searchHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	return mux
}

// Run starts the idle-session sweep and serves HTTP until the listener
// fails.
func (s *Server) Run() error {
	s.sched = scheduler.NewScheduler()
	if err := s.sched.AddJob(DefaultSweepSchedule, func() {
		removed := s.orchestrator.Sweep(s.timeout)
		if len(removed) > 0 {
			slog.Info("Server sweep evicted idle sessions", "count", len(removed))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	defer s.sched.Stop()

	slog.Info("DeskPipe API running", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}
