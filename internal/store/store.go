// Package store provides user-profile storage backends for DeskPipe.
//
// It includes an in-memory store for tests and development plus persistent
// SQLite and PostgreSQL backends selected by DSN.
package store

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// IssueRecord is one resolved-or-not article encounter from a past session.
type IssueRecord struct {
	ArticleID string    `json:"article_id"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

// UserProfile accumulates what DeskPipe learns about a user across sessions.
type UserProfile struct {
	UserID             string         `json:"user_id"`
	CreatedAt          time.Time      `json:"created_at"`
	Preferences        map[string]any `json:"preferences,omitempty"`
	PreviousIssues     []IssueRecord  `json:"previous_issues,omitempty"`
	TotalSessions      int            `json:"total_sessions"`
	SuccessfulSessions int            `json:"successful_sessions"`
	// PreferredLevel, when set, seeds the technical level of new sessions.
	PreferredLevel string `json:"preferred_level,omitempty"`
}

// ProfileStore is the persistence interface the session registry depends on.
// GetProfile returns (nil, nil) when no profile exists for the user.
type ProfileStore interface {
	GetProfile(userID string) (*UserProfile, error)
	SaveProfile(profile UserProfile) error
}

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the database connection string.
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports the database driver a DSN targets: "postgres" for
// URL-style or key=value Postgres strings, "sqlite3" for everything else
// (SQLite DSNs are plain file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// InMemoryStore is a map-backed ProfileStore for tests and development.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]UserProfile
}

// NewInMemoryStore creates an empty in-memory profile store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]UserProfile)}
}

func (s *InMemoryStore) GetProfile(userID string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func (s *InMemoryStore) SaveProfile(profile UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.UserID] = profile
	slog.Debug("InMemoryStore SaveProfile succeeded", "user_id", profile.UserID, "total_sessions", profile.TotalSessions)
	return nil
}
