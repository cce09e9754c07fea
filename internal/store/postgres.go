// Package store provides user-profile storage backends for DeskPipe.
//
// This file implements the PostgreSQL-backed profile store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	slog.Debug("Postgres database opened")

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Postgres ping successful")

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// GetProfile retrieves a user profile. Returns (nil, nil) when absent.
func (s *PostgresStore) GetProfile(userID string) (*UserProfile, error) {
	query := `SELECT user_id, created_at, preferences, previous_issues, total_sessions, successful_sessions, preferred_level
			  FROM user_profiles WHERE user_id = $1`

	var profile UserProfile
	var preferencesJSON, issuesJSON, preferredLevel sql.NullString

	err := s.db.QueryRow(query, userID).Scan(
		&profile.UserID, &profile.CreatedAt, &preferencesJSON, &issuesJSON,
		&profile.TotalSessions, &profile.SuccessfulSessions, &preferredLevel)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetProfile not found", "user_id", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", userID, err)
	}

	profile.PreferredLevel = preferredLevel.String
	if err := decodeProfileJSON(&profile, preferencesJSON.String, issuesJSON.String); err != nil {
		slog.Error("PostgresStore GetProfile JSON decode failed", "error", err, "user_id", userID)
		return nil, err
	}

	slog.Debug("PostgresStore GetProfile found", "user_id", userID, "total_sessions", profile.TotalSessions)
	return &profile, nil
}

// SaveProfile stores or updates a user profile.
func (s *PostgresStore) SaveProfile(profile UserProfile) error {
	preferencesJSON, issuesJSON, err := encodeProfileJSON(profile)
	if err != nil {
		slog.Error("PostgresStore SaveProfile JSON marshal failed", "error", err, "user_id", profile.UserID)
		return err
	}

	query := `
		INSERT INTO user_profiles (user_id, created_at, preferences, previous_issues, total_sessions, successful_sessions, preferred_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			preferences = EXCLUDED.preferences,
			previous_issues = EXCLUDED.previous_issues,
			total_sessions = EXCLUDED.total_sessions,
			successful_sessions = EXCLUDED.successful_sessions,
			preferred_level = EXCLUDED.preferred_level`

	_, err = s.db.Exec(query, profile.UserID, profile.CreatedAt, preferencesJSON, issuesJSON,
		profile.TotalSessions, profile.SuccessfulSessions, nilIfEmpty(profile.PreferredLevel))
	if err != nil {
		slog.Error("PostgresStore SaveProfile failed", "error", err, "user_id", profile.UserID)
		return fmt.Errorf("failed to save profile for %s: %w", profile.UserID, err)
	}
	slog.Debug("PostgresStore SaveProfile succeeded", "user_id", profile.UserID)
	return nil
}

// ClearProfiles deletes all records in the user_profiles table (for tests).
func (s *PostgresStore) ClearProfiles() error {
	_, err := s.db.Exec("DELETE FROM user_profiles")
	if err != nil {
		slog.Error("PostgresStore ClearProfiles failed", "error", err)
		return err
	}
	slog.Debug("PostgresStore ClearProfiles succeeded")
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	} else {
		slog.Debug("Postgres database connection closed successfully")
	}
	return err
}
