// Package store provides user-profile storage backends for DeskPipe.
//
// This file implements the SQLite-backed profile store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	slog.Debug("SQLite database opened")

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	// Run migrations to ensure tables exist
	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetProfile retrieves a user profile. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetProfile(userID string) (*UserProfile, error) {
	query := `SELECT user_id, created_at, preferences, previous_issues, total_sessions, successful_sessions, preferred_level
			  FROM user_profiles WHERE user_id = ?`

	var profile UserProfile
	var preferencesJSON, issuesJSON, preferredLevel sql.NullString

	err := s.db.QueryRow(query, userID).Scan(
		&profile.UserID, &profile.CreatedAt, &preferencesJSON, &issuesJSON,
		&profile.TotalSessions, &profile.SuccessfulSessions, &preferredLevel)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetProfile not found", "user_id", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", userID, err)
	}

	profile.PreferredLevel = preferredLevel.String
	if err := decodeProfileJSON(&profile, preferencesJSON.String, issuesJSON.String); err != nil {
		slog.Error("SQLiteStore GetProfile JSON decode failed", "error", err, "user_id", userID)
		return nil, err
	}

	slog.Debug("SQLiteStore GetProfile found", "user_id", userID, "total_sessions", profile.TotalSessions)
	return &profile, nil
}

// SaveProfile stores or updates a user profile.
func (s *SQLiteStore) SaveProfile(profile UserProfile) error {
	preferencesJSON, issuesJSON, err := encodeProfileJSON(profile)
	if err != nil {
		slog.Error("SQLiteStore SaveProfile JSON marshal failed", "error", err, "user_id", profile.UserID)
		return err
	}

	query := `
		INSERT OR REPLACE INTO user_profiles (user_id, created_at, preferences, previous_issues, total_sessions, successful_sessions, preferred_level)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query, profile.UserID, profile.CreatedAt, preferencesJSON, issuesJSON,
		profile.TotalSessions, profile.SuccessfulSessions, nilIfEmpty(profile.PreferredLevel))
	if err != nil {
		slog.Error("SQLiteStore SaveProfile failed", "error", err, "user_id", profile.UserID)
		return fmt.Errorf("failed to save profile for %s: %w", profile.UserID, err)
	}
	slog.Debug("SQLiteStore SaveProfile succeeded", "user_id", profile.UserID)
	return nil
}

// ClearProfiles deletes all records in the user_profiles table (for tests).
func (s *SQLiteStore) ClearProfiles() error {
	_, err := s.db.Exec("DELETE FROM user_profiles")
	if err != nil {
		slog.Error("SQLiteStore ClearProfiles failed", "error", err)
		return err
	}
	slog.Debug("SQLiteStore ClearProfiles succeeded")
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	} else {
		slog.Debug("SQLite database connection closed successfully")
	}
	return err
}

// encodeProfileJSON marshals the profile's map and slice columns.
func encodeProfileJSON(profile UserProfile) (string, string, error) {
	var preferencesJSON, issuesJSON string
	if len(profile.Preferences) > 0 {
		b, err := json.Marshal(profile.Preferences)
		if err != nil {
			return "", "", fmt.Errorf("failed to marshal preferences: %w", err)
		}
		preferencesJSON = string(b)
	}
	if len(profile.PreviousIssues) > 0 {
		b, err := json.Marshal(profile.PreviousIssues)
		if err != nil {
			return "", "", fmt.Errorf("failed to marshal previous issues: %w", err)
		}
		issuesJSON = string(b)
	}
	return preferencesJSON, issuesJSON, nil
}

// decodeProfileJSON unmarshals the profile's map and slice columns in place.
func decodeProfileJSON(profile *UserProfile, preferencesJSON, issuesJSON string) error {
	if preferencesJSON != "" {
		profile.Preferences = make(map[string]any)
		if err := json.Unmarshal([]byte(preferencesJSON), &profile.Preferences); err != nil {
			return fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}
	if issuesJSON != "" {
		if err := json.Unmarshal([]byte(issuesJSON), &profile.PreviousIssues); err != nil {
			return fmt.Errorf("failed to unmarshal previous issues: %w", err)
		}
	}
	return nil
}
