// Package content stores knowledge articles and serves ranked free-text
// search over them.
//
// This file implements the SQLite-backed article store. Candidate rows are
// narrowed with LIKE filters; final ranking reuses the in-memory scorer so
// both backends order results identically.
package content

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/DeskPipe/internal/models"
	"github.com/BTreeMap/DeskPipe/internal/store"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteContent struct {
	db *sql.DB
}

// NewSQLiteContent creates a SQLite-backed content store at the DSN path,
// creating the directory and schema as needed.
func NewSQLiteContent(opts ...store.Option) (*SQLiteContent, error) {
	var cfg store.Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteContent invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteContent DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, store.DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running content store migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteContent{db: db}, nil
}

// AddArticle inserts or replaces an article.
func (s *SQLiteContent) AddArticle(article models.Article) error {
	if err := article.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(article)
	if err != nil {
		slog.Error("SQLiteContent AddArticle marshal failed", "error", err, "article_id", article.ID)
		return fmt.Errorf("failed to marshal article %s: %w", article.ID, err)
	}

	query := `
		INSERT OR REPLACE INTO articles (article_id, title, content, category, keywords, doc)
		VALUES (?, ?, ?, ?, ?, ?)`
	keywords, err := json.Marshal(article.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords for %s: %w", article.ID, err)
	}

	_, err = s.db.Exec(query, article.ID, article.Title, article.Content, article.Category, string(keywords), string(doc))
	if err != nil {
		slog.Error("SQLiteContent AddArticle failed", "error", err, "article_id", article.ID)
		return fmt.Errorf("failed to insert article %s: %w", article.ID, err)
	}
	slog.Debug("SQLiteContent AddArticle succeeded", "article_id", article.ID)
	return nil
}

// Article retrieves an article by id. Returns (nil, nil) when absent.
func (s *SQLiteContent) Article(id string) (*models.Article, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM articles WHERE article_id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteContent Article not found", "article_id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteContent Article query failed", "error", err, "article_id", id)
		return nil, fmt.Errorf("failed to query article %s: %w", id, err)
	}

	var article models.Article
	if err := json.Unmarshal([]byte(doc), &article); err != nil {
		slog.Error("SQLiteContent Article unmarshal failed", "error", err, "article_id", id)
		return nil, fmt.Errorf("failed to unmarshal article %s: %w", id, err)
	}
	return &article, nil
}

// Search ranks stored articles against a free-text query.
func (s *SQLiteContent) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	// Pull candidates matching any token, then rank in Go.
	where := ""
	var args []any
	for i, token := range tokens {
		if i > 0 {
			where += " OR "
		}
		where += "(title LIKE ? OR content LIKE ? OR keywords LIKE ? OR category LIKE ?)"
		like := "%" + token + "%"
		args = append(args, like, like, like, like)
	}

	rows, err := s.db.Query(`SELECT doc FROM articles WHERE `+where, args...)
	if err != nil {
		slog.Error("SQLiteContent Search query failed", "error", err, "query", query)
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			slog.Error("SQLiteContent Search scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		var article models.Article
		if err := json.Unmarshal([]byte(doc), &article); err != nil {
			slog.Error("SQLiteContent Search unmarshal failed", "error", err)
			return nil, fmt.Errorf("failed to unmarshal article: %w", err)
		}
		if score := scoreArticle(article, tokens); score > 0 {
			results = append(results, SearchResult{Article: article, Score: score})
		}
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteContent Search rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate article rows: %w", err)
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	slog.Debug("SQLiteContent Search completed", "query", query, "hits", len(results))
	return results, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteContent) Close() error {
	slog.Debug("Closing content store connection")
	return s.db.Close()
}
