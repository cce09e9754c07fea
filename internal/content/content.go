// Package content stores knowledge articles and serves ranked free-text
// search over them. Ranking is deterministic keyword scoring; the engines
// never search, they receive articles from callers.
package content

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/BTreeMap/DeskPipe/internal/models"
)

// Scoring weights per matched query token.
const (
	titleWeight    = 3.0
	keywordWeight  = 2.0
	symptomWeight  = 2.0
	contentWeight  = 1.0
	categoryWeight = 1.0
)

// DefaultSearchLimit caps result counts when the caller passes no limit.
const DefaultSearchLimit = 5

// SearchResult is one ranked search hit.
type SearchResult struct {
	Article models.Article `json:"article"`
	Score   float64        `json:"score"`
}

// ContentStore serves articles by id and by free-text search. Article
// returns (nil, nil) when the id is unknown.
type ContentStore interface {
	Article(id string) (*models.Article, error)
	Search(query string, limit int) ([]SearchResult, error)
}

// InMemoryContent is a map-backed ContentStore for tests and development.
type InMemoryContent struct {
	mu       sync.RWMutex
	articles map[string]models.Article
}

// NewInMemoryContent creates a content store holding the given articles.
func NewInMemoryContent(articles ...models.Article) *InMemoryContent {
	s := &InMemoryContent{articles: make(map[string]models.Article, len(articles))}
	for _, a := range articles {
		s.articles[a.ID] = a
	}
	return s
}

// AddArticle inserts or replaces an article.
func (s *InMemoryContent) AddArticle(article models.Article) error {
	if err := article.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[article.ID] = article
	slog.Debug("InMemoryContent AddArticle succeeded", "article_id", article.ID)
	return nil
}

func (s *InMemoryContent) Article(id string) (*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	article, ok := s.articles[id]
	if !ok {
		return nil, nil
	}
	return &article, nil
}

func (s *InMemoryContent) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult
	for _, article := range s.articles {
		if score := scoreArticle(article, tokens); score > 0 {
			results = append(results, SearchResult{Article: article, Score: score})
		}
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	slog.Debug("InMemoryContent Search completed", "query", query, "hits", len(results))
	return results, nil
}

// tokenize lowercases and splits a query, dropping one-letter noise.
func tokenize(query string) []string {
	var tokens []string
	for _, field := range strings.Fields(strings.ToLower(query)) {
		field = strings.Trim(field, ".,!?'\"()")
		if len(field) > 1 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// scoreArticle sums the per-token weights for every field a token hits.
func scoreArticle(article models.Article, tokens []string) float64 {
	title := strings.ToLower(article.Title)
	content := strings.ToLower(article.Content)
	category := strings.ToLower(article.Category)

	score := 0.0
	for _, token := range tokens {
		if strings.Contains(title, token) {
			score += titleWeight
		}
		for _, keyword := range article.Keywords {
			if strings.Contains(strings.ToLower(keyword), token) {
				score += keywordWeight
				break
			}
		}
		for _, symptom := range article.Symptoms {
			if strings.Contains(strings.ToLower(symptom), token) {
				score += symptomWeight
				break
			}
		}
		if strings.Contains(content, token) {
			score += contentWeight
		}
		if strings.Contains(category, token) {
			score += categoryWeight
		}
	}
	return score
}

// sortResults orders by descending score, then article id for stable output.
func sortResults(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Article.ID < results[j].Article.ID
	})
}
