package documents

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
)

// Sort is a document list order.
type Sort string

const (
	SortModified Sort = "modified" // updated_at, newest first
	SortCreated  Sort = "created"  // created_at, newest first
	SortTitle    Sort = "title"    // title, A to Z
	SortMode     Sort = "mode"     // mode, then newest first
)

// ParseSort validates a sort name. The empty string maps to SortModified.
func ParseSort(s string) (Sort, error) {
	switch Sort(s) {
	case "", SortModified:
		return SortModified, nil
	case SortCreated, SortTitle, SortMode:
		return Sort(s), nil
	}
	return "", fmt.Errorf("documents: unknown sort %q: %w", s, apperr.ErrInvalidArgument)
}

func sortDocuments(docs []models.Document, s Sort) {
	slices.SortStableFunc(docs, func(a, b models.Document) int {
		var c int
		switch s {
		case SortCreated:
			c = b.CreatedAt.Compare(a.CreatedAt)
		case SortTitle:
			c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortMode:
			c = strings.Compare(string(a.Mode), string(b.Mode))
			if c == 0 {
				c = b.UpdatedAt.Compare(a.UpdatedAt)
			}
		default:
			c = b.UpdatedAt.Compare(a.UpdatedAt)
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func matches(d models.Document, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(d.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(d.Content), lowerQuery)
}

// Search returns the documents whose title or content contains query,
// case-insensitively, ordered by sort. An empty query matches everything.
// A non-empty sort becomes the current order used for selection fallback.
func (m *Manager) Search(ctx context.Context, query, sort string) ([]models.Document, error) {
	m.mu.Lock()
	current := m.sort
	m.mu.Unlock()

	s := current
	if sort != "" {
		var err error
		if s, err = ParseSort(sort); err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sort = s
		m.mu.Unlock()
	}

	docs, err := m.store.Documents(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Document{}
	q := strings.ToLower(query)
	for _, d := range docs {
		if q == "" || matches(d, q) {
			out = append(out, d)
		}
	}
	sortDocuments(out, s)
	return out, nil
}

// Favorites returns favorite documents, most recently modified first.
func (m *Manager) Favorites(ctx context.Context) ([]models.Document, error) {
	docs, err := m.store.Documents(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Document{}
	for _, d := range docs {
		if d.Favorite {
			out = append(out, d)
		}
	}
	sortDocuments(out, SortModified)
	return out, nil
}

// Recent returns up to n most recently modified documents.
func (m *Manager) Recent(ctx context.Context, n int) ([]models.Document, error) {
	docs, err := m.store.Documents(ctx)
	if err != nil {
		return nil, err
	}
	sortDocuments(docs, SortModified)
	if n >= 0 && len(docs) > n {
		docs = docs[:n]
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// Stats counts documents by flag and mode.
type Stats struct {
	Total     int `json:"total"`
	Favorites int `json:"favorites"`
	Plain     int `json:"plain"`
	Notebook  int `json:"notebook"`
}

// Stats returns document counts.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	docs, err := m.store.Documents(ctx)
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	for _, d := range docs {
		s.Total++
		if d.Favorite {
			s.Favorites++
		}
		switch d.Mode {
		case models.ModeNotebook:
			s.Notebook++
		default:
			s.Plain++
		}
	}
	return s, nil
}
