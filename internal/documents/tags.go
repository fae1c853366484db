package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/store"
)

// CreateTag adds a tag. Names are unique.
func (m *Manager) CreateTag(ctx context.Context, name, color string) (models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Tag{}, fmt.Errorf("documents: tag name must not be empty: %w", apperr.ErrInvalidArgument)
	}
	t := models.Tag{ID: uuid.NewString(), Name: name, Color: color, CreatedAt: m.now()}
	if err := m.store.Save(ctx, store.Batch{Tags: []models.Tag{t}}); err != nil {
		return models.Tag{}, fmt.Errorf("documents: create tag: %w", err)
	}
	return t, nil
}

// Tags lists all tags by name.
func (m *Manager) Tags(ctx context.Context) ([]models.Tag, error) {
	return m.store.Tags(ctx)
}

// DeleteTag removes a tag and its links.
func (m *Manager) DeleteTag(ctx context.Context, id string) error {
	if _, err := m.store.Tag(ctx, id); err != nil {
		return err
	}
	if err := m.store.Save(ctx, store.Batch{DeleteTags: []string{id}}); err != nil {
		return fmt.Errorf("documents: delete tag: %w", err)
	}
	return nil
}

// AttachTag links a tag to a document. Attaching twice is a no-op.
func (m *Manager) AttachTag(ctx context.Context, documentID, tagID string) (models.Document, error) {
	if _, err := m.store.Tag(ctx, tagID); err != nil {
		return models.Document{}, err
	}
	return m.mutate(ctx, documentID, "updated", func(_ *models.Document, b *store.Batch) error {
		b.Links = []models.TagLink{{DocumentID: documentID, TagID: tagID}}
		return nil
	})
}

// DetachTag removes a tag from a document.
func (m *Manager) DetachTag(ctx context.Context, documentID, tagID string) (models.Document, error) {
	return m.mutate(ctx, documentID, "updated", func(_ *models.Document, b *store.Batch) error {
		b.Unlinks = []models.TagLink{{DocumentID: documentID, TagID: tagID}}
		return nil
	})
}

// resolveTags returns existing tags by name and new tags for unknown names.
// New tags are saved by the caller.
func (m *Manager) resolveTags(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	existing, err := m.store.Tags(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]models.Tag, len(existing))
	for _, t := range existing {
		byName[t.Name] = t
	}
	out := make([]models.Tag, 0, len(names))
	for _, n := range names {
		t, ok := byName[n]
		if !ok {
			t = models.Tag{ID: uuid.NewString(), Name: n, CreatedAt: m.now()}
			byName[n] = t
		}
		out = append(out, t)
	}
	return out, nil
}
