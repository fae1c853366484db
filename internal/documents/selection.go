package documents

import (
	"context"
	"errors"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
)

// Select makes id the selected document. A selected cell of another
// document is cleared.
func (m *Manager) Select(ctx context.Context, id string) (models.Document, error) {
	d, err := m.store.Document(ctx, id)
	if err != nil {
		return models.Document{}, err
	}
	m.mu.Lock()
	if m.selectedDoc != id {
		m.selectedCell = ""
	}
	m.selectedDoc = id
	m.mu.Unlock()
	return d, nil
}

// Selected returns the selected document. ok is false when nothing is
// selected, or when the selection pointed at a document that no longer
// exists; the stale pointer is cleared then.
func (m *Manager) Selected(ctx context.Context) (d models.Document, ok bool, err error) {
	m.mu.Lock()
	id := m.selectedDoc
	m.mu.Unlock()
	if id == "" {
		return models.Document{}, false, nil
	}
	d, err = m.store.Document(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		m.mu.Lock()
		if m.selectedDoc == id {
			m.selectedDoc = ""
			m.selectedCell = ""
		}
		m.mu.Unlock()
		return models.Document{}, false, nil
	}
	if err != nil {
		return models.Document{}, false, err
	}
	return d, true, nil
}

// SelectCell selects a cell and its document.
func (m *Manager) SelectCell(ctx context.Context, cellID string) (models.Cell, error) {
	c, err := m.store.Cell(ctx, cellID)
	if err != nil {
		return models.Cell{}, err
	}
	m.mu.Lock()
	m.selectedDoc = c.DocumentID
	m.selectedCell = c.ID
	m.mu.Unlock()
	return c, nil
}

// SelectedCell returns the selected cell, clearing the pointer when the
// cell no longer exists.
func (m *Manager) SelectedCell(ctx context.Context) (c models.Cell, ok bool, err error) {
	m.mu.Lock()
	id := m.selectedCell
	m.mu.Unlock()
	if id == "" {
		return models.Cell{}, false, nil
	}
	c, err = m.store.Cell(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		m.mu.Lock()
		if m.selectedCell == id {
			m.selectedCell = ""
		}
		m.mu.Unlock()
		return models.Cell{}, false, nil
	}
	if err != nil {
		return models.Cell{}, false, err
	}
	return c, true, nil
}
