package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
)

const (
	documentColumns = `id, title, content, mode, favorite, created_at, updated_at`
	cellColumns     = `id, document_id, kind, input, output, order_key, created_at, updated_at`
	exchangeColumns = `id, cell_id, document_id, route, prompt, model, content,
		prompt_tokens, completion_tokens, total_tokens, latency_ms, outcome, error, created_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (models.Document, error) {
	var d models.Document
	var mode string
	err := s.Scan(&d.ID, &d.Title, &d.Content, &mode, &d.Favorite, &d.CreatedAt, &d.UpdatedAt)
	d.Mode = models.Mode(mode)
	return d, err
}

func scanCell(s scanner) (models.Cell, error) {
	var c models.Cell
	var kind string
	err := s.Scan(&c.ID, &c.DocumentID, &kind, &c.Input, &c.Output, &c.Order, &c.CreatedAt, &c.UpdatedAt)
	c.Kind = models.CellKind(kind)
	return c, err
}

// Document returns one document with its tags and ordered cell ids.
func (db *DB) Document(ctx context.Context, id string) (models.Document, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, fmt.Errorf("store: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("store: document: %w", err)
	}
	docs := []models.Document{d}
	if err := db.attach(ctx, docs, `WHERE dt.document_id = ?`, `WHERE document_id = ?`, id); err != nil {
		return models.Document{}, err
	}
	return docs[0], nil
}

// Documents returns every document in storage order (updated_at descending).
func (db *DB) Documents(ctx context.Context) ([]models.Document, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := db.attach(ctx, out, "", ""); err != nil {
		return nil, err
	}
	return out, nil
}

// attach fills Tags and CellIDs for docs using the given WHERE clauses.
func (db *DB) attach(ctx context.Context, docs []models.Document, tagWhere, cellWhere string, args ...any) error {
	if len(docs) == 0 {
		return nil
	}
	byID := make(map[string]*models.Document, len(docs))
	for i := range docs {
		docs[i].Tags = []models.Tag{}
		docs[i].CellIDs = []string{}
		byID[docs[i].ID] = &docs[i]
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT dt.document_id, t.id, t.name, t.color, t.created_at
		FROM document_tags dt JOIN tags t ON t.id = dt.tag_id
		`+tagWhere+`
		ORDER BY t.name`, args...)
	if err != nil {
		return fmt.Errorf("store: document tags: %w", err)
	}
	for rows.Next() {
		var docID string
		var t models.Tag
		if err := rows.Scan(&docID, &t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan tag: %w", err)
		}
		if d, ok := byID[docID]; ok {
			d.Tags = append(d.Tags, t)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = db.conn.QueryContext(ctx, `
		SELECT document_id, id FROM cells
		`+cellWhere+`
		ORDER BY document_id, order_key, created_at, id`, args...)
	if err != nil {
		return fmt.Errorf("store: document cells: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var docID, cellID string
		if err := rows.Scan(&docID, &cellID); err != nil {
			return fmt.Errorf("store: scan cell id: %w", err)
		}
		if d, ok := byID[docID]; ok {
			d.CellIDs = append(d.CellIDs, cellID)
		}
	}
	return rows.Err()
}

// Cell returns a single cell.
func (db *DB) Cell(ctx context.Context, id string) (models.Cell, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cellColumns+` FROM cells WHERE id = ?`, id)
	c, err := scanCell(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Cell{}, fmt.Errorf("store: cell %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Cell{}, fmt.Errorf("store: cell: %w", err)
	}
	return c, nil
}

// Cells returns the live cells of a document sorted by order key.
// Ties (which only a corrupted store can contain) break on created_at, then id.
func (db *DB) Cells(ctx context.Context, documentID string) ([]models.Cell, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+cellColumns+` FROM cells
		WHERE document_id = ?
		ORDER BY order_key, created_at, id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: cells: %w", err)
	}
	defer rows.Close()

	out := []models.Cell{}
	for rows.Next() {
		c, err := scanCell(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan cell: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Tag returns a single tag.
func (db *DB) Tag(ctx context.Context, id string) (models.Tag, error) {
	var t models.Tag
	err := db.conn.QueryRowContext(ctx, `SELECT id, name, color, created_at FROM tags WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Tag{}, fmt.Errorf("store: tag %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Tag{}, fmt.Errorf("store: tag: %w", err)
	}
	return t, nil
}

// Tags returns all tags sorted by name.
func (db *DB) Tags(ctx context.Context) ([]models.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, color, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: tags: %w", err)
	}
	defer rows.Close()

	out := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Exchanges returns the AI exchanges recorded for a cell, newest first.
func (db *DB) Exchanges(ctx context.Context, cellID string) ([]models.Exchange, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+exchangeColumns+` FROM exchanges
		WHERE cell_id = ?
		ORDER BY created_at DESC, id`, cellID)
	if err != nil {
		return nil, fmt.Errorf("store: exchanges: %w", err)
	}
	defer rows.Close()

	out := []models.Exchange{}
	for rows.Next() {
		var e models.Exchange
		var route, outcome string
		var latencyMS int64
		if err := rows.Scan(&e.ID, &e.CellID, &e.DocumentID, &route, &e.Prompt, &e.Model, &e.Content,
			&e.PromptTokens, &e.CompletionTokens, &e.TotalTokens, &latencyMS, &outcome, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan exchange: %w", err)
		}
		e.Route = models.Route(route)
		e.Outcome = models.Outcome(outcome)
		e.Latency = time.Duration(latencyMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
