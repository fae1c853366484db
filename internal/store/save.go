package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/scribe/internal/apperr"
)

// Save applies b inside one transaction.
func (db *DB) Save(ctx context.Context, b Batch) error {
	if b.Empty() {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, id := range b.DeleteDocuments {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: delete document: %w", err)
		}
	}
	for _, id := range b.DeleteCells {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: delete cell: %w", err)
		}
	}
	for _, id := range b.DeleteTags {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: delete tag: %w", err)
		}
	}
	for _, l := range b.Unlinks {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = ? AND tag_id = ?`,
			l.DocumentID, l.TagID); err != nil {
			return fmt.Errorf("store: unlink tag: %w", err)
		}
	}

	for _, d := range b.Documents {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, title, content, mode, favorite, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title      = excluded.title,
				content    = excluded.content,
				mode       = excluded.mode,
				favorite   = excluded.favorite,
				updated_at = excluded.updated_at
		`, d.ID, d.Title, d.Content, string(d.Mode), d.Favorite, d.CreatedAt.UTC(), d.UpdatedAt.UTC())
		if err != nil {
			return fmt.Errorf("store: upsert document: %w", err)
		}
	}

	if len(b.Cells) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cells (id, document_id, kind, input, output, order_key, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				kind       = excluded.kind,
				input      = excluded.input,
				output     = excluded.output,
				order_key  = excluded.order_key,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return fmt.Errorf("store: prepare cell upsert: %w", err)
		}
		defer stmt.Close()
		for _, c := range b.Cells {
			if c.DocumentID == "" {
				return fmt.Errorf("store: cell %s has no document: %w", c.ID, apperr.ErrInvalidArgument)
			}
			if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, string(c.Kind), c.Input, c.Output,
				c.Order, c.CreatedAt.UTC(), c.UpdatedAt.UTC()); err != nil {
				return fmt.Errorf("store: upsert cell: %w", mapConstraint(err))
			}
		}
	}

	for _, t := range b.Tags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tags (id, name, color, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, color = excluded.color
		`, t.ID, t.Name, t.Color, t.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("store: upsert tag: %w", mapConstraint(err))
		}
	}
	for _, l := range b.Links {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO document_tags (document_id, tag_id) VALUES (?, ?)`,
			l.DocumentID, l.TagID); err != nil {
			return fmt.Errorf("store: link tag: %w", mapConstraint(err))
		}
	}

	for _, e := range b.Exchanges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO exchanges (`+exchangeColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.CellID, e.DocumentID, string(e.Route), e.Prompt, e.Model, e.Content,
			e.PromptTokens, e.CompletionTokens, e.TotalTokens, e.Latency.Milliseconds(),
			string(e.Outcome), e.Error, e.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("store: insert exchange: %w", mapConstraint(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// mapConstraint translates SQLite constraint violations into apperr sentinels.
func mapConstraint(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return err
	}
	switch {
	case se.ExtendedCode == sqlite3.ErrConstraintUnique, se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, se.Error())
	case se.ExtendedCode == sqlite3.ErrConstraintForeignKey, strings.Contains(se.Error(), "FOREIGN KEY"):
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, se.Error())
	}
	return err
}
