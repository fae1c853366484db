package notebook

import (
	"context"
	"fmt"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
)

func parseKind(kind models.CellKind) (models.CellKind, error) {
	k, err := models.ParseCellKind(string(kind))
	if err != nil {
		return "", fmt.Errorf("notebook: %w: %v", apperr.ErrInvalidArgument, err)
	}
	return k, nil
}

// Append adds a new empty cell at the end of the document.
func (e *Engine) Append(ctx context.Context, documentID string, kind models.CellKind) (models.Cell, error) {
	return e.insert(ctx, documentID, kind, -1)
}

// InsertAt adds a new empty cell at index, shifting every cell at or after
// index up by one. index must be within 0..count.
func (e *Engine) InsertAt(ctx context.Context, documentID string, kind models.CellKind, index int) (models.Cell, error) {
	if index < 0 {
		return models.Cell{}, fmt.Errorf("notebook: insert at %d: %w", index, apperr.ErrOutOfRange)
	}
	return e.insert(ctx, documentID, kind, index)
}

// insert handles Append (index < 0) and InsertAt.
func (e *Engine) insert(ctx context.Context, documentID string, kind models.CellKind, index int) (models.Cell, error) {
	kind, err := parseKind(kind)
	if err != nil {
		return models.Cell{}, err
	}
	unlock := e.Guard(documentID)
	defer unlock()

	s, err := e.load(ctx, documentID)
	if err != nil {
		return models.Cell{}, err
	}
	if index < 0 {
		index = len(s.cells)
	}
	return e.insertLocked(ctx, s, kind, index, "")
}

func (e *Engine) insertLocked(ctx context.Context, s *snapshot, kind models.CellKind, index int, input string) (models.Cell, error) {
	if index > len(s.cells) {
		return models.Cell{}, fmt.Errorf("notebook: insert at %d of %d: %w", index, len(s.cells), apperr.ErrOutOfRange)
	}
	c := e.newCell(s.documentID, kind)
	c.Input = input
	c.Order = index
	s.insert(index, c)
	s.dirty[c.ID] = true

	if err := e.save(ctx, s.batch()); err != nil {
		return models.Cell{}, err
	}
	e.emit("created", s.documentID, c.ID)
	return s.cells[index], nil
}

// InsertAbove inserts a new cell at the target cell's position.
func (e *Engine) InsertAbove(ctx context.Context, cellID string, kind models.CellKind) (models.Cell, error) {
	return e.insertRelative(ctx, cellID, kind, 0)
}

// InsertBelow inserts a new cell right after the target cell.
func (e *Engine) InsertBelow(ctx context.Context, cellID string, kind models.CellKind) (models.Cell, error) {
	return e.insertRelative(ctx, cellID, kind, 1)
}

func (e *Engine) insertRelative(ctx context.Context, cellID string, kind models.CellKind, offset int) (models.Cell, error) {
	kind, err := parseKind(kind)
	if err != nil {
		return models.Cell{}, err
	}
	var out models.Cell
	err = e.withCell(ctx, cellID, func(s *snapshot, i int) error {
		c, err := e.insertLocked(ctx, s, kind, i+offset, "")
		out = c
		return err
	})
	return out, err
}

// MoveUp swaps the cell with its predecessor. It reports false when the cell
// is already first.
func (e *Engine) MoveUp(ctx context.Context, cellID string) (bool, error) {
	return e.move(ctx, cellID, -1)
}

// MoveDown swaps the cell with its successor. It reports false when the cell
// is already last.
func (e *Engine) MoveDown(ctx context.Context, cellID string) (bool, error) {
	return e.move(ctx, cellID, 1)
}

func (e *Engine) move(ctx context.Context, cellID string, delta int) (bool, error) {
	moved := false
	var documentID string
	err := e.withCell(ctx, cellID, func(s *snapshot, i int) error {
		documentID = s.documentID
		j := i + delta
		if j >= 0 && j < len(s.cells) {
			s.swap(i, j)
			moved = true
		}
		b := s.batch()
		if b.Empty() {
			return nil
		}
		return e.save(ctx, b)
	})
	if err != nil {
		return false, err
	}
	if moved {
		e.emit("moved", documentID, cellID)
	}
	return moved, nil
}

// Duplicate copies the cell's kind and input (not its output) into a new
// cell placed right after it.
func (e *Engine) Duplicate(ctx context.Context, cellID string) (models.Cell, error) {
	var out models.Cell
	err := e.withCell(ctx, cellID, func(s *snapshot, i int) error {
		src := s.cells[i]
		c, err := e.insertLocked(ctx, s, src.Kind, i+1, src.Input)
		out = c
		return err
	})
	return out, err
}

// Delete removes the cell and closes the gap in its siblings' order keys.
func (e *Engine) Delete(ctx context.Context, cellID string) error {
	var documentID string
	err := e.withCell(ctx, cellID, func(s *snapshot, i int) error {
		documentID = s.documentID
		s.remove(i)
		b := s.batch()
		b.DeleteCells = []string{cellID}
		return e.save(ctx, b)
	})
	if err != nil {
		return err
	}
	e.emit("deleted", documentID, cellID)
	return nil
}

// UpdateInput replaces the cell's input. The output is left as is until the
// next run.
func (e *Engine) UpdateInput(ctx context.Context, cellID, input string) (models.Cell, error) {
	return e.edit(ctx, cellID, func(c *models.Cell) { c.Input = input })
}

// ChangeKind switches the cell's kind.
func (e *Engine) ChangeKind(ctx context.Context, cellID string, kind models.CellKind) (models.Cell, error) {
	return e.Edit(ctx, cellID, CellEdit{Kind: &kind})
}

// CellEdit holds the fields Edit may change. Nil fields are kept.
type CellEdit struct {
	Input *string
	Kind  *models.CellKind
}

// Edit applies every field of ed to the cell in one save.
func (e *Engine) Edit(ctx context.Context, cellID string, ed CellEdit) (models.Cell, error) {
	var kind models.CellKind
	if ed.Kind != nil {
		var err error
		if kind, err = parseKind(*ed.Kind); err != nil {
			return models.Cell{}, err
		}
	}
	return e.edit(ctx, cellID, func(c *models.Cell) {
		if ed.Kind != nil {
			c.Kind = kind
		}
		if ed.Input != nil {
			c.Input = *ed.Input
		}
	})
}

// ClearOutput empties the cell's output.
func (e *Engine) ClearOutput(ctx context.Context, cellID string) (models.Cell, error) {
	return e.edit(ctx, cellID, func(c *models.Cell) { c.Output = "" })
}

func (e *Engine) edit(ctx context.Context, cellID string, fn func(c *models.Cell)) (models.Cell, error) {
	var out models.Cell
	err := e.withCell(ctx, cellID, func(s *snapshot, i int) error {
		fn(&s.cells[i])
		s.cells[i].UpdatedAt = e.now()
		s.dirty[cellID] = true
		out = s.cells[i]
		return e.save(ctx, s.batch())
	})
	if err != nil {
		return models.Cell{}, err
	}
	e.emit("updated", out.DocumentID, cellID)
	return out, nil
}

// WriteResult stores the output of an execution together with its exchange
// record. It returns apperr.ErrNotFound when the cell (or its document) was
// deleted while the execution was in flight; nothing is written then.
func (e *Engine) WriteResult(ctx context.Context, cellID, output string, exchange *models.Exchange) (models.Cell, error) {
	var out models.Cell
	err := e.withCell(ctx, cellID, func(s *snapshot, i int) error {
		s.cells[i].Output = output
		s.cells[i].UpdatedAt = e.now()
		s.dirty[cellID] = true
		out = s.cells[i]
		b := s.batch()
		if exchange != nil {
			exchange.CellID = cellID
			exchange.DocumentID = s.documentID
			b.Exchanges = []models.Exchange{*exchange}
		}
		return e.save(ctx, b)
	})
	if err != nil {
		return models.Cell{}, err
	}
	e.emit("updated", out.DocumentID, cellID)
	return out, nil
}

// Seed adds cells with the given kinds and inputs after the existing ones,
// in one save.
func (e *Engine) Seed(ctx context.Context, documentID string, drafts []models.Cell) ([]models.Cell, error) {
	unlock := e.Guard(documentID)
	defer unlock()

	s, err := e.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	start := len(s.cells)
	for _, d := range drafts {
		kind, err := parseKind(d.Kind)
		if err != nil {
			return nil, err
		}
		c := e.newCell(documentID, kind)
		c.Input = d.Input
		c.Order = len(s.cells)
		s.cells = append(s.cells, c)
		s.dirty[c.ID] = true
	}
	if err := e.save(ctx, s.batch()); err != nil {
		return nil, err
	}
	added := append([]models.Cell(nil), s.cells[start:]...)
	for _, c := range added {
		e.emit("created", documentID, c.ID)
	}
	return added, nil
}

// Build returns fresh cells for a document that has none yet, numbered
// 0..len(drafts)-1. Callers persist them in the same batch as the document.
func (e *Engine) Build(documentID string, drafts []models.Cell) ([]models.Cell, error) {
	out := make([]models.Cell, 0, len(drafts))
	for i, d := range drafts {
		kind, err := parseKind(d.Kind)
		if err != nil {
			return nil, err
		}
		c := e.newCell(documentID, kind)
		c.Input = d.Input
		c.Order = i
		out = append(out, c)
	}
	return out, nil
}
