// Package notebook implements the cell ordering engine: every structural edit
// of a document's cell list is computed in memory from one snapshot and
// flushed with a single store save.
package notebook

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/store"
)

// Notifier receives notifications after a successful save. kind is one of
// "created", "updated", "deleted", "moved".
type Notifier interface {
	CellChanged(kind, documentID, cellID string)
}

// Engine owns the order keys of every document's cells.
type Engine struct {
	store  store.Store
	logger *slog.Logger
	notify Notifier
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier registers a change notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notify = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over s.
func New(s store.Store, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:  s,
		logger: logger.With(slog.String("component", "notebook")),
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Guard locks the document's cell list and returns the unlock function.
// Order-dependent mutations of one document never interleave.
func (e *Engine) Guard(documentID string) func() {
	e.mu.Lock()
	l, ok := e.locks[documentID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[documentID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Forget drops the lock entry of a deleted document.
func (e *Engine) Forget(documentID string) {
	e.mu.Lock()
	delete(e.locks, documentID)
	e.mu.Unlock()
}

// Cells returns the document's cells in order.
func (e *Engine) Cells(ctx context.Context, documentID string) ([]models.Cell, error) {
	cells, err := e.store.Cells(ctx, documentID)
	if err != nil {
		return nil, err
	}
	compact(cells)
	return cells, nil
}

// snapshot is the state one operation works on: the cells as fetched once
// at the start, healed to a dense 0..N-1 sequence.
type snapshot struct {
	documentID string
	cells      []models.Cell
	dirty      map[string]bool
}

// load fetches the document's cells exactly once and re-compacts them.
// Cells whose key changed while healing are marked dirty so that the same
// save persists the repair.
func (e *Engine) load(ctx context.Context, documentID string) (*snapshot, error) {
	if documentID == "" {
		return nil, fmt.Errorf("notebook: cell has no owning document: %w", apperr.ErrInvalidArgument)
	}
	if _, err := e.store.Document(ctx, documentID); err != nil {
		return nil, err
	}
	cells, err := e.store.Cells(ctx, documentID)
	if err != nil {
		return nil, err
	}
	s := &snapshot{documentID: documentID, cells: cells, dirty: make(map[string]bool)}
	for _, id := range compact(s.cells) {
		s.dirty[id] = true
	}
	if len(s.dirty) > 0 {
		e.logger.Warn("healed inconsistent order keys",
			slog.String("document_id", documentID),
			slog.Int("repaired", len(s.dirty)))
	}
	return s, nil
}

// compact sorts cells by (order, created_at, id) and renumbers them 0..N-1.
// It returns the ids whose order key changed.
func compact(cells []models.Cell) []string {
	slices.SortStableFunc(cells, func(a, b models.Cell) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	var changed []string
	for i := range cells {
		if cells[i].Order != i {
			cells[i].Order = i
			changed = append(changed, cells[i].ID)
		}
	}
	return changed
}

func (s *snapshot) index(cellID string) int {
	return slices.IndexFunc(s.cells, func(c models.Cell) bool { return c.ID == cellID })
}

// insert places c at position i and shifts every later cell up by one.
func (s *snapshot) insert(i int, c models.Cell) {
	s.cells = slices.Insert(s.cells, i, c)
	s.renumber(i)
}

// remove drops the cell at position i and shifts every later cell down by one.
func (s *snapshot) remove(i int) {
	s.cells = slices.Delete(s.cells, i, i+1)
	s.renumber(i)
}

func (s *snapshot) renumber(from int) {
	for j := from; j < len(s.cells); j++ {
		if s.cells[j].Order != j {
			s.cells[j].Order = j
			s.dirty[s.cells[j].ID] = true
		}
	}
}

func (s *snapshot) swap(i, j int) {
	s.cells[i], s.cells[j] = s.cells[j], s.cells[i]
	s.cells[i].Order, s.cells[j].Order = i, j
	s.dirty[s.cells[i].ID] = true
	s.dirty[s.cells[j].ID] = true
}

// batch returns every dirty cell of the snapshot as one store batch.
func (s *snapshot) batch() store.Batch {
	var b store.Batch
	for _, c := range s.cells {
		if s.dirty[c.ID] {
			b.Cells = append(b.Cells, c)
		}
	}
	return b
}

// ownerOf resolves the document of a cell without locking.
func (e *Engine) ownerOf(ctx context.Context, cellID string) (string, error) {
	c, err := e.store.Cell(ctx, cellID)
	if err != nil {
		return "", err
	}
	if c.DocumentID == "" {
		return "", fmt.Errorf("notebook: cell %s has no owning document: %w", cellID, apperr.ErrInvalidArgument)
	}
	return c.DocumentID, nil
}

// withCell locks the cell's document, loads a snapshot and locates the cell.
// The cell is looked up again after locking since it may have been deleted
// between resolving its owner and acquiring the lock.
func (e *Engine) withCell(ctx context.Context, cellID string, fn func(s *snapshot, i int) error) error {
	documentID, err := e.ownerOf(ctx, cellID)
	if err != nil {
		return err
	}
	unlock := e.Guard(documentID)
	defer unlock()

	s, err := e.load(ctx, documentID)
	if err != nil {
		return err
	}
	i := s.index(cellID)
	if i < 0 {
		return fmt.Errorf("notebook: cell %s: %w", cellID, apperr.ErrNotFound)
	}
	return fn(s, i)
}

func (e *Engine) save(ctx context.Context, b store.Batch) error {
	if err := e.store.Save(ctx, b); err != nil {
		return fmt.Errorf("notebook: save: %w", err)
	}
	return nil
}

func (e *Engine) emit(kind, documentID, cellID string) {
	if e.notify != nil {
		e.notify.CellChanged(kind, documentID, cellID)
	}
}

func (e *Engine) newCell(documentID string, kind models.CellKind) models.Cell {
	now := e.now()
	return models.Cell{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Kind:       kind,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
