// Package documents is the document lifecycle manager: creation, import,
// deletion, editing, search, selection and tags.
package documents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/checksum"
	"github.com/starford/scribe/internal/importer"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/notebook"
	"github.com/starford/scribe/internal/store"
)

// DefaultTitle is used when a document is created without a title.
const DefaultTitle = "Untitled"

// Notifier is told about document changes after they are saved.
type Notifier interface {
	DocumentChanged(kind, documentID string)
}

// Forgetter drops per-cell execution state of deleted cells.
type Forgetter interface {
	Forget(cellIDs ...string)
}

// Manager owns document lifecycle and the selection pointers.
type Manager struct {
	store        store.Store
	engine       *notebook.Engine
	logger       *slog.Logger
	notify       Notifier
	forget       Forgetter
	defaultTitle string
	now          func() time.Time

	mu           sync.Mutex
	sort         Sort
	selectedDoc  string
	selectedCell string
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier registers a change notifier.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notify = n }
}

// WithForgetter registers the execution registry to clean up on delete.
func WithForgetter(f Forgetter) Option {
	return func(m *Manager) { m.forget = f }
}

// WithDefaultTitle overrides DefaultTitle.
func WithDefaultTitle(title string) Option {
	return func(m *Manager) {
		if strings.TrimSpace(title) != "" {
			m.defaultTitle = title
		}
	}
}

// WithDefaultSort sets the initial list order.
func WithDefaultSort(s Sort) Option {
	return func(m *Manager) { m.sort = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a manager. engine provides the per-document lock and builds
// default cells.
func New(s store.Store, engine *notebook.Engine, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:        s,
		engine:       engine,
		logger:       logger.With(slog.String("component", "documents")),
		defaultTitle: DefaultTitle,
		sort:         SortModified,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ETag identifies the editable state of a document for If-Match checks.
func ETag(d models.Document) string {
	return checksum.Sum([]byte(d.Title + "\x00" + string(d.Mode) + "\x00" + d.Content))
}

// CreateParams are the optional fields of Create.
type CreateParams struct {
	Title string
	Mode  string
}

// Create adds a document. Notebook documents start with one empty code
// cell, saved together with the document. The new document is selected.
func (m *Manager) Create(ctx context.Context, p CreateParams) (models.Document, error) {
	mode, err := models.ParseMode(p.Mode)
	if err != nil {
		return models.Document{}, fmt.Errorf("documents: %w: %v", apperr.ErrInvalidArgument, err)
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = m.defaultTitle
	}
	d := m.newDocument(title, mode)

	var drafts []models.Cell
	if mode == models.ModeNotebook {
		drafts = []models.Cell{{Kind: models.KindCode}}
	}
	return m.insert(ctx, d, drafts, nil, "created")
}

// Import creates a document from a file name and its contents. An empty
// name means clipboard text. Tags named in frontmatter are created when
// missing. The new document is selected.
func (m *Manager) Import(ctx context.Context, name string, data []byte) (models.Document, error) {
	draft, err := importer.Parse(name, data)
	if err != nil {
		return models.Document{}, err
	}
	d := m.newDocument(draft.Title, draft.Mode)
	d.Content = draft.Content
	d.Favorite = draft.Favorite

	tags, err := m.resolveTags(ctx, draft.Tags)
	if err != nil {
		return models.Document{}, err
	}
	out, err := m.insert(ctx, d, draft.Cells, tags, "imported")
	if err != nil {
		return models.Document{}, err
	}
	m.logger.Info("document imported",
		slog.String("document_id", out.ID),
		slog.String("name", name),
		slog.String("mode", string(out.Mode)),
		slog.Int("cells", len(out.CellIDs)))
	return out, nil
}

func (m *Manager) newDocument(title string, mode models.Mode) models.Document {
	now := m.now()
	return models.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// insert saves a new document with its cells and tag links in one batch.
func (m *Manager) insert(ctx context.Context, d models.Document, drafts []models.Cell, tags []models.Tag, event string) (models.Document, error) {
	cells, err := m.engine.Build(d.ID, drafts)
	if err != nil {
		return models.Document{}, err
	}
	b := store.Batch{Documents: []models.Document{d}, Cells: cells}
	for _, t := range tags {
		b.Tags = append(b.Tags, t)
		b.Links = append(b.Links, models.TagLink{DocumentID: d.ID, TagID: t.ID})
	}
	if err := m.store.Save(ctx, b); err != nil {
		return models.Document{}, fmt.Errorf("documents: create: %w", err)
	}
	out, err := m.store.Document(ctx, d.ID)
	if err != nil {
		return models.Document{}, err
	}

	m.mu.Lock()
	m.selectedDoc = out.ID
	m.selectedCell = ""
	m.mu.Unlock()

	m.emit(event, out.ID)
	return out, nil
}

// Get returns one document.
func (m *Manager) Get(ctx context.Context, id string) (models.Document, error) {
	return m.store.Document(ctx, id)
}

// Cell returns one cell.
func (m *Manager) Cell(ctx context.Context, id string) (models.Cell, error) {
	return m.store.Cell(ctx, id)
}

// Delete removes a document and, by cascade, its cells and tag links. When
// the document was selected, the selection moves to the first document of
// the list in the current sort order, or to none.
func (m *Manager) Delete(ctx context.Context, id string) error {
	unlock := m.engine.Guard(id)
	d, err := m.store.Document(ctx, id)
	if err != nil {
		unlock()
		return err
	}
	err = m.store.Save(ctx, store.Batch{DeleteDocuments: []string{id}})
	unlock()
	if err != nil {
		return fmt.Errorf("documents: delete: %w", err)
	}
	m.engine.Forget(id)
	if m.forget != nil {
		m.forget.Forget(d.CellIDs...)
	}

	m.mu.Lock()
	wasSelected := m.selectedDoc == id
	if wasSelected {
		m.selectedDoc = ""
		m.selectedCell = ""
	}
	sort := m.sort
	m.mu.Unlock()

	if wasSelected {
		if err := m.fallback(ctx, sort); err != nil {
			m.logger.Warn("selection fallback failed", slog.String("error", err.Error()))
		}
	}
	m.logger.Info("document deleted",
		slog.String("document_id", id),
		slog.Int("cells", len(d.CellIDs)))
	m.emit("deleted", id)
	return nil
}

// fallback selects the first document of the full list under sort.
func (m *Manager) fallback(ctx context.Context, sort Sort) error {
	docs, err := m.store.Documents(ctx)
	if err != nil {
		return err
	}
	sortDocuments(docs, sort)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selectedDoc != "" {
		// Something else was selected meanwhile.
		return nil
	}
	if len(docs) > 0 {
		m.selectedDoc = docs[0].ID
	}
	return nil
}

// UpdateParams are the fields Update may change. Nil fields are kept.
// IfMatch, when set, must equal the current ETag.
type UpdateParams struct {
	Title   *string
	Content *string
	IfMatch string
}

// Update renames and/or rewrites the content of a document. It always
// touches UpdatedAt.
func (m *Manager) Update(ctx context.Context, id string, p UpdateParams) (models.Document, error) {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return models.Document{}, fmt.Errorf("documents: title must not be empty: %w", apperr.ErrInvalidArgument)
	}
	return m.mutate(ctx, id, "updated", func(d *models.Document, _ *store.Batch) error {
		if p.IfMatch != "" && p.IfMatch != ETag(*d) {
			return fmt.Errorf("documents: %s was modified: %w", id, apperr.ErrConflict)
		}
		if p.Title != nil {
			d.Title = strings.TrimSpace(*p.Title)
		}
		if p.Content != nil {
			d.Content = *p.Content
		}
		return nil
	})
}

// Rename sets the title of a document.
func (m *Manager) Rename(ctx context.Context, id, title string) (models.Document, error) {
	return m.Update(ctx, id, UpdateParams{Title: &title})
}

// UpdateContent replaces the body of a document.
func (m *Manager) UpdateContent(ctx context.Context, id, content string) (models.Document, error) {
	return m.Update(ctx, id, UpdateParams{Content: &content})
}

// ToggleFavorite flips the favorite flag.
func (m *Manager) ToggleFavorite(ctx context.Context, id string) (models.Document, error) {
	return m.mutate(ctx, id, "updated", func(d *models.Document, _ *store.Batch) error {
		d.Favorite = !d.Favorite
		return nil
	})
}

// SwitchMode changes the document mode. Switching to notebook adds an empty
// code cell when the document has none; switching to plain keeps the cells.
func (m *Manager) SwitchMode(ctx context.Context, id, mode string) (models.Document, error) {
	md, err := models.ParseMode(mode)
	if err != nil {
		return models.Document{}, fmt.Errorf("documents: %w: %v", apperr.ErrInvalidArgument, err)
	}
	return m.mutate(ctx, id, "updated", func(d *models.Document, b *store.Batch) error {
		d.Mode = md
		if md != models.ModeNotebook || len(d.CellIDs) > 0 {
			return nil
		}
		cells, err := m.engine.Build(d.ID, []models.Cell{{Kind: models.KindCode}})
		if err != nil {
			return err
		}
		b.Cells = cells
		return nil
	})
}

// mutate applies fn to the document under its lock and saves the result
// with a fresh UpdatedAt.
func (m *Manager) mutate(ctx context.Context, id, event string, fn func(d *models.Document, b *store.Batch) error) (models.Document, error) {
	unlock := m.engine.Guard(id)
	d, err := m.store.Document(ctx, id)
	if err != nil {
		unlock()
		return models.Document{}, err
	}
	var b store.Batch
	if err := fn(&d, &b); err != nil {
		unlock()
		return models.Document{}, err
	}
	d.UpdatedAt = m.now()
	b.Documents = []models.Document{d}
	err = m.store.Save(ctx, b)
	unlock()
	if err != nil {
		return models.Document{}, fmt.Errorf("documents: save: %w", err)
	}

	out, err := m.store.Document(ctx, id)
	if err != nil {
		return models.Document{}, err
	}
	m.emit(event, id)
	return out, nil
}

func (m *Manager) emit(kind, id string) {
	if m.notify != nil {
		m.notify.DocumentChanged(kind, id)
	}
}
