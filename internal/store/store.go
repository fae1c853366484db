package store

import (
	"context"

	"github.com/starford/scribe/internal/models"
)

// Store is the Entity Store contract consumed by the notebook engine, the
// execution state machine and the document lifecycle manager. Consumers
// should depend on this interface rather than the concrete *DB type.
//
// Reads return apperr.ErrNotFound for missing entities. Save applies every
// mutation of a Batch inside a single transaction: either all of it becomes
// durable or none of it does.
type Store interface {
	Document(ctx context.Context, id string) (models.Document, error)
	Documents(ctx context.Context) ([]models.Document, error)
	Cell(ctx context.Context, id string) (models.Cell, error)
	Cells(ctx context.Context, documentID string) ([]models.Cell, error)
	Tag(ctx context.Context, id string) (models.Tag, error)
	Tags(ctx context.Context) ([]models.Tag, error)
	Exchanges(ctx context.Context, cellID string) ([]models.Exchange, error)
	Save(ctx context.Context, b Batch) error
}

// Batch collects pending mutations flushed by one Save call. Deletes are
// applied before upserts.
type Batch struct {
	Documents []models.Document
	Cells     []models.Cell
	Tags      []models.Tag
	Links     []models.TagLink
	Exchanges []models.Exchange

	DeleteDocuments []string
	DeleteCells     []string
	DeleteTags      []string
	Unlinks         []models.TagLink
}

// Empty reports whether the batch carries no mutations.
func (b Batch) Empty() bool {
	return len(b.Documents) == 0 && len(b.Cells) == 0 && len(b.Tags) == 0 &&
		len(b.Links) == 0 && len(b.Exchanges) == 0 && len(b.DeleteDocuments) == 0 &&
		len(b.DeleteCells) == 0 && len(b.DeleteTags) == 0 && len(b.Unlinks) == 0
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
