package api

import (
	"github.com/starford/scribe/internal/documents"
	"github.com/starford/scribe/internal/models"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Title string `json:"title" example:"Meeting notes"`
	Mode  string `json:"mode" example:"notebook" enums:"plain,notebook"`
}

// UpdateDocumentRequest is the request body for PATCH /documents/{id}.
// Absent fields are left unchanged.
type UpdateDocumentRequest struct {
	Title   *string `json:"title,omitempty" example:"Renamed"`
	Content *string `json:"content,omitempty" example:"# Body"`
}

// ImportRequest is the JSON form of an import. An empty name means the
// content came from the clipboard.
type ImportRequest struct {
	Name    string `json:"name" example:"analysis.ipynb"`
	Content string `json:"content" validate:"required"`
}

// ModeRequest switches a document's mode.
type ModeRequest struct {
	Mode string `json:"mode" example:"notebook" validate:"required"`
}

// DocumentListResponse wraps a search result.
type DocumentListResponse struct {
	Documents []models.Document `json:"documents" validate:"required"`
	Total     int               `json:"total" example:"42" validate:"required"`
}

// DocumentDetail is a document with its ordered cells, each annotated
// with its execution status.
type DocumentDetail struct {
	models.Document
	Cells []models.Cell `json:"cells" validate:"required"`
	ETag  string        `json:"etag"`
}

// StatsResponse is returned by GET /documents/stats.
type StatsResponse = documents.Stats

// SelectionResponse reports the selected document and cell, if any.
type SelectionResponse struct {
	Document *models.Document `json:"document"`
	Cell     *models.Cell     `json:"cell"`
}

// CreateCellRequest appends a cell, or inserts it at Index when set.
type CreateCellRequest struct {
	Kind  string `json:"kind" example:"code" enums:"code,markdown,text"`
	Index *int   `json:"index,omitempty" example:"0"`
}

// UpdateCellRequest edits a cell's input and/or kind.
type UpdateCellRequest struct {
	Input *string `json:"input,omitempty" example:"print(1)"`
	Kind  *string `json:"kind,omitempty" example:"markdown"`
}

// InsertCellRequest is the optional body of insert-above/insert-below.
type InsertCellRequest struct {
	Kind string `json:"kind" example:"code"`
}

// MoveResponse reports whether a move changed the order.
type MoveResponse struct {
	Moved bool          `json:"moved"`
	Cells []models.Cell `json:"cells" validate:"required"`
}

// CellDetail is a cell with its recorded AI exchanges.
type CellDetail struct {
	models.Cell
	Exchanges []models.Exchange `json:"exchanges"`
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name  string `json:"name" example:"research" validate:"required"`
	Color string `json:"color" example:"#3366ff"`
}
