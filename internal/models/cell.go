package models

import (
	"fmt"
	"time"
)

// CellKind is the content type of a cell.
type CellKind string

const (
	KindCode     CellKind = "code"
	KindMarkdown CellKind = "markdown"
	KindText     CellKind = "text"
)

// ParseCellKind validates a kind string. The empty string maps to KindCode.
func ParseCellKind(s string) (CellKind, error) {
	switch CellKind(s) {
	case "", KindCode:
		return KindCode, nil
	case KindMarkdown:
		return KindMarkdown, nil
	case KindText:
		return KindText, nil
	}
	return "", fmt.Errorf("unknown cell kind %q", s)
}

// Status is the execution state of a cell. It is derived, never persisted.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Cell is one ordered, independently executable unit of a notebook document.
type Cell struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Kind       CellKind  `json:"kind"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	Order      int       `json:"order"`
	Status     Status    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
