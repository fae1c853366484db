// Package models defines the domain types for Scribe.
package models

import (
	"fmt"
	"time"
)

// Mode controls how the editor presents a document.
type Mode string

const (
	ModePlain    Mode = "plain"
	ModeNotebook Mode = "notebook"
)

// ParseMode validates a mode string. The empty string maps to ModePlain.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModePlain:
		return ModePlain, nil
	case ModeNotebook:
		return ModeNotebook, nil
	}
	return "", fmt.Errorf("unknown document mode %q", s)
}

// Document is the top-level user-authored unit.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mode      Mode      `json:"mode"`
	Favorite  bool      `json:"favorite"`
	Tags      []Tag     `json:"tags"`
	CellIDs   []string  `json:"cell_ids"` // ordered by order key; filled on fetch
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tag labels documents. Names are unique.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// TagLink associates a tag with a document.
type TagLink struct {
	DocumentID string
	TagID      string
}
