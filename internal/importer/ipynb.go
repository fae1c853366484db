package importer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/scribe/internal/models"
)

// nbformat is the part of a Jupyter notebook file the importer reads.
type nbformat struct {
	Cells []struct {
		CellType string          `json:"cell_type"`
		Source   json.RawMessage `json:"source"`
	} `json:"cells"`
	Metadata struct {
		Title string `json:"title"`
	} `json:"metadata"`
}

// source decodes a cell source, which nbformat allows as a string or a
// list of lines.
func source(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", err
	}
	return strings.Join(lines, ""), nil
}

func parseNotebook(data []byte) (title string, cells []models.Cell, err error) {
	var nb nbformat
	if err := json.Unmarshal(data, &nb); err != nil {
		return "", nil, fmt.Errorf("decode notebook: %w", err)
	}
	for i, c := range nb.Cells {
		src, err := source(c.Source)
		if err != nil {
			return "", nil, fmt.Errorf("decode cell %d source: %w", i, err)
		}
		kind := models.KindText
		switch c.CellType {
		case "code":
			kind = models.KindCode
		case "markdown":
			kind = models.KindMarkdown
		}
		cells = append(cells, models.Cell{Kind: kind, Input: src})
	}
	return nb.Metadata.Title, cells, nil
}
