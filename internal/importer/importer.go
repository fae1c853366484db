// Package importer turns imported files and clipboard text into document drafts.
package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
)

// ClipboardTitle is the title of text imported without a file name.
const ClipboardTitle = "Imported from Clipboard"

// Draft is a document ready to be created.
type Draft struct {
	Title    string
	Content  string
	Mode     models.Mode
	Favorite bool
	Tags     []string
	// Cells carry kind and input only; they are numbered on creation.
	Cells []models.Cell
}

// Parse builds a draft from a file name and its contents. An empty name
// means clipboard text. Files ending in .ipynb become notebook documents;
// everything else is plain text, with Markdown frontmatter and #tags read
// when present. Frontmatter may set mode: notebook.
func Parse(name string, data []byte) (Draft, error) {
	ext := strings.ToLower(filepath.Ext(name))
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if name == "" {
		stem = ""
	}

	if ext == ".ipynb" {
		title, cells, err := parseNotebook(data)
		if err != nil {
			return Draft{}, fmt.Errorf("importer: %s: %w: %v", name, apperr.ErrInvalidArgument, err)
		}
		if len(cells) == 0 {
			cells = []models.Cell{{Kind: models.KindCode}}
		}
		return Draft{
			Title: firstNonEmpty(title, stem, ClipboardTitle),
			Mode:  models.ModeNotebook,
			Cells: cells,
		}, nil
	}

	if strings.TrimSpace(string(data)) == "" {
		return Draft{}, fmt.Errorf("importer: empty content: %w", apperr.ErrInvalidArgument)
	}

	fm, body := splitFrontmatter(data)
	d := Draft{
		Content: body,
		Mode:    models.ModePlain,
		Tags:    extractTags(body, fm),
	}
	var fmTitle string
	if fm != nil {
		fmTitle = fm.Title
		d.Favorite = fm.Favorite
		mode, err := models.ParseMode(fm.Mode)
		if err != nil {
			return Draft{}, fmt.Errorf("importer: %s: %w: %v", name, apperr.ErrInvalidArgument, err)
		}
		d.Mode = mode
	}
	d.Title = firstNonEmpty(fmTitle, stem, firstHeading(body), ClipboardTitle)

	// A notebook written as Markdown starts with its body as one cell.
	if d.Mode == models.ModeNotebook {
		if strings.TrimSpace(body) == "" {
			d.Cells = []models.Cell{{Kind: models.KindCode}}
		} else {
			d.Cells = []models.Cell{{Kind: models.KindMarkdown, Input: body}}
		}
	}
	return d, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
