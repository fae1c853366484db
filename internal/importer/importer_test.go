package importer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
)

func TestParse_MarkdownWithFrontmatter(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - scribe\nfavorite: true\n---\n# Heading\nBody with #ideas.\n")
	d, err := Parse("notes/hello-file.md", input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Title != "Hello" {
		t.Errorf("title = %q, want frontmatter title", d.Title)
	}
	if d.Mode != models.ModePlain || !d.Favorite {
		t.Errorf("mode = %s, favorite = %v", d.Mode, d.Favorite)
	}
	if d.Content != "# Heading\nBody with #ideas.\n" {
		t.Errorf("content = %q", d.Content)
	}
	if diff := cmp.Diff([]string{"go", "scribe", "ideas"}, d.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestParse_FrontmatterMode(t *testing.T) {
	d, err := Parse("lab.md", []byte("---\nmode: notebook\n---\n## Step one\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Mode != models.ModeNotebook {
		t.Fatalf("mode = %s, want notebook", d.Mode)
	}
	want := []models.Cell{{Kind: models.KindMarkdown, Input: "## Step one\n"}}
	if diff := cmp.Diff(want, d.Cells); diff != "" {
		t.Errorf("cells (-want +got):\n%s", diff)
	}

	empty, err := Parse("blank.md", []byte("---\ntitle: Blank\nmode: notebook\n---\n"))
	if err != nil {
		t.Fatalf("Parse empty body: %v", err)
	}
	if len(empty.Cells) != 1 || empty.Cells[0].Kind != models.KindCode {
		t.Errorf("empty notebook cells = %+v", empty.Cells)
	}

	if _, err := Parse("x.md", []byte("---\nmode: slides\n---\nbody")); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("unknown mode err = %v, want ErrInvalidArgument", err)
	}
}

func TestParse_TitleFromFileStem(t *testing.T) {
	d, err := Parse("/tmp/Meeting Notes.txt", []byte("# Other\nagenda"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Meeting Notes" {
		t.Errorf("title = %q", d.Title)
	}
}

func TestParse_Clipboard(t *testing.T) {
	d, err := Parse("", []byte("just some text"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != ClipboardTitle || d.Content != "just some text" || d.Mode != models.ModePlain {
		t.Errorf("draft = %+v", d)
	}

	d, _ = Parse("", []byte("# Pasted heading\nmore"))
	if d.Title != "Pasted heading" {
		t.Errorf("title = %q, want heading", d.Title)
	}
}

func TestParse_EmptyContent(t *testing.T) {
	if _, err := Parse("", []byte("  \n")); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestParse_InvalidYAMLFallsBackToBody(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	d, err := Parse("x.md", []byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if d.Content != input || d.Title != "x" {
		t.Errorf("draft = %+v", d)
	}
}

func TestParse_Notebook(t *testing.T) {
	nb := `{
		"metadata": {},
		"nbformat": 4,
		"cells": [
			{"cell_type": "markdown", "source": ["# Intro\n", "text"]},
			{"cell_type": "code", "source": "x = 1", "outputs": []},
			{"cell_type": "raw", "source": []}
		]
	}`
	d, err := Parse("analysis.IPYNB", []byte(nb))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Mode != models.ModeNotebook || d.Title != "analysis" {
		t.Errorf("mode = %s, title = %q", d.Mode, d.Title)
	}
	want := []models.Cell{
		{Kind: models.KindMarkdown, Input: "# Intro\ntext"},
		{Kind: models.KindCode, Input: "x = 1"},
		{Kind: models.KindText, Input: ""},
	}
	if diff := cmp.Diff(want, d.Cells); diff != "" {
		t.Errorf("cells (-want +got):\n%s", diff)
	}
}

func TestParse_EmptyNotebookGetsDefaultCell(t *testing.T) {
	d, err := Parse("empty.ipynb", []byte(`{"cells": []}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Cells) != 1 || d.Cells[0].Kind != models.KindCode {
		t.Errorf("cells = %+v", d.Cells)
	}
}

func TestParse_BadNotebook(t *testing.T) {
	if _, err := Parse("broken.ipynb", []byte(`{"cells": [`)); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}
