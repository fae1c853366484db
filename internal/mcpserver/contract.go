package mcpserver

const contractURI = "scribe://document-format"

// DocumentFormatContract describes how Scribe documents and notebook cells
// are structured, for LLM consumers that create or import them.
const DocumentFormatContract = `# Scribe Document Format Contract

## Documents

A document has a title, a mode and either a plain body or an ordered list
of cells.

- **` + "`" + `plain` + "`" + `**: the body lives in ` + "`" + `content` + "`" + `. Existing cells are kept but not shown.
- **` + "`" + `notebook` + "`" + `**: the body is the list of cells. A notebook always has at
  least one cell; a new notebook starts with one empty code cell.

## Cells

| kind | input | run |
|---|---|---|
| ` + "`" + `code` + "`" + ` | source code | explained, unless the input contains ` + "`" + `?` + "`" + ` or "help" |
| ` + "`" + `markdown` + "`" + ` | Markdown | general answer |
| ` + "`" + `text` + "`" + ` | free text | general answer |

Cells are numbered 0..N-1 without gaps. Running a cell with empty input does
nothing; running a cell that is already running does nothing. Failed runs
write ` + "`" + `execution error: <reason>` + "`" + ` into the output.

## Imports

- ` + "`" + `.md` + "`" + `, ` + "`" + `.markdown` + "`" + `, ` + "`" + `.txt` + "`" + ` become plain documents unless frontmatter says otherwise. YAML frontmatter
  may set ` + "`" + `title` + "`" + `, ` + "`" + `tags` + "`" + ` (list), ` + "`" + `favorite` + "`" + ` (bool) and
  ` + "`" + `mode: notebook` + "`" + `, which turns the body into one markdown cell.
- ` + "`" + `.ipynb` + "`" + ` (nbformat 4 JSON) becomes a notebook. Code cells stay code,
  markdown cells stay markdown, raw cells become text.
- Title precedence: frontmatter title, file name without extension, first
  ` + "`" + `# heading` + "`" + `, then "Imported from Clipboard".

## Example

` + "```" + `markdown
---
title: Sorting experiments
tags:
  - algorithms
favorite: true
---

# Sorting experiments

Notes on quicksort pivots.
` + "```" + `
`
