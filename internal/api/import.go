package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const maxUploadBytes = 50 << 20 // 50 MB

// importName validates that an uploaded filename is a plain name (no path
// separators, no traversal) and returns it.
func importName(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

// ImportDocument handles POST /api/documents/import.
//
// Accepts either multipart/form-data with a "file" field, or a JSON
// ImportRequest. JSON without a name is treated as pasted clipboard text.
//
//	@Summary		Import a Markdown, text or .ipynb file
//	@Tags			documents
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			body	body		ImportRequest	false	"Name and content"
//	@Param			file	formData	file			false	"File to import"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/import [post]
func (h *Handler) ImportDocument(w http.ResponseWriter, r *http.Request) {
	var name string
	var data []byte

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
			return
		}
		defer file.Close()

		if data, err = io.ReadAll(file); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
			return
		}
		name = header.Filename
	} else {
		var req ImportRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		name, data = req.Name, []byte(req.Content)
	}

	name, err := importName(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	d, err := h.docs.Import(r.Context(), name, data)
	if err != nil {
		writeError(w, "import document", err)
		return
	}
	h.writeDetail(w, r, http.StatusCreated, d)
}
