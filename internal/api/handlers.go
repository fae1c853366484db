package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scribe/internal/documents"
	"github.com/starford/scribe/internal/execution"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/notebook"
	"github.com/starford/scribe/internal/store"
)

const defaultRecent = 10

// Handler holds API route handlers.
type Handler struct {
	docs   *documents.Manager
	engine *notebook.Engine
	exec   *execution.Executor
	store  store.Store
}

// NewHandler creates a new Handler.
func NewHandler(svc Services) *Handler {
	return &Handler{
		docs:   svc.Documents,
		engine: svc.Engine,
		exec:   svc.Executor,
		store:  svc.Store,
	}
}

// detail loads the ordered cells of d and annotates their status.
func (h *Handler) detail(ctx context.Context, d models.Document) (DocumentDetail, error) {
	cells, err := h.engine.Cells(ctx, d.ID)
	if err != nil {
		return DocumentDetail{}, err
	}
	h.exec.Annotate(cells)
	return DocumentDetail{Document: d, Cells: cells, ETag: documents.ETag(d)}, nil
}

func (h *Handler) writeDetail(w http.ResponseWriter, r *http.Request, status int, d models.Document) {
	out, err := h.detail(r.Context(), d)
	if err != nil {
		writeError(w, "load cells", err)
		return
	}
	w.Header().Set("ETag", `"`+out.ETag+`"`)
	writeJSON(w, status, out)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		Search and sort documents
//	@Tags			documents
//	@Produce		json
//	@Param			q		query		string	false	"Case-insensitive substring of title or content"
//	@Param			sort	query		string	false	"Sort order"	Enums(modified, created, title, mode)
//	@Param			favorite	query	bool	false	"Only favorites, most recently modified first"
//	@Success		200		{object}	DocumentListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var favorite bool
	if v := q.Get("favorite"); v != "" {
		var err error
		if favorite, err = strconv.ParseBool(v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid favorite flag"))
			return
		}
	}

	var docs []models.Document
	var err error
	if favorite {
		docs, err = h.docs.Favorites(r.Context())
	} else {
		docs, err = h.docs.Search(r.Context(), q.Get("q"), q.Get("sort"))
	}
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// RecentDocuments handles GET /api/documents/recent.
//
//	@Summary		Most recently modified documents
//	@Tags			documents
//	@Produce		json
//	@Param			n	query		int	false	"How many (default 10)"
//	@Success		200	{object}	DocumentListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/recent [get]
func (h *Handler) RecentDocuments(w http.ResponseWriter, r *http.Request) {
	n := defaultRecent
	if v := r.URL.Query().Get("n"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("n must be a non-negative integer"))
			return
		}
	}
	docs, err := h.docs.Recent(r.Context(), n)
	if err != nil {
		writeError(w, "recent documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	false	"Title and mode"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.docs.Create(r.Context(), documents.CreateParams{Title: req.Title, Mode: req.Mode})
	if err != nil {
		writeError(w, "create document", err)
		return
	}
	h.writeDetail(w, r, http.StatusCreated, d)
}

// Stats handles GET /api/documents/stats.
//
//	@Summary		Document counts
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/documents/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.docs.Stats(r.Context())
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetDocument handles GET /api/documents/{id}.
//
//	@Summary		Get a document with its ordered cells
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := h.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	h.writeDetail(w, r, http.StatusOK, d)
}

// UpdateDocument handles PATCH /api/documents/{id}.
//
//	@Summary		Rename a document or replace its content
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string					true	"Document ID"
//	@Param			If-Match	header		string					false	"ETag for optimistic concurrency"
//	@Param			body		body		UpdateDocumentRequest	true	"Fields to change"
//	@Success		200			{object}	DocumentDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [patch]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == nil && req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("title or content is required"))
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	d, err := h.docs.Update(r.Context(), chi.URLParam(r, "id"), documents.UpdateParams{
		Title:   req.Title,
		Content: req.Content,
		IfMatch: ifMatch,
	})
	if err != nil {
		writeError(w, "update document", err)
		return
	}
	h.writeDetail(w, r, http.StatusOK, d)
}

// DeleteDocument handles DELETE /api/documents/{id}.
//
//	@Summary		Delete a document with its cells
//	@Tags			documents
//	@Param			id	path	string	true	"Document ID"
//	@Success		204	"Document deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavorite handles POST /api/documents/{id}/favorite.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	d, err := h.docs.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "toggle favorite", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// SwitchMode handles PUT /api/documents/{id}/mode.
func (h *Handler) SwitchMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Mode == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("mode is required"))
		return
	}
	d, err := h.docs.SwitchMode(r.Context(), chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		writeError(w, "switch mode", err)
		return
	}
	h.writeDetail(w, r, http.StatusOK, d)
}

// SelectDocument handles POST /api/documents/{id}/select.
func (h *Handler) SelectDocument(w http.ResponseWriter, r *http.Request) {
	d, err := h.docs.Select(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "select document", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Selection handles GET /api/selection.
//
//	@Summary		Selected document and cell
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	SelectionResponse
//	@Security		BearerAuth
//	@Router			/selection [get]
func (h *Handler) Selection(w http.ResponseWriter, r *http.Request) {
	var out SelectionResponse
	d, ok, err := h.docs.Selected(r.Context())
	if err != nil {
		writeError(w, "selection", err)
		return
	}
	if ok {
		out.Document = &d
	}
	c, ok, err := h.docs.SelectedCell(r.Context())
	if err != nil {
		writeError(w, "selection", err)
		return
	}
	if ok {
		c = h.annotate(c)
		out.Cell = &c
	}
	writeJSON(w, http.StatusOK, out)
}
