package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.docs.Tags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// CreateTag handles POST /api/tags.
//
//	@Summary		Create a tag
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTagRequest	true	"Tag"
//	@Success		201		{object}	models.Tag
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags [post]
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.docs.CreateTag(r.Context(), req.Name, req.Color)
	if err != nil {
		writeError(w, "create tag", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GetTag handles GET /api/tags/{id}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Tag(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get tag", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTag handles DELETE /api/tags/{id}.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.DeleteTag(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AttachTag handles PUT /api/documents/{id}/tags/{tagID}.
func (h *Handler) AttachTag(w http.ResponseWriter, r *http.Request) {
	d, err := h.docs.AttachTag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID"))
	if err != nil {
		writeError(w, "attach tag", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DetachTag handles DELETE /api/documents/{id}/tags/{tagID}.
func (h *Handler) DetachTag(w http.ResponseWriter, r *http.Request) {
	d, err := h.docs.DetachTag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID"))
	if err != nil {
		writeError(w, "detach tag", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
