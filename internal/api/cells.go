package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scribe/internal/execution"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/notebook"
)

func (h *Handler) annotate(c models.Cell) models.Cell {
	one := []models.Cell{c}
	h.exec.Annotate(one)
	return one[0]
}

// ListCells handles GET /api/documents/{id}/cells.
//
//	@Summary		Ordered cells of a document
//	@Tags			cells
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{array}		models.Cell
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/cells [get]
func (h *Handler) ListCells(w http.ResponseWriter, r *http.Request) {
	cells, err := h.engine.Cells(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "list cells", err)
		return
	}
	h.exec.Annotate(cells)
	writeJSON(w, http.StatusOK, cells)
}

// CreateCell handles POST /api/documents/{id}/cells.
//
//	@Summary		Append a cell, or insert it at an index
//	@Tags			cells
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Document ID"
//	@Param			body	body		CreateCellRequest	false	"Kind and optional index"
//	@Success		201		{object}	models.Cell
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/cells [post]
func (h *Handler) CreateCell(w http.ResponseWriter, r *http.Request) {
	var req CreateCellRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	docID := chi.URLParam(r, "id")
	kind := models.CellKind(req.Kind)

	var c models.Cell
	var err error
	if req.Index != nil {
		c, err = h.engine.InsertAt(r.Context(), docID, kind, *req.Index)
	} else {
		c, err = h.engine.Append(r.Context(), docID, kind)
	}
	if err != nil {
		writeError(w, "create cell", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.annotate(c))
}

// GetCell handles GET /api/cells/{id}.
//
//	@Summary		Get a cell with its AI exchanges
//	@Tags			cells
//	@Produce		json
//	@Param			id	path		string	true	"Cell ID"
//	@Success		200	{object}	CellDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cells/{id} [get]
func (h *Handler) GetCell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.store.Cell(r.Context(), id)
	if err != nil {
		writeError(w, "get cell", err)
		return
	}
	ex, err := h.store.Exchanges(r.Context(), id)
	if err != nil {
		writeError(w, "get cell", err)
		return
	}
	writeJSON(w, http.StatusOK, CellDetail{Cell: h.annotate(c), Exchanges: ex})
}

// UpdateCell handles PATCH /api/cells/{id}.
//
//	@Summary		Edit a cell's input and/or kind
//	@Tags			cells
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Cell ID"
//	@Param			body	body		UpdateCellRequest	true	"Fields to change"
//	@Success		200		{object}	models.Cell
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cells/{id} [patch]
func (h *Handler) UpdateCell(w http.ResponseWriter, r *http.Request) {
	var req UpdateCellRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Input == nil && req.Kind == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("input or kind is required"))
		return
	}
	ed := notebook.CellEdit{Input: req.Input}
	if req.Kind != nil {
		kind := models.CellKind(*req.Kind)
		ed.Kind = &kind
	}
	c, err := h.engine.Edit(r.Context(), chi.URLParam(r, "id"), ed)
	if err != nil {
		writeError(w, "update cell", err)
		return
	}
	writeJSON(w, http.StatusOK, h.annotate(c))
}

// DeleteCell handles DELETE /api/cells/{id}.
//
//	@Summary		Delete a cell
//	@Tags			cells
//	@Param			id	path	string	true	"Cell ID"
//	@Success		204	"Cell deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cells/{id} [delete]
func (h *Handler) DeleteCell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Delete(r.Context(), id); err != nil {
		writeError(w, "delete cell", err)
		return
	}
	h.exec.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, up bool) {
	id := chi.URLParam(r, "id")
	c, err := h.store.Cell(r.Context(), id)
	if err != nil {
		writeError(w, "move cell", err)
		return
	}
	var moved bool
	if up {
		moved, err = h.engine.MoveUp(r.Context(), id)
	} else {
		moved, err = h.engine.MoveDown(r.Context(), id)
	}
	if err != nil {
		writeError(w, "move cell", err)
		return
	}
	cells, err := h.engine.Cells(r.Context(), c.DocumentID)
	if err != nil {
		writeError(w, "move cell", err)
		return
	}
	h.exec.Annotate(cells)
	writeJSON(w, http.StatusOK, MoveResponse{Moved: moved, Cells: cells})
}

// MoveUp handles POST /api/cells/{id}/move-up. Moving the first cell is a
// no-op reported with moved=false.
func (h *Handler) MoveUp(w http.ResponseWriter, r *http.Request) { h.move(w, r, true) }

// MoveDown handles POST /api/cells/{id}/move-down.
func (h *Handler) MoveDown(w http.ResponseWriter, r *http.Request) { h.move(w, r, false) }

// Duplicate handles POST /api/cells/{id}/duplicate.
func (h *Handler) Duplicate(w http.ResponseWriter, r *http.Request) {
	c, err := h.engine.Duplicate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "duplicate cell", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.annotate(c))
}

func (h *Handler) insertRelative(w http.ResponseWriter, r *http.Request, above bool) {
	var req InsertCellRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	kind := models.CellKind(req.Kind)

	var c models.Cell
	var err error
	if above {
		c, err = h.engine.InsertAbove(r.Context(), id, kind)
	} else {
		c, err = h.engine.InsertBelow(r.Context(), id, kind)
	}
	if err != nil {
		writeError(w, "insert cell", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.annotate(c))
}

// InsertAbove handles POST /api/cells/{id}/insert-above.
func (h *Handler) InsertAbove(w http.ResponseWriter, r *http.Request) { h.insertRelative(w, r, true) }

// InsertBelow handles POST /api/cells/{id}/insert-below.
func (h *Handler) InsertBelow(w http.ResponseWriter, r *http.Request) { h.insertRelative(w, r, false) }

// RunCell handles POST /api/cells/{id}/run.
//
//	@Summary		Start an AI execution of a cell
//	@Description	Returns immediately. Progress is reported through cell.status events.
//	@Tags			cells
//	@Produce		json
//	@Param			id	path		string	true	"Cell ID"
//	@Success		202	{object}	execution.Ticket
//	@Success		200	{object}	execution.Ticket	"Run was a no-op (empty input or already running)"
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cells/{id}/run [post]
func (h *Handler) RunCell(w http.ResponseWriter, r *http.Request) {
	t, err := h.exec.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, execution.ErrClosed) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("shutting down"))
			return
		}
		writeError(w, "run cell", err)
		return
	}
	status := http.StatusOK
	if t.Started {
		status = http.StatusAccepted
	}
	writeJSON(w, status, t)
}

// ClearOutput handles POST /api/cells/{id}/clear-output.
func (h *Handler) ClearOutput(w http.ResponseWriter, r *http.Request) {
	c, err := h.engine.ClearOutput(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "clear output", err)
		return
	}
	writeJSON(w, http.StatusOK, h.annotate(c))
}

// SelectCell handles POST /api/cells/{id}/select.
func (h *Handler) SelectCell(w http.ResponseWriter, r *http.Request) {
	c, err := h.docs.SelectCell(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "select cell", err)
		return
	}
	writeJSON(w, http.StatusOK, h.annotate(c))
}
