package handlers

import (
	"net/http"
)

type noteRequest struct {
	Content string `json:"content"`
}

func (h *Handlers) GetNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.db.ListNotes(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.respond(w, notes, http.StatusOK)
}

func (h *Handlers) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.db.CreateNote(r.Context(), req.Content)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	h.respond(w, map[string]interface{}{
		"id":      id,
		"message": "Note created successfully",
	}, http.StatusCreated)
}

func (h *Handlers) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "note")
	if !ok {
		return
	}
	var req noteRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.db.UpdateNote(r.Context(), id, req.Content); err != nil {
		h.fail(w, r, err, "Note not found")
		return
	}
	h.message(w, "Note updated successfully")
}

func (h *Handlers) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "note")
	if !ok {
		return
	}

	if err := h.db.DeleteNote(r.Context(), id); err != nil {
		h.fail(w, r, err, "Note not found")
		return
	}
	h.message(w, "Note deleted successfully")
}
