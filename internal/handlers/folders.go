package handlers

import (
	"net/http"
)

type folderRequest struct {
	Name  string `json:"name"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type folderUpdateRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

func (h *Handlers) GetFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.db.ListFolders(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.respond(w, folders, http.StatusOK)
}

func (h *Handlers) GetFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "folder")
	if !ok {
		return
	}

	folder, err := h.db.GetFolder(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Folder not found")
		return
	}
	h.respond(w, folder, http.StatusOK)
}

func (h *Handlers) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.db.CreateFolder(r.Context(), req.Name, req.Color)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	h.respond(w, map[string]interface{}{
		"id":      id,
		"message": "Folder created successfully",
	}, http.StatusCreated)
}

func (h *Handlers) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "folder")
	if !ok {
		return
	}
	var req folderUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.db.UpdateFolder(r.Context(), id, req.Name, req.Color); err != nil {
		h.fail(w, r, err, "Folder not found")
		return
	}
	h.message(w, "Folder updated successfully")
}

func (h *Handlers) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "folder")
	if !ok {
		return
	}

	removed, err := h.db.DeleteFolder(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Folder not found")
		return
	}

	requestLogger(r, h.log).Infow("Folder deleted", "folder_id", id, "todos_removed", removed)
	h.message(w, "Folder and all its tasks deleted successfully")
}
