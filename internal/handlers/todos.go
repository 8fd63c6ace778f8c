package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"taskmaster/internal/models"
)

type kanbanRequest struct {
	Status string `json:"status" validate:"required,oneof=todo doing done"`
}

type batchDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

type batchMoveRequest struct {
	IDs      []int64 `json:"ids" validate:"required,min=1"`
	FolderID *int64  `json:"folder_id" validate:"required"`
}

// GetTodos lists todos. Query parameters: status (all|completed|pending),
// search, category, folder and include_archived=true.
func (h *Handlers) GetTodos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.TodoFilter{
		Status:          q.Get("status"),
		Search:          q.Get("search"),
		IncludeArchived: q.Get("include_archived") == "true",
	}
	if c := q.Get("category"); c != "all" {
		filter.Category = c
	}
	if f := q.Get("folder"); f != "" && f != "all" {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			h.error(w, "Invalid folder ID", http.StatusBadRequest)
			return
		}
		filter.FolderID = &id
	}

	todos, err := h.db.ListTodos(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.respond(w, todos, http.StatusOK)
}

func (h *Handlers) GetTodayTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.db.TodayTodos(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.respond(w, todos, http.StatusOK)
}

func (h *Handlers) GetArchivedTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.db.ArchivedTodos(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.respond(w, todos, http.StatusOK)
}

func (h *Handlers) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "todo")
	if !ok {
		return
	}

	todo, err := h.db.GetTodo(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Todo not found")
		return
	}
	h.respond(w, todo, http.StatusOK)
}

func (h *Handlers) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req models.NewTodo
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.db.CreateTodo(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	h.respond(w, map[string]interface{}{
		"id":      id,
		"message": "Todo created successfully",
	}, http.StatusCreated)
}

func (h *Handlers) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "todo")
	if !ok {
		return
	}
	var patch models.TodoPatch
	if !h.decode(w, r, &patch) {
		return
	}

	if patch.Empty() {
		if _, err := h.db.GetTodo(r.Context(), id); err != nil {
			h.fail(w, r, err, "Todo not found")
			return
		}
		h.message(w, "Nothing to update")
		return
	}

	if err := h.db.UpdateTodo(r.Context(), id, patch); err != nil {
		h.fail(w, r, err, "Todo not found")
		return
	}
	h.message(w, "Todo updated successfully")
}

func (h *Handlers) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "todo")
	if !ok {
		return
	}

	if err := h.db.DeleteTodo(r.Context(), id); err != nil {
		h.fail(w, r, err, "Todo not found")
		return
	}
	h.message(w, "Todo deleted successfully")
}

func (h *Handlers) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "todo")
	if !ok {
		return
	}

	completed, err := h.db.ToggleTodo(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Todo not found")
		return
	}

	h.respond(w, map[string]interface{}{
		"completed": completed,
		"message":   "Todo toggled successfully",
	}, http.StatusOK)
}

func (h *Handlers) SetKanbanStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "todo")
	if !ok {
		return
	}
	var req kanbanRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.db.SetKanbanStatus(r.Context(), id, req.Status); err != nil {
		h.fail(w, r, err, "Todo not found")
		return
	}
	h.message(w, "Kanban status updated successfully")
}

func (h *Handlers) AddToToday(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "todo")
	if !ok {
		return
	}
	if err := h.db.AddToToday(r.Context(), id); err != nil {
		h.fail(w, r, err, "Todo not found")
		return
	}
	h.message(w, "Todo added to Today successfully")
}

func (h *Handlers) RemoveFromToday(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "todo")
	if !ok {
		return
	}
	if err := h.db.RemoveFromToday(r.Context(), id); err != nil {
		h.fail(w, r, err, "Todo not found")
		return
	}
	h.message(w, "Todo removed from Today successfully")
}

func (h *Handlers) ArchiveTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "todo")
	if !ok {
		return
	}
	if err := h.db.ArchiveTodo(r.Context(), id); err != nil {
		h.fail(w, r, err, "Todo not found")
		return
	}
	h.message(w, "Todo archived successfully")
}

func (h *Handlers) UnarchiveTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "todo")
	if !ok {
		return
	}
	if err := h.db.UnarchiveTodo(r.Context(), id); err != nil {
		h.fail(w, r, err, "Todo not found")
		return
	}
	h.message(w, "Todo unarchived successfully")
}

func (h *Handlers) BatchDeleteTodos(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if !h.decode(w, r, &req) {
		return
	}

	n, err := h.db.BatchDeleteTodos(r.Context(), req.IDs)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	h.respond(w, map[string]interface{}{
		"count":   n,
		"message": fmt.Sprintf("%d todo(s) deleted successfully", n),
	}, http.StatusOK)
}

func (h *Handlers) BatchMoveTodos(w http.ResponseWriter, r *http.Request) {
	var req batchMoveRequest
	if !h.decode(w, r, &req) {
		return
	}

	n, err := h.db.BatchMoveTodos(r.Context(), req.IDs, *req.FolderID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	h.respond(w, map[string]interface{}{
		"count":   n,
		"message": fmt.Sprintf("%d todo(s) moved successfully", n),
	}, http.StatusOK)
}
