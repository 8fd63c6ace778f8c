package handlers

import (
	"net/http"
	"path/filepath"

	"taskmaster/internal/metrics"
)

// Routes builds the full HTTP surface. m may be nil to leave /metrics off.
func (h *Handlers) Routes(webDir string, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, withRoute(pattern, fn))
	}

	// Folders
	handle("GET /api/folders", h.GetFolders)
	handle("POST /api/folders", h.CreateFolder)
	handle("GET /api/folders/{id}", h.GetFolder)
	handle("PUT /api/folders/{id}", h.UpdateFolder)
	handle("DELETE /api/folders/{id}", h.DeleteFolder)

	// Todos
	handle("GET /api/todos", h.GetTodos)
	handle("POST /api/todos", h.CreateTodo)
	handle("GET /api/todos/today", h.GetTodayTodos)
	handle("GET /api/todos/archived", h.GetArchivedTodos)
	handle("DELETE /api/todos/batch", h.BatchDeleteTodos)
	handle("PUT /api/todos/batch/move", h.BatchMoveTodos)
	handle("GET /api/todos/{id}", h.GetTodo)
	handle("PUT /api/todos/{id}", h.UpdateTodo)
	handle("DELETE /api/todos/{id}", h.DeleteTodo)
	handle("PUT /api/todos/{id}/toggle", h.ToggleTodo)
	handle("PUT /api/todos/{id}/kanban-status", h.SetKanbanStatus)
	handle("PUT /api/todos/{id}/add-to-today", h.AddToToday)
	handle("PUT /api/todos/{id}/remove-from-today", h.RemoveFromToday)
	handle("PUT /api/todos/{id}/archive", h.ArchiveTodo)
	handle("PUT /api/todos/{id}/unarchive", h.UnarchiveTodo)

	// Notes
	handle("GET /api/notes", h.GetNotes)
	handle("POST /api/notes", h.CreateNote)
	handle("PUT /api/notes/{id}", h.UpdateNote)
	handle("DELETE /api/notes/{id}", h.DeleteNote)

	handle("GET /api/stats", h.GetStats)
	handle("POST /api/telegram/import", h.ImportTelegram)
	handle("GET /api/telegram/status", h.TelegramStatus)
	handle("GET /healthz", h.Health)

	if m != nil {
		mux.Handle("GET /metrics", withRoute("GET /metrics", m.Handler()))
	}

	// Static files
	staticDir := filepath.Join(webDir, "static")
	mux.Handle("GET /static/", withRoute("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir)))))

	index := filepath.Join(webDir, "index.html")
	handle("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, index)
	})

	return withRequestID(h.observe(m, mux))
}
