package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"taskmaster/internal/config"
	"taskmaster/internal/db"
	"taskmaster/internal/inbox"
	"taskmaster/internal/logger"
	"taskmaster/internal/metrics"
	"taskmaster/internal/models"
)

type testServer struct {
	handler http.Handler
	db      *db.DB
	inbox   *inbox.Inbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	database, err := db.New(filepath.Join(dir, "todos.db"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	webDir := filepath.Join(dir, "web")
	os.MkdirAll(filepath.Join(webDir, "static"), 0o755)
	os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<h1>TaskMaster</h1>"), 0o644)
	os.WriteFile(filepath.Join(webDir, "static", "app.js"), []byte("console.log(1)"), 0o644)

	in := inbox.New(filepath.Join(dir, "pending.json"), logger.Nop())
	bot := config.BotConfig{Token: config.PlaceholderBotToken}
	h := New(database, in, bot, logger.Nop())

	return &testServer{
		handler: h.Routes(webDir, metrics.New()),
		db:      database,
		inbox:   in,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func (s *testServer) createTodo(t *testing.T, body map[string]interface{}) int64 {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/todos", body)
	expectStatus(t, rec, http.StatusCreated)
	return int64(decodeBody[map[string]interface{}](t, rec)["id"].(float64))
}

func (s *testServer) getTodo(t *testing.T, id int64) models.Todo {
	t.Helper()

	rec := s.do(t, http.MethodGet, "/api/todos/"+itoa(id), nil)
	expectStatus(t, rec, http.StatusOK)
	return decodeBody[models.Todo](t, rec)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestFolderFilterExample(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Work"})
	expectStatus(t, rec, http.StatusCreated)
	if id := decodeBody[map[string]interface{}](t, rec)["id"]; id != float64(2) {
		t.Fatalf("folder id = %v, want 2", id)
	}

	todoID := s.createTodo(t, map[string]interface{}{"title": "Write report", "folder_id": 2})
	s.createTodo(t, map[string]interface{}{"title": "Elsewhere"})

	rec = s.do(t, http.MethodGet, "/api/todos?folder=2", nil)
	expectStatus(t, rec, http.StatusOK)
	todos := decodeBody[[]models.Todo](t, rec)
	if len(todos) != 1 {
		t.Fatalf("got %d todos, want 1", len(todos))
	}
	if todos[0].ID != todoID || todos[0].FolderName != "Work" {
		t.Errorf("todo = %+v", todos[0])
	}
}

func TestKanbanDoneExample(t *testing.T) {
	s := newTestServer(t)
	id := s.createTodo(t, map[string]interface{}{"title": "Ship it"})

	rec := s.do(t, http.MethodPut, "/api/todos/"+itoa(id)+"/kanban-status", map[string]string{"status": "done"})
	expectStatus(t, rec, http.StatusOK)

	todo := s.getTodo(t, id)
	if !todo.Completed || !todo.Archived || todo.KanbanStatus != "done" {
		t.Errorf("todo = %+v, want completed, archived and done", todo)
	}
}

func TestKanbanStatusErrors(t *testing.T) {
	s := newTestServer(t)
	id := s.createTodo(t, map[string]interface{}{"title": "x"})

	tests := []struct {
		name string
		path string
		body interface{}
		want int
	}{
		{"missing status", "/api/todos/" + itoa(id) + "/kanban-status", map[string]string{}, http.StatusBadRequest},
		{"invalid status", "/api/todos/" + itoa(id) + "/kanban-status", map[string]string{"status": "blocked"}, http.StatusBadRequest},
		{"unknown todo", "/api/todos/999/kanban-status", map[string]string{"status": "doing"}, http.StatusNotFound},
		{"bad id", "/api/todos/abc/kanban-status", map[string]string{"status": "doing"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, tt.path, tt.body)
			expectStatus(t, rec, tt.want)
			if _, ok := decodeBody[map[string]string](t, rec)["error"]; !ok {
				t.Errorf("error body missing: %s", rec.Body.String())
			}
		})
	}
}

func TestCreateTodo_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"no title", map[string]interface{}{"description": "x"}},
		{"blank title", map[string]interface{}{"title": "   "}},
		{"bad kanban", map[string]interface{}{"title": "x", "kanban_status": "later"}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/todos", tt.body)
			expectStatus(t, rec, http.StatusBadRequest)
		})
	}

	rec := s.do(t, http.MethodGet, "/api/todos?include_archived=true", nil)
	if todos := decodeBody[[]models.Todo](t, rec); len(todos) != 0 {
		t.Errorf("rejected creates left %d todos", len(todos))
	}
}

func TestUpdateTodo(t *testing.T) {
	s := newTestServer(t)
	id := s.createTodo(t, map[string]interface{}{"title": "Draft", "priority": "low"})

	rec := s.do(t, http.MethodPut, "/api/todos/"+itoa(id), map[string]interface{}{"title": "Final"})
	expectStatus(t, rec, http.StatusOK)

	todo := s.getTodo(t, id)
	if todo.Title != "Final" || todo.Priority != "low" {
		t.Errorf("todo = %+v", todo)
	}

	rec = s.do(t, http.MethodPut, "/api/todos/"+itoa(id), map[string]interface{}{"folder_id": nil})
	expectStatus(t, rec, http.StatusOK)
	if todo := s.getTodo(t, id); todo.FolderID != nil {
		t.Errorf("folder_id = %v, want null", *todo.FolderID)
	}

	rec = s.do(t, http.MethodPut, "/api/todos/999", map[string]interface{}{"title": "nope"})
	expectStatus(t, rec, http.StatusNotFound)

	before := s.getTodo(t, id)
	rec = s.do(t, http.MethodPut, "/api/todos/"+itoa(id), map[string]interface{}{})
	expectStatus(t, rec, http.StatusOK)
	if msg := decodeBody[map[string]interface{}](t, rec)["message"]; msg != "Nothing to update" {
		t.Errorf("message = %v", msg)
	}
	if after := s.getTodo(t, id); !after.UpdatedAt.Equal(before.UpdatedAt) || after.Title != before.Title {
		t.Errorf("empty update changed the todo: %+v", after)
	}
	expectStatus(t, s.do(t, http.MethodPut, "/api/todos/999", map[string]interface{}{}), http.StatusNotFound)
}

func TestToggleTodo(t *testing.T) {
	s := newTestServer(t)
	id := s.createTodo(t, map[string]interface{}{"title": "x"})

	rec := s.do(t, http.MethodPut, "/api/todos/"+itoa(id)+"/toggle", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[map[string]interface{}](t, rec)["completed"]; got != true {
		t.Errorf("completed = %v, want true", got)
	}

	rec = s.do(t, http.MethodPut, "/api/todos/999/toggle", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestTodayAndArchiveViews(t *testing.T) {
	s := newTestServer(t)
	id := s.createTodo(t, map[string]interface{}{"title": "Focus"})

	expectStatus(t, s.do(t, http.MethodPut, "/api/todos/"+itoa(id)+"/add-to-today", nil), http.StatusOK)
	rec := s.do(t, http.MethodGet, "/api/todos/today", nil)
	if today := decodeBody[[]models.Todo](t, rec); len(today) != 1 || today[0].TodayDate == nil {
		t.Fatalf("today = %+v", today)
	}

	expectStatus(t, s.do(t, http.MethodPut, "/api/todos/"+itoa(id)+"/remove-from-today", nil), http.StatusOK)
	if todo := s.getTodo(t, id); todo.AddedToToday || todo.TodayDate != nil {
		t.Errorf("todo still in today: %+v", todo)
	}

	expectStatus(t, s.do(t, http.MethodPut, "/api/todos/"+itoa(id)+"/archive", nil), http.StatusOK)
	rec = s.do(t, http.MethodGet, "/api/todos/archived", nil)
	if archived := decodeBody[[]models.Todo](t, rec); len(archived) != 1 {
		t.Fatalf("archived = %+v", archived)
	}
	rec = s.do(t, http.MethodGet, "/api/todos", nil)
	if active := decodeBody[[]models.Todo](t, rec); len(active) != 0 {
		t.Errorf("archived todo listed by default: %+v", active)
	}

	expectStatus(t, s.do(t, http.MethodPut, "/api/todos/"+itoa(id)+"/unarchive", nil), http.StatusOK)
	todo := s.getTodo(t, id)
	if todo.Archived || todo.Completed || todo.KanbanStatus != "todo" {
		t.Errorf("unarchived todo = %+v", todo)
	}

	for _, action := range []string{"add-to-today", "remove-from-today", "archive", "unarchive"} {
		rec := s.do(t, http.MethodPut, "/api/todos/999/"+action, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s on missing todo: status = %d, want 404", action, rec.Code)
		}
	}
}

func TestBatchOperations(t *testing.T) {
	s := newTestServer(t)
	a := s.createTodo(t, map[string]interface{}{"title": "a"})
	b := s.createTodo(t, map[string]interface{}{"title": "b"})
	c := s.createTodo(t, map[string]interface{}{"title": "c"})

	rec := s.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Later", "color": "#123456"})
	expectStatus(t, rec, http.StatusCreated)
	folder := int64(decodeBody[map[string]interface{}](t, rec)["id"].(float64))

	rec = s.do(t, http.MethodPut, "/api/todos/batch/move", map[string]interface{}{"ids": []int64{a, b}, "folder_id": folder})
	expectStatus(t, rec, http.StatusOK)
	if n := decodeBody[map[string]interface{}](t, rec)["count"]; n != float64(2) {
		t.Errorf("moved count = %v, want 2", n)
	}

	rec = s.do(t, http.MethodPut, "/api/todos/batch/move", map[string]interface{}{"ids": []int64{a}, "folder_id": 999})
	expectStatus(t, rec, http.StatusNotFound)

	rec = s.do(t, http.MethodPut, "/api/todos/batch/move", map[string]interface{}{"ids": []int64{a}})
	expectStatus(t, rec, http.StatusBadRequest)

	expectStatus(t, s.do(t, http.MethodDelete, "/api/todos/"+itoa(c), nil), http.StatusOK)

	rec = s.do(t, http.MethodDelete, "/api/todos/batch", map[string]interface{}{"ids": []int64{a, b, c}})
	expectStatus(t, rec, http.StatusOK)
	if n := decodeBody[map[string]interface{}](t, rec)["count"]; n != float64(2) {
		t.Errorf("deleted count = %v, want 2", n)
	}

	for _, body := range []interface{}{
		map[string]interface{}{},
		map[string]interface{}{"ids": []int64{}},
		map[string]interface{}{"ids": "1,2"},
	} {
		rec := s.do(t, http.MethodDelete, "/api/todos/batch", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("batch delete %v: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestFolders(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodPost, "/api/folders", map[string]string{}), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "x", "color": "blue"}), http.StatusBadRequest)

	rec := s.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Home"})
	expectStatus(t, rec, http.StatusCreated)
	id := int64(decodeBody[map[string]interface{}](t, rec)["id"].(float64))
	s.createTodo(t, map[string]interface{}{"title": "Dishes", "folder_id": id})
	s.createTodo(t, map[string]interface{}{"title": "Laundry", "folder_id": id})

	rec = s.do(t, http.MethodPut, "/api/folders/"+itoa(id), map[string]string{"color": "#ff0000"})
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodGet, "/api/folders/"+itoa(id), nil)
	expectStatus(t, rec, http.StatusOK)
	if f := decodeBody[models.Folder](t, rec); f.Name != "Home" || f.TodoCount != 2 || f.Color != "#ff0000" {
		t.Fatalf("folder = %+v", f)
	}
	rec = s.do(t, http.MethodGet, "/api/folders/999", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if msg := decodeBody[map[string]interface{}](t, rec)["error"]; msg != "Folder not found" {
		t.Errorf("error = %v", msg)
	}

	rec = s.do(t, http.MethodGet, "/api/folders", nil)
	folders := decodeBody[[]models.Folder](t, rec)
	if len(folders) != 2 || folders[1].TodoCount != 2 || folders[1].Color != "#ff0000" {
		t.Fatalf("folders = %+v", folders)
	}

	expectStatus(t, s.do(t, http.MethodDelete, "/api/folders/"+itoa(id), nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/folders/"+itoa(id), nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodPut, "/api/folders/999", map[string]string{"name": "x"}), http.StatusNotFound)

	rec = s.do(t, http.MethodGet, "/api/todos", nil)
	if todos := decodeBody[[]models.Todo](t, rec); len(todos) != 0 {
		t.Errorf("folder delete left %d todos", len(todos))
	}
}

func TestNotes(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodPost, "/api/notes", map[string]string{"content": " "}), http.StatusBadRequest)

	rec := s.do(t, http.MethodPost, "/api/notes", map[string]string{"content": "Remember"})
	expectStatus(t, rec, http.StatusCreated)
	id := int64(decodeBody[map[string]interface{}](t, rec)["id"].(float64))

	expectStatus(t, s.do(t, http.MethodPut, "/api/notes/"+itoa(id), map[string]string{"content": "Edited"}), http.StatusOK)

	rec = s.do(t, http.MethodGet, "/api/notes", nil)
	notes := decodeBody[[]models.Note](t, rec)
	if len(notes) != 1 || notes[0].Content != "Edited" {
		t.Fatalf("notes = %+v", notes)
	}

	expectStatus(t, s.do(t, http.MethodDelete, "/api/notes/"+itoa(id), nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/notes/"+itoa(id), nil), http.StatusNotFound)
}

func TestStats(t *testing.T) {
	s := newTestServer(t)
	s.createTodo(t, map[string]interface{}{"title": "a", "priority": "high"})
	id := s.createTodo(t, map[string]interface{}{"title": "b"})
	s.do(t, http.MethodPut, "/api/todos/"+itoa(id)+"/toggle", nil)

	rec := s.do(t, http.MethodGet, "/api/stats", nil)
	expectStatus(t, rec, http.StatusOK)
	stats := decodeBody[models.Stats](t, rec)
	if stats.Total != 2 || stats.Completed != 1 || stats.Pending != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.PriorityStats["high"] != 1 || stats.FolderStats["General"] != 2 {
		t.Errorf("grouped stats = %+v", stats)
	}
}

func TestTelegramEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/telegram/status", nil)
	expectStatus(t, rec, http.StatusOK)
	status := decodeBody[map[string]bool](t, rec)
	if status["enabled"] || status["configured"] || !status["library_installed"] {
		t.Errorf("status = %v", status)
	}

	s.inbox.Append(1, "alice", "From the road")

	rec = s.do(t, http.MethodPost, "/api/telegram/import", nil)
	expectStatus(t, rec, http.StatusOK)
	body := decodeBody[map[string]interface{}](t, rec)
	if body["imported"] != float64(1) || body["message"] != "Imported 1 tasks" {
		t.Errorf("import = %v", body)
	}

	rec = s.do(t, http.MethodPost, "/api/telegram/import", nil)
	if body := decodeBody[map[string]interface{}](t, rec); body["imported"] != float64(0) {
		t.Errorf("second import = %v", body)
	}
}

func TestRequestIDAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("no request id on response")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="GET /healthz",status="200"} 2`) {
		t.Errorf("metrics missing healthz counter:\n%s", rec.Body.String())
	}
}

func TestWebAssets(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "TaskMaster") {
		t.Errorf("index body = %q", rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/static/app.js", nil)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodPost, "/api/stats", nil)
	expectStatus(t, rec, http.StatusMethodNotAllowed)
}

func TestStoreFailureIsLogged(t *testing.T) {
	dir := t.TempDir()
	database, err := db.New(filepath.Join(dir, "todos.db"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	database.Close()

	core, logs := observer.New(zapcore.ErrorLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	in := inbox.New(filepath.Join(dir, "pending.json"), log)
	h := New(database, in, config.BotConfig{}, log)

	rec := httptest.NewRecorder()
	h.Routes(dir, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes", nil))
	expectStatus(t, rec, http.StatusInternalServerError)
	if msg := decodeBody[map[string]interface{}](t, rec)["error"]; msg != "Internal server error" {
		t.Errorf("error = %v", msg)
	}

	failed := logs.FilterMessage("Request failed").All()
	if len(failed) != 1 {
		t.Fatalf("logged %d failures, want 1", len(failed))
	}
	if got := failed[0].ContextMap()["error"]; got == nil || got == "" {
		t.Errorf("failure logged without error: %v", failed[0].ContextMap())
	}
}
