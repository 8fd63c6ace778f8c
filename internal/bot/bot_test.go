package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"taskmaster/internal/config"
	"taskmaster/internal/inbox"
	"taskmaster/internal/logger"
)

type fakeTelegram struct {
	mu      sync.Mutex
	updates []Update
	offsets []string
	sent    []map[string]interface{}
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/bottest-token/getUpdates"):
		f.offsets = append(f.offsets, r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": f.updates})
		f.updates = nil
	case strings.HasSuffix(r.URL.Path, "/bottest-token/sendMessage"):
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		f.sent = append(f.sent, body)
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": map[string]interface{}{"message_id": 1}})
	default:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error_code": 404, "description": "Not Found"})
	}
}

func (f *fakeTelegram) replies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s["text"].(string))
	}
	return out
}

func newTestListener(t *testing.T, tg *fakeTelegram) (*Listener, *inbox.Inbox) {
	t.Helper()

	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	in := inbox.New(filepath.Join(t.TempDir(), "pending.json"), logger.Nop())
	cfg := config.BotConfig{Token: "test-token", Enabled: true, PollTimeout: time.Second}
	l := New(cfg, in, logger.Nop())
	l.client.baseURL = srv.URL
	return l, in
}

func textUpdate(id, chatID int64, username, text string) Update {
	return Update{
		UpdateID: id,
		Message: &Message{
			MessageID: id * 10,
			Chat:      Chat{ID: chatID, Username: username},
			Text:      text,
		},
	}
}

func TestPoll_TextBecomesInboxEntry(t *testing.T) {
	tg := &fakeTelegram{updates: []Update{
		textUpdate(100, 555, "alice", "Buy <milk>"),
	}}
	l, in := newTestListener(t, tg)

	if err := l.poll(context.Background()); err != nil {
		t.Fatalf("poll() error = %v", err)
	}

	entries := in.Peek()
	if len(entries) != 1 {
		t.Fatalf("inbox holds %d entries, want 1", len(entries))
	}
	if e := entries[0]; e.UserID != 555 || e.Username != "alice" || e.Message != "Buy <milk>" {
		t.Errorf("entry = %+v", e)
	}

	replies := tg.replies()
	if len(replies) != 1 || !strings.Contains(replies[0], "Buy &lt;milk&gt;") {
		t.Errorf("replies = %q", replies)
	}
	if l.offset != 101 {
		t.Errorf("offset = %d, want 101", l.offset)
	}
}

func TestPoll_AdvancesOffset(t *testing.T) {
	tg := &fakeTelegram{updates: []Update{textUpdate(7, 1, "a", "x")}}
	l, _ := newTestListener(t, tg)

	l.poll(context.Background())
	l.poll(context.Background())

	if len(tg.offsets) != 2 || tg.offsets[0] != "0" || tg.offsets[1] != "8" {
		t.Errorf("offsets sent = %v, want [0 8]", tg.offsets)
	}
}

func TestPoll_Commands(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/start", "Welcome to TaskMaster Bot"},
		{"/help", "TaskMaster Bot Help"},
		{"/help@taskmaster_bot", "TaskMaster Bot Help"},
		{"/tasks", "You have <b>2</b> pending task(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			tg := &fakeTelegram{}
			l, in := newTestListener(t, tg)
			in.Append(555, "alice", "one")
			in.Append(555, "alice", "two")
			in.Append(999, "bob", "other")

			tg.updates = []Update{textUpdate(1, 555, "alice", tt.text)}
			if err := l.poll(context.Background()); err != nil {
				t.Fatalf("poll() error = %v", err)
			}

			replies := tg.replies()
			if len(replies) != 1 || !strings.Contains(replies[0], tt.want) {
				t.Errorf("replies = %q, want one containing %q", replies, tt.want)
			}
			if n := len(in.Peek()); n != 3 {
				t.Errorf("command changed the inbox: %d entries", n)
			}
		})
	}
}

func TestPoll_UnknownCommandIgnored(t *testing.T) {
	tg := &fakeTelegram{updates: []Update{textUpdate(1, 5, "a", "/weather")}}
	l, in := newTestListener(t, tg)

	l.poll(context.Background())

	if n := len(tg.replies()); n != 0 {
		t.Errorf("got %d replies, want 0", n)
	}
	if n := len(in.Peek()); n != 0 {
		t.Errorf("inbox holds %d entries, want 0", n)
	}
}

func TestPoll_APIError(t *testing.T) {
	tg := &fakeTelegram{}
	l, _ := newTestListener(t, tg)
	l.client.token = "wrong"

	if err := l.poll(context.Background()); err == nil {
		t.Fatal("poll() with a bad token succeeded")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	tg := &fakeTelegram{}
	l, _ := newTestListener(t, tg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		chat Chat
		want string
	}{
		{Chat{Username: "alice", FirstName: "Alice"}, "alice"},
		{Chat{FirstName: "Alice"}, "Alice"},
		{Chat{}, "User"},
	}
	for _, tt := range tests {
		if got := senderName(tt.chat); got != tt.want {
			t.Errorf("senderName(%+v) = %q, want %q", tt.chat, got, tt.want)
		}
	}
}

func TestStatusOf(t *testing.T) {
	got := StatusOf(config.BotConfig{Token: config.PlaceholderBotToken, Enabled: true})
	want := Status{Enabled: true, Configured: false, LibraryInstalled: true}
	if got != want {
		t.Errorf("StatusOf() = %+v, want %+v", got, want)
	}
}
