// Package inbox is the file-backed hand-off between the messaging bot and
// the task store. The bot appends; the app drains and imports.
package inbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"taskmaster/internal/logger"
	"taskmaster/internal/metrics"
)

// Entry is one message waiting to become a todo.
type Entry struct {
	ID        string    `json:"id,omitempty"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO form older inbox
// files were written with.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("inbox: unrecognised timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

type Inbox struct {
	path    string
	mu      sync.Mutex
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(path string, log *logger.Logger) *Inbox {
	return &Inbox{
		path: path,
		log:  log.WithComponent("inbox"),
		now:  time.Now,
	}
}

// WithMetrics makes the inbox count appends and imports.
func (i *Inbox) WithMetrics(m *metrics.Metrics) *Inbox {
	i.metrics = m
	return i
}

func (i *Inbox) Path() string {
	return i.path
}

// Append adds a message to the log, keeping everything not yet drained.
func (i *Inbox) Append(userID int64, username, message string) (Entry, error) {
	entry := Entry{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Username:  username,
		Message:   message,
		Timestamp: Timestamp{i.now()},
	}

	err := i.withLock(func() error {
		entries, err := readEntries(i.path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				i.log.Warnw("Inbox unreadable, starting a new log", "path", i.path, "error", err)
			}
			entries = nil
		}
		entries = append(entries, entry)

		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal inbox: %w", err)
		}
		return atomicWriteFile(i.path, data, 0o644)
	})
	if err != nil {
		return Entry{}, err
	}

	if i.metrics != nil {
		i.metrics.InboxAppended.Inc()
	}
	return entry, nil
}

// Drain returns every buffered entry and clears the log. A missing or
// unreadable log drains as empty; a corrupt one is set aside as
// <path>.corrupt. Entries left in <path>.draining by an interrupted drain
// come back first.
func (i *Inbox) Drain() []Entry {
	entries := []Entry{}
	err := i.withLock(func() error {
		handoff := i.handoffPath()
		leftover, err := i.take(handoff)
		if err != nil {
			i.log.Warnw("Dropped corrupt hand-off from an earlier drain", "path", handoff, "error", err)
		}
		entries = append(entries, leftover...)

		if err := os.Rename(i.path, handoff); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("take inbox: %w", err)
		}
		got, err := i.take(handoff)
		if err != nil {
			return err
		}
		entries = append(entries, got...)
		return nil
	})
	if err != nil {
		i.log.Warnw("Inbox drained partially", "path", i.path, "recovered", len(entries), "error", err)
	}
	return entries
}

// take reads a hand-off file and removes it. A missing file yields nothing;
// a corrupt one is renamed to <path>.corrupt.
func (i *Inbox) take(path string) ([]Entry, error) {
	got, err := readEntries(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		if renameErr := os.Rename(path, i.path+".corrupt"); renameErr != nil {
			i.log.Warnw("Failed to set corrupt inbox aside", "error", renameErr)
		}
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		i.log.Warnw("Failed to remove drained inbox", "path", path, "error", err)
	}
	return got, nil
}

func (i *Inbox) handoffPath() string {
	return i.path + ".draining"
}

// Peek returns the buffered entries without clearing them, including any
// left behind by an interrupted drain.
func (i *Inbox) Peek() []Entry {
	entries := []Entry{}
	err := i.withLock(func() error {
		for _, path := range []string{i.handoffPath(), i.path} {
			got, err := readEntries(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return err
			}
			entries = append(entries, got...)
		}
		return nil
	})
	if err != nil {
		i.log.Warnw("Inbox unreadable", "path", i.path, "error", err)
		return []Entry{}
	}
	return entries
}

// CountFor reports how many buffered entries came from userID.
func (i *Inbox) CountFor(userID int64) int {
	n := 0
	for _, e := range i.Peek() {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

func (i *Inbox) withLock(fn func() error) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(i.path), 0o755); err != nil {
		return fmt.Errorf("create inbox dir: %w", err)
	}
	unlock, err := lockFile(i.path + ".lock")
	if err != nil {
		return fmt.Errorf("lock inbox: %w", err)
	}
	defer unlock()

	return fn()
}

func readEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode inbox: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp inbox: %w", err)
	}
	name := tmp.Name()
	_, err = tmp.Write(data)
	if err1 := tmp.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err == nil {
		err = os.Chmod(name, perm)
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp inbox: %w", err)
	}

	// Rename is atomic on the same filesystem.
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename inbox: %w", err)
	}
	return nil
}
