package inbox

import (
	"context"
	"fmt"

	"taskmaster/internal/models"
)

const maxTitleRunes = 100

// TodoCreator is the part of the store the importer needs.
type TodoCreator interface {
	CreateTodo(ctx context.Context, in models.NewTodo) (int64, error)
}

// Import drains the inbox and turns every entry into a todo in the default
// folder. Entries that fail are logged and dropped; the count of created
// todos is returned.
func (i *Inbox) Import(ctx context.Context, store TodoCreator) int {
	entries := i.Drain()
	if len(entries) == 0 {
		return 0
	}

	imported := 0
	for _, e := range entries {
		id, err := store.CreateTodo(ctx, TodoFromEntry(e))
		if err != nil {
			i.log.Errorw("Failed to import inbox entry",
				"entry_id", e.ID,
				"user_id", e.UserID,
				"error", err,
			)
			if i.metrics != nil {
				i.metrics.InboxFailed.Inc()
			}
			continue
		}
		imported++
		i.log.Debugw("Imported inbox entry", "entry_id", e.ID, "todo_id", id)
	}

	if i.metrics != nil {
		i.metrics.InboxImported.Add(float64(imported))
	}
	i.log.Infow("Imported inbox", "imported", imported, "drained", len(entries))
	return imported
}

// TodoFromEntry builds the todo an inbox entry becomes.
func TodoFromEntry(e Entry) models.NewTodo {
	return models.NewTodo{
		Title:        truncateRunes(e.Message, maxTitleRunes),
		Description:  fmt.Sprintf("From Telegram bot via @%s", e.Username),
		Priority:     models.DefaultPriority,
		Category:     models.DefaultCategory,
		FolderID:     models.Value[int64](models.DefaultFolderID),
		KanbanStatus: models.KanbanTodo,
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
