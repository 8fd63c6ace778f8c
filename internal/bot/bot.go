// Package bot runs the Telegram listener that turns chat messages into
// inbox entries.
package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"golang.org/x/time/rate"

	"taskmaster/internal/config"
	"taskmaster/internal/inbox"
	"taskmaster/internal/logger"
)

const (
	welcomeText = `<b>Welcome to TaskMaster Bot!</b>

Send me any text and I'll keep it as a task until you open TaskMaster.
Imported tasks land in the "General" folder.

<b>Commands:</b>
/start - Show this welcome message
/help - Show help
/tasks - Count your pending tasks`

	helpText = `<b>TaskMaster Bot Help</b>

1. Send me any message
2. I'll hold it until you open TaskMaster
3. The app imports every pending task on start-up

<b>Commands:</b>
/start - Welcome message
/help - Show this help
/tasks - Count pending tasks`

	confirmPreviewRunes = 50
)

// Status is what the API reports about the bot.
type Status struct {
	Enabled          bool `json:"enabled"`
	Configured       bool `json:"configured"`
	LibraryInstalled bool `json:"library_installed"`
}

func StatusOf(cfg config.BotConfig) Status {
	return Status{
		Enabled:          cfg.Enabled,
		Configured:       cfg.Configured(),
		LibraryInstalled: true,
	}
}

type Listener struct {
	cfg     config.BotConfig
	client  *Client
	inbox   *inbox.Inbox
	limiter *rate.Limiter
	log     *logger.Logger
	offset  int64
}

func New(cfg config.BotConfig, in *inbox.Inbox, log *logger.Logger) *Listener {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Every(cfg.Rate)
	}
	return &Listener{
		cfg:     cfg,
		client:  NewClient(cfg.Token),
		inbox:   in,
		limiter: rate.NewLimiter(limit, 1),
		log:     log.WithComponent("bot"),
	}
}

// Run polls for updates until ctx is cancelled. Poll failures are logged and
// retried at the limiter's pace.
func (l *Listener) Run(ctx context.Context) {
	l.log.Infow("Bot listener started", "poll_timeout", l.cfg.PollTimeout)
	defer l.log.Info("Bot listener stopped")

	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return
		}
		if err := l.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.Warnw("Bot poll failed", "error", err)
		}
	}
}

func (l *Listener) poll(ctx context.Context) error {
	updates, err := l.client.GetUpdates(ctx, l.offset, l.cfg.PollTimeout)
	if err != nil {
		return err
	}
	for _, u := range updates {
		if u.UpdateID >= l.offset {
			l.offset = u.UpdateID + 1
		}
		if u.Message != nil {
			l.handle(ctx, u.Message)
		}
	}
	return nil
}

func (l *Listener) handle(ctx context.Context, msg *Message) {
	if msg.Text == "" {
		return
	}

	if strings.HasPrefix(msg.Text, "/") {
		reply, ok := l.command(msg)
		if ok {
			l.reply(ctx, msg, reply)
		}
		return
	}

	entry, err := l.inbox.Append(msg.Chat.ID, senderName(msg.Chat), msg.Text)
	if err != nil {
		l.log.Errorw("Failed to save task", "chat_id", msg.Chat.ID, "error", err)
		l.reply(ctx, msg, "Sorry, I couldn't save that task. Please try again.")
		return
	}
	l.log.Infow("Saved task from chat", "entry_id", entry.ID, "chat_id", msg.Chat.ID)

	l.reply(ctx, msg, fmt.Sprintf("Task saved: <b>%s</b>\n\nIt will be imported when you open TaskMaster!",
		html.EscapeString(preview(msg.Text, confirmPreviewRunes))))
}

// command answers the known commands; anything else is ignored.
func (l *Listener) command(msg *Message) (string, bool) {
	name := strings.Fields(msg.Text)[0]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	switch name {
	case "/start":
		return welcomeText, true
	case "/help":
		return helpText, true
	case "/tasks":
		n := l.inbox.CountFor(msg.Chat.ID)
		return fmt.Sprintf("You have <b>%d</b> pending task(s) waiting to be imported!", n), true
	}
	return "", false
}

func (l *Listener) reply(ctx context.Context, msg *Message, text string) {
	if err := l.client.SendMessage(ctx, msg.Chat.ID, msg.MessageID, text); err != nil {
		l.log.Warnw("Failed to reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

func senderName(c Chat) string {
	if c.Username != "" {
		return c.Username
	}
	if c.FirstName != "" {
		return c.FirstName
	}
	return "User"
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
