package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"

	"taskmaster/internal/models"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrFolderNotFound  = errors.New("folder not found")
	ErrInvalidStatus   = errors.New("invalid status. Must be todo, doing, or done")
	ErrEmptyIDs        = errors.New("IDs must be a non-empty list")
	ErrTitleRequired   = errors.New("title is required")
	ErrContentRequired = errors.New("content is required")
	ErrNameRequired    = errors.New("folder name is required")
)

type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

func New(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return db, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS folders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		color TEXT DEFAULT '#667eea',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT,
		completed BOOLEAN DEFAULT FALSE,
		priority TEXT DEFAULT 'medium',
		category TEXT DEFAULT 'general',
		folder_id INTEGER DEFAULT NULL,
		kanban_status TEXT DEFAULT 'todo',
		added_to_today BOOLEAN DEFAULT FALSE,
		today_date DATETIME DEFAULT NULL,
		archived BOOLEAN DEFAULT FALSE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (folder_id) REFERENCES folders (id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Columns added to todos after the first release. Older files get them
// through ALTER TABLE on open.
var todoColumns = []struct {
	name string
	def  string
}{
	{"kanban_status", `TEXT DEFAULT 'todo'`},
	{"added_to_today", `BOOLEAN DEFAULT FALSE`},
	{"today_date", `DATETIME DEFAULT NULL`},
	{"archived", `BOOLEAN DEFAULT FALSE`},
}

func (d *DB) migrate(ctx context.Context) error {
	return d.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		for _, q := range schema {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
		}

		existing, err := tableColumns(ctx, tx, "todos")
		if err != nil {
			return err
		}
		for _, col := range todoColumns {
			if existing[col.name] {
				continue
			}
			q := fmt.Sprintf(`ALTER TABLE todos ADD COLUMN %s %s`, col.name, col.def)
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("failed to add column %s: %w", col.name, err)
			}
		}

		var folders int
		if err := tx.GetContext(ctx, &folders, `SELECT COUNT(*) FROM folders`); err != nil {
			return err
		}
		if folders == 0 {
			_, err := tx.ExecContext(ctx, `INSERT INTO folders (name, color) VALUES (?, ?)`,
				models.DefaultFolderName, models.DefaultFolderColor)
			if err != nil {
				return fmt.Errorf("failed to seed default folder: %w", err)
			}
		}
		return nil
	})
}

func tableColumns(ctx context.Context, tx *sqlx.Tx, table string) (map[string]bool, error) {
	rows, err := tx.QueryxContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		switch name := row["name"].(type) {
		case string:
			cols[name] = true
		case []byte:
			cols[string(name)] = true
		}
	}
	return cols, rows.Err()
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// WithTransaction runs fn inside a transaction, rolling back on error or panic.
func (d *DB) WithTransaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
