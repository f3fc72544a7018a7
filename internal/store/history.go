package store

import (
	"database/sql"
	"strings"
	"time"
)

// DefaultHistoryLimit caps Recent when no limit is given.
const DefaultHistoryLimit = 50

// HistoryEntry is one dispatched command.
type HistoryEntry struct {
	ID        string
	SessionID string
	Command   string
	Kind      string
	Symbols   []string
	Mode      string
	CreatedAt time.Time
}

// HistoryRepository records dispatched commands.
type HistoryRepository struct {
	db *sql.DB
}

// History returns the command history repository for this store.
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{db: s.db}
}

// Record appends an entry.
func (r *HistoryRepository) Record(e *HistoryEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	// Stored in UTC so created_at sorts lexically.
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := r.db.Exec(
		`INSERT INTO command_log (id, session_id, command, kind, symbols, mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Command, e.Kind, strings.Join(e.Symbols, ","), e.Mode, e.CreatedAt,
	)
	return err
}

// Recent returns up to limit entries, newest first.
func (r *HistoryRepository) Recent(limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, command, kind, symbols, mode, created_at
		 FROM command_log ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		e := &HistoryEntry{}
		var symbols string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Command, &e.Kind, &symbols, &e.Mode, &e.CreatedAt); err != nil {
			return nil, err
		}
		if symbols != "" {
			e.Symbols = strings.Split(symbols, ",")
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Count returns the number of recorded entries.
func (r *HistoryRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM command_log`).Scan(&n)
	return n, err
}

// Prune deletes entries older than before and returns how many were removed.
func (r *HistoryRepository) Prune(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM command_log WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
