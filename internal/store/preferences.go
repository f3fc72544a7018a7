package store

import (
	"database/sql"
	"errors"
)

// Narration preference keys.
const (
	KeyNarrationStyle      = "narration.style"
	KeyNarrationLanguage   = "narration.language"
	KeyNarrationVoiceSpeed = "narration.voice_speed"
)

// PreferenceRepository reads and writes key-value settings.
type PreferenceRepository struct {
	db *sql.DB
}

// Preferences returns the preference repository for this store.
func (s *Store) Preferences() *PreferenceRepository {
	return &PreferenceRepository{db: s.db}
}

// Get returns the value for key, or ErrNotFound.
func (r *PreferenceRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// GetOr returns the value for key, or def when unset or unreadable.
func (r *PreferenceRepository) GetOr(key, def string) string {
	value, err := r.Get(key)
	if err != nil || value == "" {
		return def
	}
	return value
}

// Set stores value under key, replacing any previous value.
func (r *PreferenceRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// SetAll stores several values in one transaction.
func (r *PreferenceRepository) SetAll(values map[string]string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for k, v := range values {
		if _, err := tx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			k, v,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes key. Deleting a missing key returns ErrNotFound.
func (r *PreferenceRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// All returns every stored setting.
func (r *PreferenceRepository) All() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}

	return out, rows.Err()
}
