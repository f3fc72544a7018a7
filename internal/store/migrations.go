package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - key-value pairs for preferences
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Bindings table - plugin actions to run when a command resolves
		`CREATE TABLE IF NOT EXISTS bindings (
			id TEXT PRIMARY KEY,
			command TEXT NOT NULL UNIQUE,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Command log - every dispatched command
		`CREATE TABLE IF NOT EXISTS command_log (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			command TEXT NOT NULL,
			kind TEXT NOT NULL CHECK(kind IN ('direct', 'sequence')),
			symbols TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_command_log_created_at ON command_log(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_command_log_session_id ON command_log(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
