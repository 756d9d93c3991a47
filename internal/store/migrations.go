package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Exports table - one row per exported preview, no pixels stored
		`CREATE TABLE IF NOT EXISTS exports (
			id TEXT PRIMARY KEY,
			image_id TEXT NOT NULL,
			asset_id TEXT NOT NULL,
			overlay_top REAL NOT NULL,
			overlay_left REAL NOT NULL,
			overlay_width REAL NOT NULL CHECK(overlay_width > 0),
			overlay_height REAL NOT NULL CHECK(overlay_height > 0),
			bytes INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_exports_created_at ON exports(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
