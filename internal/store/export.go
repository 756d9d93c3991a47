package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/tryon/internal/overlay"
)

// Export records one exported preview.
type Export struct {
	ID        string            `json:"id"`
	ImageID   string            `json:"image_id"`
	AssetID   string            `json:"asset_id"`
	Transform overlay.Transform `json:"transform"`
	Bytes     int               `json:"bytes"`
	CreatedAt time.Time         `json:"created_at"`
}

// ExportRepository records exports.
type ExportRepository struct {
	db *sql.DB
}

// Exports returns the export repository for this store.
func (s *Store) Exports() *ExportRepository {
	return &ExportRepository{db: s.db}
}

// Create inserts e, assigning its ID and creation time.
func (r *ExportRepository) Create(e *Export) error {
	if err := e.Transform.Validate(); err != nil {
		return err
	}

	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO exports (id, image_id, asset_id, overlay_top, overlay_left, overlay_width, overlay_height, bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ImageID, e.AssetID,
		e.Transform.Top, e.Transform.Left, e.Transform.Width, e.Transform.Height,
		e.Bytes, e.CreatedAt,
	)
	return err
}

// List returns up to limit exports, newest first. A limit <= 0 returns all.
func (r *ExportRepository) List(limit int) ([]*Export, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, image_id, asset_id, overlay_top, overlay_left, overlay_width, overlay_height, bytes, created_at
		 FROM exports ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		e := &Export{}
		err := rows.Scan(&e.ID, &e.ImageID, &e.AssetID,
			&e.Transform.Top, &e.Transform.Left, &e.Transform.Width, &e.Transform.Height,
			&e.Bytes, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return exports, nil
}

// Count returns the number of recorded exports.
func (r *ExportRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM exports`).Scan(&n)
	return n, err
}
