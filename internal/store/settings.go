package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/tryon/internal/placement"
)

// Calibration setting keys.
const (
	keyVerticalOffset = "placement.vertical_offset"
	keyScaleFactor    = "placement.scale_factor"
)

// SettingsRepository stores key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	return err
}

// Delete removes key. Deleting a missing key returns ErrNotFound.
func (r *SettingsRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Calibration returns the stored placement calibration.
// It returns ErrNotFound when none has been saved.
func (r *SettingsRepository) Calibration() (placement.Config, error) {
	offset, err := r.float(keyVerticalOffset)
	if err != nil {
		return placement.Config{}, err
	}
	scale, err := r.float(keyScaleFactor)
	if err != nil {
		return placement.Config{}, err
	}
	return placement.Config{VerticalOffset: offset, ScaleFactor: scale}, nil
}

// SetCalibration validates and stores a placement calibration.
func (r *SettingsRepository) SetCalibration(cfg placement.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	values := map[string]float64{
		keyVerticalOffset: cfg.VerticalOffset,
		keyScaleFactor:    cfg.ScaleFactor,
	}
	for key, v := range values {
		if _, err := tx.Exec(stmt, key, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ClearCalibration removes any stored calibration.
func (r *SettingsRepository) ClearCalibration() error {
	_, err := r.db.Exec(`DELETE FROM settings WHERE key IN (?, ?)`, keyVerticalOffset, keyScaleFactor)
	return err
}

func (r *SettingsRepository) float(key string) (float64, error) {
	raw, err := r.Get(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %s: %w", key, err)
	}
	return v, nil
}
