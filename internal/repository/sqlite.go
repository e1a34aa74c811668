package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"restobook/internal/models"
)

// SQLiteRepository stores each restaurant as a JSON document next to the
// columns needed for lookups and optimistic locking.
type SQLiteRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteRepository opens the database at path and creates tables if they don't exist.
func NewSQLiteRepository(path string, logger zerolog.Logger) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &SQLiteRepository{
		db:     db,
		logger: logger.With().Str("component", "sqlite").Logger(),
	}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	repo.logger.Info().Str("path", path).Msg("Database initialized")
	return repo, nil
}

func (s *SQLiteRepository) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS restaurants (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			city TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			payload TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_restaurants_city ON restaurants(city COLLATE NOCASE)`,
		`CREATE INDEX IF NOT EXISTS idx_restaurants_active ON restaurants(is_active)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteRepository) Load(ctx context.Context, id int64) (*models.Restaurant, error) {
	var (
		payload string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, version FROM restaurants WHERE id = ?",
		id,
	).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("restaurant", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load restaurant %d: %w", id, err)
	}
	return decodeRestaurant(payload, version)
}

func (s *SQLiteRepository) Save(ctx context.Context, r *models.Restaurant) (*models.Restaurant, error) {
	if r == nil || r.ID <= 0 {
		return nil, fmt.Errorf("restaurant id is required")
	}

	stored := r.Clone()
	stored.Version = r.Version + 1
	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode restaurant %d: %w", r.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	var res sql.Result
	if r.Version == 0 {
		res, err = tx.ExecContext(ctx, `
			INSERT INTO restaurants (id, name, city, is_active, payload, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			stored.ID, stored.Name, stored.City, stored.IsActive, string(payload), stored.Version, now, now,
		)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE restaurants
			SET name = ?, city = ?, is_active = ?, payload = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ?`,
			stored.Name, stored.City, stored.IsActive, string(payload), stored.Version, now,
			stored.ID, r.Version,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("save restaurant %d: %w", r.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *SQLiteRepository) List(ctx context.Context) ([]*models.Restaurant, error) {
	return s.query(ctx, "SELECT payload, version FROM restaurants ORDER BY id")
}

func (s *SQLiteRepository) ListByCity(ctx context.Context, city string) ([]*models.Restaurant, error) {
	return s.query(ctx,
		"SELECT payload, version FROM restaurants WHERE city = ? COLLATE NOCASE ORDER BY id",
		city,
	)
}

func (s *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]*models.Restaurant, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Restaurant
	for rows.Next() {
		var (
			payload string
			version int64
		)
		if err := rows.Scan(&payload, &version); err != nil {
			return nil, err
		}
		r, err := decodeRestaurant(payload, version)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Backup writes a consistent copy of the database to dest.
func (s *SQLiteRepository) Backup(ctx context.Context, dest string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("backup to %s: %w", dest, err)
	}
	return nil
}

func (s *SQLiteRepository) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}

func decodeRestaurant(payload string, version int64) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("decode restaurant: %w", err)
	}
	r.Version = version
	return &r, nil
}
