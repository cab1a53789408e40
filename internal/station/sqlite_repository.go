package station

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

// SQLiteRepository is a SQLite implementation of Repository for single-node deployments.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite station repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get retrieves a station configuration by station ID.
func (r *SQLiteRepository) Get(ctx context.Context, stationID string) (*Config, error) {
	var cfg Config
	err := r.db.QueryRowContext(ctx,
		`SELECT station_id, station_name, created_at FROM station_configs WHERE station_id = ?`,
		stationID,
	).Scan(&cfg.StationID, &cfg.StationName, &cfg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// List retrieves all station configurations ordered by station ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Config, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT station_id, station_name, created_at FROM station_configs ORDER BY station_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := []*Config{}
	for rows.Next() {
		var cfg Config
		if err := rows.Scan(&cfg.StationID, &cfg.StationName, &cfg.CreatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// Create stores a new configuration.
func (r *SQLiteRepository) Create(ctx context.Context, cfg *Config) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO station_configs (station_id, station_name, created_at) VALUES (?, ?, ?)`,
		cfg.StationID, cfg.StationName, cfg.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrAlreadyConfigured
		}
		return err
	}
	return nil
}

// Delete removes a configuration.
func (r *SQLiteRepository) Delete(ctx context.Context, stationID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM station_configs WHERE station_id = ?`, stationID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
