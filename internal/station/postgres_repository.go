package station

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL station repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a station configuration by station ID.
func (r *PostgresRepository) Get(ctx context.Context, stationID string) (*Config, error) {
	query := `
		SELECT station_id, station_name, created_at
		FROM station_configs
		WHERE station_id = $1
	`

	var cfg Config
	err := r.pool.QueryRow(ctx, query, stationID).Scan(
		&cfg.StationID,
		&cfg.StationName,
		&cfg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &cfg, nil
}

// List retrieves all station configurations ordered by station ID.
func (r *PostgresRepository) List(ctx context.Context) ([]*Config, error) {
	query := `
		SELECT station_id, station_name, created_at
		FROM station_configs
		ORDER BY station_id
	`

	rows, err := r.pool.Query(ctx, query)
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

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return configs, nil
}

// Create stores a new configuration.
func (r *PostgresRepository) Create(ctx context.Context, cfg *Config) error {
	query := `
		INSERT INTO station_configs (station_id, station_name, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.pool.Exec(ctx, query, cfg.StationID, cfg.StationName, cfg.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrAlreadyConfigured
		}
		return err
	}
	return nil
}

// Delete removes a configuration.
func (r *PostgresRepository) Delete(ctx context.Context, stationID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM station_configs WHERE station_id = $1`, stationID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
