package database

// PostgresSchema creates the station configuration table.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS station_configs (
	station_id   TEXT PRIMARY KEY,
	station_name TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// SQLiteSchema creates the station configuration table.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS station_configs (
	station_id   TEXT NOT NULL PRIMARY KEY,
	station_name TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
)`
