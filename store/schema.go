// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store is the checkpoint-structured time-series database: an
// append-only sequence of checkpoints, each carrying per-location CPU
// sample counts and heap counters, backed by SQLite in WAL mode so the
// live viewer and post-hoc commands can read committed checkpoints while
// the reader writes the next one.
package store

import "database/sql"

const schemaVersion = "3"

// createTables drops any pre-existing tables and recreates the schema: the
// store is single-recording, a fresh `record` always starts from a clean
// slate unless --append is given.
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		DROP TABLE IF EXISTS heap_samples;
		DROP TABLE IF EXISTS cpu_samples;
		DROP TABLE IF EXISTS checkpoints;
		DROP TABLE IF EXISTS locations;
		DROP TABLE IF EXISTS meta;

		CREATE TABLE meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE checkpoints (
			id           INTEGER PRIMARY KEY,
			timestamp_ms INTEGER NOT NULL
		);

		CREATE TABLE locations (
			id       INTEGER PRIMARY KEY,
			file     TEXT NOT NULL,
			line     INTEGER NOT NULL,
			function TEXT NOT NULL,
			UNIQUE(file, line, function)
		);

		CREATE TABLE cpu_samples (
			checkpoint_id INTEGER NOT NULL REFERENCES checkpoints(id),
			location_id   INTEGER NOT NULL REFERENCES locations(id),
			count         INTEGER NOT NULL,
			PRIMARY KEY (checkpoint_id, location_id)
		);
		CREATE INDEX idx_cpu_location ON cpu_samples(location_id);

		CREATE TABLE heap_samples (
			checkpoint_id INTEGER NOT NULL REFERENCES checkpoints(id),
			location_id   INTEGER NOT NULL REFERENCES locations(id),
			alloc_bytes   INTEGER NOT NULL DEFAULT 0,
			free_bytes    INTEGER NOT NULL DEFAULT 0,
			live_bytes    INTEGER NOT NULL DEFAULT 0,
			alloc_count   INTEGER NOT NULL DEFAULT 0,
			free_count    INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (checkpoint_id, location_id)
		);
		CREATE INDEX idx_heap_location ON heap_samples(location_id);
	`)
	return err
}

// loadLocationCache preloads (file, line, function) -> id, used both on a
// fresh store (empty) and in --append mode (populated from the existing
// file).
func loadLocationCache(db *sql.DB) (map[locationKey]int64, error) {
	rows, err := db.Query(`SELECT id, file, line, function FROM locations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cache := make(map[locationKey]int64)
	for rows.Next() {
		var id int64
		var key locationKey
		if err := rows.Scan(&id, &key.file, &key.line, &key.function); err != nil {
			return nil, err
		}
		cache[key] = id
	}
	return cache, rows.Err()
}

func lastCheckpointTimestamp(db *sql.DB) (int64, bool, error) {
	var ts int64
	err := db.QueryRow(`SELECT timestamp_ms FROM checkpoints ORDER BY timestamp_ms DESC LIMIT 1`).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return ts, true, nil
}
