// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// locationKey is the normalized (file, line, function) triple, unique
// across the store's lifetime.
type locationKey struct {
	file     string
	line     int
	function string
}

type cpuAgg struct {
	count uint64
}

type heapAgg struct {
	allocBytes, freeBytes, liveBytes uint64
	allocCount, freeCount            uint64
}

// Store is the reader's handle on the checkpoint database. It is owned
// exclusively by the reader; no other writer exists.
type Store struct {
	db *sql.DB

	mu          sync.Mutex
	locationIDs map[locationKey]int64
	nextLocID   int64
	pendingCPU  map[locationKey]*cpuAgg
	pendingHeap map[locationKey]*heapAgg
}

// Open creates (or, with append=true, reopens) the store at path in WAL
// mode, so post-hoc readers can query committed checkpoints concurrently
// with the recording session's writes.
func Open(path string, appendMode bool) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening store %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // one writer; avoids SQLITE_BUSY churn under WAL.

	if !appendMode {
		if err := createTables(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
	}

	cache, err := loadLocationCache(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading location cache: %w", err)
	}
	var nextID int64 = 1
	for _, id := range cache {
		if id >= nextID {
			nextID = id + 1
		}
	}

	return &Store{
		db:          db,
		locationIDs: cache,
		nextLocID:   nextID,
		pendingCPU:  make(map[locationKey]*cpuAgg),
		pendingHeap: make(map[locationKey]*heapAgg),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetMeta records a metadata key (target pid/name, recording start,
// CPU frequency, schema version).
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// RecordCPUSample accumulates count additional CPU samples for loc into
// the in-memory pending map; it is merged into the store at the next
// FlushCheckpoint.
func (s *Store) RecordCPUSample(loc Location, count uint64) {
	if count == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := keyOf(loc)
	agg, ok := s.pendingCPU[key]
	if !ok {
		agg = &cpuAgg{}
		s.pendingCPU[key] = agg
	}
	agg.count += count
}

// RecordHeapSample accumulates heap counters for loc, summing across any
// SSR keys that resolve to the same location.
func (s *Store) RecordHeapSample(loc Location, allocBytes, freeBytes, liveBytes, allocCount, freeCount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := keyOf(loc)
	agg, ok := s.pendingHeap[key]
	if !ok {
		agg = &heapAgg{}
		s.pendingHeap[key] = agg
	}
	agg.allocBytes += allocBytes
	agg.freeBytes += freeBytes
	agg.liveBytes = liveBytes // live_bytes is a gauge, not a sum: last write wins.
	agg.allocCount += allocCount
	agg.freeCount += freeCount
}

// FlushCheckpoint atomically inserts a new checkpoint row and one row per
// pending location into cpu_samples and heap_samples, then drains the
// pending maps.
func (s *Store) FlushCheckpoint(timestampMs int64) (checkpointID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pendingCPU) == 0 && len(s.pendingHeap) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning checkpoint transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.Exec(`INSERT INTO checkpoints (timestamp_ms) VALUES (?)`, timestampMs)
	if err != nil {
		return 0, fmt.Errorf("inserting checkpoint: %w", err)
	}
	checkpointID, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading checkpoint id: %w", err)
	}

	for key, agg := range s.pendingCPU {
		locID, lerr := s.locationID(tx, key)
		if lerr != nil {
			err = lerr
			return 0, err
		}
		if _, err = tx.Exec(
			`INSERT INTO cpu_samples (checkpoint_id, location_id, count) VALUES (?, ?, ?)`,
			checkpointID, locID, agg.count,
		); err != nil {
			return 0, fmt.Errorf("inserting cpu sample: %w", err)
		}
	}

	for key, agg := range s.pendingHeap {
		locID, lerr := s.locationID(tx, key)
		if lerr != nil {
			err = lerr
			return 0, err
		}
		if _, err = tx.Exec(
			`INSERT INTO heap_samples (checkpoint_id, location_id, alloc_bytes, free_bytes, live_bytes, alloc_count, free_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			checkpointID, locID, agg.allocBytes, agg.freeBytes, agg.liveBytes, agg.allocCount, agg.freeCount,
		); err != nil {
			return 0, fmt.Errorf("inserting heap sample: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing checkpoint: %w", err)
	}

	s.pendingCPU = make(map[locationKey]*cpuAgg)
	s.pendingHeap = make(map[locationKey]*heapAgg)
	return checkpointID, nil
}

// locationID resolves or inserts the id for key, within tx, using and
// updating the in-memory cache so repeated locations across checkpoints
// never re-insert.
func (s *Store) locationID(tx *sql.Tx, key locationKey) (int64, error) {
	if id, ok := s.locationIDs[key]; ok {
		return id, nil
	}
	res, err := tx.Exec(
		`INSERT INTO locations (id, file, line, function) VALUES (?, ?, ?, ?)`,
		s.nextLocID, key.file, key.line, key.function,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting location: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.locationIDs[key] = id
	if id >= s.nextLocID {
		s.nextLocID = id + 1
	}
	return id, nil
}

func keyOf(l Location) locationKey {
	return locationKey{file: l.File, line: l.Line, function: l.Function}
}

// Location mirrors symbolize.Location without importing it, so store stays
// usable independent of how a location was produced (tests construct these
// directly).
type Location struct {
	File     string
	Line     int
	Function string
}
