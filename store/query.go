// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"database/sql"
	"fmt"
)

// LocationRow pairs a location with its assigned id, for callers that need
// to look up a specific location (e.g. for a time-series query) without
// going through a Top-N ranking.
type LocationRow struct {
	ID       int64
	Location Location
}

// Locations lists every location the recording has ever observed, ordered
// by id (i.e. roughly by first-observed order).
func (s *Store) Locations() ([]LocationRow, error) {
	rows, err := s.db.Query(`SELECT id, file, line, function FROM locations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var out []LocationRow
	for rows.Next() {
		var r LocationRow
		if err := rows.Scan(&r.ID, &r.Location.File, &r.Location.Line, &r.Location.Function); err != nil {
			return nil, fmt.Errorf("scanning location row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopRow is one row of a Top-N query result.
type TopRow struct {
	LocationID int64
	Location   Location
	Value      uint64
	Percent    float64
}

// TopCPUCumulative ranks locations by total samples across the whole
// recording.
func (s *Store) TopCPUCumulative(n int) ([]TopRow, error) {
	rows, err := s.db.Query(`
		SELECT l.id, l.file, l.line, l.function, SUM(c.count) AS total
		FROM cpu_samples c JOIN locations l ON l.id = c.location_id
		GROUP BY l.id
		ORDER BY total DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying cumulative cpu top-n: %w", err)
	}
	defer rows.Close()

	var total uint64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(count), 0) FROM cpu_samples`).Scan(&total); err != nil {
		return nil, fmt.Errorf("querying cumulative cpu total: %w", err)
	}

	return scanTopRows(rows, total)
}

// TopCPUInstant ranks locations by samples at the latest checkpoint only.
func (s *Store) TopCPUInstant(n int) ([]TopRow, error) {
	latest, ok, err := s.latestCheckpointID()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT l.id, l.file, l.line, l.function, c.count
		FROM cpu_samples c JOIN locations l ON l.id = c.location_id
		WHERE c.checkpoint_id = ?
		ORDER BY c.count DESC
		LIMIT ?`, latest, n)
	if err != nil {
		return nil, fmt.Errorf("querying instant cpu top-n: %w", err)
	}
	defer rows.Close()

	var total uint64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(count), 0) FROM cpu_samples WHERE checkpoint_id = ?`, latest).Scan(&total); err != nil {
		return nil, fmt.Errorf("querying instant cpu total: %w", err)
	}

	return scanTopRows(rows, total)
}

// TopHeap ranks locations by current live_bytes at the latest checkpoint,
// tie-broken by cumulative alloc_bytes.
func (s *Store) TopHeap(n int) ([]TopRow, error) {
	latest, ok, err := s.latestCheckpointID()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT l.id, l.file, l.line, l.function, h.live_bytes,
		       (SELECT COALESCE(SUM(alloc_bytes), 0) FROM heap_samples h2 WHERE h2.location_id = l.id) AS cumulative_alloc
		FROM heap_samples h JOIN locations l ON l.id = h.location_id
		WHERE h.checkpoint_id = ?
		ORDER BY h.live_bytes DESC, cumulative_alloc DESC
		LIMIT ?`, latest, n)
	if err != nil {
		return nil, fmt.Errorf("querying heap top-n: %w", err)
	}
	defer rows.Close()

	var out []TopRow
	for rows.Next() {
		var r TopRow
		var ignoredTiebreak uint64
		if err := rows.Scan(&r.LocationID, &r.Location.File, &r.Location.Line, &r.Location.Function, &r.Value, &ignoredTiebreak); err != nil {
			return nil, fmt.Errorf("scanning heap top-n row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanTopRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}, total uint64) ([]TopRow, error) {
	var out []TopRow
	for rows.Next() {
		var r TopRow
		if err := rows.Scan(&r.LocationID, &r.Location.File, &r.Location.Line, &r.Location.Function, &r.Value); err != nil {
			return nil, fmt.Errorf("scanning top-n row: %w", err)
		}
		if total > 0 {
			r.Percent = 100 * float64(r.Value) / float64(total)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TimeRange reports the earliest and latest checkpoint timestamps
// recorded, for callers (like a time-series view) that need to pick a
// default window relative to the whole recording rather than wall time.
func (s *Store) TimeRange() (minMs, maxMs int64, ok bool, err error) {
	row := s.db.QueryRow(`SELECT MIN(timestamp_ms), MAX(timestamp_ms) FROM checkpoints`)
	var minN, maxN sql.NullInt64
	if err := row.Scan(&minN, &maxN); err != nil {
		return 0, 0, false, fmt.Errorf("querying checkpoint time range: %w", err)
	}
	if !minN.Valid {
		return 0, 0, false, nil
	}
	return minN.Int64, maxN.Int64, true, nil
}

func (s *Store) latestCheckpointID() (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM checkpoints ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("querying latest checkpoint: %w", err)
	}
	return id, true, nil
}

// SeriesPoint is one bucket of a time-series query.
type SeriesPoint struct {
	BucketStartMs int64
	Value         float64
}

// CPUTimeSeries buckets this location's per-checkpoint percentage of total
// samples into n equal-width buckets over [startMs, endMs), taking the MAX
// value seen in each bucket so zoomed-out views preserve spikes.
func (s *Store) CPUTimeSeries(locationID int64, startMs, endMs int64, buckets int) ([]SeriesPoint, error) {
	if buckets <= 0 || endMs <= startMs {
		return nil, fmt.Errorf("invalid bucket request: buckets=%d range=[%d,%d)", buckets, startMs, endMs)
	}

	rows, err := s.db.Query(`
		SELECT cp.timestamp_ms, c.count,
		       (SELECT COALESCE(SUM(count), 0) FROM cpu_samples WHERE checkpoint_id = cp.id) AS checkpoint_total
		FROM cpu_samples c JOIN checkpoints cp ON cp.id = c.checkpoint_id
		WHERE c.location_id = ? AND cp.timestamp_ms >= ? AND cp.timestamp_ms < ?`,
		locationID, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("querying cpu time series: %w", err)
	}
	defer rows.Close()

	span := endMs - startMs
	maxima := make([]float64, buckets)
	seen := make([]bool, buckets)
	for rows.Next() {
		var ts int64
		var count, checkpointTotal uint64
		if err := rows.Scan(&ts, &count, &checkpointTotal); err != nil {
			return nil, fmt.Errorf("scanning cpu time series row: %w", err)
		}
		bucket := int((ts - startMs) * int64(buckets) / span)
		if bucket >= buckets {
			bucket = buckets - 1
		}
		pct := 0.0
		if checkpointTotal > 0 {
			pct = 100 * float64(count) / float64(checkpointTotal)
		}
		if !seen[bucket] || pct > maxima[bucket] {
			maxima[bucket] = pct
			seen[bucket] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]SeriesPoint, buckets)
	for i := range out {
		out[i] = SeriesPoint{BucketStartMs: startMs + int64(i)*span/int64(buckets), Value: maxima[i]}
	}
	return out, nil
}

// HeapTimeSeries is CPUTimeSeries's heap analog, bucketing live_bytes with
// a MAX aggregator.
func (s *Store) HeapTimeSeries(locationID int64, startMs, endMs int64, buckets int) ([]SeriesPoint, error) {
	if buckets <= 0 || endMs <= startMs {
		return nil, fmt.Errorf("invalid bucket request: buckets=%d range=[%d,%d)", buckets, startMs, endMs)
	}

	rows, err := s.db.Query(`
		SELECT cp.timestamp_ms, h.live_bytes
		FROM heap_samples h JOIN checkpoints cp ON cp.id = h.checkpoint_id
		WHERE h.location_id = ? AND cp.timestamp_ms >= ? AND cp.timestamp_ms < ?`,
		locationID, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("querying heap time series: %w", err)
	}
	defer rows.Close()

	span := endMs - startMs
	maxima := make([]float64, buckets)
	seen := make([]bool, buckets)
	for rows.Next() {
		var ts int64
		var liveBytes uint64
		if err := rows.Scan(&ts, &liveBytes); err != nil {
			return nil, fmt.Errorf("scanning heap time series row: %w", err)
		}
		bucket := int((ts - startMs) * int64(buckets) / span)
		if bucket >= buckets {
			bucket = buckets - 1
		}
		v := float64(liveBytes)
		if !seen[bucket] || v > maxima[bucket] {
			maxima[bucket] = v
			seen[bucket] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]SeriesPoint, buckets)
	for i := range out {
		out[i] = SeriesPoint{BucketStartMs: startMs + int64(i)*span/int64(buckets), Value: maxima[i]}
	}
	return out, nil
}

// Sparkline is one location's recent checkpoint values, zero-filled so all
// requested locations produce identically-lengthed series.
type Sparkline struct {
	LocationID int64
	Values     []float64
}

// Sparklines returns the last n checkpoints' heap live_bytes for each of
// locationIDs, zero-filling any checkpoint at which a location had no row.
func (s *Store) Sparklines(locationIDs []int64, n int) ([]Sparkline, error) {
	checkpointRows, err := s.db.Query(`SELECT id FROM checkpoints ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent checkpoints: %w", err)
	}
	var ids []int64
	for checkpointRows.Next() {
		var id int64
		if err := checkpointRows.Scan(&id); err != nil {
			checkpointRows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	checkpointRows.Close()
	if err := checkpointRows.Err(); err != nil {
		return nil, err
	}
	// ids came back newest-first; reverse to chronological order.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	indexOf := make(map[int64]int, len(ids))
	for i, id := range ids {
		indexOf[id] = i
	}

	out := make([]Sparkline, len(locationIDs))
	for i, locID := range locationIDs {
		out[i] = Sparkline{LocationID: locID, Values: make([]float64, len(ids))}
	}
	indexOfLoc := make(map[int64]int, len(locationIDs))
	for i, id := range locationIDs {
		indexOfLoc[id] = i
	}

	if len(ids) == 0 || len(locationIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT checkpoint_id, location_id, live_bytes FROM heap_samples
		 WHERE checkpoint_id IN (%s) AND location_id IN (%s)`,
		placeholderInts(ids), placeholderInts(locationIDs)))
	if err != nil {
		return nil, fmt.Errorf("querying sparkline samples: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cpID, locID int64
		var liveBytes uint64
		if err := rows.Scan(&cpID, &locID, &liveBytes); err != nil {
			return nil, fmt.Errorf("scanning sparkline row: %w", err)
		}
		ci, ok1 := indexOf[cpID]
		li, ok2 := indexOfLoc[locID]
		if ok1 && ok2 {
			out[li].Values[ci] = float64(liveBytes)
		}
	}
	return out, rows.Err()
}

func placeholderInts(ids []int64) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d", id)
	}
	if s == "" {
		return "-1"
	}
	return s
}
