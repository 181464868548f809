// Package sqlite implements the append-only crossing store on SQLite.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
	"github.com/causewaylabs/crossingd/pkg/logger"

	_ "modernc.org/sqlite"
)

// Store persists crossing records and traffic snapshots. All writes are
// append-only inserts serialized by a mutex (SQLite allows a single writer);
// reads run concurrently with writes.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
	logger  *logger.Logger
}

// Open opens (creating if needed) the store at the given path.
func Open(path string, log *logger.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: log.Named("sqlite-store"),
	}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// initDB creates the tables and indexes
func (s *Store) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS crossings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TIMESTAMP NOT NULL,
			checkpoint TEXT NOT NULL,
			direction TEXT NOT NULL,
			origin TEXT NOT NULL,
			destination TEXT NOT NULL,
			mode TEXT NOT NULL,
			travel_time_minutes REAL NOT NULL,
			wait_time_minutes REAL,
			total_time_minutes REAL NOT NULL,
			temperature_c REAL,
			rain_mm REAL,
			is_holiday BOOLEAN NOT NULL DEFAULT 0,
			day_of_week INTEGER NOT NULL,
			hour_of_day INTEGER NOT NULL,
			congestion_level TEXT,
			prediction_id TEXT,
			predicted_time_minutes REAL,
			prediction_error_minutes REAL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create crossings table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS traffic_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TIMESTAMP NOT NULL,
			checkpoint TEXT NOT NULL,
			direction TEXT NOT NULL,
			traffic_duration_minutes REAL NOT NULL,
			wait_time_minutes REAL,
			congestion_multiplier REAL NOT NULL,
			source TEXT NOT NULL,
			raw_data TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create traffic_snapshots table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_crossings_timestamp ON crossings(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_crossings_checkpoint_ts ON crossings(checkpoint, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_crossings_bucket ON crossings(checkpoint, direction, hour_of_day)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON traffic_snapshots(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_checkpoint_ts ON traffic_snapshots(checkpoint, timestamp)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// AppendCrossing inserts a crossing record and returns its assigned ID.
func (s *Store) AppendCrossing(record *CrossingRecord) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.Exec(
		`INSERT INTO crossings
		(timestamp, checkpoint, direction, origin, destination, mode,
		travel_time_minutes, wait_time_minutes, total_time_minutes,
		temperature_c, rain_mm, is_holiday, day_of_week, hour_of_day,
		congestion_level, prediction_id, predicted_time_minutes,
		prediction_error_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.UTC().Format(time.RFC3339),
		string(record.Checkpoint),
		string(record.Direction),
		record.Origin,
		record.Destination,
		string(record.Mode),
		record.TravelTimeMinutes,
		record.WaitTimeMinutes,
		record.TotalTimeMinutes,
		record.TemperatureC,
		record.RainMM,
		record.IsHoliday,
		record.DayOfWeek,
		record.HourOfDay,
		nullIfEmpty(record.CongestionLevel),
		nullIfEmpty(record.PredictionID),
		record.PredictedTimeMinutes,
		record.PredictionErrorMinutes,
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crossing: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// AppendSnapshot inserts a traffic snapshot and returns its assigned ID.
func (s *Store) AppendSnapshot(snapshot *TrafficSnapshot) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.Exec(
		`INSERT INTO traffic_snapshots
		(timestamp, checkpoint, direction, traffic_duration_minutes,
		wait_time_minutes, congestion_multiplier, source, raw_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.Timestamp.UTC().Format(time.RFC3339),
		string(snapshot.Checkpoint),
		string(snapshot.Direction),
		snapshot.TrafficDurationMinutes,
		snapshot.WaitTimeMinutes,
		snapshot.CongestionMultiplier,
		snapshot.Source,
		nullIfEmpty(snapshot.RawData),
		snapshot.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert traffic snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// QueryCrossings returns crossings matching the filters, newest first.
func (s *Store) QueryCrossings(filters CrossingFilters) ([]*CrossingRecord, error) {
	query := `SELECT id, timestamp, checkpoint, direction, origin, destination, mode,
		travel_time_minutes, wait_time_minutes, total_time_minutes,
		temperature_c, rain_mm, is_holiday, day_of_week, hour_of_day,
		congestion_level, prediction_id, predicted_time_minutes,
		prediction_error_minutes, created_at
		FROM crossings WHERE 1=1`
	var args []interface{}

	if filters.SinceHours > 0 {
		ref := filters.Reference
		if ref.IsZero() {
			ref = time.Now()
		}
		cutoff := ref.UTC().Add(-time.Duration(filters.SinceHours) * time.Hour)
		query += " AND timestamp >= ?"
		args = append(args, cutoff.Format(time.RFC3339))
	}
	if filters.Checkpoint != "" {
		query += " AND checkpoint = ?"
		args = append(args, string(filters.Checkpoint))
	}
	if filters.Direction != "" {
		query += " AND direction = ?"
		args = append(args, string(filters.Direction))
	}

	query += " ORDER BY timestamp DESC"
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crossings: %w", err)
	}
	defer rows.Close()

	return scanCrossingRows(rows)
}

// QueryRecentSnapshots returns snapshots for a checkpoint within the last
// sinceHours hours, newest first.
func (s *Store) QueryRecentSnapshots(checkpoint border.Checkpoint, sinceHours int) ([]*TrafficSnapshot, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(sinceHours) * time.Hour)

	rows, err := s.db.Query(
		`SELECT id, timestamp, checkpoint, direction, traffic_duration_minutes,
		wait_time_minutes, congestion_multiplier, source, raw_data, created_at
		FROM traffic_snapshots
		WHERE checkpoint = ? AND timestamp >= ?
		ORDER BY timestamp DESC`,
		string(checkpoint), cutoff.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query traffic snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*TrafficSnapshot
	for rows.Next() {
		var snap TrafficSnapshot
		var checkpoint, direction, timestamp, createdAt string
		var rawData sql.NullString

		if err := rows.Scan(
			&snap.ID,
			&timestamp,
			&checkpoint,
			&direction,
			&snap.TrafficDurationMinutes,
			&snap.WaitTimeMinutes,
			&snap.CongestionMultiplier,
			&snap.Source,
			&rawData,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan traffic snapshot: %w", err)
		}

		snap.Checkpoint = border.Checkpoint(checkpoint)
		snap.Direction = border.Direction(direction)
		snap.RawData = rawData.String
		if snap.Timestamp, err = time.Parse(time.RFC3339, timestamp); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		if snap.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		snapshots = append(snapshots, &snap)
	}
	return snapshots, rows.Err()
}

// BucketStats aggregates total crossing time over records matching one
// checkpoint/direction/hour/day-type bucket. Day type is derived from the
// stored Monday=0 day_of_week (5 and 6 are weekend days).
func (s *Store) BucketStats(checkpoint border.Checkpoint, direction border.Direction, hour int, isWeekend bool) (BucketStats, error) {
	dayFilter := "day_of_week < 5"
	if isWeekend {
		dayFilter = "day_of_week >= 5"
	}

	row := s.db.QueryRow(
		`SELECT COALESCE(AVG(total_time_minutes), 0), COUNT(*)
		FROM crossings
		WHERE checkpoint = ? AND direction = ? AND hour_of_day = ? AND `+dayFilter,
		string(checkpoint), string(direction), hour,
	)

	var stats BucketStats
	if err := row.Scan(&stats.MeanTotalMinutes, &stats.Count); err != nil {
		return BucketStats{}, fmt.Errorf("failed to aggregate crossing bucket: %w", err)
	}
	return stats, nil
}

// Stats returns aggregate counts and the crossing time bounds.
func (s *Store) Stats() (*Stats, error) {
	var stats Stats

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM crossings`).Scan(&stats.TotalCrossings); err != nil {
		return nil, fmt.Errorf("failed to count crossings: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM traffic_snapshots`).Scan(&stats.TotalSnapshots); err != nil {
		return nil, fmt.Errorf("failed to count traffic snapshots: %w", err)
	}

	var earliest, latest sql.NullString
	if err := s.db.QueryRow(`SELECT MIN(timestamp), MAX(timestamp) FROM crossings`).Scan(&earliest, &latest); err != nil {
		return nil, fmt.Errorf("failed to query crossing time bounds: %w", err)
	}
	if earliest.Valid {
		t, err := time.Parse(time.RFC3339, earliest.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse earliest timestamp: %w", err)
		}
		stats.EarliestCrossing = &t
	}
	if latest.Valid {
		t, err := time.Parse(time.RFC3339, latest.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse latest timestamp: %w", err)
		}
		stats.LatestCrossing = &t
	}

	return &stats, nil
}

// scanCrossingRows scans database rows into CrossingRecord structs
func scanCrossingRows(rows *sql.Rows) ([]*CrossingRecord, error) {
	var records []*CrossingRecord
	for rows.Next() {
		var record CrossingRecord
		var checkpoint, direction, mode, timestamp, createdAt string
		var congestionLevel, predictionID sql.NullString

		if err := rows.Scan(
			&record.ID,
			&timestamp,
			&checkpoint,
			&direction,
			&record.Origin,
			&record.Destination,
			&mode,
			&record.TravelTimeMinutes,
			&record.WaitTimeMinutes,
			&record.TotalTimeMinutes,
			&record.TemperatureC,
			&record.RainMM,
			&record.IsHoliday,
			&record.DayOfWeek,
			&record.HourOfDay,
			&congestionLevel,
			&predictionID,
			&record.PredictedTimeMinutes,
			&record.PredictionErrorMinutes,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan crossing: %w", err)
		}

		record.Checkpoint = border.Checkpoint(checkpoint)
		record.Direction = border.Direction(direction)
		record.Mode = border.Mode(mode)
		record.CongestionLevel = congestionLevel.String
		record.PredictionID = predictionID.String

		var err error
		if record.Timestamp, err = time.Parse(time.RFC3339, timestamp); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		if record.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		records = append(records, &record)
	}
	return records, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
