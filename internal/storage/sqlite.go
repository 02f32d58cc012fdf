//go:build !mips64 && !mips64le && !ppc64 && !s390x

package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)
)

const schema = `
CREATE TABLE IF NOT EXISTS loads (
    id TEXT PRIMARY KEY,
    view_id TEXT NOT NULL,
    ts_start INTEGER NOT NULL,
    ts_end INTEGER,
    status TEXT NOT NULL DEFAULT 'in_flight',
    reason TEXT,
    subject TEXT,
    http_status INTEGER DEFAULT 0,
    record_count INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_loads_ts_start ON loads(ts_start);
CREATE INDEX IF NOT EXISTS idx_loads_status_ts ON loads(status, ts_start);
`

const loadColumns = `id, view_id, ts_start, ts_end, status, reason, subject,
	http_status, record_count, duration_ms, error`

// SQLiteStore implements Store using SQLite with WAL mode.
type SQLiteStore struct {
	db      *sql.DB
	maxRows int
	pruneMu sync.Mutex
	logger  *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// It enables WAL mode for better concurrent performance.
func NewSQLiteStore(path string, maxRows int, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal=WAL&_sync=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteStore{
		db:      db,
		maxRows: maxRows,
		logger:  logger,
	}, nil
}

// Insert creates a new load record.
func (s *SQLiteStore) Insert(l *Load) error {
	_, err := s.db.Exec(`INSERT INTO loads (`+loadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ViewID, l.TSStart, l.TSEnd, l.Status, l.Reason, l.Subject,
		l.HTTPStatus, l.RecordCount, l.DurationMs, l.Error,
	)
	if err != nil {
		return fmt.Errorf("insert load: %w", err)
	}

	// Trigger pruning check (best effort, non-blocking)
	go s.maybePrune()

	return nil
}

// Update modifies an existing load.
func (s *SQLiteStore) Update(id string, upd LoadUpdate) error {
	var sets []string
	var args []any

	if upd.TSEnd != nil {
		sets = append(sets, "ts_end = ?")
		args = append(args, *upd.TSEnd)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.Reason != nil {
		sets = append(sets, "reason = ?")
		args = append(args, string(*upd.Reason))
	}
	if upd.HTTPStatus != nil {
		sets = append(sets, "http_status = ?")
		args = append(args, *upd.HTTPStatus)
	}
	if upd.RecordCount != nil {
		sets = append(sets, "record_count = ?")
		args = append(args, *upd.RecordCount)
	}
	if upd.DurationMs != nil {
		sets = append(sets, "duration_ms = ?")
		args = append(args, *upd.DurationMs)
	}
	if upd.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, *upd.Error)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := "UPDATE loads SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("update load: %w", err)
	}
	return nil
}

// GetByID retrieves a single load.
func (s *SQLiteStore) GetByID(id string) (*Load, error) {
	row := s.db.QueryRow(`SELECT `+loadColumns+` FROM loads WHERE id = ?`, id)

	l, err := scanLoad(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get load: %w", err)
	}
	return l, nil
}

// List retrieves loads with filtering.
func (s *SQLiteStore) List(opts ListOptions) ([]Load, error) {
	query := `SELECT ` + loadColumns + ` FROM loads WHERE 1=1`
	var args []any

	if opts.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*opts.Status))
	}
	if opts.Reason != nil {
		query += " AND reason = ?"
		args = append(args, string(*opts.Reason))
	}
	if opts.Window > 0 {
		cutoff := time.Now().UnixMilli() - opts.Window.Milliseconds()
		query += " AND ts_start >= ?"
		args = append(args, cutoff)
	}

	query += " ORDER BY ts_start DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loads: %w", err)
	}
	defer rows.Close()

	var loads []Load
	for rows.Next() {
		l, err := scanLoad(rows)
		if err != nil {
			return nil, fmt.Errorf("scan load: %w", err)
		}
		loads = append(loads, *l)
	}
	return loads, rows.Err()
}

// Overview returns aggregate statistics.
func (s *SQLiteStore) Overview(window time.Duration) (*Overview, error) {
	cutoff := time.Now().UnixMilli() - window.Milliseconds()

	row := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' OR status = 'canceled' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN reason = 'unauthorized' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN status NOT IN ('in_flight', 'skipped') THEN duration_ms END), 0),
			COALESCE(SUM(record_count), 0)
		FROM loads
		WHERE ts_start >= ?
	`, cutoff)

	var o Overview
	var avgDur float64
	err := row.Scan(&o.TotalLoads, &o.SuccessCount, &o.ErrorCount, &o.SkippedCount,
		&o.Unauthorized, &avgDur, &o.TotalRecords)
	if err != nil {
		return nil, fmt.Errorf("overview query: %w", err)
	}

	o.AvgDurationMs = int(avgDur)
	if o.TotalLoads > 0 {
		o.SuccessRate = float64(o.SuccessCount) / float64(o.TotalLoads)
	}

	rows, err := s.db.Query(`
		SELECT duration_ms FROM loads
		WHERE ts_start >= ? AND status NOT IN ('in_flight', 'skipped')
		ORDER BY duration_ms DESC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("p95 query: %w", err)
	}
	defer rows.Close()

	var durations []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan duration: %w", err)
		}
		durations = append(durations, d)
	}
	o.P95DurationMs = p95(durations)

	return &o, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// maybePrune checks if pruning is needed and runs it.
func (s *SQLiteStore) maybePrune() {
	s.pruneMu.Lock()
	defer s.pruneMu.Unlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM loads`).Scan(&count); err != nil {
		s.logger.Error("prune count query failed", "err", err)
		return
	}

	if count <= s.maxRows {
		return
	}

	// Delete oldest rows in batches
	toDelete := count - s.maxRows
	const batchSize = 500
	if toDelete > batchSize {
		toDelete = batchSize
	}

	_, err := s.db.Exec(`
		DELETE FROM loads WHERE id IN (
			SELECT id FROM loads ORDER BY ts_start ASC LIMIT ?
		)
	`, toDelete)
	if err != nil {
		s.logger.Error("prune failed", "err", err)
	} else {
		s.logger.Debug("pruned old loads", "deleted", toDelete)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoad(row rowScanner) (*Load, error) {
	var l Load
	var tsEnd sql.NullInt64
	var reason, subject, errText sql.NullString

	err := row.Scan(
		&l.ID, &l.ViewID, &l.TSStart, &tsEnd, &l.Status, &reason, &subject,
		&l.HTTPStatus, &l.RecordCount, &l.DurationMs, &errText,
	)
	if err != nil {
		return nil, err
	}

	if tsEnd.Valid {
		l.TSEnd = &tsEnd.Int64
	}
	l.Reason = Reason(reason.String)
	l.Subject = subject.String
	l.Error = errText.String
	return &l, nil
}
