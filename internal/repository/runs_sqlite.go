package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/medtext/labguard/constants"
	"github.com/medtext/labguard/internal/entity"
)

// SQLiteRunStore keeps run records in a local file so the batch CLI works
// without a database server. Single-process use only.
type SQLiteRunStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS processing_run (
	id          TEXT PRIMARY KEY,
	input_type  TEXT NOT NULL,
	input_data  TEXT NOT NULL,
	status      TEXT NOT NULL,
	reason      TEXT,
	confidence  REAL,
	test_count  INTEGER,
	output_json BLOB,
	created_at  TIMESTAMP NOT NULL,
	started_at  TIMESTAMP,
	finished_at TIMESTAMP,
	elapsed_ms  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_processing_run_status ON processing_run(status);
`

// OpenSQLiteRunStore opens (and if needed initializes) the store at path.
// Use ":memory:" for tests.
func OpenSQLiteRunStore(path string, logger *slog.Logger) (*SQLiteRunStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	// _time_format=sqlite makes the driver store time.Time in a format
	// the driver can also scan back; without it timestamps do not
	// round-trip.
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_time_format=sqlite"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	logger.Info("sqlite run store ready", "path", path)
	return &SQLiteRunStore{db: db, logger: logger}, nil
}

func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteRunStore) Create(ctx context.Context, run *entity.ProcessingRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = string(constants.RunStatusQueued)
	}
	run.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processing_run (id, input_type, input_data, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID.String(), run.InputType, run.InputData, run.Status, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE processing_run SET status = ? WHERE id = ?`,
		string(status), id.String(),
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) FinishSuccess(ctx context.Context, id uuid.UUID, confidence float32, testCount int, outputJSON []byte) error {
	return s.finish(ctx, id, string(constants.RunStatusCompleted), nil, &confidence, &testCount, outputJSON)
}

func (s *SQLiteRunStore) FinishFailure(ctx context.Context, id uuid.UUID, reason string, outputJSON []byte) error {
	return s.finish(ctx, id, string(constants.RunStatusFailed), &reason, nil, nil, outputJSON)
}

func (s *SQLiteRunStore) finish(ctx context.Context, id uuid.UUID, status string, reason *string, confidence *float32, testCount *int, outputJSON []byte) error {
	now := time.Now().UTC()

	// elapsed is computed Go-side. The columns are read directly and
	// coalesced here: the driver types values by column declaration, so
	// an SQL expression like COALESCE comes back as a bare string.
	var started, created sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, created_at FROM processing_run WHERE id = ?`,
		id.String(),
	).Scan(&started, &created)
	if err != nil {
		return fmt.Errorf("load run start time: %w", err)
	}
	base := created
	if started.Valid {
		base = started
	}
	var elapsedMS int64
	if base.Valid {
		elapsedMS = now.Sub(base.Time).Milliseconds()
		if elapsedMS < 0 {
			elapsedMS = 0
		}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE processing_run
		    SET status = ?, reason = ?, confidence = ?, test_count = ?, output_json = ?, finished_at = ?, elapsed_ms = ?
		  WHERE id = ?`,
		status, reason, confidence, testCount, outputJSON, now, elapsedMS, id.String(),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.ProcessingRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input_type, input_data, status, reason, confidence, test_count, output_json,
		        created_at, started_at, finished_at, elapsed_ms
		   FROM processing_run WHERE id = ?`, id.String())

	var r entity.ProcessingRun
	var idStr string
	err := row.Scan(
		&idStr, &r.InputType, &r.InputData, &r.Status, &r.Reason,
		&r.Confidence, &r.TestCount, &r.OutputJSON,
		&r.CreatedAt, &r.StartedAt, &r.FinishedAt, &r.ElapsedMS,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	r.ID = parsed
	return &r, nil
}
