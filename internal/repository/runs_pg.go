package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtext/labguard/constants"
	"github.com/medtext/labguard/internal/entity"
)

// PGRunStore is the Postgres-backed run store used by the daemon.
type PGRunStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPGRunStore(pool *pgxpool.Pool, logger *slog.Logger) *PGRunStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGRunStore{pool: pool, logger: logger}
}

const pgRunColumns = `id, input_type, input_data, status, reason, confidence, test_count, output_json, created_at, started_at, finished_at, elapsed_ms`

func (s *PGRunStore) Create(ctx context.Context, run *entity.ProcessingRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = string(constants.RunStatusQueued)
	}
	run.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processing_run (id, input_type, input_data, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.InputType, run.InputData, run.Status, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *PGRunStore) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.RunStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE processing_run SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

func (s *PGRunStore) FinishSuccess(ctx context.Context, id uuid.UUID, confidence float32, testCount int, outputJSON []byte) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`UPDATE processing_run
		    SET status = $2, confidence = $3, test_count = $4, output_json = $5,
		        finished_at = $6,
		        elapsed_ms = (EXTRACT(EPOCH FROM ($6 - COALESCE(started_at, created_at))) * 1000)::bigint
		  WHERE id = $1`,
		id, string(constants.RunStatusCompleted), confidence, testCount, outputJSON, now,
	)
	if err != nil {
		return fmt.Errorf("finish run success: %w", err)
	}
	return nil
}

func (s *PGRunStore) FinishFailure(ctx context.Context, id uuid.UUID, reason string, outputJSON []byte) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`UPDATE processing_run
		    SET status = $2, reason = $3, output_json = $4,
		        finished_at = $5,
		        elapsed_ms = (EXTRACT(EPOCH FROM ($5 - COALESCE(started_at, created_at))) * 1000)::bigint
		  WHERE id = $1`,
		id, string(constants.RunStatusFailed), reason, outputJSON, now,
	)
	if err != nil {
		return fmt.Errorf("finish run failure: %w", err)
	}
	return nil
}

func (s *PGRunStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.ProcessingRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM processing_run WHERE id = $1`, id)
	return scanRun(row)
}

// ClaimNextQueued uses SKIP LOCKED so several daemon workers can poll the
// same table without claiming the same run twice.
func (s *PGRunStore) ClaimNextQueued(ctx context.Context) (*entity.ProcessingRun, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE processing_run
		    SET status = $1, started_at = now()
		  WHERE id = (
		        SELECT id FROM processing_run
		         WHERE status = $2
		         ORDER BY created_at
		         LIMIT 1
		           FOR UPDATE SKIP LOCKED)
		  RETURNING `+pgRunColumns,
		string(constants.RunStatusRunning), string(constants.RunStatusQueued),
	)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*entity.ProcessingRun, error) {
	var r entity.ProcessingRun
	err := row.Scan(
		&r.ID, &r.InputType, &r.InputData, &r.Status, &r.Reason,
		&r.Confidence, &r.TestCount, &r.OutputJSON,
		&r.CreatedAt, &r.StartedAt, &r.FinishedAt, &r.ElapsedMS,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &r, nil
}
