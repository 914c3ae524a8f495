package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CascadeJob journals a multi-phase delete so an interrupted run can be
// resumed from the phase it stopped in.
type CascadeJob struct {
	ID          string
	Kind        string
	TargetID    string
	GroupID     string
	RequestedBy string
	Phase       string
	Status      string
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CascadeRepository interface {
	// CreateOrGetPending inserts job as pending. When a pending job for the
	// same kind and target already exists, job is overwritten with it.
	CreateOrGetPending(ctx context.Context, job *CascadeJob) error
	SetPhase(ctx context.Context, id, phase string) error
	RecordFailure(ctx context.Context, id, phase, message string) error
	MarkDone(ctx context.Context, id string) error
	// ListPending returns up to limit pending jobs, oldest first.
	ListPending(ctx context.Context, limit int) ([]*CascadeJob, error)
}

type pgCascadeRepository struct {
	pool *pgxpool.Pool
}

func NewCascadeRepository(pool *pgxpool.Pool) CascadeRepository {
	return &pgCascadeRepository{pool: pool}
}

const cascadeColumns = `id, kind, target_id, group_id, requested_by, phase, status, attempts, last_error, created_at, updated_at`

func scanCascadeJob(row pgx.Row, job *CascadeJob) error {
	return row.Scan(&job.ID, &job.Kind, &job.TargetID, &job.GroupID, &job.RequestedBy, &job.Phase,
		&job.Status, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt)
}

func (r *pgCascadeRepository) CreateOrGetPending(ctx context.Context, job *CascadeJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	err := scanCascadeJob(r.pool.QueryRow(ctx, `
		INSERT INTO cascade_jobs (id, kind, target_id, group_id, requested_by, phase, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		ON CONFLICT (kind, target_id) WHERE status = 'pending' DO NOTHING
		RETURNING `+cascadeColumns,
		job.ID, job.Kind, job.TargetID, job.GroupID, job.RequestedBy, job.Phase,
	), job)
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	return scanCascadeJob(r.pool.QueryRow(ctx, `
		SELECT `+cascadeColumns+`
		FROM cascade_jobs
		WHERE kind = $1 AND target_id = $2 AND status = 'pending'
	`, job.Kind, job.TargetID), job)
}

func (r *pgCascadeRepository) SetPhase(ctx context.Context, id, phase string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE cascade_jobs SET phase = $2, updated_at = NOW() WHERE id = $1`, id, phase)
	return err
}

func (r *pgCascadeRepository) RecordFailure(ctx context.Context, id, phase, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE cascade_jobs
		SET phase = $2, attempts = attempts + 1, last_error = $3, updated_at = NOW()
		WHERE id = $1
	`, id, phase, message)
	return err
}

func (r *pgCascadeRepository) MarkDone(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE cascade_jobs SET status = 'done', last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *pgCascadeRepository) ListPending(ctx context.Context, limit int) ([]*CascadeJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+cascadeColumns+`
		FROM cascade_jobs
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*CascadeJob
	for rows.Next() {
		job := &CascadeJob{}
		if err := scanCascadeJob(rows, job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
