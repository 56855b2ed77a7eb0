package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewJobParams captures the fields needed to enqueue a generation job.
type NewJobParams struct {
	Slug          string
	ChildName     string
	ChildAge      int
	ChildGender   string
	ChildPhotoKey string
	CommonPrompt  string
}

// NewJob inserts a queued job and returns the stored record.
func (s *Store) NewJob(ctx context.Context, params NewJobParams) (*Job, error) {
	if params.Slug == "" {
		return nil, errors.New("slug is required")
	}
	if params.ChildName == "" {
		return nil, errors.New("child name is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, slug, child_name, child_age, child_gender, child_photo_key,
            status, common_prompt, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		params.Slug,
		params.ChildName,
		params.ChildAge,
		nullableString(params.ChildGender),
		nullableString(params.ChildPhotoKey),
		StatusQueued,
		nullableString(params.CommonPrompt),
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job without touching its status.
// Use Transition for status changes.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET slug = ?, child_name = ?, child_age = ?, child_gender = ?,
             child_photo_key = ?, common_prompt = ?, analysis_json = ?,
             error_message = ?, updated_at = ?
         WHERE id = ?`,
		job.Slug,
		job.ChildName,
		job.ChildAge,
		nullableString(job.ChildGender),
		nullableString(job.ChildPhotoKey),
		nullableString(job.CommonPrompt),
		nullableString(job.AnalysisJSON),
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// Transition moves a job to a new status, enforcing the transition table.
// The compare-and-swap against the current status keeps concurrent workers
// from both claiming the same job.
func (s *Store) Transition(ctx context.Context, job *Job, to Status) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if !CanTransition(job.Status, to) {
		return invalidTransition(job.Status, to)
	}

	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		now.Format(time.RFC3339Nano),
		job.ID,
		job.Status,
	)
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, job.ID)
		if getErr != nil {
			return fmt.Errorf("transition lost race: %w", getErr)
		}
		return invalidTransition(current.Status, to)
	}

	job.Status = to
	job.UpdatedAt = now
	return nil
}

// MarkGenerationFailed records a failure message and moves the job to
// generation_failed. Safe to call when the job already failed: the message is
// kept from the first failure and the call is a no-op.
func (s *Store) MarkGenerationFailed(ctx context.Context, job *Job, message string) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.Status == StatusGenerationFailed {
		return nil
	}
	if err := s.Transition(ctx, job, StatusGenerationFailed); err != nil {
		return err
	}
	job.ErrorMessage = message
	return s.Update(ctx, job)
}

// List returns jobs filtered by status set, newest first. No statuses means
// all jobs.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}
