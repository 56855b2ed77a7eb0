package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AddArtifact appends an artifact row. Existing rows are never modified.
func (s *Store) AddArtifact(ctx context.Context, artifact *Artifact) error {
	if artifact == nil {
		return errors.New("artifact is nil")
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (job_id, stage, kind, page_num, locator, meta_json, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		artifact.JobID,
		artifact.Stage,
		artifact.Kind,
		artifact.PageNum,
		artifact.Locator,
		nullableString(artifact.MetaJSON),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	artifact.ID = id
	artifact.CreatedAt = now
	return nil
}

// ArtifactsByStage returns all artifacts of a kind for a job stage in insert
// order, including superseded rows from earlier runs.
func (s *Store) ArtifactsByStage(ctx context.Context, jobID, stage, kind string) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+artifactColumns+` FROM artifacts
         WHERE job_id = ? AND stage = ? AND kind = ?
         ORDER BY id`,
		jobID, stage, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, artifact)
	}
	return out, rows.Err()
}

// LatestArtifacts returns the most recent artifact per page for a job stage
// and kind, keyed by page number.
func (s *Store) LatestArtifacts(ctx context.Context, jobID, stage, kind string) (map[int]*Artifact, error) {
	all, err := s.ArtifactsByStage(ctx, jobID, stage, kind)
	if err != nil {
		return nil, err
	}
	latest := make(map[int]*Artifact, len(all))
	for _, artifact := range all {
		latest[artifact.PageNum] = artifact
	}
	return latest, nil
}
