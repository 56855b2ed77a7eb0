package jobs

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, slug, child_name, child_age, child_gender, child_photo_key, status, common_prompt, analysis_json, error_message, created_at, updated_at"

const artifactColumns = "id, job_id, stage, kind, page_num, locator, meta_json, created_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		slug         string
		childName    string
		childAge     sql.NullInt64
		childGender  sql.NullString
		photoKey     sql.NullString
		statusStr    string
		commonPrompt sql.NullString
		analysisJSON sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&slug,
		&childName,
		&childAge,
		&childGender,
		&photoKey,
		&statusStr,
		&commonPrompt,
		&analysisJSON,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            id,
		Slug:          slug,
		ChildName:     childName,
		ChildAge:      int(childAge.Int64),
		ChildGender:   childGender.String,
		ChildPhotoKey: photoKey.String,
		Status:        Status(statusStr),
		CommonPrompt:  commonPrompt.String,
		AnalysisJSON:  analysisJSON.String,
		ErrorMessage:  errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		id         int64
		jobID      string
		stage      string
		kind       string
		pageNum    int
		locator    string
		metaJSON   sql.NullString
		createdRaw sql.NullString
	)

	if err := scanner.Scan(&id, &jobID, &stage, &kind, &pageNum, &locator, &metaJSON, &createdRaw); err != nil {
		return nil, err
	}

	artifact := &Artifact{
		ID:       id,
		JobID:    jobID,
		Stage:    stage,
		Kind:     kind,
		PageNum:  pageNum,
		Locator:  locator,
		MetaJSON: metaJSON.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		artifact.CreatedAt = created
	}
	return artifact, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
