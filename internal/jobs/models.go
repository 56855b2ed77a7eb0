package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a generation job.
type Status string

const (
	StatusQueued            Status = "queued"
	StatusAnalyzing         Status = "analyzing"
	StatusAnalyzed          Status = "analyzed"
	StatusPrepayGenerating  Status = "prepay_generating"
	StatusPrepayReady       Status = "prepay_ready"
	StatusPostpayGenerating Status = "postpay_generating"
	StatusCompleted         Status = "completed"
	StatusGenerationFailed  Status = "generation_failed"
	StatusAnalysisFailed    Status = "analysis_failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusAnalyzing,
	StatusAnalyzed,
	StatusPrepayGenerating,
	StatusPrepayReady,
	StatusPostpayGenerating,
	StatusCompleted,
	StatusGenerationFailed,
	StatusAnalysisFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusAnalyzing:         {},
	StatusPrepayGenerating:  {},
	StatusPostpayGenerating: {},
}

// validTransitions is the closed status machine. A job may only move along
// these edges; everything else is an ErrInvalidTransition. Every status a
// generation run can start from keeps an edge to generation_failed, since a
// run may fail before it reaches the generating status.
var validTransitions = map[Status][]Status{
	StatusQueued:            {StatusAnalyzing, StatusPrepayGenerating, StatusPostpayGenerating, StatusGenerationFailed},
	StatusAnalyzing:         {StatusAnalyzed, StatusAnalysisFailed},
	StatusAnalyzed:          {StatusPrepayGenerating, StatusPostpayGenerating, StatusGenerationFailed},
	StatusPrepayGenerating:  {StatusPrepayReady, StatusGenerationFailed},
	StatusPrepayReady:       {StatusPrepayGenerating, StatusPostpayGenerating, StatusGenerationFailed},
	StatusPostpayGenerating: {StatusCompleted, StatusGenerationFailed},
	StatusGenerationFailed:  {StatusPrepayGenerating, StatusPostpayGenerating},
	StatusAnalysisFailed:    {StatusAnalyzing},
	StatusCompleted:         {StatusPostpayGenerating, StatusGenerationFailed},
}

// CanTransition reports whether the status machine permits from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status ends the happy path for its stage.
func IsTerminal(status Status) bool {
	switch status {
	case StatusPrepayReady, StatusCompleted, StatusGenerationFailed, StatusAnalysisFailed:
		return true
	}
	return false
}

// Job is a book generation job persisted in SQLite.
type Job struct {
	ID            string
	Slug          string
	ChildName     string
	ChildAge      int
	ChildGender   string
	ChildPhotoKey string
	Status        Status
	CommonPrompt  string
	AnalysisJSON  string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsProcessing returns true when the job's status reflects in-flight work.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// Artifact kinds recorded by the pipeline.
const (
	ArtifactPageBackground = "page_bg_png"
	ArtifactPageFinal      = "page_png"
)

// Artifact is one produced output of a stage run. Rows are never updated in
// place; the latest row per (stage, kind, page) wins.
type Artifact struct {
	ID        int64
	JobID     string
	Stage     string
	Kind      string
	PageNum   int
	Locator   string
	MetaJSON  string
	CreatedAt time.Time
}
