package pipeline

import (
	"context"
	"log/slog"
	"strconv"

	"storyloom/internal/blob"
	"storyloom/internal/config"
	"storyloom/internal/jobs"
	"storyloom/internal/logging"
	"storyloom/internal/render"
	"storyloom/internal/services/faceswap"
	"storyloom/internal/services/vision"
	"storyloom/internal/stages"
)

// FaceSwapper is the face-transformation service surface the pipeline needs.
type FaceSwapper interface {
	Submit(ctx context.Context, req faceswap.SubmitRequest) (string, error)
	Collect(ctx context.Context, token string) ([]byte, error)
}

// Analyzer is the vision service surface the pipeline needs.
type Analyzer interface {
	Analyze(ctx context.Context, photo []byte) (*vision.Analysis, error)
}

// Dispatcher hands follow-up work to the task queue.
type Dispatcher interface {
	Enqueue(ctx context.Context, name string, args any, queueHint string) (int64, error)
}

// Pipeline wires the stores and service clients behind the stage operations.
type Pipeline struct {
	cfg      *config.Config
	store    *jobs.Store
	blobs    blob.Store
	swap     FaceSwapper
	analyzer Analyzer
	queue    Dispatcher
	comp     *render.Compositor
	log      *slog.Logger
}

func New(cfg *config.Config, store *jobs.Store, blobs blob.Store, swap FaceSwapper, analyzer Analyzer, queue Dispatcher, log *slog.Logger) *Pipeline {
	if log == nil {
		log = logging.NewNop()
	}
	fonts := render.NewFontCache(blobs, log)
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		blobs:    blobs,
		swap:     swap,
		analyzer: analyzer,
		queue:    queue,
		comp:     render.NewCompositor(fonts, log),
		log:      logging.NewComponentLogger(log, "pipeline"),
	}
}

// BuildBackgroundsArgs is the payload of a background-building task.
type BuildBackgroundsArgs struct {
	JobID         string `json:"job_id"`
	Stage         string `json:"stage"`
	Pages         []int  `json:"pages,omitempty"`
	RandomizeSeed bool   `json:"randomize_seed,omitempty"`
}

// ComposePagesArgs is the payload of a page-composition task.
type ComposePagesArgs struct {
	JobID string `json:"job_id"`
	Stage string `json:"stage"`
	Pages []int  `json:"pages,omitempty"`
}

// AnalyzeArgs is the payload of a photo-analysis task.
type AnalyzeArgs struct {
	JobID string `json:"job_id"`
}

func generatingStatus(stage stages.Stage) jobs.Status {
	if stage == stages.StagePostpay {
		return jobs.StatusPostpayGenerating
	}
	return jobs.StatusPrepayGenerating
}

func readyStatus(stage stages.Stage) jobs.Status {
	if stage == stages.StagePostpay {
		return jobs.StatusCompleted
	}
	return jobs.StatusPrepayReady
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func templateVars(job *jobs.Job) map[string]string {
	return map[string]string{
		"child_name":   job.ChildName,
		"child_age":    strconv.Itoa(job.ChildAge),
		"child_gender": job.ChildGender,
	}
}

// filterPages keeps the stage page order while restricting to the requested
// subset. A requested page outside the stage set is silently dropped; a
// request that empties the set is the caller's mistake and surfaces later as
// a no-op run.
func filterPages(stagePages, requested []int) []int {
	if len(requested) == 0 {
		return stagePages
	}
	want := make(map[int]struct{}, len(requested))
	for _, n := range requested {
		want[n] = struct{}{}
	}
	out := make([]int, 0, len(requested))
	for _, n := range stagePages {
		if _, ok := want[n]; ok {
			out = append(out, n)
		}
	}
	return out
}
