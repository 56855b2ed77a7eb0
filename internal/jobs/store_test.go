package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "storyloom.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestJob(t *testing.T, store *Store) *Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), NewJobParams{
		Slug:      "forest-friends",
		ChildName: "Mira",
		ChildAge:  5,
	})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return job
}

func TestNewJobStartsQueued(t *testing.T) {
	store := openTestStore(t)
	job := newTestJob(t, store)

	if job.Status != StatusQueued {
		t.Fatalf("status = %s, want queued", job.Status)
	}
	if job.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Slug != "forest-friends" || got.ChildName != "Mira" || got.ChildAge != 5 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetByID(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTransitionFollowsTable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	path := []Status{StatusPrepayGenerating, StatusPrepayReady, StatusPostpayGenerating, StatusCompleted}
	for _, next := range path {
		if err := store.Transition(ctx, job, next); err != nil {
			t.Fatalf("Transition to %s: %v", next, err)
		}
	}
	if job.Status != StatusCompleted {
		t.Fatalf("status = %s", job.Status)
	}
}

func TestTransitionRejectsInvalid(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	err := store.Transition(ctx, job, StatusCompleted)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if job.Status != StatusQueued {
		t.Fatalf("status changed on rejected transition: %s", job.Status)
	}
}

func TestTransitionDetectsLostRace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	stale := *job
	if err := store.Transition(ctx, job, StatusPrepayGenerating); err != nil {
		t.Fatal(err)
	}
	err := store.Transition(ctx, &stale, StatusPostpayGenerating)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("stale transition err = %v, want ErrInvalidTransition", err)
	}
}

func TestMarkGenerationFailedIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	if err := store.Transition(ctx, job, StatusPrepayGenerating); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkGenerationFailed(ctx, job, "render exploded"); err != nil {
		t.Fatalf("first MarkGenerationFailed: %v", err)
	}
	if err := store.MarkGenerationFailed(ctx, job, "second failure"); err != nil {
		t.Fatalf("repeat MarkGenerationFailed: %v", err)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusGenerationFailed {
		t.Fatalf("status = %s", got.Status)
	}
	if got.ErrorMessage != "render exploded" {
		t.Fatalf("error message = %q, want first failure kept", got.ErrorMessage)
	}
}

func TestMarkGenerationFailedBeforeGenerating(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// A run can fail before it moves the job into a generating status, for
	// example when the manifest does not load. The failure must still land.
	paths := map[Status][]Status{
		StatusQueued:      nil,
		StatusAnalyzed:    {StatusAnalyzing, StatusAnalyzed},
		StatusPrepayReady: {StatusPrepayGenerating, StatusPrepayReady},
		StatusCompleted:   {StatusPostpayGenerating, StatusCompleted},
	}
	for from, path := range paths {
		job := newTestJob(t, store)
		for _, next := range path {
			if err := store.Transition(ctx, job, next); err != nil {
				t.Fatalf("Transition to %s: %v", next, err)
			}
		}
		if err := store.MarkGenerationFailed(ctx, job, "manifest missing"); err != nil {
			t.Fatalf("MarkGenerationFailed from %s: %v", from, err)
		}
		got, err := store.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != StatusGenerationFailed {
			t.Fatalf("status from %s = %s, want %s", from, got.Status, StatusGenerationFailed)
		}
		if got.ErrorMessage == "" {
			t.Fatalf("error message empty after failure from %s", from)
		}
	}
}

func TestRetryAfterGenerationFailed(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	if err := store.Transition(ctx, job, StatusPrepayGenerating); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkGenerationFailed(ctx, job, "boom"); err != nil {
		t.Fatal(err)
	}
	if err := store.Transition(ctx, job, StatusPrepayGenerating); err != nil {
		t.Fatalf("retry transition: %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a := newTestJob(t, store)
	newTestJob(t, store)
	if err := store.Transition(ctx, a, StatusPrepayGenerating); err != nil {
		t.Fatal(err)
	}

	queued, err := store.List(ctx, StatusQueued)
	if err != nil {
		t.Fatal(err)
	}
	if len(queued) != 1 {
		t.Fatalf("queued jobs = %d, want 1", len(queued))
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("all jobs = %d, want 2", len(all))
	}
}

func TestArtifactsAppendOnlyLatestWins(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	first := &Artifact{JobID: job.ID, Stage: "prepay", Kind: ArtifactPageBackground, PageNum: 1, Locator: "layout/a/pages/page_01_bg.png"}
	if err := store.AddArtifact(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &Artifact{JobID: job.ID, Stage: "prepay", Kind: ArtifactPageBackground, PageNum: 1, Locator: "layout/b/pages/page_01_bg.png"}
	if err := store.AddArtifact(ctx, second); err != nil {
		t.Fatal(err)
	}

	all, err := store.ArtifactsByStage(ctx, job.ID, "prepay", ArtifactPageBackground)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("artifact rows = %d, want append-only 2", len(all))
	}

	latest, err := store.LatestArtifacts(ctx, job.ID, "prepay", ArtifactPageBackground)
	if err != nil {
		t.Fatal(err)
	}
	if latest[1].Locator != second.Locator {
		t.Fatalf("latest locator = %q, want newest row", latest[1].Locator)
	}
}

func TestConsumeRandomizeSeedIsOneShot(t *testing.T) {
	job := &Job{AnalysisJSON: `{"skin_tone":"warm","generation_retry":{"randomize_seed":true}}`}

	set, err := ConsumeRandomizeSeed(job)
	if err != nil {
		t.Fatal(err)
	}
	if !set {
		t.Fatal("expected directive set")
	}

	// Directive cleared, other analysis fields preserved.
	set, err = ConsumeRandomizeSeed(job)
	if err != nil {
		t.Fatal(err)
	}
	if set {
		t.Fatal("directive should be one-shot")
	}
	if job.AnalysisJSON != `{"skin_tone":"warm"}` {
		t.Fatalf("analysis json = %s", job.AnalysisJSON)
	}
}

func TestSetRandomizeSeedRoundTrip(t *testing.T) {
	job := &Job{}
	if err := SetRandomizeSeed(job); err != nil {
		t.Fatal(err)
	}
	set, err := ConsumeRandomizeSeed(job)
	if err != nil {
		t.Fatal(err)
	}
	if !set {
		t.Fatal("expected directive after SetRandomizeSeed")
	}
	if job.AnalysisJSON != "" {
		t.Fatalf("analysis json should be empty after consume, got %s", job.AnalysisJSON)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Prepay_Ready "); !ok || status != StatusPrepayReady {
		t.Fatalf("ParseStatus = %s, %v", status, ok)
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Fatal("bogus status accepted")
	}
}
