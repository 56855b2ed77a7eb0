package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	queue, err := OpenPath(filepath.Join(t.TempDir(), "storyloom.db"), nil)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = queue.Close() })
	return queue
}

type composeArgs struct {
	JobID string `json:"job_id"`
	Stage string `json:"stage"`
}

func TestEnqueueAndClaim(t *testing.T) {
	queue := openTestQueue(t)
	ctx := context.Background()

	id, err := queue.Enqueue(ctx, TaskComposePages, composeArgs{JobID: "job-1", Stage: "prepay"}, "render")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id == 0 {
		t.Fatal("expected task id")
	}

	task, err := queue.Claim(ctx, "render")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if task == nil {
		t.Fatal("expected a task")
	}
	if task.Name != TaskComposePages || task.Queue != "render" {
		t.Fatalf("task = %+v", task)
	}
	if task.Attempts != 1 {
		t.Fatalf("attempts = %d", task.Attempts)
	}

	var args composeArgs
	if err := task.UnmarshalArgs(&args); err != nil {
		t.Fatal(err)
	}
	if args.JobID != "job-1" || args.Stage != "prepay" {
		t.Fatalf("args = %+v", args)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	queue := openTestQueue(t)
	ctx := context.Background()

	if _, err := queue.Enqueue(ctx, TaskBuildBackgrounds, nil, ""); err != nil {
		t.Fatal(err)
	}
	first, err := queue.Claim(ctx)
	if err != nil || first == nil {
		t.Fatalf("first claim: %v %v", first, err)
	}
	second, err := queue.Claim(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second != nil {
		t.Fatalf("second claim returned %+v, want nil", second)
	}
}

func TestClaimFiltersQueues(t *testing.T) {
	queue := openTestQueue(t)
	ctx := context.Background()

	if _, err := queue.Enqueue(ctx, TaskComposePages, nil, "render"); err != nil {
		t.Fatal(err)
	}
	task, err := queue.Claim(ctx, DefaultQueue)
	if err != nil {
		t.Fatal(err)
	}
	if task != nil {
		t.Fatalf("claimed %+v from wrong queue", task)
	}

	task, err = queue.Claim(ctx, DefaultQueue, "render")
	if err != nil || task == nil {
		t.Fatalf("claim with render queue: %v %v", task, err)
	}
}

func TestEmptyHintUsesDefaultQueue(t *testing.T) {
	queue := openTestQueue(t)
	ctx := context.Background()

	if _, err := queue.Enqueue(ctx, TaskAnalyzePhoto, nil, ""); err != nil {
		t.Fatal(err)
	}
	task, err := queue.Claim(ctx, DefaultQueue)
	if err != nil || task == nil {
		t.Fatalf("claim: %v %v", task, err)
	}
	if task.Queue != DefaultQueue {
		t.Fatalf("queue = %q", task.Queue)
	}
}

func TestFailRetriesUntilExhausted(t *testing.T) {
	queue := openTestQueue(t)
	ctx := context.Background()

	if _, err := queue.Enqueue(ctx, TaskComposePages, nil, ""); err != nil {
		t.Fatal(err)
	}

	const maxAttempts = 2
	task, err := queue.Claim(ctx)
	if err != nil || task == nil {
		t.Fatalf("claim: %v %v", task, err)
	}
	if err := queue.Fail(ctx, task, maxAttempts, errors.New("transient")); err != nil {
		t.Fatal(err)
	}

	// First failure requeues.
	task, err = queue.Claim(ctx)
	if err != nil || task == nil {
		t.Fatalf("reclaim after retry: %v %v", task, err)
	}
	if task.Attempts != 2 {
		t.Fatalf("attempts = %d", task.Attempts)
	}
	if err := queue.Fail(ctx, task, maxAttempts, errors.New("still broken")); err != nil {
		t.Fatal(err)
	}

	// Attempts exhausted: permanently failed.
	task, err = queue.Claim(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if task != nil {
		t.Fatalf("exhausted task reclaimed: %+v", task)
	}
}

func TestComplete(t *testing.T) {
	queue := openTestQueue(t)
	ctx := context.Background()

	if _, err := queue.Enqueue(ctx, TaskComposePages, nil, ""); err != nil {
		t.Fatal(err)
	}
	task, err := queue.Claim(ctx)
	if err != nil || task == nil {
		t.Fatalf("claim: %v %v", task, err)
	}
	if err := queue.Complete(ctx, task.ID); err != nil {
		t.Fatal(err)
	}
	if again, err := queue.Claim(ctx); err != nil || again != nil {
		t.Fatalf("completed task reclaimed: %v %v", again, err)
	}
}
