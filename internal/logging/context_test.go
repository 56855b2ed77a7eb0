package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"storyloom/internal/services"
)

func TestContextFieldsEmptyContext(t *testing.T) {
	if fields := ContextFields(context.Background()); len(fields) != 0 {
		t.Fatalf("fields = %v, want none", fields)
	}
	if fields := ContextFields(nil); fields != nil {
		t.Fatalf("fields from nil context = %v", fields)
	}
}

func TestContextFieldsExtractsJobAndStage(t *testing.T) {
	ctx := services.WithStage(services.WithJobID(context.Background(), "job-123"), "prepay")

	fields := ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("fields = %v, want job_id and stage", fields)
	}
	got := map[string]string{}
	for _, f := range fields {
		got[f.Key] = f.Value.String()
	}
	if got[FieldJobID] != "job-123" || got[FieldStage] != "prepay" {
		t.Fatalf("fields = %v", got)
	}
}

func TestWithContextAnnotatesLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := services.WithStage(services.WithJobID(context.Background(), "job-123"), "postpay")

	WithContext(ctx, base).Info("working")

	line := buf.String()
	if !strings.Contains(line, FieldJobID+"=job-123") {
		t.Fatalf("job id missing from log line: %s", line)
	}
	if !strings.Contains(line, FieldStage+"=postpay") {
		t.Fatalf("stage missing from log line: %s", line)
	}
}

func TestWithContextBareContextReturnsLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	if got := WithContext(context.Background(), base); got != base {
		t.Fatal("bare context should return the logger unchanged")
	}
	if got := WithContext(context.Background(), nil); got == nil {
		t.Fatal("nil logger should fall back to the no-op logger")
	}
}
