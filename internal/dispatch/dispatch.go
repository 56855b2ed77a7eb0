package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"storyloom/internal/config"
	"storyloom/internal/logging"
)

// DefaultQueue receives tasks when no hint is given or the hinted enqueue
// fails.
const DefaultQueue = "default"

// Task names understood by the worker.
const (
	TaskBuildBackgrounds = "build_stage_backgrounds"
	TaskComposePages     = "compose_stage_pages"
	TaskAnalyzePhoto     = "analyze_child_photo"
)

// TaskStatus is the lifecycle of a dispatched task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// Task is one queued unit of work.
type Task struct {
	ID        int64
	Name      string
	ArgsJSON  string
	Queue     string
	Status    TaskStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UnmarshalArgs decodes the task's argument payload into out.
func (t *Task) UnmarshalArgs(out any) error {
	if t.ArgsJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(t.ArgsJSON), out)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    args_json TEXT,
    queue TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_status_queue ON tasks(status, queue, id);
`

// Queue persists and hands out tasks.
type Queue struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects to the task database configured in cfg.
func Open(cfg *config.Config, log *slog.Logger) (*Queue, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath(), log)
}

// OpenPath connects to the task database at an explicit path. The tasks table
// shares the job database file; SQLite WAL mode handles the concurrent
// connections.
func OpenPath(dbPath string, log *slog.Logger) (*Queue, error) {
	if log == nil {
		log = logging.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tasks schema: %w", err)
	}
	return &Queue{db: db, log: logging.NewComponentLogger(log, "dispatch")}, nil
}

// Close closes the underlying database connection.
func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

// Enqueue inserts a task on the hinted queue, falling back to the default
// queue when the hinted insert fails. Work is never dropped because a
// preferred queue misbehaves.
func (q *Queue) Enqueue(ctx context.Context, name string, args any, queueHint string) (int64, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return 0, fmt.Errorf("marshal task args: %w", err)
	}

	queue := queueHint
	if queue == "" {
		queue = DefaultQueue
	}

	id, err := q.insert(ctx, name, string(argsJSON), queue)
	if err != nil && queue != DefaultQueue {
		q.log.Warn("enqueue on hinted queue failed, falling back to default",
			logging.String("task", name),
			logging.String("queue", queue),
			logging.Error(err),
		)
		id, err = q.insert(ctx, name, string(argsJSON), DefaultQueue)
	}
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", name, err)
	}
	return id, nil
}

func (q *Queue) insert(ctx context.Context, name, argsJSON, queue string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := q.db.ExecContext(
		ctx,
		`INSERT INTO tasks (name, args_json, queue, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		name, argsJSON, queue, TaskPending, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Claim atomically takes the oldest pending task from any of the given
// queues (all queues when none specified). Returns nil when no work is
// available.
func (q *Queue) Claim(ctx context.Context, queues ...string) (*Task, error) {
	for {
		task, err := q.nextPending(ctx, queues)
		if err != nil || task == nil {
			return nil, err
		}

		now := time.Now().UTC()
		res, err := q.db.ExecContext(
			ctx,
			`UPDATE tasks SET status = ?, attempts = attempts + 1, updated_at = ?
             WHERE id = ? AND status = ?`,
			TaskRunning, now.Format(time.RFC3339Nano), task.ID, TaskPending,
		)
		if err != nil {
			return nil, fmt.Errorf("claim task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Another worker won the row; try the next one.
			continue
		}
		task.Status = TaskRunning
		task.Attempts++
		task.UpdatedAt = now
		return task, nil
	}
}

func (q *Queue) nextPending(ctx context.Context, queues []string) (*Task, error) {
	query := `SELECT id, name, args_json, queue, status, attempts, last_error, created_at, updated_at
        FROM tasks WHERE status = ?`
	args := []any{TaskPending}
	if len(queues) > 0 {
		query += ` AND queue IN (`
		for i, queue := range queues {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, queue)
		}
		query += `)`
	}
	query += ` ORDER BY id LIMIT 1`

	row := q.db.QueryRowContext(ctx, query, args...)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending task: %w", err)
	}
	return task, nil
}

// Complete marks a running task done.
func (q *Queue) Complete(ctx context.Context, id int64) error {
	return q.setStatus(ctx, id, TaskDone, "")
}

// Fail records a task failure. Tasks with remaining attempts (per
// maxAttempts) go back to pending for a retry; exhausted tasks are marked
// failed permanently.
func (q *Queue) Fail(ctx context.Context, task *Task, maxAttempts int, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	if task.Attempts < maxAttempts {
		return q.setStatus(ctx, task.ID, TaskPending, message)
	}
	return q.setStatus(ctx, task.ID, TaskFailed, message)
}

func (q *Queue) setStatus(ctx context.Context, id int64, status TaskStatus, lastError string) error {
	var errValue any
	if lastError != "" {
		errValue = lastError
	}
	if _, err := q.db.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status, errValue, time.Now().UTC().Format(time.RFC3339Nano), id,
	); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		task       Task
		argsJSON   sql.NullString
		lastError  sql.NullString
		statusStr  string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&task.ID, &task.Name, &argsJSON, &task.Queue, &statusStr, &task.Attempts, &lastError, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	task.ArgsJSON = argsJSON.String
	task.LastError = lastError.String
	task.Status = TaskStatus(statusStr)
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		task.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		task.UpdatedAt = updated
	}
	return &task, nil
}
