package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/kai/pkg/models"
)

const taskColumns = `t.id, t.feature_id, t.title, t.description, t.category, t.priority, t.status,
	t.assigned_agent, t.branch_name, t.pr_url, t.estimated_complexity, t.created_at, t.updated_at`

// Task CRUD operations

// CreateTask inserts t with its dependencies and sets its ID and
// timestamps. An empty status becomes CREATED.
func (db *DB) CreateTask(ctx context.Context, t *models.DevTask) error {
	if t.Status == "" {
		t.Status = models.TaskCreated
	}
	t.EstimatedComplexity = models.ClampComplexity(t.EstimatedComplexity)
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt

	return db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO pipeline_dev_tasks (feature_id, title, description, category, priority, status,
				assigned_agent, branch_name, pr_url, estimated_complexity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.FeatureID, t.Title, t.Description, string(t.Category), string(t.Priority), string(t.Status),
			t.AssignedAgent, t.BranchName, t.PRURL, t.EstimatedComplexity, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		for _, dep := range t.DependsOn {
			if err := addDependency(ctx, tx, t.ID, dep); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTask retrieves a task and its dependencies by ID.
func (db *DB) GetTask(ctx context.Context, id int64) (*models.DevTask, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return getTask(ctx, db.conn, id)
}

// ListTasks lists the tasks of a project. A non-empty status filters
// the result.
func (db *DB) ListTasks(ctx context.Context, projectID int64, status models.TaskStatus) ([]models.DevTask, error) {
	query := `SELECT ` + taskColumns + `
		FROM pipeline_dev_tasks t
		JOIN pipeline_features f ON t.feature_id = f.id
		JOIN pipeline_epics e ON f.epic_id = e.id
		WHERE e.project_id = ?`
	args := []any{projectID}
	if status != "" {
		query += ` AND t.status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY t.id`

	db.mu.RLock()
	defer db.mu.RUnlock()
	return listTasks(ctx, db.conn, query, args...)
}

// ListTasksByStatus lists tasks in status across all projects.
func (db *DB) ListTasksByStatus(ctx context.Context, status models.TaskStatus) ([]models.DevTask, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return listTasks(ctx, db.conn, `SELECT `+taskColumns+`
		FROM pipeline_dev_tasks t WHERE t.status = ? ORDER BY t.id`, string(status))
}

// UpdateTask stores the task's branch, pull request URL and assigned
// agent. Status only changes through TransitionTask.
func (db *DB) UpdateTask(ctx context.Context, t *models.DevTask) error {
	t.UpdatedAt = now()
	res, err := db.Exec(ctx, `
		UPDATE pipeline_dev_tasks SET assigned_agent = ?, branch_name = ?, pr_url = ?, updated_at = ?
		WHERE id = ?
	`, t.AssignedAgent, t.BranchName, t.PRURL, formatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

// AddDependency records that taskID waits for dependsOn. Adding an
// existing edge is a no-op.
func (db *DB) AddDependency(ctx context.Context, taskID, dependsOn int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return addDependency(ctx, db.conn, taskID, dependsOn)
}

func addDependency(ctx context.Context, q querier, taskID, dependsOn int64) error {
	if taskID == dependsOn {
		return fmt.Errorf("add dependency: task %d cannot depend on itself", taskID)
	}
	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO pipeline_task_dependencies (task_id, depends_on_task_id) VALUES (?, ?)
	`, taskID, dependsOn)
	if err != nil {
		return fmt.Errorf("add dependency %d -> %d: %w", taskID, dependsOn, err)
	}
	return nil
}

// TransitionTask moves a task to status to in one transaction: it reads
// the current status, asks check to approve the move, updates the task
// and appends the transition record. When check rejects the move its
// error is returned unchanged and nothing is written.
func (db *DB) TransitionTask(ctx context.Context, taskID int64, to models.TaskStatus, reason, triggeredBy string,
	check func(from, to models.TaskStatus) error) (*models.DevTask, error) {
	var task *models.DevTask
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		var from models.TaskStatus
		err := tx.QueryRowContext(ctx, "SELECT status FROM pipeline_dev_tasks WHERE id = ?", taskID).Scan(&from)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read task status: %w", err)
		}
		if check != nil {
			if err := check(from, to); err != nil {
				return err
			}
		}

		ts := formatTime(now())
		if _, err := tx.ExecContext(ctx,
			"UPDATE pipeline_dev_tasks SET status = ?, updated_at = ? WHERE id = ?",
			string(to), ts, taskID); err != nil {
			return fmt.Errorf("update task status: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pipeline_task_transitions (task_id, from_status, to_status, reason, triggered_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, taskID, string(from), string(to), reason, triggeredBy, ts); err != nil {
			return fmt.Errorf("record transition: %w", err)
		}

		task, err = getTask(ctx, tx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// TaskHistory returns a task's transitions in the order they happened.
func (db *DB) TaskHistory(ctx context.Context, taskID int64) ([]models.TaskTransition, error) {
	rows, err := db.Query(ctx, `
		SELECT id, task_id, from_status, to_status, reason, triggered_by, created_at
		FROM pipeline_task_transitions WHERE task_id = ? ORDER BY id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("task history: %w", err)
	}
	defer rows.Close()

	var history []models.TaskTransition
	for rows.Next() {
		var tr models.TaskTransition
		var createdAt string
		if err := rows.Scan(&tr.ID, &tr.TaskID, &tr.FromStatus, &tr.ToStatus, &tr.Reason, &tr.TriggeredBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.CreatedAt = parseTime(createdAt)
		history = append(history, tr)
	}
	return history, rows.Err()
}

// SaveTaskOutput appends an output record to a task.
func (db *DB) SaveTaskOutput(ctx context.Context, o *models.TaskOutput) error {
	o.CreatedAt = now()
	res, err := db.Exec(ctx, `
		INSERT INTO pipeline_task_outputs (task_id, output_type, content, agent, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, o.TaskID, o.OutputType, o.Content, o.Agent, formatTime(o.CreatedAt))
	if err != nil {
		return fmt.Errorf("save task output: %w", err)
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save task output: %w", err)
	}
	return nil
}

// TaskOutputs lists a task's outputs, oldest first.
func (db *DB) TaskOutputs(ctx context.Context, taskID int64) ([]models.TaskOutput, error) {
	rows, err := db.Query(ctx, `
		SELECT id, task_id, output_type, content, agent, created_at
		FROM pipeline_task_outputs WHERE task_id = ? ORDER BY id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("task outputs: %w", err)
	}
	defer rows.Close()

	var outputs []models.TaskOutput
	for rows.Next() {
		var o models.TaskOutput
		var createdAt string
		if err := rows.Scan(&o.ID, &o.TaskID, &o.OutputType, &o.Content, &o.Agent, &createdAt); err != nil {
			return nil, fmt.Errorf("scan task output: %w", err)
		}
		o.CreatedAt = parseTime(createdAt)
		outputs = append(outputs, o)
	}
	return outputs, rows.Err()
}

func getTask(ctx context.Context, q querier, id int64) (*models.DevTask, error) {
	tasks, err := listTasks(ctx, q, `SELECT `+taskColumns+` FROM pipeline_dev_tasks t WHERE t.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return &tasks[0], nil
}

// listTasks scans task rows and then loads their dependencies. The rows
// are closed before the second query runs.
func listTasks(ctx context.Context, q querier, query string, args ...any) ([]models.DevTask, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, err := scanTasks(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	index := make(map[int64]int, len(tasks))
	placeholders := make([]string, len(tasks))
	ids := make([]any, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
		placeholders[i] = "?"
		ids[i] = t.ID
	}
	deps, err := q.QueryContext(ctx, `
		SELECT task_id, depends_on_task_id FROM pipeline_task_dependencies
		WHERE task_id IN (`+strings.Join(placeholders, ",")+`) ORDER BY task_id, depends_on_task_id
	`, ids...)
	if err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}
	defer deps.Close()
	for deps.Next() {
		var taskID, dependsOn int64
		if err := deps.Scan(&taskID, &dependsOn); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		i := index[taskID]
		tasks[i].DependsOn = append(tasks[i].DependsOn, dependsOn)
	}
	return tasks, deps.Err()
}

// scanTasks scans task rows into a slice.
func scanTasks(rows *sql.Rows) ([]models.DevTask, error) {
	var tasks []models.DevTask
	for rows.Next() {
		var t models.DevTask
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.FeatureID, &t.Title, &t.Description, &t.Category, &t.Priority, &t.Status,
			&t.AssignedAgent, &t.BranchName, &t.PRURL, &t.EstimatedComplexity, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.CreatedAt = parseTime(createdAt)
		t.UpdatedAt = parseTime(updatedAt)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
