package store

import "database/sql"

const taskSelect = `
	SELECT id, task_type, payload, status, priority, priority_value, attempts, max_attempts,
		last_error, last_error_at, next_retry_at, backoff_config, checkpoint, created_at,
		started_at, completed_at, execute_at, group_id, depends_on, session_id
	FROM tasks`

// EnqueueTask inserts a new Task in the pending state.
func (s *Store) EnqueueTask(t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, task_type, payload, status, priority, priority_value, attempts,
			max_attempts, last_error, last_error_at, next_retry_at, backoff_config, checkpoint,
			created_at, started_at, completed_at, execute_at, group_id, depends_on, session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.TaskType, t.Payload, string(t.Status), string(t.Priority), t.PriorityValue, t.Attempts,
		t.MaxAttempts, t.LastError, t.LastErrorAt, t.NextRetryAt, marshalJSON(t.BackoffConfig),
		marshalCheckpoint(t.Checkpoint), t.CreatedAt, t.StartedAt, t.CompletedAt, t.ExecuteAt,
		t.GroupID, t.DependsOn, t.SessionID)
	if err != nil {
		return newBackendError("EnqueueTask", err)
	}
	s.notify("tasks")
	return nil
}

// DequeueReady returns up to limit pending tasks whose executeAt has
// elapsed and whose dependsOn (if set) is completed, ordered by
// priority weight then executeAt then createdAt (spec §4.B), and
// immediately marks them processing so no other caller can claim them.
func (s *Store) DequeueReady(limit int, now int64) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(taskSelect+`
		WHERE status = ? AND execute_at <= ?
			AND (depends_on IS NULL OR depends_on IN (SELECT id FROM tasks WHERE status = ?))
		ORDER BY priority_value DESC, execute_at ASC, created_at ASC
		LIMIT ?
	`, string(TaskPending), now, string(TaskCompleted), limit)
	if err != nil {
		return nil, newBackendError("DequeueReady", err)
	}
	tasks, err := scanTasks(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, t := range tasks {
		t.Status = TaskProcessing
		t.StartedAt = &now
		if _, err := s.db.Exec(`UPDATE tasks SET status = ?, started_at = ? WHERE id = ?`,
			string(TaskProcessing), now, t.ID); err != nil {
			return nil, newBackendError("DequeueReady: claim", err)
		}
	}
	return tasks, nil
}

// UpdateTaskStatus transitions a task and records failure/retry
// bookkeeping.
func (s *Store) UpdateTaskStatus(t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`
		UPDATE tasks SET status = ?, attempts = ?, last_error = ?, last_error_at = ?,
			next_retry_at = ?, execute_at = ?, completed_at = ?
		WHERE id = ?
	`, string(t.Status), t.Attempts, t.LastError, t.LastErrorAt, t.NextRetryAt, t.ExecuteAt,
		t.CompletedAt, t.ID)
	if err != nil {
		return newBackendError("UpdateTaskStatus", err)
	}
	if err := mustAffect(res, "UpdateTaskStatus "+t.ID); err != nil {
		return err
	}
	s.notify("tasks")
	return nil
}

// SaveCheckpoint persists a task's resumable progress marker.
func (s *Store) SaveCheckpoint(taskID string, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`UPDATE tasks SET checkpoint = ? WHERE id = ?`, marshalCheckpoint(cp), taskID)
	if err != nil {
		return newBackendError("SaveCheckpoint", err)
	}
	return mustAffect(res, "SaveCheckpoint "+taskID)
}

// ReclaimStaleTasks resets tasks stuck in processing past staleAfter
// back to pending, for recovery after an unclean shutdown (spec §4.B).
func (s *Store) ReclaimStaleTasks(staleAfter int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`
		UPDATE tasks SET status = ? WHERE status = ? AND started_at < ?
	`, string(TaskPending), string(TaskProcessing), staleAfter)
	if err != nil {
		return 0, newBackendError("ReclaimStaleTasks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, newBackendError("ReclaimStaleTasks: rows affected", err)
	}
	return int(n), nil
}

// GetTask fetches a Task by id.
func (s *Store) GetTask(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(taskSelect+` WHERE id = ?`, id)
	return scanTaskRow(row)
}

// GetTaskStatusSummary returns a count of tasks per status, for the
// queue's getStatus() surface.
func (s *Store) GetTaskStatusSummary() (map[TaskStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, newBackendError("GetTaskStatusSummary", err)
	}
	defer rows.Close()

	out := map[TaskStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, newBackendError("scan status summary", err)
		}
		out[TaskStatus(status)] = n
	}
	return out, rows.Err()
}

func marshalCheckpoint(cp *Checkpoint) *string {
	if cp == nil {
		return nil
	}
	s := marshalJSON(cp)
	return &s
}

func scanTaskRow(row *sql.Row) (*Task, error) {
	t, err := scanTaskInto(row)
	if err == sql.ErrNoRows {
		return nil, newNotFound("task")
	}
	if err != nil {
		return nil, newBackendError("scanTaskRow", err)
	}
	return t, nil
}

func scanTasks(rows *sql.Rows) ([]*Task, error) {
	var out []*Task
	for rows.Next() {
		t, err := scanTaskInto(rows)
		if err != nil {
			return nil, newBackendError("scanTasks", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTaskInto(row scanner) (*Task, error) {
	var t Task
	var status, priority string
	var backoffJSON string
	var checkpointJSON *string
	err := row.Scan(&t.ID, &t.TaskType, &t.Payload, &status, &priority, &t.PriorityValue,
		&t.Attempts, &t.MaxAttempts, &t.LastError, &t.LastErrorAt, &t.NextRetryAt, &backoffJSON,
		&checkpointJSON, &t.CreatedAt, &t.StartedAt, &t.CompletedAt, &t.ExecuteAt, &t.GroupID,
		&t.DependsOn, &t.SessionID)
	if err != nil {
		return nil, err
	}
	t.Status, t.Priority = TaskStatus(status), TaskPriority(priority)
	unmarshalJSON(backoffJSON, &t.BackoffConfig)
	if checkpointJSON != nil && *checkpointJSON != "" {
		var cp Checkpoint
		unmarshalJSON(*checkpointJSON, &cp)
		t.Checkpoint = &cp
	}
	return &t, nil
}
