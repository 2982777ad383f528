package store

import "database/sql"

const goalSelect = `
	SELECT id, statement, goal_type, timeframe, status, parent_goal_id, created_at,
		last_referenced, priority, progress_type, progress_value, milestones, blockers,
		source_claim_id, motivation, deadline
	FROM goals`

// CreateGoal inserts a new Goal.
func (s *Store) CreateGoal(g *Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO goals (id, statement, goal_type, timeframe, status, parent_goal_id,
			created_at, last_referenced, priority, progress_type, progress_value,
			milestones, blockers, source_claim_id, motivation, deadline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.Statement, g.GoalType, string(g.Timeframe), string(g.Status), g.ParentGoalID,
		g.CreatedAt, g.LastReferenced, g.Priority, string(g.ProgressType), g.ProgressValue,
		marshalJSON(g.Milestones), marshalJSON(g.Blockers), g.SourceClaimID, g.Motivation, g.Deadline)
	if err != nil {
		return newBackendError("CreateGoal", err)
	}
	s.notify("goals")
	return nil
}

// UpdateGoal persists every mutable field of an existing Goal.
func (s *Store) UpdateGoal(g *Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`
		UPDATE goals SET status = ?, last_referenced = ?, priority = ?, progress_value = ?,
			milestones = ?, blockers = ?, motivation = ?, deadline = ?
		WHERE id = ?
	`, string(g.Status), g.LastReferenced, g.Priority, g.ProgressValue,
		marshalJSON(g.Milestones), marshalJSON(g.Blockers), g.Motivation, g.Deadline, g.ID)
	if err != nil {
		return newBackendError("UpdateGoal", err)
	}
	if err := mustAffect(res, "UpdateGoal "+g.ID); err != nil {
		return err
	}
	s.notify("goals")
	return nil
}

// GetGoal fetches a Goal by id.
func (s *Store) GetGoal(id string) (*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(goalSelect+` WHERE id = ?`, id)
	return scanGoalRow(row)
}

// GetChildGoals returns every Goal whose parentGoalId is parentID, the
// building block for depth/cycle checks (spec §4.I: DAG depth ≤ 4).
func (s *Store) GetChildGoals(parentID string) ([]*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(goalSelect+` WHERE parent_goal_id = ?`, parentID)
	if err != nil {
		return nil, newBackendError("GetChildGoals", err)
	}
	defer rows.Close()
	return scanGoals(rows)
}

// GetRootGoals returns every Goal with no parent.
func (s *Store) GetRootGoals() ([]*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(goalSelect + ` WHERE parent_goal_id IS NULL`)
	if err != nil {
		return nil, newBackendError("GetRootGoals", err)
	}
	defer rows.Close()
	return scanGoals(rows)
}

// GetGoalsByStatus filters goals by lifecycle status.
func (s *Store) GetGoalsByStatus(status GoalStatus) ([]*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(goalSelect+` WHERE status = ?`, string(status))
	if err != nil {
		return nil, newBackendError("GetGoalsByStatus", err)
	}
	defer rows.Close()
	return scanGoals(rows)
}

// GetAllGoalsForSearch returns every goal so the caller can run fuzzy
// statement matching in-process (spec §9 Open Question: fuzziness
// resolved as normalized Levenshtein distance, see pkg/goal).
func (s *Store) GetAllGoalsForSearch() ([]*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(goalSelect)
	if err != nil {
		return nil, newBackendError("GetAllGoalsForSearch", err)
	}
	defer rows.Close()
	return scanGoals(rows)
}

func scanGoalRow(row *sql.Row) (*Goal, error) {
	g, err := scanGoalInto(row)
	if err == sql.ErrNoRows {
		return nil, newNotFound("goal")
	}
	if err != nil {
		return nil, newBackendError("scanGoalRow", err)
	}
	return g, nil
}

func scanGoals(rows *sql.Rows) ([]*Goal, error) {
	var out []*Goal
	for rows.Next() {
		g, err := scanGoalInto(rows)
		if err != nil {
			return nil, newBackendError("scanGoals", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGoalInto(row scanner) (*Goal, error) {
	var g Goal
	var timeframe, status, progressType string
	var milestonesJSON, blockersJSON string
	err := row.Scan(&g.ID, &g.Statement, &g.GoalType, &timeframe, &status, &g.ParentGoalID,
		&g.CreatedAt, &g.LastReferenced, &g.Priority, &progressType, &g.ProgressValue,
		&milestonesJSON, &blockersJSON, &g.SourceClaimID, &g.Motivation, &g.Deadline)
	if err != nil {
		return nil, err
	}
	g.Timeframe, g.Status, g.ProgressType = Timeframe(timeframe), GoalStatus(status), ProgressType(progressType)
	unmarshalJSON(milestonesJSON, &g.Milestones)
	unmarshalJSON(blockersJSON, &g.Blockers)
	return &g, nil
}
