package store

import "database/sql"

// CreateSession inserts a new Session. Callers must ensure no other
// Session is active first (spec §3: at most one Session with EndedAt
// == nil at a time); the Store itself does not enforce this.
func (s *Store) CreateSession(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, started_at, ended_at, unit_count, summary, mood_trajectory)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.StartedAt, sess.EndedAt, sess.UnitCount, sess.Summary, sess.MoodTrajectory)
	if err != nil {
		return newBackendError("CreateSession", err)
	}
	return nil
}

// UpdateSession persists changed fields of an existing Session.
func (s *Store) UpdateSession(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE sessions SET ended_at = ?, unit_count = ?, summary = ?, mood_trajectory = ?
		WHERE id = ?
	`, sess.EndedAt, sess.UnitCount, sess.Summary, sess.MoodTrajectory, sess.ID)
	if err != nil {
		return newBackendError("UpdateSession", err)
	}
	return mustAffect(res, "UpdateSession "+sess.ID)
}

// GetSession fetches a Session by id.
func (s *Store) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, started_at, ended_at, unit_count, summary, mood_trajectory
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// GetActiveSession returns the Session with EndedAt == nil, or nil if
// there isn't one.
func (s *Store) GetActiveSession() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, started_at, ended_at, unit_count, summary, mood_trajectory
		FROM sessions WHERE ended_at IS NULL
		ORDER BY started_at DESC LIMIT 1
	`)
	sess, err := scanSession(row)
	if err != nil && IsNotFound(err) {
		return nil, nil
	}
	return sess, err
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.StartedAt, &sess.EndedAt, &sess.UnitCount, &sess.Summary, &sess.MoodTrajectory)
	if err == sql.ErrNoRows {
		return nil, newNotFound("session")
	}
	if err != nil {
		return nil, newBackendError("scanSession", err)
	}
	return &sess, nil
}

func mustAffect(res sql.Result, detail string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return newBackendError(detail, err)
	}
	if n == 0 {
		return newNotFound(detail)
	}
	return nil
}
