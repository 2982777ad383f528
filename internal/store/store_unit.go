package store

import "database/sql"

// CreateUnit inserts a new ConversationUnit and bumps the owning
// Session's unit count.
func (s *Store) CreateUnit(u *ConversationUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO conversation_units (
			id, session_id, timestamp, raw_text, sanitized_text, source, speaker,
			discourse_function, preceding_context_summary, created_at, processed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.SessionID, u.Timestamp, u.RawText, u.SanitizedText, string(u.Source),
		string(u.Speaker), string(u.DiscourseFunction), u.PrecedingContextSummary,
		u.CreatedAt, boolToInt(u.Processed))
	if err != nil {
		return newBackendError("CreateUnit", err)
	}
	if _, err := s.db.Exec(`UPDATE sessions SET unit_count = unit_count + 1 WHERE id = ?`, u.SessionID); err != nil {
		return newBackendError("CreateUnit: bump session count", err)
	}
	s.notify("conversation_units")
	return nil
}

// MarkUnitProcessed flips processed to true once extraction has run.
func (s *Store) MarkUnitProcessed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE conversation_units SET processed = 1 WHERE id = ?`, id)
	if err != nil {
		return newBackendError("MarkUnitProcessed", err)
	}
	return mustAffect(res, "MarkUnitProcessed "+id)
}

// GetUnit fetches a ConversationUnit by id.
func (s *Store) GetUnit(id string) (*ConversationUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(unitSelect+` WHERE id = ?`, id)
	return scanUnit(row)
}

// GetUnitsBySession returns every unit belonging to a session in
// chronological order.
func (s *Store) GetUnitsBySession(sessionID string) ([]*ConversationUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(unitSelect+` WHERE session_id = ? ORDER BY timestamp ASC`, sessionID)
	if err != nil {
		return nil, newBackendError("GetUnitsBySession", err)
	}
	defer rows.Close()
	return scanUnits(rows)
}

// GetRecentUnits returns up to n most recent units across all sessions,
// newest first, for use as rolling conversational context.
func (s *Store) GetRecentUnits(n int) ([]*ConversationUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(unitSelect+` ORDER BY timestamp DESC LIMIT ?`, n)
	if err != nil {
		return nil, newBackendError("GetRecentUnits", err)
	}
	defer rows.Close()
	return scanUnits(rows)
}

// GetUnprocessedUnits returns units awaiting extraction.
func (s *Store) GetUnprocessedUnits() ([]*ConversationUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(unitSelect+` WHERE processed = 0 ORDER BY timestamp ASC`)
	if err != nil {
		return nil, newBackendError("GetUnprocessedUnits", err)
	}
	defer rows.Close()
	return scanUnits(rows)
}

const unitSelect = `
	SELECT id, session_id, timestamp, raw_text, sanitized_text, source, speaker,
		discourse_function, preceding_context_summary, created_at, processed
	FROM conversation_units`

func scanUnit(row *sql.Row) (*ConversationUnit, error) {
	var u ConversationUnit
	var src, spk, df string
	var processed int
	err := row.Scan(&u.ID, &u.SessionID, &u.Timestamp, &u.RawText, &u.SanitizedText,
		&src, &spk, &df, &u.PrecedingContextSummary, &u.CreatedAt, &processed)
	if err == sql.ErrNoRows {
		return nil, newNotFound("conversation unit")
	}
	if err != nil {
		return nil, newBackendError("scanUnit", err)
	}
	u.Source, u.Speaker, u.DiscourseFunction = Source(src), Speaker(spk), DiscourseFunction(df)
	u.Processed = intToBool(processed)
	return &u, nil
}

func scanUnits(rows *sql.Rows) ([]*ConversationUnit, error) {
	var out []*ConversationUnit
	for rows.Next() {
		var u ConversationUnit
		var src, spk, df string
		var processed int
		if err := rows.Scan(&u.ID, &u.SessionID, &u.Timestamp, &u.RawText, &u.SanitizedText,
			&src, &spk, &df, &u.PrecedingContextSummary, &u.CreatedAt, &processed); err != nil {
			return nil, newBackendError("scanUnits", err)
		}
		u.Source, u.Speaker, u.DiscourseFunction = Source(src), Speaker(spk), DiscourseFunction(df)
		u.Processed = intToBool(processed)
		out = append(out, &u)
	}
	return out, rows.Err()
}
