package store

import "database/sql"

// CreateCorrection records a learned wrongText -> correctText mapping.
// wrongText is unique; callers should check GetCorrectionByWrongText
// first and call RecordCorrectionUsage instead on a repeat.
func (s *Store) CreateCorrection(c *Correction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO corrections (id, wrong_text, correct_text, original_case, usage_count,
			created_at, last_used, source_unit_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.WrongText, c.CorrectText, c.OriginalCase, c.UsageCount, c.CreatedAt, c.LastUsed, c.SourceUnitID)
	if err != nil {
		return newBackendError("CreateCorrection", err)
	}
	s.notify("corrections")
	return nil
}

// RecordCorrectionUsage bumps usage count and lastUsed for an applied
// correction.
func (s *Store) RecordCorrectionUsage(id string, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`
		UPDATE corrections SET usage_count = usage_count + 1, last_used = ? WHERE id = ?
	`, now, id)
	if err != nil {
		return newBackendError("RecordCorrectionUsage", err)
	}
	return mustAffect(res, "RecordCorrectionUsage "+id)
}

// GetCorrectionByWrongText looks up a learned correction by its
// mis-transcribed form.
func (s *Store) GetCorrectionByWrongText(wrongText string) (*Correction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`
		SELECT id, wrong_text, correct_text, original_case, usage_count, created_at, last_used, source_unit_id
		FROM corrections WHERE wrong_text = ?
	`, wrongText)
	return scanCorrection(row)
}

// GetAllCorrections lists every learned correction, the set a
// dictionary-scan pass loads once per session.
func (s *Store) GetAllCorrections() ([]*Correction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`
		SELECT id, wrong_text, correct_text, original_case, usage_count, created_at, last_used, source_unit_id
		FROM corrections
	`)
	if err != nil {
		return nil, newBackendError("GetAllCorrections", err)
	}
	defer rows.Close()

	var out []*Correction
	for rows.Next() {
		var c Correction
		if err := rows.Scan(&c.ID, &c.WrongText, &c.CorrectText, &c.OriginalCase, &c.UsageCount,
			&c.CreatedAt, &c.LastUsed, &c.SourceUnitID); err != nil {
			return nil, newBackendError("scan correction", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func scanCorrection(row *sql.Row) (*Correction, error) {
	var c Correction
	err := row.Scan(&c.ID, &c.WrongText, &c.CorrectText, &c.OriginalCase, &c.UsageCount,
		&c.CreatedAt, &c.LastUsed, &c.SourceUnitID)
	if err == sql.ErrNoRows {
		return nil, newNotFound("correction")
	}
	if err != nil {
		return nil, newBackendError("scanCorrection", err)
	}
	return &c, nil
}
