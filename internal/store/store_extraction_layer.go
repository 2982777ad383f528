package store

// CreateProposition inserts a Proposition extracted from a unit.
func (s *Store) CreateProposition(p *Proposition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO propositions (id, unit_id, text, created_at) VALUES (?, ?, ?, ?)
	`, p.ID, p.UnitID, p.Text, p.CreatedAt)
	if err != nil {
		return newBackendError("CreateProposition", err)
	}
	return nil
}

// GetPropositionsByUnit returns every Proposition tokenized from a unit.
func (s *Store) GetPropositionsByUnit(unitID string) ([]*Proposition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`
		SELECT id, unit_id, text, created_at FROM propositions WHERE unit_id = ?
	`, unitID)
	if err != nil {
		return nil, newBackendError("GetPropositionsByUnit", err)
	}
	defer rows.Close()

	var out []*Proposition
	for rows.Next() {
		var p Proposition
		if err := rows.Scan(&p.ID, &p.UnitID, &p.Text, &p.CreatedAt); err != nil {
			return nil, newBackendError("scan proposition", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// CreateStance inserts a Stance attached to a Proposition.
func (s *Store) CreateStance(st *Stance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO stances (id, proposition_id, attitude, intensity) VALUES (?, ?, ?, ?)
	`, st.ID, st.PropositionID, string(st.Attitude), st.Intensity)
	if err != nil {
		return newBackendError("CreateStance", err)
	}
	return nil
}

// GetStancesByProposition returns every Stance taken toward a Proposition.
func (s *Store) GetStancesByProposition(propositionID string) ([]*Stance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`
		SELECT id, proposition_id, attitude, intensity FROM stances WHERE proposition_id = ?
	`, propositionID)
	if err != nil {
		return nil, newBackendError("GetStancesByProposition", err)
	}
	defer rows.Close()

	var out []*Stance
	for rows.Next() {
		var st Stance
		var att string
		if err := rows.Scan(&st.ID, &st.PropositionID, &att, &st.Intensity); err != nil {
			return nil, newBackendError("scan stance", err)
		}
		st.Attitude = Attitude(att)
		out = append(out, &st)
	}
	return out, rows.Err()
}

// CreateSpan inserts a provenance Span within a unit's text.
func (s *Store) CreateSpan(sp *Span) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO spans (id, unit_id, char_start, char_end, text) VALUES (?, ?, ?, ?, ?)
	`, sp.ID, sp.UnitID, sp.CharStart, sp.CharEnd, sp.Text)
	if err != nil {
		return newBackendError("CreateSpan", err)
	}
	return nil
}

// GetSpansByUnit returns every Span recorded against a unit.
func (s *Store) GetSpansByUnit(unitID string) ([]*Span, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`
		SELECT id, unit_id, char_start, char_end, text FROM spans WHERE unit_id = ?
	`, unitID)
	if err != nil {
		return nil, newBackendError("GetSpansByUnit", err)
	}
	defer rows.Close()

	var out []*Span
	for rows.Next() {
		var sp Span
		if err := rows.Scan(&sp.ID, &sp.UnitID, &sp.CharStart, &sp.CharEnd, &sp.Text); err != nil {
			return nil, newBackendError("scan span", err)
		}
		out = append(out, &sp)
	}
	return out, rows.Err()
}

// CreateEntityMention links a canonical Entity to a Span.
func (s *Store) CreateEntityMention(m *EntityMention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO entity_mentions (id, entity_id, span_id, unit_id) VALUES (?, ?, ?, ?)
	`, m.ID, m.EntityID, m.SpanID, m.UnitID)
	if err != nil {
		return newBackendError("CreateEntityMention", err)
	}
	return nil
}

// GetMentionsByEntity returns every mention recorded for an entity.
func (s *Store) GetMentionsByEntity(entityID string) ([]*EntityMention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`
		SELECT id, entity_id, span_id, unit_id FROM entity_mentions WHERE entity_id = ?
	`, entityID)
	if err != nil {
		return nil, newBackendError("GetMentionsByEntity", err)
	}
	defer rows.Close()

	var out []*EntityMention
	for rows.Next() {
		var m EntityMention
		if err := rows.Scan(&m.ID, &m.EntityID, &m.SpanID, &m.UnitID); err != nil {
			return nil, newBackendError("scan mention", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
