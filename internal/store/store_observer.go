package store

// CreateObserverOutput inserts a generic reactive output written by an
// observer program.
func (s *Store) CreateObserverOutput(o *ObserverOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO observer_outputs (id, observer_name, output_type, source_claim_ids,
			created_at, stale, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.ObserverName, o.OutputType, marshalJSON(o.SourceClaimIDs), o.CreatedAt,
		boolToInt(o.Stale), o.Content)
	if err != nil {
		return newBackendError("CreateObserverOutput", err)
	}
	s.notify("observer_outputs")
	return nil
}

// GetObserverOutputs lists every output, freshest first.
func (s *Store) GetObserverOutputs() ([]*ObserverOutput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`
		SELECT id, observer_name, output_type, source_claim_ids, created_at, stale, content
		FROM observer_outputs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, newBackendError("GetObserverOutputs", err)
	}
	defer rows.Close()

	var out []*ObserverOutput
	for rows.Next() {
		var o ObserverOutput
		var idsJSON string
		var stale int
		if err := rows.Scan(&o.ID, &o.ObserverName, &o.OutputType, &idsJSON, &o.CreatedAt, &stale, &o.Content); err != nil {
			return nil, newBackendError("scan observer output", err)
		}
		unmarshalJSON(idsJSON, &o.SourceClaimIDs)
		o.Stale = intToBool(stale)
		out = append(out, &o)
	}
	return out, rows.Err()
}

// MarkObserverOutputStale flags an output superseded by a fresher one.
func (s *Store) MarkObserverOutputStale(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`UPDATE observer_outputs SET stale = 1 WHERE id = ?`, id)
	if err != nil {
		return newBackendError("MarkObserverOutputStale", err)
	}
	return mustAffect(res, "MarkObserverOutputStale "+id)
}

// CreateContradiction inserts a detected contradiction between claims.
func (s *Store) CreateContradiction(c *Contradiction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO contradictions (id, claim_ids, description, created_at, stale)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, marshalJSON(c.ClaimIDs), c.Description, c.CreatedAt, boolToInt(c.Stale))
	if err != nil {
		return newBackendError("CreateContradiction", err)
	}
	s.notify("contradictions")
	return nil
}

// GetContradictions lists every recorded contradiction.
func (s *Store) GetContradictions() ([]*Contradiction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT id, claim_ids, description, created_at, stale FROM contradictions ORDER BY created_at DESC`)
	if err != nil {
		return nil, newBackendError("GetContradictions", err)
	}
	defer rows.Close()

	var out []*Contradiction
	for rows.Next() {
		var c Contradiction
		var idsJSON string
		var stale int
		if err := rows.Scan(&c.ID, &idsJSON, &c.Description, &c.CreatedAt, &stale); err != nil {
			return nil, newBackendError("scan contradiction", err)
		}
		unmarshalJSON(idsJSON, &c.ClaimIDs)
		c.Stale = intToBool(stale)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// MarkContradictionStale flags a contradiction as resolved/outdated.
func (s *Store) MarkContradictionStale(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`UPDATE contradictions SET stale = 1 WHERE id = ?`, id)
	if err != nil {
		return newBackendError("MarkContradictionStale", err)
	}
	return mustAffect(res, "MarkContradictionStale "+id)
}

// CreatePattern inserts a recurring structure an observer detected.
func (s *Store) CreatePattern(p *Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO patterns (id, description, source_claim_ids, created_at, stale)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Description, marshalJSON(p.SourceClaimIDs), p.CreatedAt, boolToInt(p.Stale))
	if err != nil {
		return newBackendError("CreatePattern", err)
	}
	s.notify("patterns")
	return nil
}

// GetPatterns lists every recorded pattern.
func (s *Store) GetPatterns() ([]*Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT id, description, source_claim_ids, created_at, stale FROM patterns ORDER BY created_at DESC`)
	if err != nil {
		return nil, newBackendError("GetPatterns", err)
	}
	defer rows.Close()

	var out []*Pattern
	for rows.Next() {
		var p Pattern
		var idsJSON string
		var stale int
		if err := rows.Scan(&p.ID, &p.Description, &idsJSON, &p.CreatedAt, &stale); err != nil {
			return nil, newBackendError("scan pattern", err)
		}
		unmarshalJSON(idsJSON, &p.SourceClaimIDs)
		p.Stale = intToBool(stale)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// CreateValue inserts an inferred user value.
func (s *Store) CreateValue(v *Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO value_outputs (id, statement, source_claim_ids, created_at, stale)
		VALUES (?, ?, ?, ?, ?)
	`, v.ID, v.Statement, marshalJSON(v.SourceClaimIDs), v.CreatedAt, boolToInt(v.Stale))
	if err != nil {
		return newBackendError("CreateValue", err)
	}
	s.notify("value_outputs")
	return nil
}

// GetValues lists every recorded inferred value.
func (s *Store) GetValues() ([]*Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT id, statement, source_claim_ids, created_at, stale FROM value_outputs ORDER BY created_at DESC`)
	if err != nil {
		return nil, newBackendError("GetValues", err)
	}
	defer rows.Close()

	var out []*Value
	for rows.Next() {
		var v Value
		var idsJSON string
		var stale int
		if err := rows.Scan(&v.ID, &v.Statement, &idsJSON, &v.CreatedAt, &stale); err != nil {
			return nil, newBackendError("scan value", err)
		}
		unmarshalJSON(idsJSON, &v.SourceClaimIDs)
		v.Stale = intToBool(stale)
		out = append(out, &v)
	}
	return out, rows.Err()
}

// UpsertExtractionProgramRecord records or updates a registered
// extraction program.
func (s *Store) UpsertExtractionProgramRecord(r *ExtractionProgramRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO extraction_program_records (id, name, version, active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, version = excluded.version, active = excluded.active
	`, r.ID, r.Name, r.Version, boolToInt(r.Active))
	if err != nil {
		return newBackendError("UpsertExtractionProgramRecord", err)
	}
	return nil
}

// GetExtractionProgramRecords lists every registered extraction program.
func (s *Store) GetExtractionProgramRecords() ([]*ExtractionProgramRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT id, name, version, active FROM extraction_program_records`)
	if err != nil {
		return nil, newBackendError("GetExtractionProgramRecords", err)
	}
	defer rows.Close()

	var out []*ExtractionProgramRecord
	for rows.Next() {
		var r ExtractionProgramRecord
		var active int
		if err := rows.Scan(&r.ID, &r.Name, &r.Version, &active); err != nil {
			return nil, newBackendError("scan extraction program", err)
		}
		r.Active = intToBool(active)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// UpsertObserverProgramRecord records or updates a registered observer
// program.
func (s *Store) UpsertObserverProgramRecord(r *ObserverProgramRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO observer_program_records (id, name, version, active, success_rate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, version = excluded.version,
			active = excluded.active, success_rate = excluded.success_rate
	`, r.ID, r.Name, r.Version, boolToInt(r.Active), r.SuccessRate)
	if err != nil {
		return newBackendError("UpsertObserverProgramRecord", err)
	}
	return nil
}

// GetObserverProgramRecords lists every registered observer program.
func (s *Store) GetObserverProgramRecords() ([]*ObserverProgramRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT id, name, version, active, success_rate FROM observer_program_records`)
	if err != nil {
		return nil, newBackendError("GetObserverProgramRecords", err)
	}
	defer rows.Close()

	var out []*ObserverProgramRecord
	for rows.Next() {
		var r ObserverProgramRecord
		var active int
		if err := rows.Scan(&r.ID, &r.Name, &r.Version, &active, &r.SuccessRate); err != nil {
			return nil, newBackendError("scan observer program", err)
		}
		r.Active = intToBool(active)
		out = append(out, &r)
	}
	return out, rows.Err()
}
