package store

import "database/sql"

const claimSelect = `
	SELECT id, statement, subject, claim_type, temporality, abstraction, source_type,
		initial_confidence, current_confidence, state, emotional_valence, emotional_intensity,
		stakes, valid_from, valid_until, created_at, last_confirmed, confirmation_count,
		extraction_program_id, superseded_by, elaborates, memory_tier, salience,
		promoted_at, last_accessed
	FROM claims`

// CreateClaim inserts a new Claim and, if StatementEmbedding is set,
// its vector row in the optional semantic tie-break index.
func (s *Store) CreateClaim(c *Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO claims (
			id, statement, subject, claim_type, temporality, abstraction, source_type,
			initial_confidence, current_confidence, state, emotional_valence, emotional_intensity,
			stakes, valid_from, valid_until, created_at, last_confirmed, confirmation_count,
			extraction_program_id, superseded_by, elaborates, memory_tier, salience,
			promoted_at, last_accessed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Statement, c.Subject, c.ClaimType, string(c.Temporality), c.Abstraction, c.SourceType,
		c.InitialConfidence, c.CurrentConfidence, string(c.State), c.EmotionalValence, c.EmotionalIntensity,
		string(c.Stakes), c.ValidFrom, c.ValidUntil, c.CreatedAt, c.LastConfirmed, c.ConfirmationCount,
		c.ExtractionProgramID, c.SupersededBy, c.Elaborates, string(c.MemoryTier), c.Salience,
		c.PromotedAt, c.LastAccessed)
	if err != nil {
		return newBackendError("CreateClaim", err)
	}
	if err := s.upsertClaimEmbedding(c.ID, c.StatementEmbedding); err != nil {
		return err
	}
	s.notify("claims")
	return nil
}

// UpdateClaim persists every mutable field of an existing Claim, used
// by confidence decay, confirmation, promotion and supersession.
func (s *Store) UpdateClaim(c *Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE claims SET
			current_confidence = ?, state = ?, valid_until = ?, last_confirmed = ?,
			confirmation_count = ?, superseded_by = ?, memory_tier = ?, salience = ?,
			promoted_at = ?, last_accessed = ?
		WHERE id = ?
	`, c.CurrentConfidence, string(c.State), c.ValidUntil, c.LastConfirmed,
		c.ConfirmationCount, c.SupersededBy, string(c.MemoryTier), c.Salience,
		c.PromotedAt, c.LastAccessed, c.ID)
	if err != nil {
		return newBackendError("UpdateClaim", err)
	}
	if err := mustAffect(res, "UpdateClaim "+c.ID); err != nil {
		return err
	}
	if err := s.upsertClaimEmbedding(c.ID, c.StatementEmbedding); err != nil {
		return err
	}
	s.notify("claims")
	return nil
}

func (s *Store) upsertClaimEmbedding(claimID string, embedding []float32) error {
	if len(embedding) == 0 {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO claim_embeddings (claim_id, embedding) VALUES (?, ?)
		ON CONFLICT(claim_id) DO UPDATE SET embedding = excluded.embedding
	`, claimID, encodeVector(embedding))
	if err != nil {
		// The vec0 module may be unavailable (see migrate()); the
		// semantic tie-break is a supplement, not a core invariant,
		// so a missing index never fails the write.
		s.log.Debug().Err(err).Str("claimId", claimID).Msg("skipping claim embedding write")
	}
	return nil
}

// GetClaim fetches a Claim by id.
func (s *Store) GetClaim(id string) (*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(claimSelect+` WHERE id = ?`, id)
	c, err := scanClaim(row)
	if err != nil {
		return nil, err
	}
	c.StatementEmbedding = s.readClaimEmbedding(id)
	return c, nil
}

func (s *Store) readClaimEmbedding(claimID string) []float32 {
	var raw []byte
	err := s.db.QueryRow(`SELECT embedding FROM claim_embeddings WHERE claim_id = ?`, claimID).Scan(&raw)
	if err != nil {
		return nil
	}
	return decodeVector(raw)
}

// GetActiveClaims returns every Claim currently in the active state.
func (s *Store) GetActiveClaims() ([]*Claim, error) {
	return s.getClaimsWhere(`WHERE state = ?`, string(ClaimActive))
}

// GetClaimsByState filters claims by lifecycle state.
func (s *Store) GetClaimsByState(state ClaimState) ([]*Claim, error) {
	return s.getClaimsWhere(`WHERE state = ?`, string(state))
}

// GetClaimsByTier filters claims by memory tier, ordered by salience
// descending for TopOfMind-style consumption.
func (s *Store) GetClaimsByTier(tier MemoryTier) ([]*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(claimSelect+` WHERE memory_tier = ? ORDER BY salience DESC`, string(tier))
	if err != nil {
		return nil, newBackendError("GetClaimsByTier", err)
	}
	defer rows.Close()
	return s.scanClaimsWithEmbeddings(rows)
}

// GetRecentClaims returns up to n most recently confirmed claims.
func (s *Store) GetRecentClaims(n int) ([]*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(claimSelect+` ORDER BY last_confirmed DESC LIMIT ?`, n)
	if err != nil {
		return nil, newBackendError("GetRecentClaims", err)
	}
	defer rows.Close()
	return s.scanClaimsWithEmbeddings(rows)
}

// GetClaimsDueForDecay returns claims whose lastAccessed predates
// cutoff, the working set the Memory Service's decay task scans.
func (s *Store) GetClaimsDueForDecay(cutoff int64) ([]*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(claimSelect+` WHERE last_accessed < ? AND state != ?`, cutoff, string(ClaimSuperseded))
	if err != nil {
		return nil, newBackendError("GetClaimsDueForDecay", err)
	}
	defer rows.Close()
	return s.scanClaimsWithEmbeddings(rows)
}

func (s *Store) getClaimsWhere(where string, args ...any) ([]*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(claimSelect+" "+where, args...)
	if err != nil {
		return nil, newBackendError("getClaimsWhere", err)
	}
	defer rows.Close()
	return s.scanClaimsWithEmbeddings(rows)
}

func (s *Store) scanClaimsWithEmbeddings(rows *sql.Rows) ([]*Claim, error) {
	var out []*Claim
	for rows.Next() {
		c, err := scanClaimRow(rows)
		if err != nil {
			return nil, err
		}
		c.StatementEmbedding = s.readClaimEmbedding(c.ID)
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClaim(row *sql.Row) (*Claim, error) {
	c, err := scanClaimInto(row)
	if err == sql.ErrNoRows {
		return nil, newNotFound("claim")
	}
	if err != nil {
		return nil, newBackendError("scanClaim", err)
	}
	return c, nil
}

func scanClaimRow(row scanner) (*Claim, error) {
	c, err := scanClaimInto(row)
	if err != nil {
		return nil, newBackendError("scanClaimRow", err)
	}
	return c, nil
}

func scanClaimInto(row scanner) (*Claim, error) {
	var c Claim
	var temporality, state, stakes, tier string
	err := row.Scan(&c.ID, &c.Statement, &c.Subject, &c.ClaimType, &temporality, &c.Abstraction,
		&c.SourceType, &c.InitialConfidence, &c.CurrentConfidence, &state, &c.EmotionalValence,
		&c.EmotionalIntensity, &stakes, &c.ValidFrom, &c.ValidUntil, &c.CreatedAt, &c.LastConfirmed,
		&c.ConfirmationCount, &c.ExtractionProgramID, &c.SupersededBy, &c.Elaborates, &tier,
		&c.Salience, &c.PromotedAt, &c.LastAccessed)
	if err != nil {
		return nil, err
	}
	c.Temporality, c.State, c.Stakes, c.MemoryTier = Temporality(temporality), ClaimState(state), Stakes(stakes), MemoryTier(tier)
	return &c, nil
}

// CreateClaimSource links a Claim to one of its evidencing units.
func (s *Store) CreateClaimSource(cs *ClaimSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO claim_sources (claim_id, unit_id) VALUES (?, ?)
	`, cs.ClaimID, cs.UnitID)
	if err != nil {
		return newBackendError("CreateClaimSource", err)
	}
	return nil
}

// GetClaimSources returns every unit that evidences a claim.
func (s *Store) GetClaimSources(claimID string) ([]*ClaimSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT claim_id, unit_id FROM claim_sources WHERE claim_id = ?`, claimID)
	if err != nil {
		return nil, newBackendError("GetClaimSources", err)
	}
	defer rows.Close()

	var out []*ClaimSource
	for rows.Next() {
		var cs ClaimSource
		if err := rows.Scan(&cs.ClaimID, &cs.UnitID); err != nil {
			return nil, newBackendError("scan claim source", err)
		}
		out = append(out, &cs)
	}
	return out, rows.Err()
}
