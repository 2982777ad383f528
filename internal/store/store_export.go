package store

import (
	"database/sql"
	"encoding/json"
)

// ExportData is the full backup payload, field order matching the
// dependency order Import must restore in (spec §6): program records
// first (nothing depends on them), then sessions/conversations, then
// claims and their sources, then entities/goals/observer family, then
// corrections/tasks/synthesis cache last.
type ExportData struct {
	ExtractionPrograms []*ExtractionProgramRecord `json:"extractionPrograms"`
	ObserverPrograms   []*ObserverProgramRecord   `json:"observerPrograms"`

	Sessions []*Session          `json:"sessions"`
	Units    []*ConversationUnit `json:"units"`

	Claims       []*Claim       `json:"claims"`
	ClaimSources []*ClaimSource `json:"claimSources"`

	Entities       []*Entity        `json:"entities"`
	Goals          []*Goal          `json:"goals"`
	ObserverOutput []*ObserverOutput `json:"observerOutputs"`
	Contradictions []*Contradiction `json:"contradictions"`
	Patterns       []*Pattern       `json:"patterns"`
	Values         []*Value         `json:"values"`

	Corrections    []*Correction     `json:"corrections"`
	Vocabulary     []*Vocabulary     `json:"vocabulary"`
	Tasks          []*Task           `json:"tasks"`
	SynthesisCache []*SynthesisCache `json:"synthesisCache"`
}

// Export serializes the entire profile's state for cross-device
// backup/restore (spec §6). Rows are read straight into the typed
// ExportData fields with queryAll; no pooled maps are used.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data ExportData
	var err error

	if data.ExtractionPrograms, err = queryAll(s.db, `SELECT id, name, version, active FROM extraction_program_records`, func(r scanner) (*ExtractionProgramRecord, error) {
		var rec ExtractionProgramRecord
		var active int
		if e := r.Scan(&rec.ID, &rec.Name, &rec.Version, &active); e != nil {
			return nil, e
		}
		rec.Active = intToBool(active)
		return &rec, nil
	}); err != nil {
		return nil, err
	}

	if data.ObserverPrograms, err = queryAll(s.db, `SELECT id, name, version, active, success_rate FROM observer_program_records`, func(r scanner) (*ObserverProgramRecord, error) {
		var rec ObserverProgramRecord
		var active int
		if e := r.Scan(&rec.ID, &rec.Name, &rec.Version, &active, &rec.SuccessRate); e != nil {
			return nil, e
		}
		rec.Active = intToBool(active)
		return &rec, nil
	}); err != nil {
		return nil, err
	}

	if data.Sessions, err = queryAll(s.db, `SELECT id, started_at, ended_at, unit_count, summary, mood_trajectory FROM sessions`, func(r scanner) (*Session, error) {
		var sess Session
		if e := r.Scan(&sess.ID, &sess.StartedAt, &sess.EndedAt, &sess.UnitCount, &sess.Summary, &sess.MoodTrajectory); e != nil {
			return nil, e
		}
		return &sess, nil
	}); err != nil {
		return nil, err
	}

	if data.Units, err = queryAll(s.db, unitSelect, func(r scanner) (*ConversationUnit, error) {
		var u ConversationUnit
		var src, spk, df string
		var processed int
		if e := r.Scan(&u.ID, &u.SessionID, &u.Timestamp, &u.RawText, &u.SanitizedText, &src, &spk,
			&df, &u.PrecedingContextSummary, &u.CreatedAt, &processed); e != nil {
			return nil, e
		}
		u.Source, u.Speaker, u.DiscourseFunction = Source(src), Speaker(spk), DiscourseFunction(df)
		u.Processed = intToBool(processed)
		return &u, nil
	}); err != nil {
		return nil, err
	}

	if data.Claims, err = queryAll(s.db, claimSelect, scanClaimInto); err != nil {
		return nil, err
	}
	for _, c := range data.Claims {
		c.StatementEmbedding = s.readClaimEmbedding(c.ID)
	}

	if data.ClaimSources, err = queryAll(s.db, `SELECT claim_id, unit_id FROM claim_sources`, func(r scanner) (*ClaimSource, error) {
		var cs ClaimSource
		if e := r.Scan(&cs.ClaimID, &cs.UnitID); e != nil {
			return nil, e
		}
		return &cs, nil
	}); err != nil {
		return nil, err
	}

	if data.Entities, err = queryAll(s.db, entitySelect, func(r scanner) (*Entity, error) {
		var e Entity
		var aliasesJSON string
		if se := r.Scan(&e.ID, &e.CanonicalName, &e.EntityType, &aliasesJSON, &e.MentionCount,
			&e.FirstMentioned, &e.LastReferenced); se != nil {
			return nil, se
		}
		unmarshalJSON(aliasesJSON, &e.Aliases)
		return &e, nil
	}); err != nil {
		return nil, err
	}

	if data.Goals, err = queryAll(s.db, goalSelect, scanGoalInto); err != nil {
		return nil, err
	}

	if data.ObserverOutput, err = queryAll(s.db, `SELECT id, observer_name, output_type, source_claim_ids, created_at, stale, content FROM observer_outputs`, func(r scanner) (*ObserverOutput, error) {
		var o ObserverOutput
		var idsJSON string
		var stale int
		if e := r.Scan(&o.ID, &o.ObserverName, &o.OutputType, &idsJSON, &o.CreatedAt, &stale, &o.Content); e != nil {
			return nil, e
		}
		unmarshalJSON(idsJSON, &o.SourceClaimIDs)
		o.Stale = intToBool(stale)
		return &o, nil
	}); err != nil {
		return nil, err
	}

	if data.Contradictions, err = queryAll(s.db, `SELECT id, claim_ids, description, created_at, stale FROM contradictions`, func(r scanner) (*Contradiction, error) {
		var c Contradiction
		var idsJSON string
		var stale int
		if e := r.Scan(&c.ID, &idsJSON, &c.Description, &c.CreatedAt, &stale); e != nil {
			return nil, e
		}
		unmarshalJSON(idsJSON, &c.ClaimIDs)
		c.Stale = intToBool(stale)
		return &c, nil
	}); err != nil {
		return nil, err
	}

	if data.Patterns, err = queryAll(s.db, `SELECT id, description, source_claim_ids, created_at, stale FROM patterns`, func(r scanner) (*Pattern, error) {
		var p Pattern
		var idsJSON string
		var stale int
		if e := r.Scan(&p.ID, &p.Description, &idsJSON, &p.CreatedAt, &stale); e != nil {
			return nil, e
		}
		unmarshalJSON(idsJSON, &p.SourceClaimIDs)
		p.Stale = intToBool(stale)
		return &p, nil
	}); err != nil {
		return nil, err
	}

	if data.Values, err = queryAll(s.db, `SELECT id, statement, source_claim_ids, created_at, stale FROM value_outputs`, func(r scanner) (*Value, error) {
		var v Value
		var idsJSON string
		var stale int
		if e := r.Scan(&v.ID, &v.Statement, &idsJSON, &v.CreatedAt, &stale); e != nil {
			return nil, e
		}
		unmarshalJSON(idsJSON, &v.SourceClaimIDs)
		v.Stale = intToBool(stale)
		return &v, nil
	}); err != nil {
		return nil, err
	}

	if data.Corrections, err = queryAll(s.db, `SELECT id, wrong_text, correct_text, original_case, usage_count, created_at, last_used, source_unit_id FROM corrections`, func(r scanner) (*Correction, error) {
		var c Correction
		if e := r.Scan(&c.ID, &c.WrongText, &c.CorrectText, &c.OriginalCase, &c.UsageCount, &c.CreatedAt, &c.LastUsed, &c.SourceUnitID); e != nil {
			return nil, e
		}
		return &c, nil
	}); err != nil {
		return nil, err
	}

	if data.Vocabulary, err = queryAll(s.db, `SELECT id, correct_spelling, entity_type, context_hints, phonetic_primary, phonetic_secondary, usage_count, variant_counts FROM vocabulary`, scanVocabularyInto); err != nil {
		return nil, err
	}

	if data.Tasks, err = queryAll(s.db, taskSelect, scanTaskInto); err != nil {
		return nil, err
	}

	if data.SynthesisCache, err = queryAll(s.db, `SELECT id, synthesis_type, cache_key, content, source_claims, created_at, stale, ttl_seconds FROM synthesis_cache`, func(r scanner) (*SynthesisCache, error) {
		var c SynthesisCache
		var sourceClaimsJSON string
		var stale int
		if e := r.Scan(&c.ID, &c.SynthesisType, &c.CacheKey, &c.Content, &sourceClaimsJSON, &c.CreatedAt, &stale, &c.TTLSeconds); e != nil {
			return nil, e
		}
		unmarshalJSON(sourceClaimsJSON, &c.SourceClaims)
		c.Stale = intToBool(stale)
		return &c, nil
	}); err != nil {
		return nil, err
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, newBackendError("Export: marshal", err)
	}
	return out, nil
}

func queryAll[T any](db *sql.DB, query string, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, newBackendError("queryAll: "+query, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, newBackendError("queryAll scan: "+query, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Import replaces the entire profile's state with the contents of an
// Export payload, restoring tables in dependency order inside a single
// transaction (spec §6). The whole operation is atomic: any failure
// leaves the prior state untouched.
func (s *Store) Import(raw []byte) error {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return newSchemaMismatch("Import: unmarshal", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return newBackendError("Import: begin", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"synthesis_cache", "tasks", "vocabulary", "corrections",
		"value_outputs", "patterns", "contradictions", "observer_outputs", "goals", "entities",
		"claim_sources", "claims",
		"conversation_units", "sessions",
		"observer_program_records", "extraction_program_records",
	} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return newBackendError("Import: clear "+table, err)
		}
	}

	for _, r := range data.ExtractionPrograms {
		if _, err := tx.Exec(`INSERT INTO extraction_program_records (id, name, version, active) VALUES (?, ?, ?, ?)`,
			r.ID, r.Name, r.Version, boolToInt(r.Active)); err != nil {
			return newBackendError("Import: extraction program", err)
		}
	}
	for _, r := range data.ObserverPrograms {
		if _, err := tx.Exec(`INSERT INTO observer_program_records (id, name, version, active, success_rate) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.Version, boolToInt(r.Active), r.SuccessRate); err != nil {
			return newBackendError("Import: observer program", err)
		}
	}
	for _, sess := range data.Sessions {
		if _, err := tx.Exec(`INSERT INTO sessions (id, started_at, ended_at, unit_count, summary, mood_trajectory) VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.StartedAt, sess.EndedAt, sess.UnitCount, sess.Summary, sess.MoodTrajectory); err != nil {
			return newBackendError("Import: session", err)
		}
	}
	for _, u := range data.Units {
		if _, err := tx.Exec(`INSERT INTO conversation_units (id, session_id, timestamp, raw_text, sanitized_text,
			source, speaker, discourse_function, preceding_context_summary, created_at, processed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.SessionID, u.Timestamp, u.RawText, u.SanitizedText, string(u.Source), string(u.Speaker),
			string(u.DiscourseFunction), u.PrecedingContextSummary, u.CreatedAt, boolToInt(u.Processed)); err != nil {
			return newBackendError("Import: unit", err)
		}
	}
	for _, c := range data.Claims {
		if _, err := tx.Exec(`INSERT INTO claims (id, statement, subject, claim_type, temporality, abstraction,
			source_type, initial_confidence, current_confidence, state, emotional_valence, emotional_intensity,
			stakes, valid_from, valid_until, created_at, last_confirmed, confirmation_count, extraction_program_id,
			superseded_by, elaborates, memory_tier, salience, promoted_at, last_accessed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Statement, c.Subject, c.ClaimType, string(c.Temporality), c.Abstraction, c.SourceType,
			c.InitialConfidence, c.CurrentConfidence, string(c.State), c.EmotionalValence, c.EmotionalIntensity,
			string(c.Stakes), c.ValidFrom, c.ValidUntil, c.CreatedAt, c.LastConfirmed, c.ConfirmationCount,
			c.ExtractionProgramID, c.SupersededBy, c.Elaborates, string(c.MemoryTier), c.Salience, c.PromotedAt,
			c.LastAccessed); err != nil {
			return newBackendError("Import: claim", err)
		}
		if len(c.StatementEmbedding) > 0 {
			if _, err := tx.Exec(`INSERT INTO claim_embeddings (claim_id, embedding) VALUES (?, ?)
				ON CONFLICT(claim_id) DO UPDATE SET embedding = excluded.embedding`,
				c.ID, encodeVector(c.StatementEmbedding)); err != nil {
				s.log.Debug().Err(err).Msg("Import: skipping claim embedding restore")
			}
		}
	}
	for _, cs := range data.ClaimSources {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO claim_sources (claim_id, unit_id) VALUES (?, ?)`, cs.ClaimID, cs.UnitID); err != nil {
			return newBackendError("Import: claim source", err)
		}
	}
	for _, e := range data.Entities {
		if _, err := tx.Exec(`INSERT INTO entities (id, canonical_name, canonical_key, entity_type, aliases,
			mention_count, first_mentioned, last_referenced) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.CanonicalName, canonicalKey(e.CanonicalName), e.EntityType, marshalJSON(e.Aliases),
			e.MentionCount, e.FirstMentioned, e.LastReferenced); err != nil {
			return newBackendError("Import: entity", err)
		}
	}
	for _, g := range data.Goals {
		if _, err := tx.Exec(`INSERT INTO goals (id, statement, goal_type, timeframe, status, parent_goal_id,
			created_at, last_referenced, priority, progress_type, progress_value, milestones, blockers,
			source_claim_id, motivation, deadline) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, g.Statement, g.GoalType, string(g.Timeframe), string(g.Status), g.ParentGoalID, g.CreatedAt,
			g.LastReferenced, g.Priority, string(g.ProgressType), g.ProgressValue, marshalJSON(g.Milestones),
			marshalJSON(g.Blockers), g.SourceClaimID, g.Motivation, g.Deadline); err != nil {
			return newBackendError("Import: goal", err)
		}
	}
	for _, o := range data.ObserverOutput {
		if _, err := tx.Exec(`INSERT INTO observer_outputs (id, observer_name, output_type, source_claim_ids,
			created_at, stale, content) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.ObserverName, o.OutputType, marshalJSON(o.SourceClaimIDs), o.CreatedAt, boolToInt(o.Stale), o.Content); err != nil {
			return newBackendError("Import: observer output", err)
		}
	}
	for _, c := range data.Contradictions {
		if _, err := tx.Exec(`INSERT INTO contradictions (id, claim_ids, description, created_at, stale) VALUES (?, ?, ?, ?, ?)`,
			c.ID, marshalJSON(c.ClaimIDs), c.Description, c.CreatedAt, boolToInt(c.Stale)); err != nil {
			return newBackendError("Import: contradiction", err)
		}
	}
	for _, p := range data.Patterns {
		if _, err := tx.Exec(`INSERT INTO patterns (id, description, source_claim_ids, created_at, stale) VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.Description, marshalJSON(p.SourceClaimIDs), p.CreatedAt, boolToInt(p.Stale)); err != nil {
			return newBackendError("Import: pattern", err)
		}
	}
	for _, v := range data.Values {
		if _, err := tx.Exec(`INSERT INTO value_outputs (id, statement, source_claim_ids, created_at, stale) VALUES (?, ?, ?, ?, ?)`,
			v.ID, v.Statement, marshalJSON(v.SourceClaimIDs), v.CreatedAt, boolToInt(v.Stale)); err != nil {
			return newBackendError("Import: value", err)
		}
	}
	for _, c := range data.Corrections {
		if _, err := tx.Exec(`INSERT INTO corrections (id, wrong_text, correct_text, original_case, usage_count,
			created_at, last_used, source_unit_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.WrongText, c.CorrectText, c.OriginalCase, c.UsageCount, c.CreatedAt, c.LastUsed, c.SourceUnitID); err != nil {
			return newBackendError("Import: correction", err)
		}
	}
	for _, v := range data.Vocabulary {
		if _, err := tx.Exec(`INSERT INTO vocabulary (id, correct_spelling, entity_type, context_hints,
			phonetic_primary, phonetic_secondary, usage_count, variant_counts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, v.CorrectSpelling, v.EntityType, marshalJSON(v.ContextHints), v.PhoneticPrimary,
			v.PhoneticSecondary, v.UsageCount, marshalJSON(v.VariantCounts)); err != nil {
			return newBackendError("Import: vocabulary", err)
		}
	}
	for _, t := range data.Tasks {
		if _, err := tx.Exec(`INSERT INTO tasks (id, task_type, payload, status, priority, priority_value,
			attempts, max_attempts, last_error, last_error_at, next_retry_at, backoff_config, checkpoint,
			created_at, started_at, completed_at, execute_at, group_id, depends_on, session_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.TaskType, t.Payload, string(t.Status), string(t.Priority), t.PriorityValue, t.Attempts,
			t.MaxAttempts, t.LastError, t.LastErrorAt, t.NextRetryAt, marshalJSON(t.BackoffConfig),
			marshalCheckpoint(t.Checkpoint), t.CreatedAt, t.StartedAt, t.CompletedAt, t.ExecuteAt, t.GroupID,
			t.DependsOn, t.SessionID); err != nil {
			return newBackendError("Import: task", err)
		}
	}
	for _, c := range data.SynthesisCache {
		if _, err := tx.Exec(`INSERT INTO synthesis_cache (id, synthesis_type, cache_key, content, source_claims,
			created_at, stale, ttl_seconds) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.SynthesisType, c.CacheKey, c.Content, marshalJSON(c.SourceClaims), c.CreatedAt,
			boolToInt(c.Stale), c.TTLSeconds); err != nil {
			return newBackendError("Import: synthesis cache", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return newBackendError("Import: commit", err)
	}
	return nil
}
