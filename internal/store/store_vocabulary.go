package store

import "database/sql"

// FindOrCreateVocabulary returns the existing Vocabulary entry for
// correctSpelling+entityType, or creates one seeded with the given
// phonetic codes. Returns created=true when a new row was inserted.
func (s *Store) FindOrCreateVocabulary(correctSpelling, entityType, phoneticPrimary string, phoneticSecondary *string) (*Vocabulary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT id, correct_spelling, entity_type, context_hints, phonetic_primary,
			phonetic_secondary, usage_count, variant_counts
		FROM vocabulary WHERE correct_spelling = ? AND entity_type = ?
	`, correctSpelling, entityType)
	existing, err := scanVocabularyRow(row)
	if err == nil {
		return existing, false, nil
	}
	if !IsNotFound(err) {
		return nil, false, err
	}

	v := &Vocabulary{
		ID:                newID(),
		CorrectSpelling:   correctSpelling,
		EntityType:        entityType,
		ContextHints:      []string{},
		PhoneticPrimary:   phoneticPrimary,
		PhoneticSecondary: phoneticSecondary,
		UsageCount:        0,
		VariantCounts:     map[string]int{},
	}
	_, err = s.db.Exec(`
		INSERT INTO vocabulary (id, correct_spelling, entity_type, context_hints,
			phonetic_primary, phonetic_secondary, usage_count, variant_counts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.CorrectSpelling, v.EntityType, marshalJSON(v.ContextHints), v.PhoneticPrimary,
		v.PhoneticSecondary, v.UsageCount, marshalJSON(v.VariantCounts))
	if err != nil {
		return nil, false, newBackendError("FindOrCreateVocabulary: insert", err)
	}
	return v, true, nil
}

// RecordVocabularyVariant increments the usage count for a Vocabulary
// entry and bumps the observed-variant tally used for typo learning.
func (s *Store) RecordVocabularyVariant(id, variant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT variant_counts FROM vocabulary WHERE id = ?`, id)
	var raw string
	if err := row.Scan(&raw); err != nil {
		return newBackendError("RecordVocabularyVariant: read", err)
	}
	counts := map[string]int{}
	unmarshalJSON(raw, &counts)
	counts[variant]++

	_, err := s.db.Exec(`
		UPDATE vocabulary SET usage_count = usage_count + 1, variant_counts = ? WHERE id = ?
	`, marshalJSON(counts), id)
	if err != nil {
		return newBackendError("RecordVocabularyVariant: update", err)
	}
	return nil
}

// GetVocabularyByPhonetic returns every entry sharing a primary
// phonetic code, the candidate set a fuzzy match scores against.
func (s *Store) GetVocabularyByPhonetic(phoneticCode string) ([]*Vocabulary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`
		SELECT id, correct_spelling, entity_type, context_hints, phonetic_primary,
			phonetic_secondary, usage_count, variant_counts
		FROM vocabulary WHERE phonetic_primary = ? OR phonetic_secondary = ?
	`, phoneticCode, phoneticCode)
	if err != nil {
		return nil, newBackendError("GetVocabularyByPhonetic", err)
	}
	defer rows.Close()

	var out []*Vocabulary
	for rows.Next() {
		v, err := scanVocabularyInto(rows)
		if err != nil {
			return nil, newBackendError("scan vocabulary", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetAllVocabulary lists the entire learned vocabulary, loaded once at
// startup to seed the phonetic matcher's in-memory index.
func (s *Store) GetAllVocabulary() ([]*Vocabulary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`
		SELECT id, correct_spelling, entity_type, context_hints, phonetic_primary,
			phonetic_secondary, usage_count, variant_counts
		FROM vocabulary
	`)
	if err != nil {
		return nil, newBackendError("GetAllVocabulary", err)
	}
	defer rows.Close()

	var out []*Vocabulary
	for rows.Next() {
		v, err := scanVocabularyInto(rows)
		if err != nil {
			return nil, newBackendError("scan vocabulary", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVocabularyRow(row *sql.Row) (*Vocabulary, error) {
	v, err := scanVocabularyInto(row)
	if err == sql.ErrNoRows {
		return nil, newNotFound("vocabulary")
	}
	if err != nil {
		return nil, newBackendError("scanVocabularyRow", err)
	}
	return v, nil
}

func scanVocabularyInto(row scanner) (*Vocabulary, error) {
	var v Vocabulary
	var hintsJSON, variantsJSON string
	err := row.Scan(&v.ID, &v.CorrectSpelling, &v.EntityType, &hintsJSON, &v.PhoneticPrimary,
		&v.PhoneticSecondary, &v.UsageCount, &variantsJSON)
	if err != nil {
		return nil, err
	}
	unmarshalJSON(hintsJSON, &v.ContextHints)
	unmarshalJSON(variantsJSON, &v.VariantCounts)
	return &v, nil
}
