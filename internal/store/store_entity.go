package store

import (
	"database/sql"
	"strings"
)

const entitySelect = `
	SELECT id, canonical_name, entity_type, aliases, mention_count, first_mentioned, last_referenced
	FROM entities`

// canonicalKey normalizes a name for dedup comparisons: trimmed and
// lowercased, so entity names match case- and whitespace-insensitively.
func canonicalKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FindOrCreateEntity returns the existing Entity matching name+type
// (case/whitespace-insensitively), bumping its mention count and
// lastReferenced, or creates a new one if none exists. The bool return
// reports whether a new Entity was created.
func (s *Store) FindOrCreateEntity(name, entityType string, now int64) (*Entity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := canonicalKey(name)
	row := s.db.QueryRow(entitySelect+` WHERE canonical_key = ? AND entity_type = ?`, key, entityType)
	existing, err := scanEntityRow(row)
	if err == nil {
		existing.MentionCount++
		existing.LastReferenced = now
		if _, err := s.db.Exec(`
			UPDATE entities SET mention_count = ?, last_referenced = ? WHERE id = ?
		`, existing.MentionCount, now, existing.ID); err != nil {
			return nil, false, newBackendError("FindOrCreateEntity: update", err)
		}
		return existing, false, nil
	}
	if !IsNotFound(err) {
		return nil, false, err
	}

	e := &Entity{
		ID:             newID(),
		CanonicalName:  name,
		EntityType:     entityType,
		Aliases:        []string{},
		MentionCount:   1,
		FirstMentioned: now,
		LastReferenced: now,
	}
	_, err = s.db.Exec(`
		INSERT INTO entities (id, canonical_name, canonical_key, entity_type, aliases,
			mention_count, first_mentioned, last_referenced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.CanonicalName, key, e.EntityType, marshalJSON(e.Aliases), e.MentionCount, e.FirstMentioned, e.LastReferenced)
	if err != nil {
		return nil, false, newBackendError("FindOrCreateEntity: insert", err)
	}
	s.notify("entities")
	return e, true, nil
}

// AddEntityAlias appends alias to an entity's known aliases if not
// already present.
func (s *Store) AddEntityAlias(entityID, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(entitySelect+` WHERE id = ?`, entityID)
	e, err := scanEntityRow(row)
	if err != nil {
		return err
	}
	for _, a := range e.Aliases {
		if strings.EqualFold(a, alias) {
			return nil
		}
	}
	e.Aliases = append(e.Aliases, alias)
	_, err = s.db.Exec(`UPDATE entities SET aliases = ? WHERE id = ?`, marshalJSON(e.Aliases), entityID)
	if err != nil {
		return newBackendError("AddEntityAlias", err)
	}
	return nil
}

// GetEntity fetches an Entity by id.
func (s *Store) GetEntity(id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(entitySelect+` WHERE id = ?`, id)
	return scanEntityRow(row)
}

// GetEntitiesByType lists every entity of a given type.
func (s *Store) GetEntitiesByType(entityType string) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(entitySelect+` WHERE entity_type = ? ORDER BY canonical_name`, entityType)
	if err != nil {
		return nil, newBackendError("GetEntitiesByType", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// GetAllEntities lists every known entity.
func (s *Store) GetAllEntities() ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(entitySelect + ` ORDER BY canonical_name`)
	if err != nil {
		return nil, newBackendError("GetAllEntities", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func scanEntityRow(row *sql.Row) (*Entity, error) {
	var e Entity
	var aliasesJSON string
	err := row.Scan(&e.ID, &e.CanonicalName, &e.EntityType, &aliasesJSON, &e.MentionCount,
		&e.FirstMentioned, &e.LastReferenced)
	if err == sql.ErrNoRows {
		return nil, newNotFound("entity")
	}
	if err != nil {
		return nil, newBackendError("scanEntityRow", err)
	}
	unmarshalJSON(aliasesJSON, &e.Aliases)
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]*Entity, error) {
	var out []*Entity
	for rows.Next() {
		var e Entity
		var aliasesJSON string
		if err := rows.Scan(&e.ID, &e.CanonicalName, &e.EntityType, &aliasesJSON, &e.MentionCount,
			&e.FirstMentioned, &e.LastReferenced); err != nil {
			return nil, newBackendError("scanEntities", err)
		}
		unmarshalJSON(aliasesJSON, &e.Aliases)
		out = append(out, &e)
	}
	return out, rows.Err()
}
