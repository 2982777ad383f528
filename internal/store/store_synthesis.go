package store

import "database/sql"

// GetSynthesisCache fetches a cache entry by type+key, regardless of
// validity; callers apply SynthesisCache.Valid themselves.
func (s *Store) GetSynthesisCache(synthesisType, cacheKey string) (*SynthesisCache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`
		SELECT id, synthesis_type, cache_key, content, source_claims, created_at, stale, ttl_seconds
		FROM synthesis_cache WHERE synthesis_type = ? AND cache_key = ?
	`, synthesisType, cacheKey)
	return scanSynthesisCache(row)
}

// UpsertSynthesisCache stores or replaces a cached synthesis result.
func (s *Store) UpsertSynthesisCache(c *SynthesisCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO synthesis_cache (id, synthesis_type, cache_key, content, source_claims,
			created_at, stale, ttl_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(synthesis_type, cache_key) DO UPDATE SET
			content = excluded.content, source_claims = excluded.source_claims,
			created_at = excluded.created_at, stale = excluded.stale, ttl_seconds = excluded.ttl_seconds
	`, c.ID, c.SynthesisType, c.CacheKey, c.Content, marshalJSON(c.SourceClaims),
		c.CreatedAt, boolToInt(c.Stale), c.TTLSeconds)
	if err != nil {
		return newBackendError("UpsertSynthesisCache", err)
	}
	return nil
}

// InvalidateSynthesisCache marks every cache entry of a given type
// stale, used when one of its source claims changes.
func (s *Store) InvalidateSynthesisCache(synthesisType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE synthesis_cache SET stale = 1 WHERE synthesis_type = ?`, synthesisType)
	if err != nil {
		return newBackendError("InvalidateSynthesisCache", err)
	}
	return nil
}

func scanSynthesisCache(row *sql.Row) (*SynthesisCache, error) {
	var c SynthesisCache
	var sourceClaimsJSON string
	var stale int
	err := row.Scan(&c.ID, &c.SynthesisType, &c.CacheKey, &c.Content, &sourceClaimsJSON,
		&c.CreatedAt, &stale, &c.TTLSeconds)
	if err == sql.ErrNoRows {
		return nil, newNotFound("synthesis cache")
	}
	if err != nil {
		return nil, newBackendError("scanSynthesisCache", err)
	}
	unmarshalJSON(sourceClaimsJSON, &c.SourceClaims)
	c.Stale = intToBool(stale)
	return &c, nil
}
