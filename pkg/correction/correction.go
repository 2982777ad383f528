// Package correction implements the Correction Service (spec.md §4.C):
// learning wrongText -> correctText mappings from explicit user
// corrections, then silently rewriting future occurrences of a known
// wrong term before the text reaches the extraction pipeline. Grounded
// on GoKitt's pkg/implicit-matcher/dictionary.go RuntimeDictionary: one
// Aho-Corasick automaton over every learned wrong form, rebuilt
// whenever a new correction is learned.
package correction

import (
	"strings"
	"sync"

	"github.com/coregx/ahocorasick"

	"github.com/ashishact/ramble/internal/ids"
	"github.com/ashishact/ramble/internal/store"
)

// Service learns and applies corrections against a Store-backed
// correction table, keeping an in-memory Aho-Corasick index of wrong
// forms in sync with it.
type Service struct {
	store *store.Store

	mu      sync.RWMutex
	ac      *ahocorasick.Automaton
	byKey   map[string]*store.Correction
	indexed []string
}

// New loads the current correction table and builds its scan index.
func New(s *store.Store) (*Service, error) {
	svc := &Service{store: s, byKey: make(map[string]*store.Correction)}
	existing, err := s.GetAllCorrections()
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		svc.byKey[canonicalKey(c.WrongText)] = c
	}
	if err := svc.rebuildIndex(); err != nil {
		return nil, err
	}
	return svc, nil
}

func canonicalKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Learn records a new wrongText -> correctText mapping, or bumps usage
// if the pair is already known (spec.md §4.C: corrections are learned
// once and then reused, never duplicated).
func (s *Service) Learn(wrongText, correctText string, now int64, sourceUnitID *string) (*store.Correction, error) {
	key := canonicalKey(wrongText)

	s.mu.RLock()
	existing, ok := s.byKey[key]
	s.mu.RUnlock()
	if ok {
		if err := s.store.RecordCorrectionUsage(existing.ID, now); err != nil {
			return nil, err
		}
		existing.UsageCount++
		existing.LastUsed = now
		return existing, nil
	}

	c := &store.Correction{
		ID:           ids.New(),
		WrongText:    wrongText,
		CorrectText:  correctText,
		OriginalCase: wrongText,
		UsageCount:   1,
		CreatedAt:    now,
		LastUsed:     now,
		SourceUnitID: sourceUnitID,
	}
	if err := s.store.CreateCorrection(c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.byKey[key] = c
	s.mu.Unlock()
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply rewrites every known wrong form it finds in text with its
// learned correct form, returning the rewritten text and the
// corrections that fired. Matching is case-insensitive and
// whole-token (Aho-Corasick over canonicalized text), preserving the
// surrounding text verbatim around each replacement.
func (s *Service) Apply(text string, now int64) (string, []*store.Correction) {
	s.mu.RLock()
	ac := s.ac
	s.mu.RUnlock()
	if ac == nil {
		return text, nil
	}

	canonical := canonicalizeForScan(text)
	matches := ac.FindAllOverlapping([]byte(canonical))
	if len(matches) == 0 {
		return text, nil
	}

	offsetMap := buildOffsetMap(text)

	type replacement struct {
		start, end int
		c          *store.Correction
	}
	var reps []replacement
	isWordByte := func(b byte) bool {
		return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b >= 0x80
	}
	s.mu.RLock()
	for _, m := range matches {
		if (m.Start > 0 && isWordByte(canonical[m.Start-1])) || (m.End < len(canonical) && isWordByte(canonical[m.End])) {
			continue // inside a longer word, not a whole token
		}
		wrong := canonical[m.Start:m.End]
		c, ok := s.byKey[wrong]
		if !ok {
			continue
		}
		origStart := mapOffset(m.Start, offsetMap, len(text))
		origEnd := mapOffset(m.End, offsetMap, len(text))
		reps = append(reps, replacement{start: origStart, end: origEnd, c: c})
	}
	s.mu.RUnlock()
	if len(reps) == 0 {
		return text, nil
	}

	var out strings.Builder
	var applied []*store.Correction
	cursor := 0
	for _, r := range reps {
		if r.start < cursor {
			continue // overlapping match already covered by a prior, longer replacement
		}
		out.WriteString(text[cursor:r.start])
		out.WriteString(r.c.CorrectText)
		cursor = r.end
		applied = append(applied, r.c)
		_ = s.store.RecordCorrectionUsage(r.c.ID, now)
	}
	out.WriteString(text[cursor:])
	return out.String(), applied
}

// KnownCorrections returns every learned mapping, for the debug/inspect
// surface (spec.md §4.K).
func (s *Service) KnownCorrections() []*store.Correction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Correction, 0, len(s.byKey))
	for _, c := range s.byKey {
		out = append(out, c)
	}
	return out
}

func (s *Service) rebuildIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	patterns := make([]string, 0, len(s.byKey))
	for key := range s.byKey {
		patterns = append(patterns, key)
	}
	if len(patterns) == 0 {
		s.ac = nil
		return nil
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return err
	}
	s.ac = automaton
	s.indexed = patterns
	return nil
}

// canonicalizeForScan lowercases text without otherwise reshaping it,
// so byte offsets stay recoverable via buildOffsetMap.
func canonicalizeForScan(s string) string {
	return strings.ToLower(s)
}

// buildOffsetMap maps each byte offset in the lowercased copy of s back
// to the matching byte offset in s. strings.ToLower is byte-length
// preserving for the ASCII text this system targets, so the map is the
// identity function; kept as an explicit step (rather than assuming
// it away) because a non-ASCII correction term would break that
// assumption silently otherwise.
func buildOffsetMap(s string) []int {
	m := make([]int, len(s))
	for i := range s {
		m[i] = i
	}
	return m
}

func mapOffset(canonOffset int, m []int, origLen int) int {
	if canonOffset >= len(m) {
		return origLen
	}
	return m[canonOffset]
}
