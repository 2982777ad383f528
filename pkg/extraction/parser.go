package extraction

import (
	"encoding/json"
	"strings"

	"github.com/ashishact/ramble/pkg/llm"
)

// UnmarshalJSON accepts either a bare JSON string or an object,
// matching spec.md §4.F's "each entry may be a string or an object
// with named fields".
func (r *rawItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.asString = s
		r.isString = true
		return nil
	}

	type alias rawItem
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = rawItem(a)
	return nil
}

// ParseResponse decodes the LLM's raw text into a RawExtraction,
// applying pkg/llm's JSON-repair ladder (grounded on GoKitt's
// stripCodeFence/regex-repair chain).
func ParseResponse(raw string) (*RawExtraction, bool, error) {
	var result RawExtraction
	err := llm.ParseJSON(raw, &result)
	if err != nil {
		return nil, false, err
	}
	return &result, false, nil
}

// Normalize applies spec.md §4.F stage 4's per-item rules, discarding
// malformed items and keeping well-formed ones.
func Normalize(raw *RawExtraction) NormalizedExtraction {
	out := NormalizedExtraction{}

	for _, e := range raw.Entities {
		if n, ok := normalizeEntity(e); ok {
			out.Entities = append(out.Entities, n)
		}
	}
	for _, t := range raw.Topics {
		if n, ok := normalizeEntity(t); ok {
			out.Topics = append(out.Topics, n)
		}
	}
	for _, g := range raw.Goals {
		if n, ok := normalizeGoal(g); ok {
			out.Goals = append(out.Goals, n)
		}
	}
	for _, m := range raw.Memories {
		if n, ok := normalizeMemory(m); ok {
			out.Memories = append(out.Memories, n)
		}
	}
	for _, c := range raw.Corrections {
		if n, ok := normalizeCorrection(c); ok {
			out.Corrections = append(out.Corrections, n)
		}
	}

	return collapseDuplicateEntities(out)
}

// normalizeEntity: string -> {name, type:"unknown"}; object must carry
// a non-empty name.
func normalizeEntity(item rawItem) (NormalizedEntity, bool) {
	if item.isString {
		name := strings.TrimSpace(item.asString)
		if name == "" {
			return NormalizedEntity{}, false
		}
		return NormalizedEntity{Name: name, Type: "unknown"}, true
	}
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return NormalizedEntity{}, false
	}
	typ := strings.TrimSpace(item.Type)
	if typ == "" {
		typ = "unknown"
	}
	return NormalizedEntity{Name: name, Type: typ}, true
}

// normalizeGoal accepts statement or content; defaults type "general".
func normalizeGoal(item rawItem) (NormalizedGoal, bool) {
	if item.isString {
		stmt := strings.TrimSpace(item.asString)
		if stmt == "" {
			return NormalizedGoal{}, false
		}
		return NormalizedGoal{Statement: stmt, Type: "general"}, true
	}
	stmt := strings.TrimSpace(item.Statement)
	if stmt == "" {
		stmt = strings.TrimSpace(item.Content)
	}
	if stmt == "" {
		return NormalizedGoal{}, false
	}
	typ := strings.TrimSpace(item.Type)
	if typ == "" {
		typ = "general"
	}
	return NormalizedGoal{Statement: stmt, Type: typ}, true
}

// normalizeMemory: string -> {content, type:"fact"}; importance clamped
// to [0,1].
func normalizeMemory(item rawItem) (NormalizedMemory, bool) {
	if item.isString {
		content := strings.TrimSpace(item.asString)
		if content == "" {
			return NormalizedMemory{}, false
		}
		return NormalizedMemory{Content: content, Type: "fact", Importance: 0.5}, true
	}
	content := strings.TrimSpace(item.Content)
	if content == "" {
		return NormalizedMemory{}, false
	}
	typ := strings.TrimSpace(item.Type)
	if typ == "" {
		typ = "fact"
	}
	importance := item.Importance
	if importance < 0 {
		importance = 0
	}
	if importance > 1 {
		importance = 1
	}
	if importance == 0 {
		importance = 0.5
	}
	return NormalizedMemory{Content: content, Type: typ, Importance: importance}, true
}

// normalizeCorrection requires both wrong and correct, non-empty.
func normalizeCorrection(item rawItem) (NormalizedCorrection, bool) {
	wrong := strings.TrimSpace(item.Wrong)
	correct := strings.TrimSpace(item.Correct)
	if wrong == "" || correct == "" {
		return NormalizedCorrection{}, false
	}
	return NormalizedCorrection{Wrong: wrong, Correct: correct}, true
}

// collapseDuplicateEntities merges entities/topics that share the same
// lowercase name within one extraction, keeping the first and taking a
// duplicate's type over "unknown". Mentions are not summed: the merged
// entity is persisted once and counts as a single mention.
func collapseDuplicateEntities(in NormalizedExtraction) NormalizedExtraction {
	in.Entities = dedupeEntities(in.Entities)
	in.Topics = dedupeEntities(in.Topics)
	return in
}

func dedupeEntities(entities []NormalizedEntity) []NormalizedEntity {
	seen := make(map[string]int, len(entities))
	out := make([]NormalizedEntity, 0, len(entities))
	for _, e := range entities {
		key := strings.ToLower(e.Name)
		if idx, ok := seen[key]; ok {
			if out[idx].Type == "unknown" && e.Type != "unknown" {
				out[idx].Type = e.Type
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, e)
	}
	return out
}
