// Package extraction implements the Extraction Pipeline (spec.md
// §4.F): context assembly, a single LLM call, per-item normalization,
// and persistence of the resulting propositions/stances/spans/claims/
// entities/goals/corrections. Grounded on GoKitt's
// pkg/extraction — kept the labeled-section prompt idiom, the
// per-item normalize-or-discard filter, and the JSON-repair parsing
// chain, generalized from a two-array (entities/relations) shape to
// the five-array shape spec.md §4.F names.
package extraction

// RawExtraction is the direct JSON shape the LLM is instructed to
// return: every array element may be a bare string or an object with
// named fields (spec.md §4.F stage 3).
type RawExtraction struct {
	Entities    []rawItem `json:"entities"`
	Topics      []rawItem `json:"topics"`
	Memories    []rawItem `json:"memories"`
	Goals       []rawItem `json:"goals"`
	Corrections []rawItem `json:"corrections"`
}

// rawItem accepts either a bare string or an object, since the LLM may
// return either form for a given array element (spec.md §4.F stage 4).
type rawItem struct {
	asString string
	isString bool

	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Content    string  `json:"content"`
	Statement  string  `json:"statement"`
	Importance float64 `json:"importance"`
	Wrong      string  `json:"wrong"`
	Correct    string  `json:"correct"`
}

// NormalizedEntity is a validated entity mention (spec.md §4.F).
type NormalizedEntity struct {
	Name string
	Type string
}

// NormalizedGoal is a validated goal candidate.
type NormalizedGoal struct {
	Statement string
	Type      string
}

// NormalizedMemory is a validated claim candidate.
type NormalizedMemory struct {
	Content    string
	Type       string
	Importance float64
}

// NormalizedCorrection is a validated wrong->correct spelling pair.
type NormalizedCorrection struct {
	Wrong   string
	Correct string
}

// NormalizedExtraction holds every array after stage-4 normalization,
// malformed items already discarded.
type NormalizedExtraction struct {
	Entities    []NormalizedEntity
	Topics      []NormalizedEntity
	Memories    []NormalizedMemory
	Goals       []NormalizedGoal
	Corrections []NormalizedCorrection
}

// PipelineOutput is the Extraction Pipeline's public result (spec.md
// §4.F).
type PipelineOutput struct {
	Propositions  []string
	Stances       []string
	Claims        []string
	Entities      []string
	Goals         []string
	Corrections   []string
	ExtractorsRun []string
	Metadata      Metadata
}

// Metadata carries the pipeline run's bookkeeping fields.
type Metadata struct {
	ProcessingTimeMs int64
	Repaired         bool
}
