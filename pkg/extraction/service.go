package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashishact/ramble/internal/ids"
	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/correction"
	"github.com/ashishact/ramble/pkg/eventbus"
	"github.com/ashishact/ramble/pkg/goal"
	"github.com/ashishact/ramble/pkg/llm"
	"github.com/ashishact/ramble/pkg/phonetic"
)

// ProgramName identifies this pipeline's ExtractionProgramRecord,
// matching GoKitt's single-extractor registration pattern.
const ProgramName = "conversation-extractor"
const programVersion = "1"

// contextUnitWindow bounds how many recent units feed the context
// window (spec.md §4.F stage 1).
const contextUnitWindow = 10

// Service implements the Extraction Pipeline (spec.md §4.F): it reads
// one ConversationUnit, assembles context, calls an llm.Provider once,
// normalizes the result, and persists everything in one pass. Grounded
// on GoKitt's pkg/extraction/service.go Service, generalized from a
// *batch.Service-backed single-shot call to a direct llm.Provider call
// (network transport is this system's Non-goal, so the provider is
// supplied by the embedding application).
type Service struct {
	store      *store.Store
	bus        *eventbus.Bus
	provider   llm.Provider
	goals      *goal.Manager
	correction *correction.Service
	matcher    *phonetic.Matcher

	programID string
}

// New constructs a Service and registers its ExtractionProgramRecord.
// matcher may be nil when no vocabulary has been learned yet.
func New(s *store.Store, bus *eventbus.Bus, provider llm.Provider, goals *goal.Manager, corr *correction.Service, matcher *phonetic.Matcher) (*Service, error) {
	svc := &Service{store: s, bus: bus, provider: provider, goals: goals, correction: corr, matcher: matcher}

	existing, err := s.GetExtractionProgramRecords()
	if err != nil {
		return nil, err
	}
	for _, rec := range existing {
		if rec.Name == ProgramName {
			svc.programID = rec.ID
			return svc, nil
		}
	}
	svc.programID = ids.New()
	if err := s.UpsertExtractionProgramRecord(&store.ExtractionProgramRecord{
		ID: svc.programID, Name: ProgramName, Version: programVersion, Active: true,
	}); err != nil {
		return nil, err
	}
	return svc, nil
}

// SetMatcher installs (or replaces) the phonetic Matcher used for
// stage-2 speech hints, called whenever the vocabulary changes.
func (s *Service) SetMatcher(m *phonetic.Matcher) {
	s.matcher = m
}

// ProcessUnit runs the full pipeline for one already-persisted,
// unprocessed ConversationUnit: assemble context (stage 1), compute
// phonetic hints for speech-sourced units (stage 2), call the LLM
// (stage 3), normalize (stage 4), persist (stage 5), and mark the unit
// processed (stage 6). An empty extraction is valid: the unit is still
// marked processed and ExtractorsRun still records this program ran.
func (s *Service) ProcessUnit(ctx context.Context, unit *store.ConversationUnit, now int64) (*PipelineOutput, error) {
	window, err := s.assembleContext(unit)
	if err != nil {
		return nil, fmt.Errorf("extraction: assemble context: %w", err)
	}

	if unit.Source == store.SourceSpeech && s.matcher != nil {
		window.PhoneticHints = s.phoneticHints(unit.SanitizedText)
	}

	userPrompt := BuildUserPrompt(window, unit.SanitizedText)
	raw, err := s.provider.Complete(ctx, SystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("extraction: llm call: %w", err)
	}

	parsed, _, err := ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("extraction: parse response: %w", err)
	}

	normalized := Normalize(parsed)

	output, err := s.persist(unit, normalized, now)
	if err != nil {
		return nil, fmt.Errorf("extraction: persist: %w", err)
	}
	output.ExtractorsRun = []string{ProgramName}

	if err := s.store.MarkUnitProcessed(unit.ID); err != nil {
		return nil, fmt.Errorf("extraction: mark processed: %w", err)
	}

	return output, nil
}

// phoneticHints surfaces "X sounds like it might mean Y" suggestions
// for unknown tokens in a speech-sourced unit (spec.md §4.D, consumed
// as stage-2 context by the LLM call).
func (s *Service) phoneticHints(text string) []string {
	var hints []string
	for _, cand := range s.matcher.FindUnknownTokens(text) {
		m := s.matcher.Suggest(cand.Token)
		if m == nil {
			continue
		}
		hints = append(hints, fmt.Sprintf("%q may have been misheard for %q", cand.Token, m.Vocabulary.CorrectSpelling))
	}
	return hints
}

// assembleContext builds the ContextWindow the LLM prompt folds in
// (spec.md §4.F stage 1): recent units, known entities, active goals
// and working-tier claims as a rolling summary.
func (s *Service) assembleContext(unit *store.ConversationUnit) (ContextWindow, error) {
	var window ContextWindow

	recent, err := s.store.GetUnitsBySession(unit.SessionID)
	if err != nil {
		return window, err
	}
	if len(recent) > contextUnitWindow {
		recent = recent[len(recent)-contextUnitWindow:]
	}
	window.RecentUnits = recent

	entities, err := s.store.GetAllEntities()
	if err != nil {
		return window, err
	}
	window.KnownEntities = entities

	working, err := s.store.GetClaimsByTier(store.MemoryWorking)
	if err != nil {
		return window, err
	}
	window.WorkingMemory = working

	active, err := s.store.GetGoalsByStatus(store.GoalActive)
	if err != nil {
		return window, err
	}
	window.ActiveGoals = active

	return window, nil
}

// persist writes every normalized item to the Store in one pass
// (spec.md §4.F stage 5), building the public PipelineOutput summary
// as it goes.
func (s *Service) persist(unit *store.ConversationUnit, n NormalizedExtraction, now int64) (*PipelineOutput, error) {
	out := &PipelineOutput{}

	prop := &store.Proposition{ID: ids.New(), UnitID: unit.ID, Text: unit.SanitizedText, CreatedAt: now}
	if err := s.store.CreateProposition(prop); err != nil {
		return nil, err
	}
	out.Propositions = append(out.Propositions, prop.ID)

	stance := &store.Stance{ID: ids.New(), PropositionID: prop.ID, Attitude: discourseAttitude(unit.DiscourseFunction), Intensity: 0.5}
	if err := s.store.CreateStance(stance); err != nil {
		return nil, err
	}
	out.Stances = append(out.Stances, stance.ID)

	for _, e := range n.Entities {
		id, err := s.persistEntityMention(unit, e, now)
		if err != nil {
			return nil, err
		}
		out.Entities = append(out.Entities, id)
	}
	for _, t := range n.Topics {
		id, err := s.persistEntityMention(unit, t, now)
		if err != nil {
			return nil, err
		}
		out.Entities = append(out.Entities, id)
	}

	for _, m := range n.Memories {
		claimID, err := s.persistMemory(unit, m, now)
		if err != nil {
			return nil, err
		}
		out.Claims = append(out.Claims, claimID)
	}

	for _, g := range n.Goals {
		goalID, err := s.persistGoal(unit, g, now)
		if err != nil {
			return nil, err
		}
		out.Goals = append(out.Goals, goalID)
	}

	for _, c := range n.Corrections {
		learned, err := s.correction.Learn(c.Wrong, c.Correct, now, &unit.ID)
		if err != nil {
			return nil, err
		}
		out.Corrections = append(out.Corrections, learned.ID)
	}

	return out, nil
}

// persistEntityMention finds-or-creates the canonical Entity, then
// records the Span and EntityMention tying it to this unit.
func (s *Service) persistEntityMention(unit *store.ConversationUnit, e NormalizedEntity, now int64) (string, error) {
	entity, _, err := s.store.FindOrCreateEntity(e.Name, e.Type, now)
	if err != nil {
		return "", err
	}

	start, end := locate(unit.SanitizedText, e.Name)
	span := &store.Span{ID: ids.New(), UnitID: unit.ID, CharStart: start, CharEnd: end, Text: e.Name}
	if err := s.store.CreateSpan(span); err != nil {
		return "", err
	}

	mention := &store.EntityMention{ID: ids.New(), EntityID: entity.ID, SpanID: span.ID, UnitID: unit.ID}
	if err := s.store.CreateEntityMention(mention); err != nil {
		return "", err
	}

	return entity.ID, nil
}

// persistMemory creates a Claim from a normalized memory item, linked
// to this unit via a ClaimSource (spec.md §4.F stage 5, §4.H's initial
// fields).
func (s *Service) persistMemory(unit *store.ConversationUnit, m NormalizedMemory, now int64) (string, error) {
	claim := &store.Claim{
		ID:                  ids.New(),
		Statement:           m.Content,
		Subject:             unit.SessionID,
		ClaimType:           m.Type,
		Temporality:         store.TemporalitySlowlyDecaying,
		Abstraction:         "concrete",
		SourceType:          string(unit.Source),
		InitialConfidence:   m.Importance,
		CurrentConfidence:   m.Importance,
		State:               store.ClaimActive,
		EmotionalValence:    0,
		EmotionalIntensity:  0,
		Stakes:              store.StakesMedium,
		ValidFrom:           now,
		CreatedAt:           now,
		LastConfirmed:       now,
		ConfirmationCount:   1,
		ExtractionProgramID: s.programID,
		MemoryTier:          store.MemoryWorking,
		Salience:            m.Importance,
		LastAccessed:        now,
	}
	if err := s.store.CreateClaim(claim); err != nil {
		return "", err
	}
	if err := s.store.CreateClaimSource(&store.ClaimSource{ClaimID: claim.ID, UnitID: unit.ID}); err != nil {
		return "", err
	}
	return claim.ID, nil
}

// persistGoal creates a backing Claim for the goal statement, then
// either folds the statement into an existing fuzzy-matched Goal
// (bumping lastReferenced) or creates a new one (spec.md §4.F stage 5,
// §4.I's fuzzy-match Open Question decision).
func (s *Service) persistGoal(unit *store.ConversationUnit, g NormalizedGoal, now int64) (string, error) {
	claimID, err := s.persistMemory(unit, NormalizedMemory{Content: g.Statement, Type: "goal", Importance: 0.6}, now)
	if err != nil {
		return "", err
	}

	threshold := goal.DefaultFuzzyThreshold
	similar, err := s.goals.FindSimilar(g.Statement, threshold)
	if err != nil {
		return "", err
	}
	if len(similar) > 0 {
		existing := similar[0]
		existing.LastReferenced = now
		if err := s.store.UpdateGoal(existing); err != nil {
			return "", err
		}
		return existing.ID, nil
	}

	created, err := s.goals.CreateGoal(g.Statement, claimID, now, goal.CreateOptions{GoalType: g.Type, Timeframe: store.TimeframeShortTerm})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// discourseAttitude maps a unit's DiscourseFunction to the default
// Stance attitude its extracted proposition carries.
func discourseAttitude(df store.DiscourseFunction) store.Attitude {
	switch df {
	case store.DiscourseQuest:
		return store.AttitudeQuestioned
	case store.DiscourseCommand:
		return store.AttitudeWished
	default:
		return store.AttitudeAsserted
	}
}

// locate returns the first byte-offset span of needle within
// haystack, or (0, len(needle)) if not found verbatim (paraphrased
// extractions need not appear literally in the source text).
func locate(haystack, needle string) (int, int) {
	idx := strings.Index(strings.ToLower(haystack), strings.ToLower(needle))
	if idx < 0 {
		return 0, len(needle)
	}
	return idx, idx + len(needle)
}
