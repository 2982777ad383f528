// Package memory implements the Memory Service (spec.md §4.H):
// salience scoring, the decay pass (RunDecay), working->long-term
// promotion, and the bounded TopOfMind view. The teacher's original
// pkg/memory was an LLM-extraction-to-chat-memory pipeline
// (extractor.go/openrouter.go) duplicating what pkg/llm and
// pkg/extraction now own; it is replaced here, keeping the teacher's
// service-wraps-store shape (pkg/chat/service.go's ChatService) and
// its use of a config struct threaded in at construction.
package memory

import (
	"math"
	"sort"

	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/config"
	"github.com/ashishact/ramble/pkg/eventbus"
)

// Service computes salience, runs decay, promotes claims, and builds
// the TopOfMind view.
type Service struct {
	store *store.Store
	bus   *eventbus.Bus
	cfg   config.DecayConfig
}

// New constructs a Service bound to s, tuned by cfg.
func New(s *store.Store, bus *eventbus.Bus, cfg config.DecayConfig) *Service {
	return &Service{store: s, bus: bus, cfg: cfg}
}

func halfLifeHours(cfg config.DecayConfig, t store.Temporality) float64 {
	switch t {
	case store.TemporalityEternal:
		return 0
	case store.TemporalitySlowlyDecaying:
		return cfg.SlowlyDecayingHalfLifeHours
	case store.TemporalityFastDecaying:
		return cfg.FastDecayingHalfLifeHours
	case store.TemporalityPointInTime:
		return cfg.PointInTimeHalfLifeHours
	default:
		return cfg.SlowlyDecayingHalfLifeHours
	}
}

// recency computes 2^(-(t-lastConfirmed)/halfLife), 1 for eternal
// claims (spec.md §4.H).
func recency(cfg config.DecayConfig, c *store.Claim, now int64) float64 {
	if c.Temporality == store.TemporalityEternal {
		return 1
	}
	hl := halfLifeHours(cfg, c.Temporality)
	if hl <= 0 {
		return 1
	}
	elapsedHours := float64(now-c.LastConfirmed) / (1000 * 60 * 60)
	if elapsedHours < 0 {
		elapsedHours = 0
	}
	return math.Pow(2, -elapsedHours/hl)
}

func stakesWeight(s store.Stakes) float64 {
	switch s {
	case store.StakesLow:
		return 0.25
	case store.StakesMedium:
		return 0.5
	case store.StakesHigh:
		return 0.75
	case store.StakesExistential:
		return 1.0
	default:
		return 0.25
	}
}

// Salience computes the spec.md §4.H weighted salience formula for c
// at time now, clamped to [0,1].
func (s *Service) Salience(c *store.Claim, now int64) float64 {
	r := recency(s.cfg, c, now)
	emotional := c.EmotionalIntensity
	stakes := stakesWeight(c.Stakes)
	confirmation := math.Min(1, float64(c.ConfirmationCount)/5)

	access := 0.0
	if now-c.LastAccessed < s.cfg.AccessBoostDurationMs {
		access = s.cfg.AccessBoostFactor - 1
	}

	wr, we, ws, wc, wa := weightsOrDefault(s.cfg)
	val := wr*r + we*emotional + ws*stakes + wc*confirmation + wa*access
	if val < 0 {
		val = 0
	}
	if val > 1 {
		val = 1
	}
	return val
}

func weightsOrDefault(cfg config.DecayConfig) (r, e, st, c, a float64) {
	r, e, st, c, a = cfg.WeightRecency, cfg.WeightEmotional, cfg.WeightStakes, cfg.WeightConfirmation, cfg.WeightAccess
	if r == 0 && e == 0 && st == 0 && c == 0 && a == 0 {
		return 0.35, 0.25, 0.20, 0.15, 0.05
	}
	return
}

// DecayResult summarizes one RunDecay pass (spec.md §4.H).
type DecayResult struct {
	ProcessedCount int
	DecayedCount   int
	StaleCount     int
	DormantCount   int
	Errors         []error
}

// RunDecay recomputes currentConfidence/salience for every non-eternal,
// non-superseded claim, transitions state on confidence thresholds, and
// promotes qualifying working-tier claims to long-term.
func (s *Service) RunDecay(now int64) (DecayResult, error) {
	claims, err := s.store.GetClaimsDueForDecay(now)
	if err != nil {
		return DecayResult{}, err
	}

	var result DecayResult
	staleThreshold := s.cfg.StaleThreshold
	if staleThreshold == 0 {
		staleThreshold = 0.2
	}
	dormantThreshold := s.cfg.DormantThreshold
	if dormantThreshold == 0 {
		dormantThreshold = 0.1
	}
	promotionThreshold := s.cfg.PromotionThreshold
	if promotionThreshold == 0 {
		promotionThreshold = 0.6
	}

	for _, c := range claims {
		if c.Temporality == store.TemporalityEternal || c.State == store.ClaimSuperseded {
			continue
		}
		result.ProcessedCount++

		r := recency(s.cfg, c, now)
		c.CurrentConfidence = c.InitialConfidence * r
		c.Salience = s.Salience(c, now)

		switch {
		case c.CurrentConfidence < dormantThreshold:
			if c.State != store.ClaimDormant {
				result.DormantCount++
			}
			c.State = store.ClaimDormant
			result.DecayedCount++
		case c.CurrentConfidence < staleThreshold:
			if c.State != store.ClaimStale {
				result.StaleCount++
			}
			c.State = store.ClaimStale
			result.DecayedCount++
		default:
			if c.State == store.ClaimStale || c.State == store.ClaimDormant {
				c.State = store.ClaimActive
			}
		}

		// Long-term claims are exempt from stale/dormant transitions
		// unless explicitly revisited (spec.md §4.H); revert the state
		// flip for a long-term claim that was not recently accessed.
		if c.MemoryTier == store.MemoryLongTerm && c.LastAccessed < now-s.cfg.AccessBoostDurationMs {
			c.State = store.ClaimActive
		}

		if c.MemoryTier == store.MemoryWorking && c.Salience >= promotionThreshold {
			c.MemoryTier = store.MemoryLongTerm
			c.PromotedAt = &now
		}

		if err := s.store.UpdateClaim(c); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		s.bus.Publish(eventbus.TopicClaimUpdated, c)
	}

	return result, nil
}

// RecordAccess sets lastAccessed = now, boosting salience for the
// configured duration on the next decay/salience recompute.
func (s *Service) RecordAccess(claimID string, now int64) error {
	c, err := s.store.GetClaim(claimID)
	if err != nil {
		return err
	}
	c.LastAccessed = now
	c.Salience = s.Salience(c, now)
	return s.store.UpdateClaim(c)
}

// TopOfMind is the bounded snapshot of what is currently salient
// (spec.md §4.H).
type TopOfMind struct {
	Topics             []*store.Claim
	Entities           []*store.Entity
	Goals              []*store.Goal
	Concerns           []*store.Claim
	OpenQuestions      []*store.Claim
	RecentHighIntensity []*store.Claim
}

// BuildTopOfMind assembles the TopOfMind view from the active claim
// set, entities and goals, each bucket sorted by salience/recency and
// trimmed to limit.
func (s *Service) BuildTopOfMind(now int64, limit int) (TopOfMind, error) {
	if limit <= 0 {
		limit = s.cfg.TopOfMindLimit
	}
	if limit <= 0 {
		limit = 10
	}

	active, err := s.store.GetActiveClaims()
	if err != nil {
		return TopOfMind{}, err
	}
	entities, err := s.store.GetAllEntities()
	if err != nil {
		return TopOfMind{}, err
	}
	goals, err := s.store.GetGoalsByStatus(store.GoalActive)
	if err != nil {
		return TopOfMind{}, err
	}

	for _, c := range active {
		c.Salience = s.Salience(c, now)
	}
	sortClaimsBySalience(active)

	var concerns, openQuestions, highIntensity []*store.Claim
	for _, c := range active {
		if c.Stakes == store.StakesHigh || c.Stakes == store.StakesExistential {
			concerns = append(concerns, c)
		}
		if c.ClaimType == "question" {
			openQuestions = append(openQuestions, c)
		}
		if c.EmotionalIntensity >= 0.6 {
			highIntensity = append(highIntensity, c)
		}
	}

	sort.Slice(entities, func(i, j int) bool { return entities[i].LastReferenced > entities[j].LastReferenced })
	sort.Slice(goals, func(i, j int) bool { return goals[i].LastReferenced > goals[j].LastReferenced })

	return TopOfMind{
		Topics:              trimClaims(active, limit),
		Entities:            trimEntities(entities, limit),
		Goals:               trimGoals(goals, limit),
		Concerns:            trimClaims(concerns, limit),
		OpenQuestions:       trimClaims(openQuestions, limit),
		RecentHighIntensity: trimClaims(highIntensity, limit),
	}, nil
}

func sortClaimsBySalience(claims []*store.Claim) {
	sort.Slice(claims, func(i, j int) bool { return claims[i].Salience > claims[j].Salience })
}

func trimClaims(c []*store.Claim, limit int) []*store.Claim {
	if len(c) <= limit {
		return c
	}
	return c[:limit]
}

func trimEntities(e []*store.Entity, limit int) []*store.Entity {
	if len(e) <= limit {
		return e
	}
	return e[:limit]
}

func trimGoals(g []*store.Goal, limit int) []*store.Goal {
	if len(g) <= limit {
		return g
	}
	return g[:limit]
}
