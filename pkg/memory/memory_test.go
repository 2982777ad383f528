package memory

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/config"
	"github.com/ashishact/ramble/pkg/eventbus"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:", "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, eventbus.New(), config.Default().Decay), s
}

func baseClaim(id string, now int64) *store.Claim {
	return &store.Claim{
		ID:                  id,
		Statement:           "the user likes coffee",
		Subject:             "user",
		ClaimType:           "fact",
		Temporality:         store.TemporalitySlowlyDecaying,
		InitialConfidence:   0.9,
		CurrentConfidence:   0.9,
		State:               store.ClaimActive,
		Stakes:              store.StakesMedium,
		ValidFrom:           now,
		CreatedAt:           now,
		LastConfirmed:       now,
		ExtractionProgramID: "prog-1",
		MemoryTier:          store.MemoryWorking,
		LastAccessed:        now,
	}
}

func TestSalience_EternalClaimIgnoresRecencyDecay(t *testing.T) {
	svc, _ := newTestService(t)
	c := baseClaim("c1", 0)
	c.Temporality = store.TemporalityEternal
	// a year later, recency should still be 1 for an eternal claim
	s := svc.Salience(c, 365*24*60*60*1000)
	assert.Greater(t, s, 0.0)
}

func TestSalience_ClampedToUnitInterval(t *testing.T) {
	svc, _ := newTestService(t)
	c := baseClaim("c1", 0)
	c.EmotionalIntensity = 1
	c.Stakes = store.StakesExistential
	c.ConfirmationCount = 100
	s := svc.Salience(c, 0)
	assert.LessOrEqual(t, s, 1.0)
	assert.GreaterOrEqual(t, s, 0.0)
}

func TestRunDecay_TransitionsToDormantBelowThreshold(t *testing.T) {
	svc, s := newTestService(t)
	now := int64(1000)
	c := baseClaim("c1", now)
	c.Temporality = store.TemporalityFastDecaying
	require.NoError(t, s.CreateClaim(c))

	// move far enough into the future that a fast-decaying claim's
	// confidence drops below the dormant threshold
	future := now + int64(30*24*60*60*1000)
	result, err := svc.RunDecay(future)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, 1, result.DecayedCount)

	reloaded, err := s.GetClaim("c1")
	require.NoError(t, err)
	assert.Equal(t, store.ClaimDormant, reloaded.State)
}

func TestRunDecay_SkipsEternalAndSupersededClaims(t *testing.T) {
	svc, s := newTestService(t)
	now := int64(1000)

	eternal := baseClaim("eternal", now)
	eternal.Temporality = store.TemporalityEternal
	require.NoError(t, s.CreateClaim(eternal))

	replacement := "eternal"
	superseded := baseClaim("superseded", now)
	superseded.State = store.ClaimSuperseded
	superseded.SupersededBy = &replacement
	require.NoError(t, s.CreateClaim(superseded))

	result, err := svc.RunDecay(now + 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ProcessedCount, "eternal and superseded claims are never due for decay-state transitions")
}

func TestRunDecay_PromotesHighSalienceWorkingClaim(t *testing.T) {
	svc, s := newTestService(t)
	now := int64(1000)
	c := baseClaim("c1", now)
	c.EmotionalIntensity = 1
	c.Stakes = store.StakesExistential
	c.ConfirmationCount = 10
	c.LastAccessed = now
	require.NoError(t, s.CreateClaim(c))

	_, err := svc.RunDecay(now + 1)
	require.NoError(t, err)

	reloaded, err := s.GetClaim("c1")
	require.NoError(t, err)
	assert.Equal(t, store.MemoryLongTerm, reloaded.MemoryTier)
	assert.NotNil(t, reloaded.PromotedAt)
}

func TestBuildTopOfMind_BucketsAndTrims(t *testing.T) {
	svc, s := newTestService(t)
	now := int64(1000)

	highStakes := baseClaim("high", now)
	highStakes.Stakes = store.StakesExistential
	require.NoError(t, s.CreateClaim(highStakes))

	question := baseClaim("q", now)
	question.ClaimType = "question"
	require.NoError(t, s.CreateClaim(question))

	view, err := svc.BuildTopOfMind(now, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, view.Topics)
	assert.NotEmpty(t, view.Concerns)
	assert.NotEmpty(t, view.OpenQuestions)
}
