package store

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RejectsMalformedProfileName(t *testing.T) {
	_, err := Open(":memory:", "Not Valid!", zerolog.Nop())
	require.Error(t, err)
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, SchemaMismatch, serr.Kind)
}

func TestCreateUnit_BumpsSessionUnitCount(t *testing.T) {
	s := newTestStore(t)
	sess := &Session{ID: "sess-1", StartedAt: 1000}
	require.NoError(t, s.CreateSession(sess))

	unit := &ConversationUnit{
		ID:                "unit-1",
		SessionID:         sess.ID,
		Timestamp:         1000,
		RawText:           "hello there",
		SanitizedText:     "hello there",
		Source:            SourceText,
		Speaker:           SpeakerUser,
		DiscourseFunction: DiscourseAssert,
		CreatedAt:         1000,
	}
	require.NoError(t, s.CreateUnit(unit))

	reloaded, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.UnitCount)

	fetched, err := s.GetUnit(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello there", fetched.RawText)
	assert.False(t, fetched.Processed)
}

func TestFindOrCreateEntity_DedupesCaseInsensitively(t *testing.T) {
	s := newTestStore(t)

	e1, created1, err := s.FindOrCreateEntity("Copenhagen", "place", 1000)
	require.NoError(t, err)
	assert.True(t, created1)
	assert.Equal(t, 1, e1.MentionCount)

	e2, created2, err := s.FindOrCreateEntity("copenhagen", "place", 2000)
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, e1.ID, e2.ID)
	assert.Equal(t, 2, e2.MentionCount)
}

func TestFindOrCreateEntity_DistinctTypesAreDistinctEntities(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.FindOrCreateEntity("Washington", "place", 1000)
	require.NoError(t, err)
	e, created, err := s.FindOrCreateEntity("Washington", "person", 1000)
	require.NoError(t, err)
	assert.True(t, created, "same name, different type, should be a distinct entity")
	assert.Equal(t, "person", e.EntityType)
}

func TestExportImport_RoundTripsClaimsAndGoals(t *testing.T) {
	s := newTestStore(t)

	claim := &Claim{
		ID:                  "claim-1",
		Statement:           "the user likes coffee",
		ClaimType:           "fact",
		Temporality:         TemporalitySlowlyDecaying,
		InitialConfidence:   0.9,
		CurrentConfidence:   0.9,
		State:               ClaimActive,
		Stakes:              StakesMedium,
		CreatedAt:           1000,
		LastConfirmed:       1000,
		ExtractionProgramID: "prog-1",
		MemoryTier:          MemoryWorking,
	}
	require.NoError(t, s.CreateClaim(claim))

	goal := &Goal{
		ID:             "goal-1",
		Statement:      "learn Go",
		Status:         GoalActive,
		CreatedAt:      1000,
		LastReferenced: 1000,
		Priority:       5,
		ProgressType:   ProgressPercentage,
		SourceClaimID:  claim.ID,
	}
	require.NoError(t, s.CreateGoal(goal))

	data, err := s.Export()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	restored := newTestStore(t)
	require.NoError(t, restored.Import(data))

	reclaimed, err := restored.GetClaim(claim.ID)
	require.NoError(t, err)
	assert.Equal(t, claim.Statement, reclaimed.Statement)

	regoaled, err := restored.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.Statement, regoaled.Statement)
}
