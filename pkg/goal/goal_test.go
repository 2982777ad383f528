package goal

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/eventbus"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, err := store.Open(":memory:", "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, eventbus.New())
}

func TestCreateGoal_DefaultsPriorityAndProgressType(t *testing.T) {
	m := newTestManager(t)
	g, err := m.CreateGoal("learn Go", "claim-1", 1000, CreateOptions{
		GoalType:  "learning",
		Timeframe: store.TimeframeMediumTerm,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, g.Priority, "zero priority should default to 5")
	assert.Equal(t, store.ProgressPercentage, g.ProgressType)
	assert.Equal(t, store.GoalActive, g.Status)
}

func TestCreateGoal_RejectsMissingParent(t *testing.T) {
	m := newTestManager(t)
	missing := "does-not-exist"
	_, err := m.CreateGoal("sub-goal", "claim-1", 1000, CreateOptions{ParentGoalID: &missing})
	require.Error(t, err)
	var herr *HierarchyError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, HierarchyParentMissing, herr.Kind)
}

func TestCreateGoal_RejectsExceedingMaxDepth(t *testing.T) {
	m := newTestManager(t)

	var parentID *string
	var last *store.Goal
	for i := 0; i < MaxDepth-1; i++ {
		g, err := m.CreateGoal("goal", "claim-1", 1000, CreateOptions{ParentGoalID: parentID})
		require.NoError(t, err)
		last = g
		id := g.ID
		parentID = &id
	}

	_, err := m.CreateGoal("too deep", "claim-1", 1000, CreateOptions{ParentGoalID: &last.ID})
	require.Error(t, err)
	var herr *HierarchyError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, HierarchyTooDeep, herr.Kind)
}

func TestUpdateProgress_ClampsAndAchieves(t *testing.T) {
	m := newTestManager(t)
	g, err := m.CreateGoal("ship the release", "claim-1", 1000, CreateOptions{})
	require.NoError(t, err)

	updated, err := m.UpdateProgress(g.ID, 150, "overshoot clamp check", 2000, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.ProgressValue)
	assert.Equal(t, store.GoalAchieved, updated.Status)
}

func TestMilestones_RecomputeProgress(t *testing.T) {
	m := newTestManager(t)
	g, err := m.CreateGoal("move house", "claim-1", 1000, CreateOptions{
		GoalType:  "outcome",
		Timeframe: store.TimeframeLongTerm,
	})
	require.NoError(t, err)
	require.Equal(t, store.ProgressMilestone, g.ProgressType)

	g, err = m.AddMilestone(g.ID, "find a new place")
	require.NoError(t, err)
	g, err = m.AddMilestone(g.ID, "sign the lease")
	require.NoError(t, err)
	require.Len(t, g.Milestones, 2)

	g, err = m.AchieveMilestone(g.ID, g.Milestones[0].ID, 2000)
	require.NoError(t, err)
	assert.Equal(t, 50.0, g.ProgressValue)
}

func TestBlockers_BlockThenUnblock(t *testing.T) {
	m := newTestManager(t)
	g, err := m.CreateGoal("finish thesis", "claim-1", 1000, CreateOptions{})
	require.NoError(t, err)

	g, err = m.AddBlocker(g.ID, "waiting on advisor", store.BlockerBlocking, 1500)
	require.NoError(t, err)
	assert.Equal(t, store.GoalBlocked, g.Status)

	g, err = m.ResolveBlocker(g.ID, g.Blockers[0].ID, 2000)
	require.NoError(t, err)
	assert.Equal(t, store.GoalActive, g.Status)
}

func TestSetParent_RejectsCycle(t *testing.T) {
	m := newTestManager(t)
	parent, err := m.CreateGoal("parent", "claim-1", 1000, CreateOptions{})
	require.NoError(t, err)
	parentID := parent.ID
	child, err := m.CreateGoal("child", "claim-1", 1000, CreateOptions{ParentGoalID: &parentID})
	require.NoError(t, err)

	_, err = m.SetParent(parent.ID, child.ID)
	require.Error(t, err)
	var herr *HierarchyError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, HierarchyCycle, herr.Kind)
}

func TestFindSimilar_MatchesWithinThreshold(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateGoal("learn to play the guitar", "claim-1", 1000, CreateOptions{})
	require.NoError(t, err)

	matches, err := m.FindSimilar("learn to play guitar", DefaultFuzzyThreshold)
	require.NoError(t, err)
	assert.NotEmpty(t, matches, "a near-identical statement should fuzzy-match")

	matches, err = m.FindSimilar("buy groceries for dinner", DefaultFuzzyThreshold)
	require.NoError(t, err)
	assert.Empty(t, matches, "an unrelated statement should not match")
}
