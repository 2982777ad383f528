package extraction

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/correction"
	"github.com/ashishact/ramble/pkg/eventbus"
	"github.com/ashishact/ramble/pkg/goal"
	"github.com/ashishact/ramble/pkg/llm"
)

func newTestService(t *testing.T, response string) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:", "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	bus := eventbus.New()
	goals := goal.New(s, bus)
	corr, err := correction.New(s)
	require.NoError(t, err)

	svc, err := New(s, bus, llm.StubProvider{Response: response}, goals, corr, nil)
	require.NoError(t, err)
	return svc, s
}

func mustCreateUnit(t *testing.T, s *store.Store, text string) *store.ConversationUnit {
	t.Helper()
	sess := &store.Session{ID: "sess-1", StartedAt: 1000}
	require.NoError(t, s.CreateSession(sess))
	unit := &store.ConversationUnit{
		ID:                "unit-1",
		SessionID:         sess.ID,
		Timestamp:         1000,
		RawText:           text,
		SanitizedText:     text,
		Source:            store.SourceText,
		Speaker:           store.SpeakerUser,
		DiscourseFunction: store.DiscourseAssert,
		CreatedAt:         1000,
	}
	require.NoError(t, s.CreateUnit(unit))
	return unit
}

func TestProcessUnit_PersistsEveryExtractedKind(t *testing.T) {
	response := `{
		"entities": [{"name": "Copenhagen", "type": "place"}],
		"topics": [],
		"memories": [{"content": "the user likes coffee", "type": "preference", "importance": 0.6}],
		"goals": [{"statement": "learn Go", "type": "skill"}],
		"corrections": []
	}`
	svc, s := newTestService(t, response)
	unit := mustCreateUnit(t, s, "I like coffee and I'm learning Go")

	out, err := svc.ProcessUnit(context.Background(), unit, 2000)
	require.NoError(t, err)

	require.Len(t, out.Entities, 1)
	require.Len(t, out.Claims, 1)
	require.Len(t, out.Goals, 1)
	assert.Equal(t, []string{ProgramName}, out.ExtractorsRun)

	reloaded, err := s.GetUnit(unit.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Processed, "a processed unit must be marked processed even on success")
}

func TestProcessUnit_EmptyExtractionStillMarksUnitProcessed(t *testing.T) {
	svc, s := newTestService(t, `{"entities":[],"topics":[],"memories":[],"goals":[],"corrections":[]}`)
	unit := mustCreateUnit(t, s, "just saying hello")

	out, err := svc.ProcessUnit(context.Background(), unit, 2000)
	require.NoError(t, err)
	assert.Empty(t, out.Entities)
	assert.Empty(t, out.Claims)

	reloaded, err := s.GetUnit(unit.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Processed)
}

func TestProcessUnit_RepairsMalformedJSONResponse(t *testing.T) {
	response := "```json\n{\"entities\":[{\"name\":\"Berlin\",\"type\":\"place\",}],\"topics\":[],\"memories\":[],\"goals\":[],\"corrections\":[]}\n```"
	svc, s := newTestService(t, response)
	unit := mustCreateUnit(t, s, "I visited Berlin")

	out, err := svc.ProcessUnit(context.Background(), unit, 2000)
	require.NoError(t, err)
	require.Len(t, out.Entities, 1)
}

func TestProcessUnit_LLMErrorIsPropagated(t *testing.T) {
	s, err := store.Open(":memory:", "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	bus := eventbus.New()
	goals := goal.New(s, bus)
	corr, err := correction.New(s)
	require.NoError(t, err)

	svc, err := New(s, bus, llm.StubProvider{Err: assert.AnError}, goals, corr, nil)
	require.NoError(t, err)

	unit := mustCreateUnit(t, s, "hello")
	_, err = svc.ProcessUnit(context.Background(), unit, 2000)
	assert.Error(t, err)
}
