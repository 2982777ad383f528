package correction

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashishact/ramble/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.Open(":memory:", "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	svc, err := New(s)
	require.NoError(t, err)
	return svc
}

func TestLearn_CreatesThenReusesExistingMapping(t *testing.T) {
	svc := newTestService(t)

	c1, err := svc.Learn("Cophenhagen", "Copenhagen", 1000, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c1.UsageCount)

	c2, err := svc.Learn("cophenhagen", "Copenhagen", 2000, nil)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID, "a repeated wrong form should reuse the learned mapping")
	assert.Equal(t, 2, c2.UsageCount)
}

func TestApply_RewritesKnownWrongForm(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Learn("Cophenhagen", "Copenhagen", 1000, nil)
	require.NoError(t, err)

	rewritten, applied := svc.Apply("I'm flying to Cophenhagen next week", 2000)
	assert.Equal(t, "I'm flying to Copenhagen next week", rewritten)
	require.Len(t, applied, 1)
	assert.Equal(t, "Copenhagen", applied[0].CorrectText)
}

func TestApply_LeavesUnknownTextUntouched(t *testing.T) {
	svc := newTestService(t)
	rewritten, applied := svc.Apply("nothing learned yet", 1000)
	assert.Equal(t, "nothing learned yet", rewritten)
	assert.Empty(t, applied)
}

func TestApply_IsCaseInsensitive(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Learn("teh", "the", 1000, nil)
	require.NoError(t, err)

	rewritten, applied := svc.Apply("TEH answer is 42", 2000)
	assert.Equal(t, "the answer is 42", rewritten)
	require.Len(t, applied, 1)
}

func TestKnownCorrections_ReturnsEveryLearnedMapping(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Learn("foo", "bar", 1000, nil)
	require.NoError(t, err)
	_, err = svc.Learn("baz", "qux", 1000, nil)
	require.NoError(t, err)

	assert.Len(t, svc.KnownCorrections(), 2)
}
