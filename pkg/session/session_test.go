package session

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashishact/ramble/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, err := store.Open(":memory:", "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestInitialize_NoSessionYet(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.Initialize()
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestStartSession_EndsAnyPriorActiveSession(t *testing.T) {
	m := newTestManager(t)
	first, err := m.StartSession(1000)
	require.NoError(t, err)
	assert.Nil(t, first.EndedAt)

	second, err := m.StartSession(2000)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	reloadedFirst, err := m.store.GetSession(first.ID)
	require.NoError(t, err)
	require.NotNil(t, reloadedFirst.EndedAt)
	assert.Equal(t, int64(2000), *reloadedFirst.EndedAt)
}

func TestEndSession_RecordsEndedAt(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.StartSession(1000)
	require.NoError(t, err)

	ended, err := m.EndSession(sess.ID, 5000)
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	assert.Equal(t, int64(5000), *ended.EndedAt)
}

func TestGetActiveSession_ReflectsCurrentState(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.StartSession(1000)
	require.NoError(t, err)

	active, err := m.GetActiveSession()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, sess.ID, active.ID)

	_, err = m.EndSession(sess.ID, 2000)
	require.NoError(t, err)

	active, err = m.GetActiveSession()
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestIncrementUnitCount(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.StartSession(1000)
	require.NoError(t, err)

	require.NoError(t, m.IncrementUnitCount(sess.ID))
	require.NoError(t, m.IncrementUnitCount(sess.ID))

	reloaded, err := m.store.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.UnitCount)
}
