package lens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute_NoActiveLensPassesThrough(t *testing.T) {
	r := New()
	lensID, captured := r.Route("hello")
	assert.False(t, captured)
	assert.Empty(t, lensID)
}

func TestActivate_CapturesSubsequentRoute(t *testing.T) {
	r := New()
	r.Activate("journal-entry")

	lensID, captured := r.Route("some input")
	assert.True(t, captured)
	assert.Equal(t, "journal-entry", lensID)
	assert.Equal(t, "journal-entry", r.Active())
}

func TestDeactivate_RestoresPassthrough(t *testing.T) {
	r := New()
	r.Activate("journal-entry")
	r.Deactivate()

	_, captured := r.Route("some input")
	assert.False(t, captured)
	assert.Empty(t, r.Active())
}

func TestActivate_ReplacesPriorLens(t *testing.T) {
	r := New()
	r.Activate("first")
	r.Activate("second")

	assert.Equal(t, "second", r.Active())
}
