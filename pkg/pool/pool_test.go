package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMap_IsEmptyEvenAfterPriorUse(t *testing.T) {
	m := GetMap()
	m["leftover"] = "value"
	PutMap(m)

	reused := GetMap()
	assert.Empty(t, reused, "a map returned to the pool must be cleared before reuse")
}

func TestGetSlice_IsEmptyButRetainsCapacity(t *testing.T) {
	s := GetSlice()
	s = append(s, "a", "b", "c")
	PutSlice(s)

	reused := GetSlice()
	require.Len(t, reused, 0)
	assert.Equal(t, 32, cap(reused))
}
