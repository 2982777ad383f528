package extraction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawItemUnmarshal_String(t *testing.T) {
	var item rawItem
	require.NoError(t, json.Unmarshal([]byte(`"Copenhagen"`), &item))
	assert.True(t, item.isString)
	assert.Equal(t, "Copenhagen", item.asString)
}

func TestRawItemUnmarshal_Object(t *testing.T) {
	var item rawItem
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Copenhagen","type":"place"}`), &item))
	require.False(t, item.isString)
	assert.Equal(t, "Copenhagen", item.Name)
	assert.Equal(t, "place", item.Type)
}

func TestParseResponse_MixedArrayShapes(t *testing.T) {
	raw := `{
		"entities": ["Copenhagen", {"name": "Ada", "type": "person"}],
		"topics": [],
		"memories": [{"content": "wants to visit Denmark", "type": "plan", "importance": 0.7}],
		"goals": ["learn Go"],
		"corrections": [{"wrong": "Cophenhagen", "correct": "Copenhagen"}]
	}`

	parsed, _, err := ParseResponse(raw)
	require.NoError(t, err)
	require.Len(t, parsed.Entities, 2)

	n := Normalize(parsed)
	require.Len(t, n.Entities, 2)
	assert.Equal(t, "Copenhagen", n.Entities[0].Name)
	assert.Equal(t, "unknown", n.Entities[0].Type)
	assert.Equal(t, "Ada", n.Entities[1].Name)
	assert.Equal(t, "person", n.Entities[1].Type)

	require.Len(t, n.Goals, 1)
	assert.Equal(t, "learn Go", n.Goals[0].Statement)
	assert.Equal(t, "general", n.Goals[0].Type)

	require.Len(t, n.Memories, 1)
	assert.Equal(t, 0.7, n.Memories[0].Importance)

	require.Len(t, n.Corrections, 1)
	assert.Equal(t, "Cophenhagen", n.Corrections[0].Wrong)
}

func TestNormalize_EmptyExtractionIsValid(t *testing.T) {
	n := Normalize(&RawExtraction{})
	assert.Empty(t, n.Entities)
	assert.Empty(t, n.Topics)
	assert.Empty(t, n.Memories)
	assert.Empty(t, n.Goals)
	assert.Empty(t, n.Corrections)
}

func TestNormalize_DiscardsMalformedItems(t *testing.T) {
	parsed := &RawExtraction{
		Entities:    []rawItem{{asString: "", isString: true}, {Name: "", Type: "x"}},
		Goals:       []rawItem{{Statement: "", Content: ""}},
		Corrections: []rawItem{{Wrong: "foo", Correct: ""}},
	}
	n := Normalize(parsed)
	assert.Empty(t, n.Entities, "malformed entities should be discarded")
	assert.Empty(t, n.Goals, "malformed goal should be discarded")
	assert.Empty(t, n.Corrections, "incomplete correction should be discarded")
}

func TestDedupeEntities_CollapsesCaseInsensitiveDuplicates(t *testing.T) {
	parsed := &RawExtraction{
		Entities: []rawItem{
			{asString: "Ada", isString: true},
			{Name: "ADA", Type: "person"},
		},
	}
	n := Normalize(parsed)
	require.Len(t, n.Entities, 1, "duplicates should collapse to one entity")
	assert.Equal(t, "person", n.Entities[0].Type, "collapsed entity should inherit the typed duplicate's type")
}
