package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubProvider_ReturnsConfiguredResponse(t *testing.T) {
	p := StubProvider{Response: `{"ok":true}`}
	out, err := p.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

type parsed struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseJSON_DirectUnmarshal(t *testing.T) {
	var out parsed
	err := ParseJSON(`{"name":"alice","count":3}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "alice", out.Name)
	assert.Equal(t, 3, out.Count)
}

func TestParseJSON_StripsMarkdownCodeFence(t *testing.T) {
	var out parsed
	raw := "```json\n{\"name\":\"bob\",\"count\":1}\n```"
	err := ParseJSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "bob", out.Name)
}

func TestParseJSON_StripsTrailingCommas(t *testing.T) {
	var out parsed
	err := ParseJSON(`{"name":"carol","count":2,}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "carol", out.Name)
}

func TestParseJSON_QuotesUnquotedKeys(t *testing.T) {
	var out parsed
	err := ParseJSON(`{name:"dan",count:5}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "dan", out.Name)
	assert.Equal(t, 5, out.Count)
}

func TestParseJSON_ExtractsObjectFromSurroundingProse(t *testing.T) {
	var out parsed
	raw := `Sure, here is the result: {"name":"eve","count":7} Hope that helps!`
	err := ParseJSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "eve", out.Name)
}

func TestParseJSON_EmptyResponseIsAnError(t *testing.T) {
	var out parsed
	err := ParseJSON("   ", &out)
	assert.Error(t, err)
}

func TestParseJSON_UnrecoverableGarbageIsAnError(t *testing.T) {
	var out parsed
	err := ParseJSON("not json at all, no braces here", &out)
	assert.Error(t, err)
}
