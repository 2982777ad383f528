// Package llm abstracts the language-model calls the Extraction
// Pipeline and Observer Dispatcher make, and repairs the often-
// malformed JSON such calls return. Grounded on GoKitt's
// pkg/extraction/parser.go repair ladder, generalized from a fixed
// entities/relations shape to an arbitrary target type.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Provider issues one completion request against a configured model.
// Network transport is deliberately out of scope here (spec.md's
// Non-goal on LLM network transport) — Provider implementations are
// supplied by the embedding application; this package only defines the
// seam and the response-repair logic.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProviderKind names a known provider family, for config and logging.
type ProviderKind string

const (
	ProviderStub      ProviderKind = "stub"
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderOllama    ProviderKind = "ollama"
)

// StubProvider returns a fixed response, used in tests and as the
// config.Default() provider before a real one is wired in.
type StubProvider struct {
	Response string
	Err      error
}

func (p StubProvider) Complete(_ context.Context, _, _ string) (string, error) {
	return p.Response, p.Err
}

// maxRepairAttempts bounds how many successive repair strategies
// ParseJSON tries before giving up (spec.md §4.E, §7: extraction
// failures must be bounded, never loop indefinitely).
const maxRepairAttempts = 4

// ParseJSON decodes an LLM's raw text response into out, walking the
// same repair ladder GoKitt's ParseResponse uses: strip markdown code
// fences, try a direct unmarshal, fall back to a best-effort object
// scan via regex repair. Returns an error only if every attempt fails.
func ParseJSON(raw string, out any) error {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if cleaned == "" {
		return fmt.Errorf("llm: empty response")
	}

	attempts := []func(string) (string, bool){
		func(s string) (string, bool) { return s, true },
		func(s string) (string, bool) { return stripTrailingCommas(s), true },
		func(s string) (string, bool) { return quoteUnquotedKeys(s), true },
		func(s string) (string, bool) { return extractFirstJSONObject(s) },
	}

	var lastErr error
	for i, repair := range attempts {
		if i >= maxRepairAttempts {
			break
		}
		candidate, ok := repair(cleaned)
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("llm: failed to parse response after %d repair attempts: %w", maxRepairAttempts, lastErr)
}

// stripCodeFence removes a leading/trailing markdown code fence
// (```json ... ``` or ``` ... ```).
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

var trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)

func stripTrailingCommas(s string) string {
	return trailingCommaPattern.ReplaceAllString(s, "$1")
}

var unquotedKeyPattern = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)

func quoteUnquotedKeys(s string) string {
	return unquotedKeyPattern.ReplaceAllString(s, `$1"$2"$3`)
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// extractFirstJSONObject is the last-resort repair: grab the largest
// brace-delimited span and hope it parses. Matches GoKitt's regex-scan
// fallback in spirit, generalized from entity/relation-shaped objects
// to any object.
func extractFirstJSONObject(s string) (string, bool) {
	m := jsonObjectPattern.FindString(s)
	if m == "" {
		return "", false
	}
	return m, true
}
