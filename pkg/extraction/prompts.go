package extraction

import (
	"fmt"
	"strings"

	"github.com/ashishact/ramble/internal/store"
)

// MaxTextLength bounds the utterance text folded into the user prompt,
// matching GoKitt's BuildUserPrompt truncation guard.
const MaxTextLength = 8000

// ContextWindow is the assembled conversational context handed to the
// LLM alongside the current unit (spec.md §4.F stage 1).
type ContextWindow struct {
	RecentUnits    []*store.ConversationUnit
	KnownEntities  []*store.Entity
	ActiveTopics   []*store.Entity
	WorkingMemory  []*store.Claim
	ActiveGoals    []*store.Goal
	PhoneticHints  []string
}

// SystemPrompt instructs the model to return the five-array JSON shape
// spec.md §4.F names, generalized from GoKitt's entities/relations
// system prompt to entities/topics/memories/goals/corrections.
const SystemPrompt = `You are the extraction stage of a conversation intelligence system. Read one utterance in its conversational context and return ONLY a JSON object with five arrays:

{
  "entities": [{"name": "...", "type": "..."}],
  "topics": [{"name": "...", "type": "..."}],
  "memories": [{"content": "...", "type": "fact|preference|plan|opinion", "importance": 0.0-1.0}],
  "goals": [{"statement": "...", "type": "..."}],
  "corrections": [{"wrong": "...", "correct": "..."}]
}

Rules:
- Every array element may instead be a bare string when no extra detail applies; the caller fills in defaults.
- entities are people, places, or things referenced by name.
- topics are subjects under active discussion, distinct from named entities.
- memories are standalone factual or attitudinal claims worth remembering past this turn.
- goals are objectives, intentions, or commitments the speaker states.
- corrections are explicit "I meant X, not Y" or "it's actually X" repairs of an earlier utterance.
- Omit an array entirely, or leave it empty, when nothing in the utterance qualifies. An utterance with nothing extractable is valid; return empty arrays, not an error.
- Return JSON only, no prose, no markdown code fence.`

// BuildUserPrompt renders the context window and current unit text into
// the user-turn prompt, truncating overlong text the same way GoKitt's
// BuildUserPrompt truncates note content.
func BuildUserPrompt(ctx ContextWindow, unitText string) string {
	text := unitText
	if len(text) > MaxTextLength {
		text = text[:MaxTextLength]
	}

	var b strings.Builder

	if len(ctx.RecentUnits) > 0 {
		b.WriteString("## Recent Conversation\n")
		for _, u := range ctx.RecentUnits {
			fmt.Fprintf(&b, "- [%s] %s\n", u.Speaker, u.SanitizedText)
		}
		b.WriteString("\n")
	}

	if len(ctx.KnownEntities) > 0 {
		b.WriteString("## Known Entities\n")
		for _, e := range ctx.KnownEntities {
			fmt.Fprintf(&b, "- %s (%s)\n", e.CanonicalName, e.EntityType)
		}
		b.WriteString("\n")
	}

	if len(ctx.ActiveTopics) > 0 {
		b.WriteString("## Active Topics\n")
		for _, e := range ctx.ActiveTopics {
			fmt.Fprintf(&b, "- %s\n", e.CanonicalName)
		}
		b.WriteString("\n")
	}

	if len(ctx.WorkingMemory) > 0 {
		b.WriteString("## Working Memory\n")
		for _, c := range ctx.WorkingMemory {
			fmt.Fprintf(&b, "- %s\n", c.Statement)
		}
		b.WriteString("\n")
	}

	if len(ctx.ActiveGoals) > 0 {
		b.WriteString("## Active Goals\n")
		for _, g := range ctx.ActiveGoals {
			fmt.Fprintf(&b, "- %s\n", g.Statement)
		}
		b.WriteString("\n")
	}

	if len(ctx.PhoneticHints) > 0 {
		b.WriteString("## Possible Mishearings\n")
		for _, h := range ctx.PhoneticHints {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Current Utterance\n")
	b.WriteString(text)

	return b.String()
}
