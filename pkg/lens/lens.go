// Package lens implements the lens router (spec.md §4.K, §9): a single
// active-target guard the Kernel consults before submitting input to
// the extraction pipeline. A lens is an ephemeral UI target that
// diverts input away from the pipeline entirely — captured input never
// becomes a ConversationUnit or a Claim. This replaces the React
// Context a browser-hosted UI would use for the same purpose (spec.md
// §9), the idiomatic Go shape being a small mutex-guarded struct
// behind a narrow interface rather than a context value.
package lens

import "sync"

// Router holds at most one active lens id at a time.
type Router struct {
	mu     sync.Mutex
	active *string
}

// New constructs an empty Router (no active lens).
func New() *Router {
	return &Router{}
}

// Activate sets lensID as the active lens, transitioning null -> lensID
// (spec.md §5).
func (r *Router) Activate(lensID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = &lensID
}

// Deactivate clears the active lens, transitioning lensID -> null.
func (r *Router) Deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = nil
}

// Active returns the current lens id, or "" if none is active.
func (r *Router) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return ""
	}
	return *r.active
}

// Route reports whether input should be captured by the active lens
// rather than submitted to the pipeline. When captured is true, the
// caller must not persist the input as a unit or enqueue it.
func (r *Router) Route(_ string) (lensID string, captured bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return "", false
	}
	return *r.active, true
}
