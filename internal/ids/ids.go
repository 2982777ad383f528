// Package ids centralizes opaque identifier generation for every entity
// in the store. All identifiers in this system are client-generated
// opaque strings (spec §3); callers must never parse structure out of
// one.
package ids

import "github.com/google/uuid"

// New returns a fresh opaque identifier.
func New() string {
	return uuid.NewString()
}
