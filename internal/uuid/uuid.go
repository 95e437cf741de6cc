// Package uuid wraps github.com/google/uuid behind the small surface
// the rest of the codebase needs: opaque string identifiers.
package uuid

import "github.com/google/uuid"

// New returns a random (v4) UUID string.
func New() string {
	return uuid.NewString()
}
