package auth

// SessionStore abstracts session persistence so that sessions can live
// in memory (tests, single-node dev) or sealed in backing storage.
type SessionStore interface {
	// Get retrieves a session by id. Returns false if the session does
	// not exist or has expired.
	Get(id string) (Session, bool)
	// Put creates or updates a session.
	Put(session Session)
	// Delete removes a session by id.
	Delete(id string)
	// All returns every live session. Used by escalation, which must
	// find the sessions waiting on an approved request.
	All() []Session
}
