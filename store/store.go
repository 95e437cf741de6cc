// Package store provides the durable record store used by the
// authentication core. Records are plain JSON documents grouped into
// named collections; concurrency control is done entirely through the
// version-based compare-and-swap in PutCAS and the insert-if-absent
// semantics of Insert — there are no advisory locks.
package store

import "errors"

// ErrNotFound is returned when a record or collection does not exist.
var ErrNotFound = errors.New("record not found")

// ErrCASFailed is returned when a compare-and-swap version check fails.
var ErrCASFailed = errors.New("CAS version mismatch")

// ErrExists is returned by Insert when the record is already present.
var ErrExists = errors.New("record already exists")

// Record is a stored document together with its CAS version counter.
// Version starts at 1 on first write and must be incremented by the
// caller on every PutCAS.
type Record struct {
	Data    []byte `json:"data"`
	Version uint64 `json:"version"`
}

// Store defines the interface for durable record storage.
type Store interface {
	// Put writes a record unconditionally, creating or replacing it.
	Put(collection, id string, rec *Record) error
	// Get retrieves a record. Returns ErrNotFound if absent.
	Get(collection, id string) (*Record, error)
	// List returns the ids of every record in the collection.
	List(collection string) ([]string, error)
	// Delete removes a record. Returns ErrNotFound if absent.
	Delete(collection, id string) error
	// PutCAS writes a record only if the stored version still equals
	// expectedVersion. expectedVersion 0 means the record must not yet
	// exist. Returns ErrCASFailed when the precondition does not hold.
	PutCAS(collection, id string, expectedVersion uint64, rec *Record) error
	// Insert writes a record only if no record with the same id exists.
	// Returns ErrExists otherwise. This is the primitive behind the
	// one-vote-per-approver constraint.
	Insert(collection, id string, rec *Record) error
}
