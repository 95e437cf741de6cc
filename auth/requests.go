package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/narthex/vouch/internal/uuid"
	"github.com/narthex/vouch/store"
)

const (
	collectionRequests   = "REQUEST"
	collectionApprovals  = "APPROVAL"
	collectionIdentities = "IDENTITY"
)

// requestStore persists authentication requests. Requests are never
// deleted; terminal states are reached only through Transition, whose
// compare-and-swap is what makes concurrent resolution race-free.
type requestStore struct {
	store store.Store
}

func newRequestStore(st store.Store) *requestStore {
	return &requestStore{store: st}
}

// Create persists a new pending request with a fixed expiry.
func (rs *requestStore) Create(identity, device, origin, code string, now time.Time, ttl time.Duration) (*Request, error) {
	req := &Request{
		ID:        uuid.New(),
		Identity:  identity,
		Device:    device,
		Origin:    origin,
		Code:      code,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(ttl).UTC(),
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := rs.store.Insert(collectionRequests, req.ID, &store.Record{Data: data, Version: 1}); err != nil {
		return nil, fmt.Errorf("persisting request: %w", err)
	}
	return req, nil
}

// Get loads a request and the record version needed for Transition.
func (rs *requestStore) Get(id string) (*Request, uint64, error) {
	rec, err := rs.store.Get(collectionRequests, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	var req Request
	if err := json.Unmarshal(rec.Data, &req); err != nil {
		return nil, 0, fmt.Errorf("decoding request %s: %w", id, err)
	}
	return &req, rec.Version, nil
}

// Transition moves a request from one status to another. It succeeds
// only if the stored status still equals from at the moment of the
// write; it returns false (no error) when another actor resolved the
// request first. Terminal states are never left.
func (rs *requestStore) Transition(id string, from, to Status, now time.Time) (bool, error) {
	if from.Terminal() {
		return false, nil
	}
	req, version, err := rs.Get(id)
	if err != nil {
		return false, err
	}
	if req.Status != from {
		return false, nil
	}

	resolvedAt := now.UTC()
	req.Status = to
	req.ResolvedAt = &resolvedAt

	data, err := json.Marshal(req)
	if err != nil {
		return false, err
	}
	err = rs.store.PutCAS(collectionRequests, id, version, &store.Record{Data: data, Version: version + 1})
	if errors.Is(err, store.ErrCASFailed) {
		// Expected under concurrency: someone else transitioned first.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListPending returns every request still in the pending state.
func (rs *requestStore) ListPending() ([]*Request, error) {
	ids, err := rs.store.List(collectionRequests)
	if err != nil {
		return nil, err
	}
	var pending []*Request
	for _, id := range ids {
		req, _, err := rs.Get(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if req.Status == StatusPending {
			pending = append(pending, req)
		}
	}
	return pending, nil
}
