package auth

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/narthex/vouch/store"
)

// identityStore persists known community members. A name that already
// exists is exactly what forces the peer-approval path on login.
type identityStore struct {
	store store.Store
}

func newIdentityStore(st store.Store) *identityStore {
	return &identityStore{store: st}
}

// Exists reports whether the (normalised) name is a known identity.
func (s *identityStore) Exists(name string) (bool, error) {
	_, err := s.store.Get(collectionIdentities, name)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create registers a new identity. Creation is insert-if-absent so two
// concurrent joins under the same name cannot both succeed.
func (s *identityStore) Create(name string, now time.Time) error {
	identity := Identity{Name: name, CreatedAt: now.UTC()}
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	err = s.store.Insert(collectionIdentities, name, &store.Record{Data: data, Version: 1})
	if errors.Is(err, store.ErrExists) {
		return ErrForbidden
	}
	return err
}
