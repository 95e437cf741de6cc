package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/narthex/vouch/internal/util"
	"github.com/narthex/vouch/store"
)

const (
	collectionSessions   = "SESSION"
	collectionSessionKey = "SESSION_KEY"
	sessionKeyID         = "current"
	sessionAADPrefix     = "session:"
	sessionKeySaltID     = "salt"
	sessionKeyAAD        = "vouch:session_master_key:v1"
	sessionSweepInterval = 5 * time.Minute
)

// SealedSessionStore stores sessions in a store.Store, encrypted at
// rest with AES-256-GCM so a copied database file alone does not yield
// usable session tokens' state. The session encryption key is itself
// sealed with a key derived (argon2id) from an operator-provided
// secret, which is never stored.
type SealedSessionStore struct {
	store    store.Store
	key      []byte // 32-byte AES-256 session encryption key
	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ SessionStore = (*SealedSessionStore)(nil)

// NewSealedSessionStore creates a session store backed by the given
// record store. The operator secret seals the session encryption key
// at rest; changing it makes existing sessions unreadable, which is the
// correct behavior when the secret rotates.
func NewSealedSessionStore(st store.Store, operatorSecret string) (*SealedSessionStore, error) {
	if operatorSecret == "" {
		return nil, fmt.Errorf("operator secret must not be empty")
	}
	key, err := loadOrCreateSessionKey(st, operatorSecret)
	if err != nil {
		return nil, err
	}
	s := &SealedSessionStore{
		store:  st,
		key:    key,
		stopCh: make(chan struct{}),
	}
	go s.sweepLoop()
	return s, nil
}

// Close stops the background sweep and wipes key material.
func (s *SealedSessionStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		util.WipeBytes(s.key)
	})
}

func (s *SealedSessionStore) Get(id string) (Session, bool) {
	rec, err := s.store.Get(collectionSessions, id)
	if err != nil {
		return Session{}, false
	}
	data, err := util.DecryptAESWithAAD(rec.Data, s.key, []byte(sessionAADPrefix+id))
	if err != nil {
		return Session{}, false
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, false
	}
	if time.Now().After(session.ExpiresAt) {
		s.Delete(id)
		return Session{}, false
	}
	return session, true
}

func (s *SealedSessionStore) Put(session Session) {
	data, err := json.Marshal(session)
	if err != nil {
		return
	}
	sealed, err := util.EncryptAESWithAAD(data, s.key, []byte(sessionAADPrefix+session.ID))
	if err != nil {
		return
	}
	_ = s.store.Put(collectionSessions, session.ID, &store.Record{Data: sealed, Version: 1})
}

func (s *SealedSessionStore) Delete(id string) {
	_ = s.store.Delete(collectionSessions, id)
}

func (s *SealedSessionStore) All() []Session {
	ids, err := s.store.List(collectionSessions)
	if err != nil {
		return nil
	}
	now := time.Now()
	var sessions []Session
	for _, id := range ids {
		rec, err := s.store.Get(collectionSessions, id)
		if err != nil {
			continue
		}
		data, err := util.DecryptAESWithAAD(rec.Data, s.key, []byte(sessionAADPrefix+id))
		if err != nil {
			continue
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		if now.After(session.ExpiresAt) {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions
}

func (s *SealedSessionStore) sweepLoop() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

func (s *SealedSessionStore) sweepExpired() {
	ids, err := s.store.List(collectionSessions)
	if err != nil {
		return
	}
	now := time.Now()
	for _, id := range ids {
		rec, err := s.store.Get(collectionSessions, id)
		if err != nil {
			continue
		}
		data, err := util.DecryptAESWithAAD(rec.Data, s.key, []byte(sessionAADPrefix+id))
		if err != nil {
			// Corrupt entry — remove it.
			_ = s.store.Delete(collectionSessions, id)
			continue
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			_ = s.store.Delete(collectionSessions, id)
			continue
		}
		if now.After(session.ExpiresAt) {
			_ = s.store.Delete(collectionSessions, id)
		}
	}
}

// loadOrCreateSessionKey loads the session encryption key from storage,
// unsealing it with a key derived from the operator secret. If no key
// exists, a fresh 32-byte key is generated, sealed, and persisted. If
// unsealing fails (rotated secret or corrupt record), a new key is
// generated and all existing sessions become unreadable.
func loadOrCreateSessionKey(st store.Store, operatorSecret string) ([]byte, error) {
	salt, err := loadOrCreateKeySalt(st)
	if err != nil {
		return nil, err
	}
	wrappingKey, err := util.DeriveArgon2idKey(operatorSecret, salt, util.DefaultArgon2idParams())
	if err != nil {
		return nil, err
	}
	defer util.WipeBytes(wrappingKey)

	rec, err := st.Get(collectionSessionKey, sessionKeyID)
	if err == nil {
		key, err := util.DecryptAESWithAAD(rec.Data, wrappingKey, []byte(sessionKeyAAD))
		if err == nil && len(key) == util.AESKeySize {
			return key, nil
		}
		// Wrong operator secret or corrupt record — fall through and
		// regenerate. Old sessions become unreadable.
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	key, err := util.RandomBytes(util.AESKeySize)
	if err != nil {
		return nil, err
	}
	sealed, err := util.EncryptAESWithAAD(key, wrappingKey, []byte(sessionKeyAAD))
	if err != nil {
		util.WipeBytes(key)
		return nil, fmt.Errorf("sealing new session key: %w", err)
	}
	if err := st.Put(collectionSessionKey, sessionKeyID, &store.Record{Data: sealed, Version: 1}); err != nil {
		util.WipeBytes(key)
		return nil, err
	}
	return key, nil
}

func loadOrCreateKeySalt(st store.Store) ([]byte, error) {
	rec, err := st.Get(collectionSessionKey, sessionKeySaltID)
	if err == nil {
		return rec.Data, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	salt, err := util.RandomBytes(16)
	if err != nil {
		return nil, err
	}
	if err := st.Put(collectionSessionKey, sessionKeySaltID, &store.Record{Data: salt, Version: 1}); err != nil {
		return nil, err
	}
	return salt, nil
}
