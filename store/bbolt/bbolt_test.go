package bbolt

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/narthex/vouch/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vouch-test.db")
	s, err := NewFromFile(path, nil)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBBoltStore(t *testing.T) {
	s := newTestStore(t)
	collection := "REQUEST"
	id := "r1"
	rec := &store.Record{Data: []byte(`{"status":"pending"}`), Version: 1}

	t.Run("PutAndGet", func(t *testing.T) {
		err := s.Put(collection, id, rec)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := s.Get(collection, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got.Data, rec.Data) || got.Version != rec.Version {
			t.Errorf("Get returned wrong record: %+v", got)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := s.Get("nonexistent", id)
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for nonexistent collection, got %v", err)
		}

		_, err = s.Get(collection, "nonexistent")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for nonexistent record, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		s.Put(collection, "r2", rec)
		s.Put("APPROVAL", "r1", rec)

		ids, err := s.List(collection)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(ids) != 2 {
			t.Errorf("Expected 2 IDs, got %d: %v", len(ids), ids)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s.Put(collection, "r3", rec)
		if err := s.Delete(collection, "r3"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := s.Delete(collection, "r3"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("PutCAS", func(t *testing.T) {
		s := newTestStore(t)
		rec1 := &store.Record{Data: []byte("one"), Version: 1}
		rec2 := &store.Record{Data: []byte("two"), Version: 2}

		if err := s.PutCAS(collection, id, 0, rec1); err != nil {
			t.Fatalf("PutCAS create failed: %v", err)
		}
		if err := s.PutCAS(collection, id, 0, rec1); err != store.ErrCASFailed {
			t.Errorf("Expected ErrCASFailed, got %v", err)
		}
		if err := s.PutCAS(collection, id, 1, rec2); err != nil {
			t.Fatalf("PutCAS update failed: %v", err)
		}
		if err := s.PutCAS(collection, id, 1, rec1); err != store.ErrCASFailed {
			t.Errorf("Expected ErrCASFailed, got %v", err)
		}
	})

	t.Run("Insert", func(t *testing.T) {
		s := newTestStore(t)
		if err := s.Insert(collection, id, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if err := s.Insert(collection, id, rec); err != store.ErrExists {
			t.Errorf("Expected ErrExists on duplicate insert, got %v", err)
		}
	})

	t.Run("Persistence", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "persist.db")
		first, err := NewFromFile(path, nil)
		if err != nil {
			t.Fatalf("could not open db: %v", err)
		}
		if err := first.Put(collection, "keep", rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		first.Close()

		second, err := NewFromFile(path, nil)
		if err != nil {
			t.Fatalf("could not reopen db: %v", err)
		}
		defer second.Close()
		got, err := second.Get(collection, "keep")
		if err != nil {
			t.Fatalf("Get after reopen failed: %v", err)
		}
		if !bytes.Equal(got.Data, rec.Data) {
			t.Errorf("record did not survive reopen: %+v", got)
		}
	})
}
