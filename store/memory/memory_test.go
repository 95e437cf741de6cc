package memory

import (
	"bytes"
	"testing"

	"github.com/narthex/vouch/store"
)

func TestMemoryStore(t *testing.T) {
	s := New()
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

		// Test isolation (cloning)
		got.Data[0] = 'X'
		got2, _ := s.Get(collection, id)
		if got2.Data[0] == 'X' {
			t.Error("Memory store should return clones of records")
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := s.Get("nonexistent", id)
		if err != store.ErrNotFound {
			t.Errorf("Expected ErrNotFound for nonexistent collection, got %v", err)
		}

		_, err = s.Get(collection, "nonexistent")
		if err != store.ErrNotFound {
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

		ids, _ = s.List("nonexistent")
		if len(ids) != 0 {
			t.Errorf("Expected 0 IDs for nonexistent collection, got %d", len(ids))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := New()
		s.Put(collection, id, rec)
		if err := s.Delete(collection, id); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := s.Delete(collection, id); err != store.ErrNotFound {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("PutCAS", func(t *testing.T) {
		s := New()
		rec1 := &store.Record{Data: []byte("one"), Version: 1}
		rec2 := &store.Record{Data: []byte("two"), Version: 2}

		// Create-only (expectedVersion = 0)
		err := s.PutCAS(collection, id, 0, rec1)
		if err != nil {
			t.Fatalf("PutCAS create failed: %v", err)
		}

		// Create-only on existing record
		err = s.PutCAS(collection, id, 0, rec1)
		if err != store.ErrCASFailed {
			t.Errorf("Expected ErrCASFailed, got %v", err)
		}

		// Version mismatch on absent record
		err = s.PutCAS(collection, "other", 1, rec1)
		if err != store.ErrCASFailed {
			t.Errorf("Expected ErrCASFailed, got %v", err)
		}

		// Version match update
		err = s.PutCAS(collection, id, 1, rec2)
		if err != nil {
			t.Fatalf("PutCAS update failed: %v", err)
		}

		// Stale version update
		err = s.PutCAS(collection, id, 1, rec1)
		if err != store.ErrCASFailed {
			t.Errorf("Expected ErrCASFailed, got %v", err)
		}
	})

	t.Run("Insert", func(t *testing.T) {
		s := New()
		if err := s.Insert(collection, id, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if err := s.Insert(collection, id, rec); err != store.ErrExists {
			t.Errorf("Expected ErrExists on duplicate insert, got %v", err)
		}
	})
}
