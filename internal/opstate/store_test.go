package opstate

import (
	"context"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "opstate_test.db")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := testStore(t)

	val, err := s.Get(context.Background(), "identity", "missing")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if val != "" {
		t.Errorf("Get() = %q, want empty string for missing key", val)
	}
}

func TestSetUpsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "identity", "selectedFamilyId", "F1"); err != nil {
		t.Fatalf("Set(F1) error: %v", err)
	}
	if err := s.Set(ctx, "identity", "selectedFamilyId", "F2"); err != nil {
		t.Fatalf("Set(F2) error: %v", err)
	}

	val, err := s.Get(ctx, "identity", "selectedFamilyId")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if val != "F2" {
		t.Errorf("Get() = %q, want %q after upsert", val, "F2")
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "ns", "key", "val"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := s.Delete(ctx, "ns", "key"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	val, _ := s.Get(ctx, "ns", "key")
	if val != "" {
		t.Errorf("Get() = %q after delete, want empty", val)
	}
	if err := s.Delete(ctx, "ns", "nope"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestBucketIsolation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	alpha := s.Bucket("alpha")
	beta := s.Bucket("beta")
	if err := alpha.Set(ctx, "userId", "a"); err != nil {
		t.Fatalf("alpha.Set: %v", err)
	}
	if err := beta.Set(ctx, "userId", "b"); err != nil {
		t.Fatalf("beta.Set: %v", err)
	}

	if v, _ := alpha.Get(ctx, "userId"); v != "a" {
		t.Errorf("alpha/userId = %q, want a", v)
	}
	if v, _ := beta.Get(ctx, "userId"); v != "b" {
		t.Errorf("beta/userId = %q, want b", v)
	}

	all, err := s.List(ctx, "alpha")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all["userId"] != "a" {
		t.Errorf("List(alpha) = %v", all)
	}

	if err := alpha.Delete(ctx, "userId"); err != nil {
		t.Fatalf("alpha.Delete: %v", err)
	}
	if got, err := alpha.List(ctx); err != nil || len(got) != 0 {
		t.Errorf("alpha.List() = %v, %v; want empty", got, err)
	}
	if got, _ := beta.List(ctx); got["userId"] != "b" {
		t.Errorf("beta.List() = %v after deleting from alpha", got)
	}
}

func TestStore_PersistAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist_test.db")
	ctx := context.Background()

	s1, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(1): %v", err)
	}
	if err := s1.Set(ctx, "identity", "familyId", "F9"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	s1.Close()

	s2, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(2): %v", err)
	}
	defer s2.Close()

	val, err := s2.Get(ctx, "identity", "familyId")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if val != "F9" {
		t.Errorf("Get() = %q after reopen, want %q", val, "F9")
	}
}

func TestNewStore_InvalidPath(t *testing.T) {
	_, err := NewStore("/nonexistent/path/db.sqlite")
	if err == nil {
		t.Error("NewStore() should fail for invalid path")
	}
}
