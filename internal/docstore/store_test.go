package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "docs_test.db")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.Add(ctx, "providers", Doc{"name": "Jane Smith", "type": "music"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == "" {
		t.Fatal("Add returned empty id")
	}

	got, err := s.Get(ctx, "providers", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.String("name") != "Jane Smith" || got.String("type") != "music" {
		t.Errorf("Get = %v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "providers", "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing err = %v, want ErrNotFound", err)
	}
}

func TestSetMerge(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "actionFeedback", "m1", Doc{"kind": "helpful", "comment": "great"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "actionFeedback", "m1", Doc{"kind": "unhelpful"}, true); err != nil {
		t.Fatalf("Set merge: %v", err)
	}
	got, _ := s.Get(ctx, "actionFeedback", "m1")
	want := Doc{"kind": "unhelpful", "comment": "great"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged doc mismatch (-want +got):\n%s", diff)
	}

	if err := s.Set(ctx, "actionFeedback", "m1", Doc{"kind": "helpful"}, false); err != nil {
		t.Fatalf("Set replace: %v", err)
	}
	got, _ = s.Get(ctx, "actionFeedback", "m1")
	if _, ok := got["comment"]; ok {
		t.Error("replace kept old field")
	}
}

func TestUpdateFieldOps(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "familyMembers", "c1", Doc{"name": "Max"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entry := map[string]any{"height": "40 in", "date": "2026-10-01"}
	for i := 0; i < 2; i++ {
		err := s.Update(ctx, "familyMembers", "c1", map[string]any{
			"growthData":       ArrayUnion(entry),
			"stats.updates":    Increment(1),
			"stats.lastSource": "chat",
		})
		if err != nil {
			t.Fatalf("Update #%d: %v", i, err)
		}
	}

	got, _ := s.Get(ctx, "familyMembers", "c1")
	growth, _ := got["growthData"].([]any)
	if len(growth) != 1 {
		t.Errorf("growthData len = %d, want 1 (union dedupes)", len(growth))
	}
	if n, _ := got.Path("stats.updates").(float64); n != 2 {
		t.Errorf("stats.updates = %v, want 2", got.Path("stats.updates"))
	}
	if got.Path("stats.lastSource") != "chat" {
		t.Errorf("stats.lastSource = %v", got.Path("stats.lastSource"))
	}
}

func TestUpdateMissing(t *testing.T) {
	s := testStore(t)
	err := s.Update(context.Background(), "familyMembers", "ghost", map[string]any{"a": 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing err = %v, want ErrNotFound", err)
	}
}

func TestUpsertCreates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Upsert(ctx, "analytics", "actionStats", map[string]any{"totalActions": Increment(1)}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	got, _ := s.Get(ctx, "analytics", "actionStats")
	if got.Float("totalActions") != 3 {
		t.Errorf("totalActions = %v, want 3", got["totalActions"])
	}
}

func TestIncrementOnString(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	s.Set(ctx, "c", "d", Doc{"n": "x"}, false)
	if err := s.Update(ctx, "c", "d", map[string]any{"n": Increment(1)}); err == nil {
		t.Error("increment on string field should fail")
	}
}

func TestFind(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seed := []Doc{
		{"familyId": "F1", "title": "b", "priority": 2.0, "completed": false},
		{"familyId": "F1", "title": "a", "priority": 1.0, "completed": true},
		{"familyId": "F2", "title": "c", "priority": 3.0, "completed": false},
		{"familyId": "F1", "title": "d", "priority": 4.0, "completed": false},
	}
	for _, d := range seed {
		if _, err := s.Add(ctx, "tasks", d); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"by family", Query{Where: []Filter{Where("familyId", "F1")}, OrderBy: "title"}, []string{"a", "b", "d"}},
		{"bool filter", Query{Where: []Filter{Where("familyId", "F1"), Where("completed", false)}, OrderBy: "title"}, []string{"b", "d"}},
		{"desc limit", Query{OrderBy: "priority", Desc: true, Limit: 2}, []string{"d", "c"}},
		{"insertion order", Query{Where: []Filter{Where("familyId", "F2")}}, []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Find(ctx, "tasks", tt.q)
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			var got []string
			for _, d := range docs {
				got = append(got, d.Data.String("title"))
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("titles mismatch (-want +got):\n%s", diff)
			}
		})
	}

	n, err := s.Count(ctx, "tasks", Where("completed", false))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestFindRejectsBadPath(t *testing.T) {
	s := testStore(t)
	_, err := s.Find(context.Background(), "tasks", Query{Where: []Filter{Where("x') OR 1=1 --", 1)}})
	if err == nil {
		t.Error("expected invalid field path error")
	}
}

func TestFromAndDecode(t *testing.T) {
	type provider struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	doc, err := From(provider{Name: "Jane", Email: ""})
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	if v, ok := doc["email"]; !ok || v != "" {
		t.Errorf("empty string field must be kept, got %v", doc)
	}

	var back provider
	if err := doc.Decode(&back); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Name != "Jane" {
		t.Errorf("Decode name = %q", back.Name)
	}
}
