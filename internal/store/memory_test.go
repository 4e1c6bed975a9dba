package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/duskbound/affinity/internal/geo"
	"github.com/duskbound/affinity/internal/profile"
)

func testProfile(id string, version int64) *profile.RawProfile {
	return &profile.RawProfile{
		UserID:             id,
		Role:               "switch",
		PersonalityAnswers: []int{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3},
		StyleAnswers:       []int{1, 2, 3, 0, 1, 2},
		Traits:             []string{"Trust"},
		KinkPreferences:    map[string]float64{"rope": 60},
		Location:           &geo.Point{Lat: 52.52, Lng: 13.405},
		Version:            version,
	}
}

func TestInMemoryGetProfile(t *testing.T) {
	s := NewInMemoryProfileStore()
	ctx := context.Background()

	if _, err := s.GetProfile(ctx, "missing"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}

	want := testProfile("alice", 1)
	if err := s.UpsertProfile(ctx, want); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	got, err := s.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetProfile = %+v, want %+v", got, want)
	}
}

func TestInMemoryUpsertIsolation(t *testing.T) {
	// Mutating a stored-then-read snapshot must not leak back into the
	// store.
	s := NewInMemoryProfileStore()
	ctx := context.Background()

	original := testProfile("alice", 1)
	if err := s.UpsertProfile(ctx, original); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	original.Traits[0] = "mutated"

	got, err := s.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Traits[0] != "Trust" {
		t.Error("stored snapshot must not share slices with caller input")
	}

	got.KinkPreferences["rope"] = 0
	again, _ := s.GetProfile(ctx, "alice")
	if again.KinkPreferences["rope"] != 60 {
		t.Error("returned snapshot must not share maps with stored state")
	}
}

func TestInMemoryUpsertVersionGuard(t *testing.T) {
	s := NewInMemoryProfileStore()
	ctx := context.Background()

	if err := s.UpsertProfile(ctx, testProfile("alice", 5)); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}

	tests := []struct {
		name    string
		version int64
		wantErr error
	}{
		{"older version rejected", 4, ErrStaleVersion},
		{"equal version rejected", 5, ErrStaleVersion},
		{"newer version applied", 6, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.UpsertProfile(ctx, testProfile("alice", tt.version))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UpsertProfile(v%d) = %v, want %v", tt.version, err, tt.wantErr)
			}
		})
	}

	got, err := s.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Version != 6 {
		t.Errorf("stored version = %d, want 6", got.Version)
	}
}

func TestInMemoryListCandidates(t *testing.T) {
	s := NewInMemoryProfileStore()
	ctx := context.Background()

	for i, id := range []string{"alice", "bob", "carol", "dave"} {
		if err := s.UpsertProfile(ctx, testProfile(id, int64(i+1))); err != nil {
			t.Fatalf("UpsertProfile(%s): %v", id, err)
		}
	}

	candidates, err := s.ListCandidates(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}

	got := make([]string, len(candidates))
	for i, c := range candidates {
		got[i] = c.UserID
	}
	// Newest write first, requester excluded.
	want := []string{"dave", "carol", "bob"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListCandidates = %v, want %v", got, want)
	}

	limited, err := s.ListCandidates(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("ListCandidates limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected limit honored, got %d candidates", len(limited))
	}
}

func TestInMemoryListCandidatesRecencyFollowsWrites(t *testing.T) {
	s := NewInMemoryProfileStore()
	ctx := context.Background()

	s.UpsertProfile(ctx, testProfile("alice", 1))
	s.UpsertProfile(ctx, testProfile("bob", 1))
	// Re-writing alice moves her to the front of the candidate list.
	s.UpsertProfile(ctx, testProfile("alice", 2))

	candidates, err := s.ListCandidates(ctx, "carol", 10)
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if candidates[0].UserID != "alice" {
		t.Errorf("expected alice first after re-write, got %s", candidates[0].UserID)
	}
}

func TestInMemoryExclusions(t *testing.T) {
	s := NewInMemoryProfileStore()
	ctx := context.Background()

	excluded, err := s.GetExclusions(ctx, "alice")
	if err != nil {
		t.Fatalf("GetExclusions: %v", err)
	}
	if len(excluded) != 0 {
		t.Errorf("expected no exclusions, got %v", excluded)
	}

	if err := s.AddExclusion(ctx, "alice", "bob", ExclusionMatched); err != nil {
		t.Fatalf("AddExclusion: %v", err)
	}
	if err := s.AddExclusion(ctx, "alice", "carol", ExclusionPassed); err != nil {
		t.Fatalf("AddExclusion: %v", err)
	}
	// Re-recording the same pair is not an error.
	if err := s.AddExclusion(ctx, "alice", "bob", ExclusionPassed); err != nil {
		t.Fatalf("AddExclusion repeat: %v", err)
	}

	excluded, err = s.GetExclusions(ctx, "alice")
	if err != nil {
		t.Fatalf("GetExclusions: %v", err)
	}
	if len(excluded) != 2 {
		t.Errorf("expected 2 exclusions, got %v", excluded)
	}
	if _, ok := excluded["bob"]; !ok {
		t.Error("expected bob excluded")
	}

	// Exclusions are directional.
	reverse, err := s.GetExclusions(ctx, "bob")
	if err != nil {
		t.Fatalf("GetExclusions reverse: %v", err)
	}
	if len(reverse) != 0 {
		t.Errorf("exclusions must be directional, got %v", reverse)
	}
}

func TestInMemoryCursor(t *testing.T) {
	s := NewInMemoryProfileStore()
	ctx := context.Background()

	if _, ok, err := s.GetCursor(ctx, "ingest"); err != nil || ok {
		t.Errorf("expected no cursor, got ok=%v err=%v", ok, err)
	}

	if err := s.SetCursor(ctx, "ingest", 1234); err != nil {
		t.Fatalf("SetCursor: %v", err)
	}
	position, ok, err := s.GetCursor(ctx, "ingest")
	if err != nil || !ok || position != 1234 {
		t.Errorf("GetCursor = (%d, %v, %v), want (1234, true, nil)", position, ok, err)
	}

	if err := s.SetCursor(ctx, "ingest", 5678); err != nil {
		t.Fatalf("SetCursor update: %v", err)
	}
	if position, _, _ := s.GetCursor(ctx, "ingest"); position != 5678 {
		t.Errorf("cursor not updated, got %d", position)
	}
}
