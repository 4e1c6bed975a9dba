package store

import (
	"context"
	"sort"
	"sync"

	"github.com/duskbound/affinity/internal/profile"
)

// InMemoryProfileStore provides an in-memory ProfileStore for tests and
// local development.
type InMemoryProfileStore struct {
	mu         sync.RWMutex
	profiles   map[string]*profile.RawProfile
	order      []string // insertion order, newest write last
	exclusions map[string]map[string]string
	cursors    map[string]int64
}

// NewInMemoryProfileStore creates an empty in-memory store.
func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{
		profiles:   make(map[string]*profile.RawProfile),
		exclusions: make(map[string]map[string]string),
		cursors:    make(map[string]int64),
	}
}

// GetProfile returns the snapshot for one user.
func (s *InMemoryProfileStore) GetProfile(ctx context.Context, userID string) (*profile.RawProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return copyProfile(raw), nil
}

// ListCandidates returns up to limit snapshots excluding the requester,
// most recently written first.
func (s *InMemoryProfileStore) ListCandidates(ctx context.Context, requesterID string, limit int) ([]*profile.RawProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*profile.RawProfile
	for i := len(s.order) - 1; i >= 0 && len(candidates) < limit; i-- {
		id := s.order[i]
		if id == requesterID {
			continue
		}
		candidates = append(candidates, copyProfile(s.profiles[id]))
	}
	return candidates, nil
}

// GetExclusions returns the set of userIds the user has interacted with.
func (s *InMemoryProfileStore) GetExclusions(ctx context.Context, userID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make(map[string]struct{}, len(s.exclusions[userID]))
	for id := range s.exclusions[userID] {
		excluded[id] = struct{}{}
	}
	return excluded, nil
}

// AddExclusion records an interaction between two users.
func (s *InMemoryProfileStore) AddExclusion(ctx context.Context, userID, excludedID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exclusions[userID] == nil {
		s.exclusions[userID] = make(map[string]string)
	}
	s.exclusions[userID][excludedID] = reason
	return nil
}

// UpsertProfile inserts or replaces a snapshot with the monotonic
// version guard.
func (s *InMemoryProfileStore) UpsertProfile(ctx context.Context, raw *profile.RawProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[raw.UserID]; ok {
		if raw.Version <= existing.Version {
			return ErrStaleVersion
		}
		// Re-append so recency ordering follows writes.
		for i, id := range s.order {
			if id == raw.UserID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.profiles[raw.UserID] = copyProfile(raw)
	s.order = append(s.order, raw.UserID)
	return nil
}

// GetCursor returns the resume position for a named feed consumer.
func (s *InMemoryProfileStore) GetCursor(ctx context.Context, consumer string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, ok := s.cursors[consumer]
	return position, ok, nil
}

// SetCursor persists the resume position for a named feed consumer.
func (s *InMemoryProfileStore) SetCursor(ctx context.Context, consumer string, position int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[consumer] = position
	return nil
}

// UserIDs returns all stored userIds sorted, for test assertions.
func (s *InMemoryProfileStore) UserIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// copyProfile deep-copies a snapshot so callers cannot mutate stored
// state through shared slices and maps.
func copyProfile(raw *profile.RawProfile) *profile.RawProfile {
	cp := *raw
	if raw.PersonalityAnswers != nil {
		cp.PersonalityAnswers = append([]int(nil), raw.PersonalityAnswers...)
	}
	if raw.StyleAnswers != nil {
		cp.StyleAnswers = append([]int(nil), raw.StyleAnswers...)
	}
	if raw.Traits != nil {
		cp.Traits = append([]string(nil), raw.Traits...)
	}
	if raw.KinkPreferences != nil {
		cp.KinkPreferences = make(map[string]float64, len(raw.KinkPreferences))
		for k, v := range raw.KinkPreferences {
			cp.KinkPreferences[k] = v
		}
	}
	if raw.Location != nil {
		loc := *raw.Location
		cp.Location = &loc
	}
	return &cp
}

var _ ProfileStore = (*InMemoryProfileStore)(nil)
