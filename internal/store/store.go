// Package store provides the profile snapshot mirror: the locally
// persisted copy of user matching signals that the scoring engine reads
// its candidate pools from. The ingest worker writes to it, the API
// reads from it.
package store

import (
	"context"
	"errors"

	"github.com/duskbound/affinity/internal/profile"
)

var (
	// ErrProfileNotFound is returned when a user has no snapshot.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrStaleVersion is returned when an upsert carries a version at or
	// below the stored one. The write is rejected, never applied out of
	// order.
	ErrStaleVersion = errors.New("stale profile version")
)

// Exclusion reasons recorded against a user pair.
const (
	ExclusionMatched = "matched"
	ExclusionPassed  = "passed"
)

// ProfileStore is the persistence boundary for profile snapshots and
// interaction exclusions.
type ProfileStore interface {
	// GetProfile returns the snapshot for one user, or ErrProfileNotFound.
	GetProfile(ctx context.Context, userID string) (*profile.RawProfile, error)

	// ListCandidates returns up to limit snapshots excluding the
	// requester, most recently updated first.
	ListCandidates(ctx context.Context, requesterID string, limit int) ([]*profile.RawProfile, error)

	// GetExclusions returns the set of userIds the user has already
	// matched with or passed on.
	GetExclusions(ctx context.Context, userID string) (map[string]struct{}, error)

	// AddExclusion records an interaction between two users.
	AddExclusion(ctx context.Context, userID, excludedID, reason string) error

	// UpsertProfile inserts or replaces a snapshot. Versions are strictly
	// monotonic per user: a write with version <= the stored version
	// returns ErrStaleVersion and leaves the snapshot unchanged.
	UpsertProfile(ctx context.Context, raw *profile.RawProfile) error

	// GetCursor returns the resume position for a named feed consumer.
	// The boolean is false when no position has been stored yet.
	GetCursor(ctx context.Context, consumer string) (int64, bool, error)

	// SetCursor persists the resume position for a named feed consumer.
	SetCursor(ctx context.Context, consumer string, position int64) error
}
