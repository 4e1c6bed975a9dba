package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/duskbound/affinity/internal/geo"
	"github.com/duskbound/affinity/internal/profile"
)

// Feed message kinds.
const (
	KindProfile   = "profile"
	KindHeartbeat = "heartbeat"
)

// Feed decoding errors.
var (
	ErrInvalidCBOR      = errors.New("invalid CBOR data")
	ErrMissingUserID    = errors.New("missing user id in profile change")
	ErrMissingVersion   = errors.New("missing version in profile change")
	ErrMissingProfile   = errors.New("missing profile payload in message")
	ErrUnsupportedKind  = errors.New("unsupported message kind")
	ErrIncompleteCoords = errors.New("profile change carries only one coordinate")
)

// FeedMessage is the top-level CBOR envelope on the profile change feed.
type FeedMessage struct {
	// Seq is the feed sequence number, strictly increasing per stream.
	// It doubles as the resume cursor.
	Seq int64 `cbor:"seq"`

	// Kind is the message type ("profile" or "heartbeat").
	Kind string `cbor:"kind"`

	// Profile contains the change payload (when Kind == "profile").
	Profile *ProfileChange `cbor:"profile,omitempty"`
}

// ProfileChange is one user's full snapshot as carried on the feed. The
// feed always sends complete snapshots, never deltas, so applying the
// latest version is sufficient.
type ProfileChange struct {
	UserID             string             `cbor:"user_id"`
	Role               string             `cbor:"role"`
	PersonalityAnswers []int              `cbor:"personality_answers,omitempty"`
	StyleAnswers       []int              `cbor:"style_answers,omitempty"`
	Traits             []string           `cbor:"traits,omitempty"`
	KinkPreferences    map[string]float64 `cbor:"kink_preferences,omitempty"`
	Lat                *float64           `cbor:"lat,omitempty"`
	Lng                *float64           `cbor:"lng,omitempty"`
	Version            int64              `cbor:"version"`
}

// DecodeFeedMessage decodes a CBOR-encoded feed message and validates
// the fields the mirror depends on.
func DecodeFeedMessage(data []byte) (*FeedMessage, error) {
	if len(data) == 0 {
		return nil, ErrInvalidCBOR
	}

	var msg FeedMessage
	dec := cbor.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCBOR, err)
	}

	switch msg.Kind {
	case KindHeartbeat:
		return &msg, nil
	case KindProfile:
		if msg.Profile == nil {
			return nil, ErrMissingProfile
		}
		if msg.Profile.UserID == "" {
			return nil, ErrMissingUserID
		}
		if msg.Profile.Version <= 0 {
			return nil, ErrMissingVersion
		}
		if (msg.Profile.Lat == nil) != (msg.Profile.Lng == nil) {
			return nil, ErrIncompleteCoords
		}
		return &msg, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, msg.Kind)
	}
}

// RawProfile converts the change payload into the store's snapshot
// representation.
func (c *ProfileChange) RawProfile() *profile.RawProfile {
	raw := &profile.RawProfile{
		UserID:             c.UserID,
		Role:               c.Role,
		PersonalityAnswers: c.PersonalityAnswers,
		StyleAnswers:       c.StyleAnswers,
		Traits:             c.Traits,
		KinkPreferences:    c.KinkPreferences,
		Version:            c.Version,
	}
	if c.Lat != nil && c.Lng != nil {
		raw.Location = &geo.Point{Lat: *c.Lat, Lng: *c.Lng}
	}
	return raw
}

// EncodeCBOR encodes a value to CBOR bytes. Used by tests and the local
// feed simulator.
func EncodeCBOR(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := cbor.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode CBOR: %w", err)
	}
	return buf.Bytes(), nil
}
