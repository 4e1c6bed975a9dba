package match

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
// Callers must treat it as a validation failure, not resume from the top.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// pageCursor is a keyset cursor into the ranked candidate ordering:
// the score and id of the last entry the caller has seen. Because the
// ordering is deterministic (score descending, id ascending), resuming
// after that position is stable across calls as long as the underlying
// vectors are unchanged.
type pageCursor struct {
	Score float64 `json:"s"`
	ID    string  `json:"id"`
}

// encodeCursor serializes a cursor as URL-safe base64 JSON.
func encodeCursor(c pageCursor) string {
	data, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(data)
}

// decodeCursor parses a cursor produced by encodeCursor. An empty string
// means "start from the top" and returns a nil cursor.
func decodeCursor(s string) (*pageCursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c pageCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.ID == "" {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// after reports whether a ranked entry at (score, id) sorts strictly
// after the cursor position in the (score desc, id asc) ordering.
func (c *pageCursor) after(score float64, id string) bool {
	if score < c.Score {
		return true
	}
	if score == c.Score && id > c.ID {
		return true
	}
	return false
}
