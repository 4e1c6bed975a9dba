package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/duskbound/affinity/internal/geo"
	"github.com/duskbound/affinity/internal/profile"
)

// PostgresProfileStore implements ProfileStore on PostgreSQL.
type PostgresProfileStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProfileStore creates a PostgresProfileStore.
func NewPostgresProfileStore(db *sql.DB, logger *slog.Logger) *PostgresProfileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProfileStore{db: db, logger: logger}
}

const profileColumns = `user_id, role, personality_answers, style_answers, traits, kink_preferences, latitude, longitude, version`

// GetProfile returns the snapshot for one user.
func (s *PostgresProfileStore) GetProfile(ctx context.Context, userID string) (*profile.RawProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	raw, err := scanProfile(s.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return raw, nil
}

// ListCandidates returns up to limit snapshots excluding the requester,
// most recently updated first.
func (s *PostgresProfileStore) ListCandidates(ctx context.Context, requesterID string, limit int) ([]*profile.RawProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE user_id != $1
		ORDER BY updated_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, requesterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*profile.RawProfile
	for rows.Next() {
		raw, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return candidates, nil
}

// GetExclusions returns the set of userIds the user has already matched
// with or passed on.
func (s *PostgresProfileStore) GetExclusions(ctx context.Context, userID string) (map[string]struct{}, error) {
	query := `SELECT excluded_user_id FROM exclusions WHERE user_id = $1`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exclusions: %w", err)
	}
	defer rows.Close()

	excluded := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan exclusion: %w", err)
		}
		excluded[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exclusions: %w", err)
	}
	return excluded, nil
}

// AddExclusion records an interaction between two users. Re-recording an
// existing pair updates the reason rather than failing.
func (s *PostgresProfileStore) AddExclusion(ctx context.Context, userID, excludedID, reason string) error {
	query := `
		INSERT INTO exclusions (user_id, excluded_user_id, reason, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, excluded_user_id) DO UPDATE SET reason = EXCLUDED.reason
	`
	if _, err := s.db.ExecContext(ctx, query, userID, excludedID, reason); err != nil {
		return fmt.Errorf("failed to add exclusion: %w", err)
	}
	return nil
}

// UpsertProfile inserts or replaces a snapshot. The version guard lives
// in the statement itself so concurrent writers cannot interleave a
// stale overwrite.
func (s *PostgresProfileStore) UpsertProfile(ctx context.Context, raw *profile.RawProfile) error {
	kinks, err := marshalKinks(raw.KinkPreferences)
	if err != nil {
		return fmt.Errorf("failed to encode kink preferences: %w", err)
	}

	var lat, lng sql.NullFloat64
	if raw.Location != nil {
		lat = sql.NullFloat64{Float64: raw.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: raw.Location.Lng, Valid: true}
	}

	query := `
		INSERT INTO profiles (user_id, role, personality_answers, style_answers, traits, kink_preferences, latitude, longitude, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			role = EXCLUDED.role,
			personality_answers = EXCLUDED.personality_answers,
			style_answers = EXCLUDED.style_answers,
			traits = EXCLUDED.traits,
			kink_preferences = EXCLUDED.kink_preferences,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			version = EXCLUDED.version,
			updated_at = NOW()
		WHERE profiles.version < EXCLUDED.version
	`
	result, err := s.db.ExecContext(ctx, query,
		raw.UserID,
		raw.Role,
		intArray(raw.PersonalityAnswers),
		intArray(raw.StyleAnswers),
		pq.Array(raw.Traits),
		kinks,
		lat,
		lng,
		raw.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read upsert result: %w", err)
	}
	if affected == 0 {
		s.logger.Warn("rejected stale profile version",
			slog.String("user_id", raw.UserID),
			slog.Int64("version", raw.Version))
		return ErrStaleVersion
	}
	return nil
}

// GetCursor returns the resume position for a named feed consumer.
func (s *PostgresProfileStore) GetCursor(ctx context.Context, consumer string) (int64, bool, error) {
	var position int64
	query := `SELECT position FROM feed_cursors WHERE consumer = $1`
	err := s.db.QueryRowContext(ctx, query, consumer).Scan(&position)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cursor: %w", err)
	}
	return position, true, nil
}

// SetCursor persists the resume position for a named feed consumer.
func (s *PostgresProfileStore) SetCursor(ctx context.Context, consumer string, position int64) error {
	query := `
		INSERT INTO feed_cursors (consumer, position, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (consumer) DO UPDATE SET position = EXCLUDED.position, updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, consumer, position); err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*profile.RawProfile, error) {
	var (
		raw         profile.RawProfile
		personality pq.Int64Array
		style       pq.Int64Array
		traits      pq.StringArray
		kinks       []byte
		lat, lng    sql.NullFloat64
	)
	err := row.Scan(&raw.UserID, &raw.Role, &personality, &style, &traits, &kinks, &lat, &lng, &raw.Version)
	if err != nil {
		return nil, err
	}

	raw.PersonalityAnswers = fromInt64Array(personality)
	raw.StyleAnswers = fromInt64Array(style)
	raw.Traits = traits
	if len(kinks) > 0 {
		if err := json.Unmarshal(kinks, &raw.KinkPreferences); err != nil {
			return nil, fmt.Errorf("failed to decode kink preferences: %w", err)
		}
	}
	if lat.Valid && lng.Valid {
		raw.Location = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &raw, nil
}

// intArray converts answer indices for a pq array parameter. A nil slice
// stays NULL so an untaken battery survives the round trip.
func intArray(answers []int) interface{} {
	if answers == nil {
		return nil
	}
	arr := make(pq.Int64Array, len(answers))
	for i, a := range answers {
		arr[i] = int64(a)
	}
	return arr
}

func fromInt64Array(arr pq.Int64Array) []int {
	if arr == nil {
		return nil
	}
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = int(v)
	}
	return out
}

func marshalKinks(kinks map[string]float64) ([]byte, error) {
	if len(kinks) == 0 {
		return nil, nil
	}
	return json.Marshal(kinks)
}

var _ ProfileStore = (*PostgresProfileStore)(nil)
