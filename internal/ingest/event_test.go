package ingest

import (
	"errors"
	"reflect"
	"testing"
)

func encodeMessage(t *testing.T, msg FeedMessage) []byte {
	t.Helper()
	data, err := EncodeCBOR(msg)
	if err != nil {
		t.Fatalf("EncodeCBOR: %v", err)
	}
	return data
}

func floatPtr(f float64) *float64 { return &f }

func TestDecodeFeedMessageProfile(t *testing.T) {
	in := FeedMessage{
		Seq:  42,
		Kind: KindProfile,
		Profile: &ProfileChange{
			UserID:             "alice",
			Role:               "dominant",
			PersonalityAnswers: []int{0, 1, 2, 3},
			StyleAnswers:       []int{1, 2, 3},
			Traits:             []string{"Trust"},
			KinkPreferences:    map[string]float64{"rope": 70},
			Lat:                floatPtr(52.52),
			Lng:                floatPtr(13.405),
			Version:            7,
		},
	}

	msg, err := DecodeFeedMessage(encodeMessage(t, in))
	if err != nil {
		t.Fatalf("DecodeFeedMessage: %v", err)
	}
	if msg.Seq != 42 || msg.Kind != KindProfile {
		t.Errorf("envelope mismatch: %+v", msg)
	}
	if !reflect.DeepEqual(msg.Profile, in.Profile) {
		t.Errorf("profile mismatch:\ngot  %+v\nwant %+v", msg.Profile, in.Profile)
	}
}

func TestDecodeFeedMessageHeartbeat(t *testing.T) {
	msg, err := DecodeFeedMessage(encodeMessage(t, FeedMessage{Seq: 100, Kind: KindHeartbeat}))
	if err != nil {
		t.Fatalf("DecodeFeedMessage: %v", err)
	}
	if msg.Seq != 100 || msg.Profile != nil {
		t.Errorf("heartbeat decoded wrong: %+v", msg)
	}
}

func TestDecodeFeedMessageInvalid(t *testing.T) {
	tests := []struct {
		name    string
		msg     FeedMessage
		wantErr error
	}{
		{
			name:    "unknown kind",
			msg:     FeedMessage{Seq: 1, Kind: "account"},
			wantErr: ErrUnsupportedKind,
		},
		{
			name:    "profile kind without payload",
			msg:     FeedMessage{Seq: 1, Kind: KindProfile},
			wantErr: ErrMissingProfile,
		},
		{
			name: "missing user id",
			msg: FeedMessage{
				Seq:     1,
				Kind:    KindProfile,
				Profile: &ProfileChange{Version: 1},
			},
			wantErr: ErrMissingUserID,
		},
		{
			name: "missing version",
			msg: FeedMessage{
				Seq:     1,
				Kind:    KindProfile,
				Profile: &ProfileChange{UserID: "alice"},
			},
			wantErr: ErrMissingVersion,
		},
		{
			name: "latitude without longitude",
			msg: FeedMessage{
				Seq:  1,
				Kind: KindProfile,
				Profile: &ProfileChange{
					UserID:  "alice",
					Version: 1,
					Lat:     floatPtr(52.52),
				},
			},
			wantErr: ErrIncompleteCoords,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFeedMessage(encodeMessage(t, tt.msg))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeFeedMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeFeedMessageGarbage(t *testing.T) {
	if _, err := DecodeFeedMessage(nil); !errors.Is(err, ErrInvalidCBOR) {
		t.Errorf("empty payload: expected ErrInvalidCBOR, got %v", err)
	}
	if _, err := DecodeFeedMessage([]byte{0xff, 0xff, 0xff}); !errors.Is(err, ErrInvalidCBOR) {
		t.Errorf("garbage payload: expected ErrInvalidCBOR, got %v", err)
	}
}

func TestProfileChangeRawProfile(t *testing.T) {
	change := &ProfileChange{
		UserID:             "alice",
		Role:               "switch",
		PersonalityAnswers: []int{1, 2},
		Traits:             []string{"Trust"},
		Lat:                floatPtr(52.52),
		Lng:                floatPtr(13.405),
		Version:            3,
	}

	raw := change.RawProfile()
	if raw.UserID != "alice" || raw.Role != "switch" || raw.Version != 3 {
		t.Errorf("scalar fields not carried over: %+v", raw)
	}
	if raw.Location == nil || raw.Location.Lat != 52.52 || raw.Location.Lng != 13.405 {
		t.Errorf("location not carried over: %+v", raw.Location)
	}
	if raw.StyleAnswers != nil {
		t.Error("untaken battery must stay nil")
	}

	noLocation := (&ProfileChange{UserID: "bob", Version: 1}).RawProfile()
	if noLocation.Location != nil {
		t.Errorf("expected nil location, got %+v", noLocation.Location)
	}
}
