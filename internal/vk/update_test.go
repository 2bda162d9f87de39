package vk

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newMessageArgs(mask int, sender int64, text string) []any {
	return []any{12345, mask, sender, 1693000000, " ... ", text, map[string]any{}}
}

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name    string
		update  RawUpdate
		want    *InboundMessage
		wantErr error
	}{
		{
			name:   "new message",
			update: RawUpdate{Code: 4, Args: newMessageArgs(1, 42, "find jazz tonight")},
			want:   &InboundMessage{UserID: 42, Text: "find jazz tonight"},
		},
		{
			name:   "outgoing message is skipped",
			update: RawUpdate{Code: 4, Args: newMessageArgs(0b1000000000, 42, "echo of our own reply")},
			want:   nil,
		},
		{
			name:   "flags replace carries no message",
			update: RawUpdate{Code: 1, Args: []any{12345, 128}},
			want:   nil,
		},
		{
			name:   "flags set carries no message",
			update: RawUpdate{Code: 2, Args: []any{12345, 128, 42}},
			want:   nil,
		},
		{
			name:   "flags reset carries no message",
			update: RawUpdate{Code: 3, Args: []any{12345, 128, 42}},
			want:   nil,
		},
		{
			name:   "unknown code is ignored",
			update: RawUpdate{Code: 80, Args: []any{3, 0}},
			want:   nil,
		},
		{
			name:    "short payload is malformed",
			update:  RawUpdate{Code: 4, Args: []any{12345, 1, 42}},
			wantErr: ErrMalformedUpdate,
		},
		{
			name:    "non-integer mask is malformed",
			update:  RawUpdate{Code: 4, Args: []any{12345, "x", 42, 0, "", "hi", map[string]any{}}},
			wantErr: ErrMalformedUpdate,
		},
		{
			name:    "non-string text is malformed",
			update:  RawUpdate{Code: 4, Args: []any{12345, 1, 42, 0, "", 7, map[string]any{}}},
			wantErr: ErrMalformedUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUpdate(tt.update)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRawUpdateUnmarshalJSON(t *testing.T) {
	var u RawUpdate
	raw := `[4,12345,1,42,1693000000," ... ","find jazz tonight",{}]`
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if u.Code != 4 {
		t.Errorf("code = %d, want 4", u.Code)
	}
	if len(u.Args) != 7 {
		t.Fatalf("args length = %d, want 7", len(u.Args))
	}

	msg, err := ParseUpdate(u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &InboundMessage{UserID: 42, Text: "find jazz tonight"}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}
}

func TestRawUpdateUnmarshalJSONRejectsNonArray(t *testing.T) {
	var u RawUpdate
	if err := json.Unmarshal([]byte(`{"code":4}`), &u); err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := json.Unmarshal([]byte(`[]`), &u); err == nil {
		t.Fatal("expected error for empty array, got nil")
	}
}
