package parcels

import (
	"errors"
	"testing"

	"github.com/zulandar/condobot/internal/store"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"25/12/2025", "25/12/2025", nil},
		{"5/1/2026", "05/01/2026", nil},
		{"25.12.25", "25/12/2025", nil},
		{"25-12-25", "25/12/2025", nil},
		{" 1 / 2 / 2026 ", "01/02/2026", nil},
		{"29/02/2024", "29/02/2024", nil},
		{"29/02/2025", "", ErrDateInvalid},
		{"31/02/2025", "", ErrDateInvalid},
		{"31/04/2025", "", ErrDateInvalid},
		{"0/12/2025", "", ErrDateInvalid},
		{"12/13/2025", "", ErrDateInvalid},
		{"aa/bb/cc", "", ErrDateInvalid},
		{"25/12", "", ErrDateFormat},
		{"amanhã", "", ErrDateFormat},
		{"1/2/3/4", "", ErrDateFormat},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseDate(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNextID(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"empty", nil, "1"},
		{"contiguous", []string{"1", "2", "3"}, "4"},
		{"gaps", []string{"2", "9", "4"}, "10"},
		{"garbage ignored", []string{"abc", "", "7", "x9"}, "8"},
		{"only garbage", []string{"abc", "-"}, "1"},
		{"padded", []string{" 12 "}, "13"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []store.Record
			for _, id := range tt.ids {
				records = append(records, store.Record{FieldID: id})
			}
			if got := NextID(records); got != tt.want {
				t.Errorf("NextID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNextID_NeverCollides(t *testing.T) {
	records := []store.Record{{FieldID: "3"}, {FieldID: "1"}, {FieldID: "oops"}}
	seen := map[string]bool{"3": true, "1": true}
	for i := 0; i < 5; i++ {
		id := NextID(records)
		if seen[id] {
			t.Fatalf("NextID returned existing id %q", id)
		}
		seen[id] = true
		records = append(records, store.Record{FieldID: id})
	}
}
