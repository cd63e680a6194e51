package format

import "testing"

func TestFormatDate(t *testing.T) {
	tests := []struct {
		iso  string
		want string
	}{
		{"2004-04-04", "4 Avr. 04"},
		{"2023-05-05", "5 Mai. 23"},
		{"2021-01-01", "1 Jan. 21"},
		{"2001-12-31", "31 Déc. 01"},
		{"2022-08-09", "9 Aoû. 22"},
	}

	for _, tt := range tests {
		t.Run(tt.iso, func(t *testing.T) {
			got, err := FormatDate(tt.iso)
			if err != nil {
				t.Fatalf("FormatDate(%q) error = %v", tt.iso, err)
			}
			if got != tt.want {
				t.Errorf("FormatDate(%q) = %q, want %q", tt.iso, got, tt.want)
			}
		})
	}
}

func TestFormatDateJuneAndJulyCollapse(t *testing.T) {
	// The truncated French abbreviations render June and July identically,
	// which is exactly why sorting must use the raw ISO date.
	june, err := FormatDate("2022-06-15")
	if err != nil {
		t.Fatalf("june: %v", err)
	}
	july, err := FormatDate("2022-07-15")
	if err != nil {
		t.Fatalf("july: %v", err)
	}
	if june != "15 Jui. 22" || july != "15 Jui. 22" {
		t.Errorf("expected both months to render as \"15 Jui. 22\", got %q and %q", june, july)
	}
}

func TestFormatDateInvalidKeepsInput(t *testing.T) {
	got, err := FormatDate("not-a-date")
	if err == nil {
		t.Fatal("expected error for unparseable date")
	}
	if got != "not-a-date" {
		t.Errorf("malformed input must come back unchanged, got %q", got)
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"pending", "En attente"},
		{"accepted", "Accepté"},
		{"refused", "Refused"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := FormatStatus(tt.raw)
			if err != nil {
				t.Fatalf("FormatStatus(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("FormatStatus(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatStatusUnknown(t *testing.T) {
	got, err := FormatStatus("archived")
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
	if got != "archived" {
		t.Errorf("unknown status must come back unchanged, got %q", got)
	}
}
