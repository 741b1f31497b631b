package intent

import (
	"testing"
	"time"
)

func TestFoldAccents(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Reunión", "reunion"},
		{"MAÑANA", "manana"},
		{"café con María", "cafe con maria"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := foldAccents(tt.in); got != tt.want {
			t.Errorf("foldAccents(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct{ in, want string }{
		{"15:00", "15:00"},
		{"9", "09:00"},
		{"9:30", "09:30"},
		{"3pm", "15:00"},
		{"3:15 PM", "15:15"},
		{"12am", "00:00"},
		{"12pm", "12:00"},
		{"", ""},
		{"sin hora", ""},
	}
	for _, tt := range tests {
		if got := parseClock(tt.in); got != tt.want {
			t.Errorf("parseClock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAdjustYearIfMissing(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		date     string
		userText string
		want     string
	}{
		{"stale year re-anchored", "2024-06-20", "reunión el 20 de junio", "2026-06-20"},
		{"past date rolls forward", "2023-01-03", "cita el 3 de enero", "2027-01-03"},
		{"explicit year kept", "2024-06-20", "reunión el 20 de junio de 2024", "2024-06-20"},
		{"empty date untouched", "", "lo que sea", ""},
		{"unparseable date untouched", "mañana", "reunión mañana", "mañana"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adjustYearIfMissing(tt.date, tt.userText, now, time.UTC)
			if got != tt.want {
				t.Errorf("adjustYearIfMissing(%q) = %q, want %q", tt.date, got, tt.want)
			}
		})
	}
}

func TestCombineDateTime(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Skip("tzdata not available")
	}
	got, err := combineDateTime("2026-06-20", "15:00", loc)
	if err != nil {
		t.Fatalf("combineDateTime() error = %v", err)
	}
	want := time.Date(2026, 6, 20, 21, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("combineDateTime() = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("combineDateTime() location = %v, want UTC", got.Location())
	}
}
