package timeline

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string, loc *time.Location) time.Time {
	t.Helper()
	d, err := ParseDate(s, loc)
	if err != nil {
		t.Fatalf("parsing %q: %v", s, err)
	}
	return d
}

func januaryBounds(t *testing.T) Bounds {
	return BoundsFor(ParentRange{
		Start: mustDate(t, "2024-01-01", time.UTC),
		End:   mustDate(t, "2024-01-31", time.UTC),
	})
}

func TestBounds_ContainsIsInclusive(t *testing.T) {
	b := januaryBounds(t)
	tests := []struct {
		day  string
		want bool
	}{
		{"2023-12-31", false},
		{"2024-01-01", true},
		{"2024-01-15", true},
		{"2024-01-31", true},
		{"2024-02-01", false},
	}
	for _, tt := range tests {
		if got := b.Contains(mustDate(t, tt.day, time.UTC)); got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.day, got, tt.want)
		}
	}
}

func TestBounds_ContainsComparesCalendarDays(t *testing.T) {
	b := januaryBounds(t)
	// Late on Jan 31 at UTC-12 is Feb 1 in UTC, but still inside the window.
	west := time.FixedZone("UTC-12", -12*3600)
	if !b.Contains(time.Date(2024, 1, 31, 23, 0, 0, 0, west)) {
		t.Error("expected Jan 31 in UTC-12 to be inside the window")
	}
	east := time.FixedZone("UTC+14", 14*3600)
	if b.Contains(time.Date(2024, 2, 1, 1, 0, 0, 0, east)) {
		t.Error("expected Feb 1 in UTC+14 to be outside the window")
	}
}

func TestBounds_Allows(t *testing.T) {
	b := januaryBounds(t)
	in := mustDate(t, "2024-01-10", time.UTC)
	out := mustDate(t, "2024-02-10", time.UTC)

	if !b.Allows(Selection{}) {
		t.Error("an empty selection has nothing out of bounds")
	}
	if !b.Allows(Selection{Start: &in}) {
		t.Error("partial in-bounds selection should be allowed")
	}
	if b.Allows(Selection{Start: &in, End: &out}) {
		t.Error("end outside the window must be rejected")
	}
	if b.Allows(Selection{Start: &out}) {
		t.Error("start outside the window must be rejected")
	}
}

func TestCanSave(t *testing.T) {
	d := mustDate(t, "2024-01-10", time.UTC)

	if CanSave(nil) {
		t.Error("no selection cannot be saved")
	}
	if CanSave(&Selection{Start: &d}) {
		t.Error("start only cannot be saved")
	}
	if CanSave(&Selection{End: &d}) {
		t.Error("end only cannot be saved")
	}
	if !CanSave(&Selection{Start: &d, End: &d}) {
		t.Error("complete selection can be saved")
	}
}

func TestCard_CanSave(t *testing.T) {
	d := mustDate(t, "2024-01-10", time.UTC)
	stored := &Selection{Start: &d, End: &d}

	if !(Card{Selection: stored}).CanSave() {
		t.Error("stored complete selection should enable save")
	}
	if (Card{Selection: stored, Pending: &Selection{Start: &d}}).CanSave() {
		t.Error("pending picker state disables save")
	}
}
