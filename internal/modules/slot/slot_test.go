package slot

import (
	"errors"
	"testing"
	"time"

	"banquet/internal/config"
)

func testSlotCfg() config.SlotConfig {
	return config.SlotConfig{
		AnchorMinutes:    []int{12 * 60, 15 * 60, 18 * 60, 21 * 60},
		PreferredWindow:  30 * time.Minute,
		MaxWindow:        60 * time.Minute,
		BaseDuration:     90 * time.Minute,
		PerGuestDuration: 10 * time.Minute,
		MaxDuration:      300 * time.Minute,
	}
}

func TestDurationFor(t *testing.T) {
	m := NewModel(testSlotCfg())

	tests := []struct {
		name   string
		guests int
		want   time.Duration
	}{
		{name: "zero guests", guests: 0, want: 90 * time.Minute},
		{name: "small party", guests: 4, want: 130 * time.Minute},
		{name: "twelve guests", guests: 12, want: 210 * time.Minute},
		{name: "at cap", guests: 21, want: 300 * time.Minute},
		{name: "beyond cap", guests: 80, want: 300 * time.Minute},
		{name: "negative treated as zero", guests: -3, want: 90 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.DurationFor(tt.guests); got != tt.want {
				t.Errorf("DurationFor(%d) = %v, want %v", tt.guests, got, tt.want)
			}
		})
	}
}

func TestDurationFor_Monotonic(t *testing.T) {
	m := NewModel(testSlotCfg())
	prev := time.Duration(0)
	for g := 0; g <= 100; g++ {
		d := m.DurationFor(g)
		if d < prev {
			t.Fatalf("duration decreased at %d guests: %v < %v", g, d, prev)
		}
		prev = d
	}
}

func TestValidateAdjustment(t *testing.T) {
	m := NewModel(testSlotCfg())
	const anchor = 18 * 60

	tests := []struct {
		name          string
		requested     int
		wantPreferred bool
		wantErr       error
	}{
		{name: "exact anchor", requested: anchor, wantPreferred: true},
		{name: "within preferred", requested: anchor + 20, wantPreferred: true},
		{name: "preferred boundary", requested: anchor + 30, wantPreferred: true},
		{name: "nudge zone +45", requested: anchor + 45, wantPreferred: false},
		{name: "max boundary", requested: anchor + 60, wantPreferred: false},
		{name: "beyond max", requested: anchor + 61, wantErr: ErrAdjustmentRejected},
		{name: "far beyond max", requested: anchor + 120, wantErr: ErrAdjustmentRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := m.ValidateAdjustment(anchor, tt.requested)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !v.WithinMax {
				t.Fatal("expected WithinMax for accepted adjustment")
			}
			if v.WithinPreferred != tt.wantPreferred {
				t.Errorf("WithinPreferred = %v, want %v", v.WithinPreferred, tt.wantPreferred)
			}
		})
	}
}

// TestValidateAdjustment_Symmetric verifies +x and -x from the same anchor get
// the same classification.
func TestValidateAdjustment_Symmetric(t *testing.T) {
	m := NewModel(testSlotCfg())
	const anchor = 15 * 60

	for _, x := range []int{0, 10, 30, 45, 60, 61, 90} {
		plus, errPlus := m.ValidateAdjustment(anchor, anchor+x)
		minus, errMinus := m.ValidateAdjustment(anchor, anchor-x)

		if (errPlus == nil) != (errMinus == nil) {
			t.Fatalf("offset ±%d: asymmetric rejection (%v vs %v)", x, errPlus, errMinus)
		}
		if errPlus != nil {
			continue
		}
		if plus.WithinPreferred != minus.WithinPreferred {
			t.Errorf("offset ±%d: asymmetric WithinPreferred", x)
		}
		if plus.WithinMax != minus.WithinMax {
			t.Errorf("offset ±%d: asymmetric WithinMax", x)
		}
	}
}

func TestValidateAdjustment_UnknownAnchor(t *testing.T) {
	m := NewModel(testSlotCfg())
	if _, err := m.ValidateAdjustment(13*60, 13*60); !errors.Is(err, ErrUnknownAnchor) {
		t.Fatalf("expected ErrUnknownAnchor, got %v", err)
	}
}

func TestNearestAnchor(t *testing.T) {
	m := NewModel(testSlotCfg())

	tests := []struct {
		minutes int
		want    int
	}{
		{minutes: 12 * 60, want: 12 * 60},
		{minutes: 13 * 60, want: 12 * 60},
		{minutes: 14 * 60, want: 15 * 60},
		{minutes: 19*60 + 45, want: 21 * 60},
		{minutes: 0, want: 12 * 60},
	}
	for _, tt := range tests {
		if got := m.NearestAnchor(tt.minutes); got != tt.want {
			t.Errorf("NearestAnchor(%d) = %d, want %d", tt.minutes, got, tt.want)
		}
	}
}

func TestWindow(t *testing.T) {
	m := NewModel(testSlotCfg())
	date := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	start, end := m.Window(date, 18*60, 45, 4)
	wantStart := time.Date(2026, 4, 2, 18, 45, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", start, wantStart)
	}
	if end.Sub(start) != 130*time.Minute {
		t.Fatalf("window length = %v, want 130m", end.Sub(start))
	}
}
