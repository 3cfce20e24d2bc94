package gradient

import (
	"testing"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/swatch"
)

func TestSynthesize_Derived(t *testing.T) {
	s := New()
	got := s.Synthesize(&swatch.RGB{R: 200, G: 100, B: 50})

	wantStart := swatch.RGB{R: 140, G: 70, B: 35}
	wantEnd := swatch.RGB{R: 168, G: 84, B: 42}
	if got.Start != wantStart {
		t.Errorf("Start: got %+v, want %+v", got.Start, wantStart)
	}
	if got.End != wantEnd {
		t.Errorf("End: got %+v, want %+v", got.End, wantEnd)
	}
	if got.Angle != 135 || got.Fallback {
		t.Errorf("Angle/Fallback: got %d/%v", got.Angle, got.Fallback)
	}

	wantCSS := "linear-gradient(135deg, rgb(140, 70, 35), rgb(168, 84, 42))"
	if got.CSS() != wantCSS {
		t.Errorf("CSS: got %q, want %q", got.CSS(), wantCSS)
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	s := New(WithIntn(func(int) int { t.Fatal("random source used for a present color"); return 0 }))
	base := swatch.RGB{R: 7, G: 130, B: 255}
	if a, b := s.Synthesize(&base), s.Synthesize(&base); a != b {
		t.Errorf("Synthesize not deterministic: %+v != %+v", a, b)
	}
}

func TestDerive_Clamp(t *testing.T) {
	got := Derive(swatch.RGB{R: 250, G: 250, B: 250})
	if got.Start != (swatch.RGB{R: 175, G: 175, B: 175}) || got.End != (swatch.RGB{R: 210, G: 210, B: 210}) {
		t.Errorf("Derive(250): got %+v", got)
	}
	white := Derive(swatch.RGB{R: 255, G: 255, B: 255})
	if white.End.R < white.Start.R {
		t.Errorf("Derive(white): bright below muted: %+v", white)
	}
	black := Derive(swatch.RGB{})
	if black.Start != (swatch.RGB{}) || black.End != (swatch.RGB{}) {
		t.Errorf("Derive(black): got %+v", black)
	}
}

func TestSynthesize_FallbackIsClosedSet(t *testing.T) {
	for i := range Palette {
		s := New(WithIntn(func(n int) int {
			if n != 5 {
				t.Fatalf("intn: got n=%d, want 5", n)
			}
			return i
		}))
		got := s.Synthesize(nil)
		if !got.Fallback {
			t.Errorf("pair %d: Fallback = false", i)
		}
		if got.Start != Palette[i].Primary || got.End != Palette[i].Secondary {
			t.Errorf("pair %d: got %+v", i, got)
		}
	}

	// An out-of-range source still lands inside the palette.
	s := New(WithIntn(func(int) int { return 99 }))
	got := s.Synthesize(nil)
	if got.Start != Palette[0].Primary {
		t.Errorf("out-of-range index: got %+v", got)
	}
}

func TestSynthesize_DefaultRandomStaysInPalette(t *testing.T) {
	s := New()
	for range 50 {
		got := s.Synthesize(nil)
		found := false
		for _, p := range Palette {
			if got.Start == p.Primary && got.End == p.Secondary {
				found = true
			}
		}
		if !found {
			t.Fatalf("Synthesize(nil): %+v not in palette", got)
		}
	}
}

func TestPaletteLiterals(t *testing.T) {
	if Palette[0].Primary != (swatch.RGB{R: 0x4A, G: 0x90, B: 0xE2}) {
		t.Errorf("blue primary: got %+v", Palette[0].Primary)
	}
	if Palette[4].Secondary != (swatch.RGB{R: 0x85, G: 0x8A, B: 0x9F}) {
		t.Errorf("warm-gray secondary: got %+v", Palette[4].Secondary)
	}
}

func TestFromCSS(t *testing.T) {
	s := New(WithIntn(func(int) int { return 2 }))

	got := s.FromCSS("rgb(200,100, 50)")
	if got.Fallback || got.Start != (swatch.RGB{R: 140, G: 70, B: 35}) {
		t.Errorf("FromCSS(valid): got %+v", got)
	}

	for _, bad := range []string{"", "rgb(1,2)", "rgba(1,2,3,0.5)", "rgb(300, 1, 1)", "#ff0000"} {
		got := s.FromCSS(bad)
		if !got.Fallback || got.Start != Palette[2].Primary {
			t.Errorf("FromCSS(%q): got %+v, want palette pair 2", bad, got)
		}
	}
}
