// Package gradient turns an avatar color into the two-stop gradient painted
// in place of a thumbnail.
package gradient

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/swatch"
)

// Angle is the direction of every synthesized gradient, in degrees.
const Angle = 135

const (
	mutedFactor  = 0.7
	brightFactor = 1.2
)

// Spec is a directional two-stop linear gradient.
type Spec struct {
	Start    swatch.RGB `json:"start"`
	End      swatch.RGB `json:"end"`
	Angle    int        `json:"angle"`
	Fallback bool       `json:"fallback"` // true when taken from the palette
}

// CSS renders the spec as a CSS linear-gradient value.
func (s Spec) CSS() string {
	return fmt.Sprintf("linear-gradient(%ddeg, %s, %s)", s.Angle, s.Start.CSS(), s.End.CSS())
}

// Pair is a fixed palette entry.
type Pair struct {
	Name      string
	Primary   swatch.RGB
	Secondary swatch.RGB
}

// Palette holds the muted fallback pairs used when no avatar color exists.
var Palette = [5]Pair{
	{"blue", hex("#4A90E2"), hex("#5B9FEF")},
	{"green", hex("#48A88D"), hex("#5BB89D")},
	{"violet", hex("#8E6B9E"), hex("#9D7AAD")},
	{"teal", hex("#5B9AA0"), hex("#6AA9AF")},
	{"warm-gray", hex("#767B91"), hex("#858A9F")},
}

// Synthesizer maps an optional base color to a Spec. It has no error path.
type Synthesizer struct {
	intn func(n int) int
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithIntn replaces the pseudo-random palette index source.
func WithIntn(fn func(n int) int) Option {
	return func(s *Synthesizer) { s.intn = fn }
}

// New creates a Synthesizer.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{intn: rand.IntN}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Synthesize derives the gradient from base, or picks a palette pair when
// base is nil.
func (s *Synthesizer) Synthesize(base *swatch.RGB) Spec {
	if base == nil {
		return s.fallback()
	}
	return Derive(*base)
}

// FromCSS parses an "rgb(r, g, b)" string and derives from it. Anything
// that does not parse falls back to the palette.
func (s *Synthesizer) FromCSS(value string) Spec {
	c, ok := ParseRGB(value)
	if !ok {
		return s.fallback()
	}
	return Derive(c)
}

func (s *Synthesizer) fallback() Spec {
	i := s.intn(len(Palette))
	if i < 0 || i >= len(Palette) {
		i = 0
	}
	p := Palette[i]
	return Spec{Start: p.Primary, End: p.Secondary, Angle: Angle, Fallback: true}
}

// Derive computes muted = base*0.7 and bright = muted*1.2, both rounded and
// clamped to [0,255].
func Derive(base swatch.RGB) Spec {
	muted := scale(base, mutedFactor)
	return Spec{Start: muted, End: scale(muted, brightFactor), Angle: Angle}
}

func scale(c swatch.RGB, f float64) swatch.RGB {
	return swatch.RGB{R: channel(c.R, f), G: channel(c.G, f), B: channel(c.B, f)}
}

func channel(v uint8, f float64) uint8 {
	x := math.Round(float64(v) * f)
	return uint8(max(0, min(255, x)))
}

var rgbRe = regexp.MustCompile(`^\s*rgb\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*\)\s*$`)

// ParseRGB parses "rgb(r, g, b)" with channels in [0,255].
func ParseRGB(value string) (swatch.RGB, bool) {
	m := rgbRe.FindStringSubmatch(value)
	if m == nil {
		return swatch.RGB{}, false
	}
	var ch [3]uint8
	for i := range ch {
		n, err := strconv.ParseUint(m[i+1], 10, 8)
		if err != nil {
			return swatch.RGB{}, false
		}
		ch[i] = uint8(n)
	}
	return swatch.RGB{R: ch[0], G: ch[1], B: ch[2]}, true
}

func hex(s string) swatch.RGB {
	n, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil || len(s) != 7 {
		panic("gradient: bad palette literal " + s)
	}
	return swatch.RGB{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}
}
