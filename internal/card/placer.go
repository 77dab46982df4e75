package card

import (
	"math"
	"math/rand/v2"
)

// Position is where the decline control sits in viewport pixel space.
// Placed is false until the first evasion; until then the control keeps its
// in-flow layout position and X, Y are meaningless.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Placed bool    `json:"placed"`
}

// Geometry is the caller-measured viewport and control size, in the same
// unit (CSS pixels in the browser, cells in a terminal).
type Geometry struct {
	ViewportWidth  float64 `json:"viewportWidth"`
	ViewportHeight float64 `json:"viewportHeight"`
	ControlWidth   float64 `json:"controlWidth"`
	ControlHeight  float64 `json:"controlHeight"`
}

// RandSource yields uniform floats in [0, 1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Placer draws a fresh position for the decline control on every call. It
// keeps no memory of earlier positions and does not try to avoid the accept
// control.
type Placer struct {
	src RandSource
}

// NewPlacer returns a Placer drawing from src. A nil src uses the
// process-seeded global generator.
func NewPlacer(src RandSource) *Placer {
	if src == nil {
		src = globalSource{}
	}
	return &Placer{src: src}
}

// Place returns a position whose X lies in
// [padding, max(padding, viewportWidth-controlWidth-padding)], and likewise
// for Y. When the control plus padding does not fit, the coordinate is
// padding exactly.
func (p *Placer) Place(viewportWidth, viewportHeight, controlWidth, controlHeight, padding float64) Position {
	return Position{
		X:      p.draw(padding, viewportWidth-controlWidth-padding),
		Y:      p.draw(padding, viewportHeight-controlHeight-padding),
		Placed: true,
	}
}

// PlaceIn is Place over a measured Geometry.
func (p *Placer) PlaceIn(g Geometry, padding float64) Position {
	return p.Place(g.ViewportWidth, g.ViewportHeight, g.ControlWidth, g.ControlHeight, padding)
}

func (p *Placer) draw(lo, hi float64) float64 {
	if math.IsNaN(lo) || math.IsInf(lo, 0) || lo < 0 {
		lo = 0
	}
	// Also catches NaN hi.
	if !(hi > lo) || math.IsInf(hi, 0) {
		return lo
	}
	v := lo + p.src.Float64()*(hi-lo)
	return math.Min(v, hi)
}
