// Package lenticular synthesizes the interleaved frame shown on a lenticular
// panel from a quilt of rig views.
//
// Each output pixel picks, per colour channel, the view whose ray the lens
// above that subpixel sends towards the viewer, and samples that view's cell
// of the quilt. Arithmetic is single precision so results match the GPU
// fragment pass this replaces.
package lenticular

import (
	"image/color"

	"github.com/chewxy/math32"

	"holoquilt/internal/settings"
)

// Sampler reads a quilt at normalized texture coordinates with the origin at
// the bottom-left.
type Sampler interface {
	Sample(s, t float32) color.NRGBA
}

// Params are the panel constants and grid layout the interleaving needs.
type Params struct {
	Cols int
	Rows int

	Tilt               float32
	Pitch              float32
	Center             float32
	ViewPortionElement float32
	Subp               float32
}

// ParamsFrom extracts the interleaving constants from a calibration.
func ParamsFrom(s settings.Settings) Params {
	return Params{
		Cols:               s.Cols,
		Rows:               s.Rows,
		Tilt:               s.Tilt,
		Pitch:              s.Pitch,
		Center:             s.Center,
		ViewPortionElement: s.ViewPortionElement,
		Subp:               s.Subp,
	}
}

// ViewCount returns Cols*Rows.
func (p Params) ViewCount() int { return p.Cols * p.Rows }

// Wrap folds z into [0, 1) as (z + ceil(|z|)) mod 1 with a floored modulo.
// Non-finite input yields 0.
func Wrap(z float32) float32 {
	if math32.IsNaN(z) || math32.IsInf(z, 0) {
		return 0
	}
	z += math32.Ceil(math32.Abs(z))
	z -= math32.Floor(z)
	if z >= 1 || z < 0 {
		return 0
	}
	return z
}

// Phase is the raw lens phase of channel c (0 red, 1 green, 2 blue) at (u, v).
func (p Params) Phase(u, v float32, c int) float32 {
	return (u+float32(c)*p.Subp+v*p.Tilt)*p.Pitch - p.Center
}

// View returns the view index channel c sees at (u, v). The phase is wrapped,
// inverted, and scaled to the view count; a phase of exactly one lands back on
// view 0.
func (p Params) View(u, v float32, c int) int {
	n := p.ViewCount()
	z := 1 - Wrap(p.Phase(u, v, c))
	view := int(math32.Floor(z * float32(n)))
	if view >= n || view < 0 {
		view = ((view % n) + n) % n
	}
	return view
}

// CellCoord maps (u, v) inside view's cell to quilt texture coordinates.
func (p Params) CellCoord(view int, u, v float32) (s, t float32) {
	col := float32(view % p.Cols)
	row := float32(view / p.Cols)
	s = (col + u) / float32(p.Cols) * p.ViewPortionElement
	t = (row + v) / float32(p.Rows) * p.ViewPortionElement
	return s, t
}

// Mapper runs the interleaving against a quilt.
type Mapper struct {
	Params  Params
	Quilt   Sampler
	Workers int // row-band workers for Render, <= 0 means one per CPU
}

// Synthesize computes one output colour. Red, green and blue each come from
// their own view sample; alpha is opaque.
func (m *Mapper) Synthesize(u, v float32) color.NRGBA {
	var rgb [3]uint8
	for c := 0; c < 3; c++ {
		view := m.Params.View(u, v, c)
		s, t := m.Params.CellCoord(view, u, v)
		sample := m.Quilt.Sample(s, t)
		switch c {
		case 0:
			rgb[c] = sample.R
		case 1:
			rgb[c] = sample.G
		case 2:
			rgb[c] = sample.B
		}
	}
	return color.NRGBA{rgb[0], rgb[1], rgb[2], 255}
}
