package quilt

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/chewxy/math32"
)

// Filter selects how Sample reconstructs between texels.
type Filter int

const (
	// Linear blends the four nearest texel centres, wrapping at the edges.
	Linear Filter = iota
	// Nearest returns the texel containing the coordinate.
	Nearest
)

func (f Filter) String() string {
	switch f {
	case Linear:
		return "linear"
	case Nearest:
		return "nearest"
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

// ParseFilter accepts "linear" or "nearest" (case-insensitive). Empty means Linear.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(s) {
	case "", "linear":
		return Linear, nil
	case "nearest":
		return Nearest, nil
	}
	return Linear, fmt.Errorf("quilt: unknown filter %q", s)
}

// SetFilter changes the reconstruction filter used by Sample.
func (b *Buffer) SetFilter(f Filter) { b.filter = f }

// Filter returns the current reconstruction filter.
func (b *Buffer) Filter() Filter { return b.filter }

// Sample reads the quilt at normalized texture coordinates (s, t), origin at
// the bottom-left. Coordinates outside [0,1) repeat. A released buffer
// samples as transparent black.
func (b *Buffer) Sample(s, t float32) color.NRGBA {
	if b.img == nil {
		return color.NRGBA{}
	}
	if b.filter == Nearest {
		return b.sampleNearest(s, t)
	}
	return b.sampleLinear(s, t)
}

func (b *Buffer) sampleNearest(s, t float32) color.NRGBA {
	w, h := b.Width(), b.Height()
	x := wrapIndex(floorInt(s*float32(w)), w)
	y := wrapIndex(floorInt(t*float32(h)), h)
	return b.Texel(x, y)
}

// sampleLinear weighs texel centres the way GL_LINEAR does: coordinate
// k/w + 0.5/w lands exactly on texel k.
func (b *Buffer) sampleLinear(s, t float32) color.NRGBA {
	w, h := b.Width(), b.Height()

	fx := s*float32(w) - 0.5
	fy := t*float32(h) - 0.5
	if math32.IsNaN(fx) {
		fx = 0
	}
	if math32.IsNaN(fy) {
		fy = 0
	}
	x0f := math32.Floor(fx)
	y0f := math32.Floor(fy)
	dx := fx - x0f
	dy := fy - y0f

	x0 := wrapIndex(floorInt(x0f), w)
	y0 := wrapIndex(floorInt(y0f), h)
	x1 := (x0 + 1) % w
	y1 := (y0 + 1) % h

	pix := b.img.Pix
	stride := b.img.Stride
	// Texture row y is image row h-1-y.
	r0 := (h - 1 - y0) * stride
	r1 := (h - 1 - y1) * stride
	i00 := r0 + x0*4
	i10 := r0 + x1*4
	i01 := r1 + x0*4
	i11 := r1 + x1*4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	var out [4]uint8
	for c := 0; c < 4; c++ {
		v := float32(pix[i00+c])*w00 + float32(pix[i10+c])*w10 +
			float32(pix[i01+c])*w01 + float32(pix[i11+c])*w11
		out[c] = clamp8(v)
	}
	return color.NRGBA{out[0], out[1], out[2], out[3]}
}

func floorInt(v float32) int {
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return 0
	}
	return int(math32.Floor(v))
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func clamp8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
