package quilt

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ErrEmptySource is returned when a capture source has no pixels.
var ErrEmptySource = errors.New("empty source surface")

// Compositor copies rendered views into their quilt cells and tracks which
// cells have been written since the last Reset.
//
// Captures of different indices write disjoint cells, so their order does not
// matter. A Compositor is not safe for concurrent use.
type Compositor struct {
	buf     *Buffer
	written []bool
	count   int
}

// NewCompositor wraps buf. All cells start unwritten.
func NewCompositor(buf *Buffer) *Compositor {
	return &Compositor{
		buf:     buf,
		written: make([]bool, buf.ViewCount()),
	}
}

// Buffer returns the quilt being composited.
func (c *Compositor) Buffer() *Buffer { return c.buf }

// Capture copies src into the cell of view index. The whole source bounds map
// onto the cell with nearest-neighbour resampling so cell edges never pick up
// colour from a neighbouring view; a source of exactly the view size is copied
// texel for texel. Only colour is kept: the cell is stored opaque.
// src itself is not modified.
func (c *Compositor) Capture(index int, src image.Image) error {
	if c.buf.Released() {
		return fmt.Errorf("quilt: capture %d: %w", index, ErrReleased)
	}
	if err := c.buf.CheckIndex(index); err != nil {
		return err
	}
	sb := src.Bounds()
	if sb.Empty() {
		return fmt.Errorf("quilt: capture %d: %w", index, ErrEmptySource)
	}

	dst := c.buf.img
	dr := c.buf.ImageRect(index)
	sameSize := sb.Dx() == dr.Dx() && sb.Dy() == dr.Dy()
	switch s := src.(type) {
	case *image.NRGBA:
		if sameSize {
			copyRows(dst, dr, s, sb.Min)
			break
		}
		draw.NearestNeighbor.Scale(dst, dr, src, sb, draw.Src, nil)
	default:
		if sameSize {
			draw.Copy(dst, dr.Min, src, sb, draw.Src, nil)
			break
		}
		draw.NearestNeighbor.Scale(dst, dr, src, sb, draw.Src, nil)
	}
	forceOpaque(dst, dr)

	if !c.written[index] {
		c.written[index] = true
		c.count++
	}
	return nil
}

// copyRows copies raw texels so colour survives even where the source is
// transparent.
func copyRows(dst *image.NRGBA, dr image.Rectangle, src *image.NRGBA, sp image.Point) {
	n := dr.Dx() * 4
	for y := 0; y < dr.Dy(); y++ {
		si := src.PixOffset(sp.X, sp.Y+y)
		di := dst.PixOffset(dr.Min.X, dr.Min.Y+y)
		copy(dst.Pix[di:di+n], src.Pix[si:si+n])
	}
}

func forceOpaque(img *image.NRGBA, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		end := i + r.Dx()*4
		for ; i < end; i += 4 {
			img.Pix[i+3] = 255
		}
	}
}

// Captured reports whether index was written since the last Reset.
func (c *Compositor) Captured(index int) bool {
	if index < 0 || index >= len(c.written) {
		return false
	}
	return c.written[index]
}

// Complete reports whether every cell was written since the last Reset.
func (c *Compositor) Complete() bool {
	return c.count == len(c.written)
}

// Missing lists the indices not yet written this frame.
func (c *Compositor) Missing() []int {
	var out []int
	for i, ok := range c.written {
		if !ok {
			out = append(out, i)
		}
	}
	return out
}

// Reset starts a new frame. Cell contents are kept.
func (c *Compositor) Reset() {
	clear(c.written)
	c.count = 0
}
