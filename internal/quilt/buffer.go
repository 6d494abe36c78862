package quilt

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// MaxTexels bounds the quilt allocation (4 bytes per texel, 1 GiB).
const MaxTexels = 1 << 28

var (
	ErrViewIndex  = errors.New("view index out of range")
	ErrDimensions = errors.New("dimensions must be positive")
	ErrReleased   = errors.New("buffer released")
)

// Buffer is the quilt: every view of the rig laid out in a Cols x Rows grid
// of equally sized cells with no padding.
//
// Texture space has its origin at the bottom-left texel, so cell row 0 is the
// bottom row of cells, the convention the lenticular pass samples in. The
// backing image is stored top-down like any image.Image; conversion happens
// in CellRect/ImageRect and Texel.
type Buffer struct {
	ViewWidth  int
	ViewHeight int
	Cols       int
	Rows       int

	img    *image.NRGBA
	filter Filter
}

// NewBuffer allocates an opaque black quilt of (viewW*cols) x (viewH*rows) texels.
func NewBuffer(viewW, viewH, cols, rows int) (*Buffer, error) {
	if viewW <= 0 || viewH <= 0 || cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("quilt: view %dx%d grid %dx%d: %w", viewW, viewH, cols, rows, ErrDimensions)
	}
	if viewW > math.MaxInt/cols || viewH > math.MaxInt/rows {
		return nil, fmt.Errorf("quilt: view %dx%d grid %dx%d overflows: %w", viewW, viewH, cols, rows, ErrDimensions)
	}
	w, h := viewW*cols, viewH*rows
	if w > MaxTexels/h {
		return nil, fmt.Errorf("quilt: %dx%d exceeds %d texels: %w", w, h, MaxTexels, ErrDimensions)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}

	return &Buffer{
		ViewWidth:  viewW,
		ViewHeight: viewH,
		Cols:       cols,
		Rows:       rows,
		img:        img,
	}, nil
}

// Width returns ViewWidth*Cols.
func (b *Buffer) Width() int { return b.ViewWidth * b.Cols }

// Height returns ViewHeight*Rows.
func (b *Buffer) Height() int { return b.ViewHeight * b.Rows }

// ViewCount returns the number of cells.
func (b *Buffer) ViewCount() int { return b.Cols * b.Rows }

// Cell maps a view index to its grid position.
func (b *Buffer) Cell(index int) (col, row int) {
	return index % b.Cols, index / b.Cols
}

// CheckIndex rejects indices outside [0, ViewCount).
func (b *Buffer) CheckIndex(index int) error {
	if index < 0 || index >= b.ViewCount() {
		return fmt.Errorf("quilt: index %d not in [0, %d): %w", index, b.ViewCount(), ErrViewIndex)
	}
	return nil
}

// CellRect returns the texture-space rectangle of a view's cell:
// [col*W, (col+1)*W) x [row*H, (row+1)*H), with y measured from the bottom.
func (b *Buffer) CellRect(index int) image.Rectangle {
	col, row := b.Cell(index)
	return image.Rect(
		col*b.ViewWidth, row*b.ViewHeight,
		(col+1)*b.ViewWidth, (row+1)*b.ViewHeight,
	)
}

// ImageRect returns the same cell in the top-down coordinates of Image.
func (b *Buffer) ImageRect(index int) image.Rectangle {
	r := b.CellRect(index)
	h := b.Height()
	return image.Rect(r.Min.X, h-r.Max.Y, r.Max.X, h-r.Min.Y)
}

// Image exposes the backing image, nil once released. Callers must not
// retain it past Release.
func (b *Buffer) Image() *image.NRGBA {
	return b.img
}

// Texel returns the texel at texture-space (x, y). A released buffer reads
// as transparent black.
func (b *Buffer) Texel(x, y int) color.NRGBA {
	if b.img == nil {
		return color.NRGBA{}
	}
	i := b.img.PixOffset(x, b.Height()-1-y)
	p := b.img.Pix[i : i+4 : i+4]
	return color.NRGBA{p[0], p[1], p[2], p[3]}
}

// Clear resets every texel to opaque black.
func (b *Buffer) Clear() {
	pix := b.img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = 0, 0, 0, 255
	}
}

// Released reports whether Release was called.
func (b *Buffer) Released() bool {
	return b.img == nil
}

// Release drops the texel storage. Safe to call more than once.
func (b *Buffer) Release() {
	b.img = nil
}
