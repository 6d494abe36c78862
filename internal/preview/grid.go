// Package preview produces diagnostic images of a quilt or an output frame.
package preview

import (
	"fmt"
	"image"

	"github.com/gogpu/gg"
)

// GridStyle controls the overlay drawn by Grid.
type GridStyle struct {
	LineWidth float64 // pixels, 0 means 2
	R, G, B   float64 // line colour, 0-1
	Alpha     float64 // 0 means 0.8
	Origin    bool    // mark view 0 (bottom-left cell)
}

// DefaultGridStyle draws translucent magenta lines and marks view 0.
var DefaultGridStyle = GridStyle{LineWidth: 2, R: 1, G: 0, B: 1, Alpha: 0.8, Origin: true}

// Grid draws the cell boundaries of a cols x rows quilt on a copy of img.
func Grid(img image.Image, cols, rows int, style GridStyle) (image.Image, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("preview: grid %dx%d", cols, rows)
	}
	if style.LineWidth <= 0 {
		style.LineWidth = 2
	}
	if style.Alpha <= 0 {
		style.Alpha = 0.8
	}

	dc := gg.NewContextForImage(img)
	defer dc.Close()

	w, h := float64(dc.Width()), float64(dc.Height())
	cw, ch := w/float64(cols), h/float64(rows)

	dc.SetRGBA(style.R, style.G, style.B, style.Alpha)
	dc.SetLineWidth(style.LineWidth)
	for c := 1; c < cols; c++ {
		x := float64(c) * cw
		dc.DrawLine(x, 0, x, h)
	}
	for r := 1; r < rows; r++ {
		y := float64(r) * ch
		dc.DrawLine(0, y, w, y)
	}
	dc.DrawRectangle(0, 0, w, h)
	if err := dc.Stroke(); err != nil {
		return nil, fmt.Errorf("preview: stroke grid: %w", err)
	}

	if style.Origin {
		radius := min(cw, ch) / 10
		dc.DrawCircle(cw/2, h-ch/2, radius)
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("preview: mark origin: %w", err)
		}
	}

	return dc.Image(), nil
}
