package lenticular

import (
	"context"
	"image"
	"image/color"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// FragmentFunc shades one output pixel at normalized (u, v), origin bottom-left.
type FragmentFunc func(u, v float32) color.NRGBA

// Render writes the interleaved frame into dst.
func (m *Mapper) Render(ctx context.Context, dst *image.NRGBA) error {
	return Run(ctx, dst, m.Workers, m.Synthesize)
}

// Run evaluates fn at the centre of every pixel of dst. u runs left to right
// and v bottom to top, so pixel (x, y) of dst is shaded at
// ((x+0.5)/W, (H-1-y+0.5)/H). Rows are split into bands that are shaded in
// parallel; Run returns once every band is done or ctx is cancelled.
func Run(ctx context.Context, dst *image.NRGBA, workers int, fn FragmentFunc) error {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	band := h / (workers * 4)
	if band < 1 {
		band = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y0 := 0; y0 < h; y0 += band {
		y1 := min(y0+band, h)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			shadeRows(dst, y0, y1, fn)
			return nil
		})
	}
	return g.Wait()
}

func shadeRows(dst *image.NRGBA, y0, y1 int, fn FragmentFunc) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	fw, fh := float32(w), float32(h)
	for y := y0; y < y1; y++ {
		v := (float32(h-1-y) + 0.5) / fh
		off := dst.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			u := (float32(x) + 0.5) / fw
			c := fn(u, v)
			i := off + x*4
			dst.Pix[i] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = c.A
		}
	}
}
