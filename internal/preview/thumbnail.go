package preview

import (
	"image"

	"golang.org/x/image/draw"
)

// Thumbnail scales img to fit within maxSize x maxSize, keeping the aspect
// ratio. Filtering runs on premultiplied colour so transparent edges do not
// darken. Images already small enough are returned unchanged.
func Thumbnail(img *image.NRGBA, maxSize int) *image.NRGBA {
	b := img.Bounds()
	if maxSize <= 0 || (b.Dx() <= maxSize && b.Dy() <= maxSize) {
		return img
	}

	size := fit(b.Size(), maxSize)
	scaled := image.NewRGBA(image.Rectangle{Max: size})
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), premultiplied(img), b, draw.Src, nil)
	return straight(scaled)
}

// fit shrinks the longer side of s to maxSize.
func fit(s image.Point, maxSize int) image.Point {
	if s.X >= s.Y {
		return image.Pt(maxSize, max(1, s.Y*maxSize/s.X))
	}
	return image.Pt(max(1, s.X*maxSize/s.Y), maxSize)
}

// premultiplied returns img as alpha-premultiplied RGBA with the same bounds.
func premultiplied(img *image.NRGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	for i := 0; i+3 < len(out.Pix); i += 4 {
		src := img.Pix[rowOffset(img, out, i):]
		a := uint32(src[3])
		out.Pix[i] = uint8((uint32(src[0])*a + 127) / 255)
		out.Pix[i+1] = uint8((uint32(src[1])*a + 127) / 255)
		out.Pix[i+2] = uint8((uint32(src[2])*a + 127) / 255)
		out.Pix[i+3] = src[3]
	}
	return out
}

// rowOffset maps a Pix index of out onto the matching texel of img, which can
// have a different stride when it is a sub-image.
func rowOffset(img *image.NRGBA, out *image.RGBA, i int) int {
	y, x := i/out.Stride, (i%out.Stride)/4
	return img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
}

// straight undoes premultiplication. Fully transparent texels stay black.
func straight(img *image.RGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		out.Pix[i+3] = a
		if a == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			out.Pix[i+c] = unpremul(img.Pix[i+c], a)
		}
	}
	return out
}

func unpremul(v, a uint8) uint8 {
	n := (uint32(v)*255 + uint32(a)/2) / uint32(a)
	if n > 255 {
		return 255
	}
	return uint8(n)
}
