package img

import (
	"image/color"
	"math"
)

// FromVector converts a flat model vector with channel, row, column ordering
// into an image. If squash is set a logistic squashing maps raw decoder
// logits into the 0-1 pixel range.
func FromVector(vec []float64, width, height, channels int, squash bool) Image {
	m := New(width, height, channels)
	for ch := 0; ch < channels; ch++ {
		pix := m.Pixels(ch)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := vec[ch*width*height+y*width+x]
				if squash {
					v = 1 / (1 + math.Exp(-v))
				}
				pix[y+x*height] = float32(v)
			}
		}
	}
	return m
}

// ToVector fills buf with the image pixels in channel, row, column ordering.
func ToVector(m Image, buf []float64) {
	width, height := m.Bounds().Dx(), m.Bounds().Dy()
	for ch := 0; ch < m.Channels(); ch++ {
		pix := m.Pixels(ch)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				buf[ch*width*height+y*width+x] = float64(pix[y+x*height])
			}
		}
	}
}

// Grid assembles images of equal size into a grid with nrow images per row
// separated by a one pixel border.
func Grid(images []Image, nrow int) Image {
	if len(images) == 0 {
		panic("Grid: no images")
	}
	if nrow < 1 {
		nrow = 1
	}
	src := images[0]
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	ncol := (len(images) + nrow - 1) / nrow
	dst := New(1+(w+1)*nrow, 1+(h+1)*ncol, src.Channels())
	border := color.Gray{Y: 128}
	for y := 0; y < dst.Bounds().Dy(); y++ {
		for x := 0; x < dst.Bounds().Dx(); x++ {
			dst.Set(x, y, border)
		}
	}
	for i, m := range images {
		x0 := 1 + (w+1)*(i%nrow)
		y0 := 1 + (h+1)*(i/nrow)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(x0+x, y0+y, m.At(x, y))
			}
		}
	}
	return dst
}
