package main

import (
	"flag"
	"fmt"
	"math"

	"github.com/xuwangyin/Beta-VAE/img"
	"github.com/xuwangyin/Beta-VAE/vae"
)

// Generate a synthetic binary sprites dataset: one white shape per image at
// a random position and scale on a black background.

const (
	size    = 64
	maxSize = 12.0
)

var shapes = []string{"square", "ellipse", "heart"}

func main() {
	samples := flag.Int("n", 100000, "number of images to generate")
	seed := flag.Int64("seed", 1, "random number seed")
	flag.Parse()

	rng := vae.SetSeed(*seed)
	nfeat := size * size
	inputs := make([]float32, *samples*nfeat)
	vec := make([]float64, nfeat)
	for i := 0; i < *samples; i++ {
		shape := rng.Intn(len(shapes))
		radius := maxSize * (0.5 + 0.5*rng.Float64())
		cx := radius + rng.Float64()*(size-2*radius)
		cy := radius + rng.Float64()*(size-2*radius)
		m := img.NewGray(size, size)
		draw(m, shape, cx, cy, radius)
		img.ToVector(m, vec)
		for j, v := range vec {
			inputs[i*nfeat+j] = float32(v)
		}
		if (i+1)%10000 == 0 {
			fmt.Printf("\rgenerated %d/%d sprites  ", i+1, *samples)
		}
	}
	fmt.Println()
	d := vae.NewData([]int{1, size, size}, inputs)
	vae.CheckErr(vae.SaveDataFile(d, "sprites_train"))
}

// fill in pixels inside the shape outline
func draw(m img.Image, shape int, cx, cy, radius float64) {
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := (float64(x) - cx) / radius
			dy := (float64(y) - cy) / radius
			if inside(shape, dx, dy) {
				m.Set(x, y, img.Gray{Y: 1})
			}
		}
	}
}

func inside(shape int, dx, dy float64) bool {
	switch shapes[shape] {
	case "square":
		return math.Abs(dx) <= 0.8 && math.Abs(dy) <= 0.8
	case "ellipse":
		return dx*dx+(dy/0.7)*(dy/0.7) <= 1
	case "heart":
		// (x^2 + y^2 - 1)^3 <= x^2 y^3 with y axis pointing up
		u, v := dx*1.2, -dy*1.2
		c := u*u + v*v - 1
		return c*c*c <= u*u*v*v*v
	}
	return false
}
