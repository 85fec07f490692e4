package vae

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/xuwangyin/Beta-VAE/ot"
)

// Wasserstein2 estimates the 2-Wasserstein distance between a batch of
// latent codes and a standard normal prior. A fresh reference sample of the
// same size is drawn from the prior, the earth mover assignment between the
// two uniform empirical distributions is solved under squared Euclidean
// cost, and the estimate is the root mean squared distance between each
// code and its matched reference point. The matched reference points are
// returned row aligned with z for use in the gradient.
func Wasserstein2(z *mat.Dense, src rand.Source) (float64, *mat.Dense, error) {
	n, zdim := z.Dims()
	if n == 0 {
		panic("Wasserstein2: batch size must be nonzero")
	}
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	prior := mat.NewDense(n, zdim, nil)
	for i := 0; i < n; i++ {
		row := prior.RawRowView(i)
		for j := range row {
			row[j] = normal.Rand()
		}
	}
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}
	cost := ot.Dist(z, prior)
	plan, err := ot.EMD(weights, weights, cost, ot.DefaultMaxIter)
	if err != nil {
		return 0, nil, err
	}
	matched := mat.NewDense(n, zdim, nil)
	sum := 0.0
	for i, j := range ot.Matching(plan) {
		matched.SetRow(i, prior.RawRowView(j))
		sum += cost.At(i, j)
	}
	return math.Sqrt(sum / float64(n)), matched, nil
}

// w2Gradient returns d(w2)/dz for fixed matching: (z - matched) / (n * w2).
func w2Gradient(z, matched *mat.Dense, w2 float64) *mat.Dense {
	n, zdim := z.Dims()
	grad := mat.NewDense(n, zdim, nil)
	if w2 == 0 {
		return grad
	}
	s := 1 / (float64(n) * w2)
	for i := 0; i < n; i++ {
		zi, pi, gi := z.RawRowView(i), matched.RawRowView(i), grad.RawRowView(i)
		for j := range zi {
			gi[j] = s * (zi[j] - pi[j])
		}
	}
	return grad
}
