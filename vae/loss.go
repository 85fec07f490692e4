package vae

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ReconLoss returns the reconstruction loss between a batch of targets and
// raw decoder outputs together with its gradient wrt the outputs.
//
// For the bernoulli distribution this is the binary cross entropy between
// logits and targets summed over all pixels and divided by the batch size.
// For the gaussian distribution the outputs are squashed by a logistic
// sigmoid first and the loss is the summed squared error divided by the
// batch size. Any other distribution is an error.
func ReconLoss(x, logits *mat.Dense, dist string) (float64, *mat.Dense, error) {
	batch, nfeat := x.Dims()
	if batch == 0 {
		panic("ReconLoss: batch size must be nonzero")
	}
	if r, c := logits.Dims(); r != batch || c != nfeat {
		panic(fmt.Sprintf("ReconLoss: shape mismatch %dx%d vs %dx%d", batch, nfeat, r, c))
	}
	grad := mat.NewDense(batch, nfeat, nil)
	loss := 0.0
	scale := 1 / float64(batch)
	switch dist {
	case Bernoulli:
		for i := 0; i < batch; i++ {
			xi, li, gi := x.RawRowView(i), logits.RawRowView(i), grad.RawRowView(i)
			for j, l := range li {
				// stable form of -x*log(sigmoid(l)) - (1-x)*log(1-sigmoid(l))
				loss += math.Max(l, 0) - l*xi[j] + math.Log1p(math.Exp(-math.Abs(l)))
				gi[j] = (sigmoid(l) - xi[j]) * scale
			}
		}
	case Gaussian:
		for i := 0; i < batch; i++ {
			xi, li, gi := x.RawRowView(i), logits.RawRowView(i), grad.RawRowView(i)
			for j, l := range li {
				y := sigmoid(l)
				diff := y - xi[j]
				loss += diff * diff
				gi[j] = 2 * diff * y * (1 - y) * scale
			}
		}
	default:
		return 0, nil, fmt.Errorf("unsupported output distribution %q", dist)
	}
	return loss * scale, grad, nil
}

// KLDivergence computes the closed form KL divergence of the posterior given
// by per sample mean and log variance vectors against a standard normal
// prior. Returns the batch mean of the per sample total, the per dimension
// batch means and the batch mean of the per sample mean.
func KLDivergence(mu, logvar *mat.Dense) (total float64, dimWise []float64, mean float64) {
	batch, zdim := mu.Dims()
	if batch == 0 {
		panic("KLDivergence: batch size must be nonzero")
	}
	if r, c := logvar.Dims(); r != batch || c != zdim {
		panic(fmt.Sprintf("KLDivergence: shape mismatch %dx%d vs %dx%d", batch, zdim, r, c))
	}
	dimWise = make([]float64, zdim)
	for i := 0; i < batch; i++ {
		mi, vi := mu.RawRowView(i), logvar.RawRowView(i)
		for j, m := range mi {
			kld := -0.5 * (1 + vi[j] - m*m - math.Exp(vi[j]))
			dimWise[j] += kld
			total += kld
		}
	}
	for j := range dimWise {
		dimWise[j] /= float64(batch)
	}
	total /= float64(batch)
	mean = total / float64(zdim)
	return total, dimWise, mean
}

// klGradient returns scale * d(total KL)/dmu and scale * d(total KL)/dlogvar.
func klGradient(mu, logvar *mat.Dense, scale float64) (dmu, dlogvar *mat.Dense) {
	batch, zdim := mu.Dims()
	dmu = mat.NewDense(batch, zdim, nil)
	dlogvar = mat.NewDense(batch, zdim, nil)
	s := scale / float64(batch)
	for i := 0; i < batch; i++ {
		mi, vi := mu.RawRowView(i), logvar.RawRowView(i)
		gm, gv := dmu.RawRowView(i), dlogvar.RawRowView(i)
		for j := range mi {
			gm[j] = s * mi[j]
			gv[j] = s * -0.5 * (1 - math.Exp(vi[j]))
		}
	}
	return dmu, dlogvar
}

// Capacity returns the KL capacity for the constrained objective at the
// given iteration: a linear ramp from 0 up to cMax over cStopIter
// iterations, held at cMax from then on.
func Capacity(iter, cStopIter int, cMax float64) float64 {
	c := cMax * float64(iter) / float64(cStopIter)
	if c < 0 {
		return 0
	}
	if c > cMax {
		return cMax
	}
	return c
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
