package vae

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestReconLossBernoulliAtOrigin(t *testing.T) {
	// all zero targets and logits: ln(2) per pixel summed over the sample
	batch, nfeat := 4, 16
	x := mat.NewDense(batch, nfeat, nil)
	logits := mat.NewDense(batch, nfeat, nil)
	loss, grad, err := ReconLoss(x, logits, Bernoulli)
	if err != nil {
		t.Fatal(err)
	}
	expect := math.Ln2 * float64(nfeat)
	if math.Abs(loss-expect) > 1e-12 {
		t.Errorf("loss: got %v expect %v", loss, expect)
	}
	// gradient is sigmoid(0)/batch = 0.5/4 per pixel
	if g := grad.At(0, 0); math.Abs(g-0.125) > 1e-12 {
		t.Errorf("grad: got %v expect 0.125", g)
	}
}

func TestReconLossGaussian(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{0.5, 0.5, 0.5, 0.5})
	logits := mat.NewDense(2, 2, nil)
	loss, grad, err := ReconLoss(x, logits, Gaussian)
	if err != nil {
		t.Fatal(err)
	}
	// sigmoid(0)=0.5 matches the target exactly
	if loss != 0 {
		t.Errorf("loss: got %v expect 0", loss)
	}
	if g := grad.At(0, 0); g != 0 {
		t.Errorf("grad: got %v expect 0", g)
	}
}

func TestReconLossUnsupported(t *testing.T) {
	x := mat.NewDense(1, 1, nil)
	if _, _, err := ReconLoss(x, x, "laplace"); err == nil {
		t.Error("expect error for unsupported distribution")
	}
}

func TestReconLossZeroBatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expect panic for zero batch size")
		}
	}()
	empty := &mat.Dense{}
	ReconLoss(empty, empty, Bernoulli)
}

func TestKLDivergenceStandardNormal(t *testing.T) {
	// posterior equal to the prior has zero divergence in all three views
	mu := mat.NewDense(3, 5, nil)
	logvar := mat.NewDense(3, 5, nil)
	total, dimWise, mean := KLDivergence(mu, logvar)
	if total != 0 || mean != 0 {
		t.Errorf("got total=%v mean=%v expect 0", total, mean)
	}
	for j, v := range dimWise {
		if v != 0 {
			t.Errorf("dim %d: got %v expect 0", j, v)
		}
	}
}

func TestKLDivergenceValues(t *testing.T) {
	// single sample, single dim: kld = -0.5*(1 + lv - mu^2 - exp(lv))
	mu := mat.NewDense(1, 1, []float64{2})
	logvar := mat.NewDense(1, 1, []float64{0})
	total, dimWise, mean := KLDivergence(mu, logvar)
	if math.Abs(total-2) > 1e-12 {
		t.Errorf("total: got %v expect 2", total)
	}
	if math.Abs(dimWise[0]-2) > 1e-12 || math.Abs(mean-2) > 1e-12 {
		t.Errorf("dimWise=%v mean=%v expect 2", dimWise[0], mean)
	}
}

func TestKLGradient(t *testing.T) {
	// finite difference check of the total KL gradient
	mu := mat.NewDense(2, 3, []float64{0.5, -1, 2, 0.1, 0.2, -0.3})
	logvar := mat.NewDense(2, 3, []float64{0.1, -0.5, 0.3, 0, 1, -1})
	dmu, dlogvar := klGradient(mu, logvar, 1)
	eps := 1e-6
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			v := mu.At(i, j)
			mu.Set(i, j, v+eps)
			up, _, _ := KLDivergence(mu, logvar)
			mu.Set(i, j, v-eps)
			down, _, _ := KLDivergence(mu, logvar)
			mu.Set(i, j, v)
			num := (up - down) / (2 * eps)
			if math.Abs(num-dmu.At(i, j)) > 1e-5 {
				t.Errorf("dmu[%d,%d]: got %v numeric %v", i, j, dmu.At(i, j), num)
			}
			v = logvar.At(i, j)
			logvar.Set(i, j, v+eps)
			up, _, _ = KLDivergence(mu, logvar)
			logvar.Set(i, j, v-eps)
			down, _, _ = KLDivergence(mu, logvar)
			logvar.Set(i, j, v)
			num = (up - down) / (2 * eps)
			if math.Abs(num-dlogvar.At(i, j)) > 1e-5 {
				t.Errorf("dlogvar[%d,%d]: got %v numeric %v", i, j, dlogvar.At(i, j), num)
			}
		}
	}
}

func TestCapacitySchedule(t *testing.T) {
	cMax, stop := 25.0, 1000
	if c := Capacity(0, stop, cMax); c != 0 {
		t.Errorf("iter 0: got %v expect 0", c)
	}
	if c := Capacity(stop, stop, cMax); c != cMax {
		t.Errorf("iter %d: got %v expect %v", stop, c, cMax)
	}
	if c := Capacity(2*stop, stop, cMax); c != cMax {
		t.Errorf("beyond ramp: got %v expect %v", c, cMax)
	}
	prev := 0.0
	for iter := 0; iter <= 2*stop; iter += 50 {
		c := Capacity(iter, stop, cMax)
		if c < prev {
			t.Fatalf("capacity not monotonic at iter %d: %v < %v", iter, c, prev)
		}
		prev = c
	}
}
