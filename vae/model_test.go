package vae

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func testConf(model string) Config {
	conf := DefaultConfig()
	conf.Model = model
	conf.ZDim = 3
	conf.Hidden = 8
	conf.BatchSize = 5
	return conf
}

func randomBatch(batch, nfeat int, rng *rand.Rand) *mat.Dense {
	x := mat.NewDense(batch, nfeat, nil)
	data := x.RawMatrix().Data
	for i := range data {
		data[i] = rng.Float64()
	}
	return x
}

func TestNetForwardShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	nfeat := 16
	net := NewNet(testConf("H"), nfeat, rng)
	net.InitWeights()
	x := randomBatch(5, nfeat, rng)
	out := net.Forward(x)
	if r, c := out.Logits.Dims(); r != 5 || c != nfeat {
		t.Errorf("logits shape: got %dx%d", r, c)
	}
	if r, c := out.Mu.Dims(); r != 5 || c != 3 {
		t.Errorf("mu shape: got %dx%d", r, c)
	}
	if r, c := out.Logvar.Dims(); r != 5 || c != 3 {
		t.Errorf("logvar shape: got %dx%d", r, c)
	}
	if r, c := out.Z.Dims(); r != 5 || c != 3 {
		t.Errorf("z shape: got %dx%d", r, c)
	}

	wae := NewNet(testConf("WAE"), nfeat, rng)
	wae.InitWeights()
	out = wae.Forward(x)
	if out.Mu != nil || out.Logvar != nil {
		t.Error("WAE family should not produce posterior statistics")
	}
	if r, c := out.Z.Dims(); r != 5 || c != 3 {
		t.Errorf("wae z shape: got %dx%d", r, c)
	}
}

func TestNetParams(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	net := NewNet(testConf("H"), 16, rng)
	params := net.Params()
	// three linear layers each in encoder and decoder, weight and bias each
	if len(params) != 12 {
		t.Errorf("got %d params expect 12", len(params))
	}
	names := map[string]bool{}
	for _, p := range params {
		if names[p.Name] {
			t.Errorf("duplicate param name %s", p.Name)
		}
		names[p.Name] = true
	}
}

// Finite difference check of the backward pass using the deterministic WAE
// forward path with the reconstruction loss as objective.
func TestNetGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	nfeat := 6
	net := NewNet(testConf("WAE"), nfeat, rng)
	net.InitWeights()
	x := randomBatch(4, nfeat, rng)

	lossAt := func() float64 {
		out := net.Forward(x)
		loss, _, err := ReconLoss(x, out.Logits, Bernoulli)
		if err != nil {
			t.Fatal(err)
		}
		return loss
	}

	out := net.Forward(x)
	_, dLogits, err := ReconLoss(x, out.Logits, Bernoulli)
	if err != nil {
		t.Fatal(err)
	}
	net.ZeroGrad()
	zeroZ := mat.NewDense(4, 3, nil)
	net.Backward(out, dLogits, nil, nil, zeroZ)

	eps := 1e-6
	for _, p := range net.Params() {
		w := p.W.RawMatrix().Data
		g := p.Grad.RawMatrix().Data
		for _, ix := range []int{0, len(w) / 2, len(w) - 1} {
			old := w[ix]
			w[ix] = old + eps
			up := lossAt()
			w[ix] = old - eps
			down := lossAt()
			w[ix] = old
			num := (up - down) / (2 * eps)
			if math.Abs(num-g[ix]) > 1e-4*(1+math.Abs(num)) {
				t.Errorf("%s[%d]: analytic %v numeric %v", p.Name, ix, g[ix], num)
			}
		}
	}
}

// The KL path reparameterisation must satisfy z = mu + exp(logvar/2)*eps.
func TestReparameterisation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	net := NewNet(testConf("H"), 16, rng)
	net.InitWeights()
	x := randomBatch(5, 16, rng)
	out := net.Forward(x)
	for i := 0; i < 5; i++ {
		mu, lv := out.Mu.RawRowView(i), out.Logvar.RawRowView(i)
		z, eps := out.Z.RawRowView(i), out.eps.RawRowView(i)
		for j := range z {
			expect := mu[j] + math.Exp(0.5*lv[j])*eps[j]
			if math.Abs(z[j]-expect) > 1e-12 {
				t.Fatalf("sample %d dim %d: z=%v expect %v", i, j, z[j], expect)
			}
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	net := NewNet(testConf("WAE"), 16, rng)
	net.InitWeights()
	x := randomBatch(2, 16, rng)
	z := net.Encode(x)
	if r, c := z.Dims(); r != 2 || c != 3 {
		t.Errorf("encode shape: got %dx%d", r, c)
	}
	logits := net.Decode(z)
	if r, c := logits.Dims(); r != 2 || c != 16 {
		t.Errorf("decode shape: got %dx%d", r, c)
	}
	// deterministic encoder: same input gives same code
	z2 := net.Encode(x)
	if !mat.EqualApprox(z, z2, 0) {
		t.Error("WAE encoder should be deterministic")
	}
}
