package vae

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Family tags the two model variants: reconstruction + KL regulariser for
// the Beta-VAE models and reconstruction + Wasserstein-2 regulariser for the
// WAE. The family is resolved once when the net is built.
type Family int

const (
	FamilyKL Family = iota
	FamilyW2
)

func (f Family) String() string {
	if f == FamilyW2 {
		return "W2"
	}
	return "KL"
}

// Param is a trainable weight array with its gradient.
type Param struct {
	Name string
	W    *mat.Dense
	Grad *mat.Dense
}

// Layer interface type represents one layer of the network.
type Layer interface {
	Fprop(in *mat.Dense) *mat.Dense
	Bprop(grad *mat.Dense) *mat.Dense
	String() string
}

// ParamLayer is a layer with trainable parameters.
type ParamLayer interface {
	Layer
	InitParams(rng *rand.Rand)
	Params() []*Param
}

// Net is a fully connected variational autoencoder. The encoder maps an
// input batch to posterior statistics (or deterministic codes for the W2
// family), the decoder maps latent codes back to output logits.
type Net struct {
	Family Family
	ZDim   int
	NFeat  int
	enc    []Layer
	dec    []Layer
	rng    *rand.Rand
}

// Output holds the results of one forward pass. Mu and Logvar are set for
// the KL family, Z is set for both (the reparameterised sample or the
// deterministic code).
type Output struct {
	Logits *mat.Dense
	Mu     *mat.Dense
	Logvar *mat.Dense
	Z      *mat.Dense
	eps    *mat.Dense
}

// NewNet creates the encoder and decoder stacks for the configured model
// family and latent dimension over flattened inputs of size nfeat.
func NewNet(conf Config, nfeat int, rng *rand.Rand) *Net {
	n := &Net{ZDim: conf.ZDim, NFeat: nfeat, rng: rng}
	encOut := 2 * conf.ZDim
	if conf.Model == "WAE" {
		n.Family = FamilyW2
		encOut = conf.ZDim
	}
	n.enc = []Layer{
		newLinear("enc1", nfeat, conf.Hidden),
		&relu{},
		newLinear("enc2", conf.Hidden, conf.Hidden),
		&relu{},
		newLinear("enc3", conf.Hidden, encOut),
	}
	n.dec = []Layer{
		newLinear("dec1", conf.ZDim, conf.Hidden),
		&relu{},
		newLinear("dec2", conf.Hidden, conf.Hidden),
		&relu{},
		newLinear("dec3", conf.Hidden, nfeat),
	}
	return n
}

// Initialise weights from a normal distribution scaled by 1/sqrt(nin).
func (n *Net) InitWeights() {
	for _, l := range append(append([]Layer{}, n.enc...), n.dec...) {
		if pl, ok := l.(ParamLayer); ok {
			pl.InitParams(n.rng)
		}
	}
}

// Params returns all trainable parameters in a fixed order.
func (n *Net) Params() []*Param {
	var params []*Param
	for _, l := range append(append([]Layer{}, n.enc...), n.dec...) {
		if pl, ok := l.(ParamLayer); ok {
			params = append(params, pl.Params()...)
		}
	}
	return params
}

// Zero the accumulated parameter gradients.
func (n *Net) ZeroGrad() {
	for _, p := range n.Params() {
		p.Grad.Zero()
	}
}

// Forward runs the full model on an input batch.
func (n *Net) Forward(x *mat.Dense) *Output {
	out := &Output{}
	h := x
	for _, l := range n.enc {
		h = l.Fprop(h)
	}
	batch, _ := x.Dims()
	if n.Family == FamilyKL {
		out.Mu = mat.NewDense(batch, n.ZDim, nil)
		out.Logvar = mat.NewDense(batch, n.ZDim, nil)
		out.Z = mat.NewDense(batch, n.ZDim, nil)
		out.eps = mat.NewDense(batch, n.ZDim, nil)
		for i := 0; i < batch; i++ {
			hi := h.RawRowView(i)
			mu, lv := out.Mu.RawRowView(i), out.Logvar.RawRowView(i)
			z, eps := out.Z.RawRowView(i), out.eps.RawRowView(i)
			copy(mu, hi[:n.ZDim])
			copy(lv, hi[n.ZDim:])
			for j := range z {
				eps[j] = n.rng.NormFloat64()
				z[j] = mu[j] + math.Exp(0.5*lv[j])*eps[j]
			}
		}
	} else {
		out.Z = h
	}
	out.Logits = n.decode(out.Z)
	return out
}

// Backward propagates the loss gradients through the model and accumulates
// parameter gradients. dLogits is the reconstruction gradient; dMu and
// dLogvar are the KL path regulariser gradients, dZ the W2 path gradient.
func (n *Net) Backward(out *Output, dLogits, dMu, dLogvar, dZ *mat.Dense) {
	g := dLogits
	for i := len(n.dec) - 1; i >= 0; i-- {
		g = n.dec[i].Bprop(g)
	}
	// g is now the reconstruction gradient wrt the latent codes
	batch, _ := g.Dims()
	var dEnc *mat.Dense
	if n.Family == FamilyKL {
		dEnc = mat.NewDense(batch, 2*n.ZDim, nil)
		for i := 0; i < batch; i++ {
			gz := g.RawRowView(i)
			mu, z := out.Mu.RawRowView(i), out.Z.RawRowView(i)
			gm, gv := dMu.RawRowView(i), dLogvar.RawRowView(i)
			ge := dEnc.RawRowView(i)
			for j := range gz {
				// z = mu + exp(logvar/2)*eps so dz/dlogvar = (z-mu)/2
				ge[j] = gz[j] + gm[j]
				ge[n.ZDim+j] = gz[j]*0.5*(z[j]-mu[j]) + gv[j]
			}
		}
	} else {
		dEnc = mat.NewDense(batch, n.ZDim, nil)
		dEnc.Add(g, dZ)
	}
	g = dEnc
	for i := len(n.enc) - 1; i >= 0; i-- {
		g = n.enc[i].Bprop(g)
	}
}

// Encode maps an input batch to latent codes: the posterior mean for the KL
// family or the deterministic code for the W2 family.
func (n *Net) Encode(x *mat.Dense) *mat.Dense {
	h := x
	for _, l := range n.enc {
		h = l.Fprop(h)
	}
	if n.Family == FamilyKL {
		batch, _ := x.Dims()
		mu := mat.NewDense(batch, n.ZDim, nil)
		for i := 0; i < batch; i++ {
			copy(mu.RawRowView(i), h.RawRowView(i)[:n.ZDim])
		}
		return mu
	}
	return h
}

// Decode maps latent codes to output logits.
func (n *Net) Decode(z *mat.Dense) *mat.Dense {
	return n.decode(z)
}

func (n *Net) decode(z *mat.Dense) *mat.Dense {
	h := z
	for _, l := range n.dec {
		h = l.Fprop(h)
	}
	return h
}

// Print network description
func (n *Net) String() string {
	s := []string{fmt.Sprintf("%s model: nfeat=%d zdim=%d", n.Family, n.NFeat, n.ZDim), "encoder:"}
	for _, l := range n.enc {
		s = append(s, "  "+l.String())
	}
	s = append(s, "decoder:")
	for _, l := range n.dec {
		s = append(s, "  "+l.String())
	}
	return strings.Join(s, "\n")
}

// linear fully connected layer
type linear struct {
	name string
	w, b *Param
	in   *mat.Dense
	nin  int
	nout int
}

func newLinear(name string, nin, nout int) *linear {
	return &linear{
		name: name,
		nin:  nin,
		nout: nout,
		w:    &Param{Name: name + ".w", W: mat.NewDense(nin, nout, nil), Grad: mat.NewDense(nin, nout, nil)},
		b:    &Param{Name: name + ".b", W: mat.NewDense(1, nout, nil), Grad: mat.NewDense(1, nout, nil)},
	}
}

func (l *linear) InitParams(rng *rand.Rand) {
	scale := 1 / math.Sqrt(float64(l.nin))
	data := l.w.W.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}
	l.b.W.Zero()
}

func (l *linear) Params() []*Param {
	return []*Param{l.w, l.b}
}

func (l *linear) Fprop(in *mat.Dense) *mat.Dense {
	l.in = in
	batch, _ := in.Dims()
	out := mat.NewDense(batch, l.nout, nil)
	out.Mul(in, l.w.W)
	bias := l.b.W.RawRowView(0)
	for i := 0; i < batch; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}
	return out
}

func (l *linear) Bprop(grad *mat.Dense) *mat.Dense {
	var dw mat.Dense
	dw.Mul(l.in.T(), grad)
	l.w.Grad.Add(l.w.Grad, &dw)
	batch, _ := grad.Dims()
	db := l.b.Grad.RawRowView(0)
	for i := 0; i < batch; i++ {
		row := grad.RawRowView(i)
		for j := range row {
			db[j] += row[j]
		}
	}
	din := mat.NewDense(batch, l.nin, nil)
	din.Mul(grad, l.w.W.T())
	return din
}

func (l *linear) String() string {
	return fmt.Sprintf("linear %s %dx%d", l.name, l.nin, l.nout)
}

// relu activation layer
type relu struct {
	in *mat.Dense
}

func (l *relu) Fprop(in *mat.Dense) *mat.Dense {
	l.in = in
	r, c := in.Dims()
	out := mat.NewDense(r, c, nil)
	src := in.RawMatrix().Data
	dst := out.RawMatrix().Data
	for i, v := range src {
		if v > 0 {
			dst[i] = v
		}
	}
	return out
}

func (l *relu) Bprop(grad *mat.Dense) *mat.Dense {
	r, c := grad.Dims()
	din := mat.NewDense(r, c, nil)
	src := grad.RawMatrix().Data
	in := l.in.RawMatrix().Data
	dst := din.RawMatrix().Data
	for i, v := range src {
		if in[i] > 0 {
			dst[i] = v
		}
	}
	return din
}

func (l *relu) String() string {
	return "relu"
}
