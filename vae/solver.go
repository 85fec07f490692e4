// Package vae trains Beta-VAE and Wasserstein autoencoder models on image
// datasets and records their progress via checkpoints and a monitoring sink.
package vae

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/xuwangyin/Beta-VAE/img"
)

// Permanently retained checkpoints are written at this interval in addition
// to the rolling "last" checkpoint.
const KeepStep = 50000

// sample grids use a fixed latent draw so they are comparable across iterations
const sampleSeed = 123

// Solver owns the model, optimizer and global iteration counter and drives
// the training loop. One solver is driven by a single goroutine; the mutex
// only guards against dashboard reads between iterations.
type Solver struct {
	Conf       Config
	Net        *Net
	Optim      *Adam
	Data       *Dataset
	GlobalIter int
	dist       string
	shape      []int
	sink       Sink
	ckpt       *Checkpointer
	windows    map[string]string
	rng        *rand.Rand
	src        xrand.Source
	testBatch  *mat.Dense
	fixedZ     *mat.Dense
	stop       int32
	sync.Mutex
}

// Step holds the loss terms from one training step.
type Step struct {
	Loss     float64
	Recon    float64
	TotalKL  float64
	MeanKL   float64
	DimKL    []float64
	W2       float64
	Capacity float64
}

// NewSolver validates the config, builds the model, optimizer and dataset
// and restores the checkpoint named by conf.CkptName if one is set.
func NewSolver(conf Config, data Data, sink Sink) (*Solver, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	channels, dist, err := conf.DataSetInfo()
	if err != nil {
		return nil, err
	}
	shape := data.Shape()
	if len(shape) != 3 || shape[0] != channels {
		return nil, fmt.Errorf("dataset %s: expect shape [channels height width] with %d channels, have %v",
			conf.DataSet, channels, shape)
	}
	if sink == nil {
		sink = Tee{}
	}
	s := &Solver{
		Conf:    conf,
		dist:    dist,
		shape:   shape,
		sink:    sink,
		rng:     SetSeed(conf.RandSeed),
		windows: map[string]string{},
	}
	seed := conf.RandSeed
	if seed <= 0 {
		seed = time.Now().UTC().UnixNano()
	}
	s.src = xrand.NewSource(uint64(seed))
	s.Data = NewDataset(data, conf.BatchSize, 0, s.rng)
	s.Net = NewNet(conf, prod(shape), s.rng)
	s.Net.InitWeights()
	s.Optim = NewAdam(conf.Eta, conf.Beta1, conf.Beta2)
	if s.ckpt, err = NewCheckpointer(conf.CkptDir, conf.RunName); err != nil {
		return nil, err
	}
	s.testBatch = mat.DenseCopyOf(s.Data.NextBatch())
	s.fixedZ = sampleLatents(36, conf.ZDim)
	if conf.CkptName != "" {
		if err = s.LoadCheckpoint(conf.CkptName); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Train runs the loop until the global iteration counter reaches the
// configured maximum, emitting scalars, progress lines, visualisations and
// checkpoints at their configured cadences.
func (s *Solver) Train() error {
	conf := s.Conf
	start := time.Now()
	for s.GlobalIter < conf.MaxIter && !s.stopped() {
		x := s.Data.NextBatch()
		s.Lock()
		s.GlobalIter++
		iter := s.GlobalIter
		step, err := s.TrainStep(x)
		if err != nil {
			s.Unlock()
			return fmt.Errorf("iteration %d: %v", iter, err)
		}
		if conf.GatherStep > 0 && iter%conf.GatherStep == 0 {
			s.emitScalar("recon-loss", iter, step.Recon)
			if s.Net.Family == FamilyW2 {
				s.emitScalar("w2-dist", iter, step.W2)
			} else {
				s.emitScalar("mean-kld", iter, step.MeanKL)
			}
		}
		if conf.DisplayStep > 0 && iter%conf.DisplayStep == 0 {
			if s.Net.Family == FamilyW2 {
				fmt.Printf("[%d] recon_loss:%.3f w2_dist:%.3f\n", iter, step.Recon, step.W2)
			} else {
				fmt.Printf("[%d] recon_loss:%.3f total_kld:%.3f mean_kld:%.3f\n",
					iter, step.Recon, step.TotalKL, step.MeanKL)
			}
			s.VizReconstruction()
			s.VizRandSamples()
			if conf.Traverse {
				s.VizTraverse()
			}
		}
		if conf.SaveStep > 0 && iter%conf.SaveStep == 0 {
			if err := s.SaveCheckpoint("last"); err != nil {
				s.Unlock()
				return err
			}
			fmt.Printf("saved checkpoint (iter:%d)\n", iter)
		}
		if iter%KeepStep == 0 {
			if err := s.SaveCheckpoint(strconv.Itoa(iter)); err != nil {
				s.Unlock()
				return err
			}
		}
		s.Unlock()
	}
	fmt.Printf("training finished: %d iterations in %s\n",
		s.GlobalIter, time.Since(start).Round(10*time.Millisecond))
	return nil
}

// TrainStep performs one forward pass, computes the objective for the model
// family, backpropagates and applies one optimizer update.
func (s *Solver) TrainStep(x *mat.Dense) (Step, error) {
	out := s.Net.Forward(x)
	recon, dLogits, err := ReconLoss(x, out.Logits, s.dist)
	if err != nil {
		return Step{}, err
	}
	step := Step{Recon: recon}
	s.Net.ZeroGrad()
	switch s.Net.Family {
	case FamilyKL:
		step.TotalKL, step.DimKL, step.MeanKL = KLDivergence(out.Mu, out.Logvar)
		var scale float64
		if s.Conf.Objective == "B" {
			step.Capacity = Capacity(s.GlobalIter, s.Conf.CStopIter, s.Conf.CMax)
			diff := step.TotalKL - step.Capacity
			step.Loss = recon + s.Conf.Gamma*math.Abs(diff)
			scale = s.Conf.Gamma
			if diff < 0 {
				scale = -scale
			}
		} else {
			step.Loss = recon + s.Conf.Beta*step.TotalKL
			scale = s.Conf.Beta
		}
		dMu, dLogvar := klGradient(out.Mu, out.Logvar, scale)
		s.Net.Backward(out, dLogits, dMu, dLogvar, nil)
	case FamilyW2:
		var matched *mat.Dense
		if step.W2, matched, err = Wasserstein2(out.Z, s.src); err != nil {
			return Step{}, err
		}
		step.Loss = recon + step.W2
		s.Net.Backward(out, dLogits, nil, nil, w2Gradient(out.Z, matched, step.W2))
	}
	s.Optim.Update(s.Net.Params())
	return step, nil
}

// Stop requests that the training loop exits after the current iteration.
func (s *Solver) Stop() {
	atomic.StoreInt32(&s.stop, 1)
}

// Reset clears a pending stop request so training can be continued.
func (s *Solver) Reset() {
	atomic.StoreInt32(&s.stop, 0)
}

func (s *Solver) stopped() bool {
	return atomic.LoadInt32(&s.stop) != 0
}

// VizReconstruction emits a grid with a row of held out inputs above their
// current reconstructions.
func (s *Solver) VizReconstruction() {
	n := 8
	rows, _ := s.testBatch.Dims()
	if n > rows {
		n = rows
	}
	x := s.testBatch.Slice(0, n, 0, prod(s.shape)).(*mat.Dense)
	logits := s.Net.Decode(s.Net.Encode(x))
	images := make([]img.Image, 0, 2*n)
	for i := 0; i < n; i++ {
		images = append(images, s.toImage(x.RawRowView(i), false))
	}
	for i := 0; i < n; i++ {
		images = append(images, s.toImage(logits.RawRowView(i), true))
	}
	s.emitImage("recons", img.Grid(images, n))
}

// VizRandSamples decodes a fixed set of latent draws into a sample grid.
func (s *Solver) VizRandSamples() {
	logits := s.Net.Decode(s.fixedZ)
	rows, _ := s.fixedZ.Dims()
	images := make([]img.Image, rows)
	for i := range images {
		images[i] = s.toImage(logits.RawRowView(i), true)
	}
	s.emitImage("rand_samples", img.Grid(images, 6))
}

// VizTraverse sweeps each latent dimension of the code for a random input
// over a fixed interpolation range and emits the decoded grid: one row per
// latent dimension, one column per interpolation value.
func (s *Solver) VizTraverse() {
	interp := traverseRange(3, 2.0/3.0)
	x := mat.NewDense(1, prod(s.shape), nil)
	s.Data.Input([]int{s.rng.Intn(s.Data.Len())}, x.RawMatrix().Data)
	zOri := s.Net.Encode(x)
	var images []img.Image
	z := mat.NewDense(1, s.Net.ZDim, nil)
	for row := 0; row < s.Net.ZDim; row++ {
		for _, val := range interp {
			z.SetRow(0, zOri.RawRowView(0))
			z.Set(0, row, val)
			logits := s.Net.Decode(z)
			images = append(images, s.toImage(logits.RawRowView(0), true))
		}
	}
	s.emitImage("traversal", img.Grid(images, len(interp)))
}

// SaveCheckpoint serializes the current training state under the given tag.
func (s *Solver) SaveCheckpoint(tag string) error {
	ck := &Checkpoint{
		Iter:    s.GlobalIter,
		Optim:   s.Optim.State(),
		Windows: map[string]string{},
	}
	for _, p := range s.Net.Params() {
		rows, cols := p.W.Dims()
		ck.Params = append(ck.Params, ParamState{
			Name: p.Name,
			Rows: rows,
			Cols: cols,
			Data: append([]float64{}, p.W.RawMatrix().Data...),
		})
	}
	for name, win := range s.windows {
		ck.Windows[name] = win
	}
	return s.ckpt.Save(tag, ck)
}

// LoadCheckpoint restores iteration counter, parameters, optimizer state
// and window identifiers from the named checkpoint. A missing checkpoint is
// logged and training proceeds from fresh state.
func (s *Solver) LoadCheckpoint(tag string) error {
	ck, ok, err := s.ckpt.Load(tag)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("no checkpoint found at %s\n", tag)
		return nil
	}
	params := s.Net.Params()
	if len(ck.Params) != len(params) {
		return fmt.Errorf("checkpoint %s: have %d parameter arrays, model needs %d",
			tag, len(ck.Params), len(params))
	}
	for i, p := range params {
		rows, cols := p.W.Dims()
		st := ck.Params[i]
		if st.Rows != rows || st.Cols != cols {
			return fmt.Errorf("checkpoint %s: parameter %s size mismatch - have %dx%d expect %dx%d",
				tag, st.Name, st.Rows, st.Cols, rows, cols)
		}
		copy(p.W.RawMatrix().Data, st.Data)
	}
	if err = s.Optim.SetState(ck.Optim); err != nil {
		return err
	}
	s.GlobalIter = ck.Iter
	s.windows = map[string]string{}
	for name, win := range ck.Windows {
		s.windows[name] = win
	}
	fmt.Printf("loaded checkpoint %s (iter %d)\n", tag, s.GlobalIter)
	return nil
}

func (s *Solver) emitScalar(name string, iter int, val float64) {
	s.window(name)
	s.sink.Scalar(name, iter, val)
}

func (s *Solver) emitImage(name string, m img.Image) {
	s.window(name)
	s.sink.Image(name, s.GlobalIter, m)
}

// window records the dashboard pane identifier for a series or image name
// the first time it is emitted, so a resumed run reattaches to the same
// panes. The map is persisted with each checkpoint.
func (s *Solver) window(name string) string {
	if win, ok := s.windows[name]; ok {
		return win
	}
	win := fmt.Sprintf("%s-%s-%d", s.Conf.RunName, name, s.GlobalIter)
	s.windows[name] = win
	return win
}

func (s *Solver) toImage(vec []float64, squash bool) img.Image {
	return img.FromVector(vec, s.shape[2], s.shape[1], s.shape[0], squash)
}

func sampleLatents(n, zdim int) *mat.Dense {
	rng := rand.New(rand.NewSource(sampleSeed))
	z := mat.NewDense(n, zdim, nil)
	data := z.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return z
}

func traverseRange(limit, step float64) []float64 {
	var vals []float64
	for v := -limit; v <= limit+0.1; v += step {
		vals = append(vals, v)
	}
	return vals
}

// Set random number seed, or seed from the clock if seed <= 0
func SetSeed(seed int64) *rand.Rand {
	if seed <= 0 {
		seed = time.Now().UTC().UnixNano()
	}
	fmt.Println("random seed =", seed)
	return rand.New(rand.NewSource(seed))
}

// Exit in case of error
func CheckErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
