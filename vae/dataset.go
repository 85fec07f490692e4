package vae

import (
	"encoding/gob"
	"fmt"
	"image"
	"math/rand"
	"os"
	"path"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/xuwangyin/Beta-VAE/img"
)

// DataDir is the base directory for config and dataset files.
var DataDir = dataDir()

func dataDir() string {
	if dir := os.Getenv("BETAVAE_DATA"); dir != "" {
		return dir
	}
	return "data"
}

func init() {
	gob.Register(data{})
}

// Data interface type represents the raw data for a training set.
// Labels are deliberately absent - the models are unsupervised.
type Data interface {
	Len() int
	Shape() []int
	Input(index []int, buf []float64)
	Image(i int) image.Image
}

// Dataset type wraps a Data source and produces an endless cycle of fixed
// size batches, reshuffled at each pass when a rng is given. The next batch
// is prefetched in the background while the current one is consumed.
type Dataset struct {
	Data
	Samples   int
	BatchSize int
	Batches   int
	buf       [2]*mat.Dense
	cur       int
	batch     int
	indexes   []int
	rng       *rand.Rand
	sync.WaitGroup
}

// Create a new Dataset and start loading the first batch.
func NewDataset(data Data, batchSize, maxSamples int, rng *rand.Rand) *Dataset {
	d := &Dataset{Data: data, Samples: data.Len(), rng: rng}
	if maxSamples > 0 && d.Samples > maxSamples {
		d.Samples = maxSamples
	}
	if batchSize == 0 || batchSize > d.Samples {
		d.BatchSize = d.Samples
	} else {
		d.BatchSize = batchSize
	}
	d.Batches = d.Samples / d.BatchSize
	nfeat := prod(data.Shape())
	for i := range d.buf {
		d.buf[i] = mat.NewDense(d.BatchSize, nfeat, nil)
	}
	d.indexes = make([]int, d.Samples)
	for i := range d.indexes {
		d.indexes[i] = i
	}
	d.Shuffle()
	d.loadBatch()
	return d
}

// NextBatch returns the current batch and kicks off the load of the next
// one. Batches cycle modulo the epoch size indefinitely.
func (d *Dataset) NextBatch() *mat.Dense {
	d.Wait()
	x := d.buf[d.cur]
	d.batch = (d.batch + 1) % d.Batches
	if d.batch == 0 {
		d.Shuffle()
	}
	d.cur = (d.cur + 1) % 2
	d.loadBatch()
	return x
}

// kick off load of next batch of data in background
func (d *Dataset) loadBatch() {
	d.Add(1)
	start := d.batch * d.BatchSize
	index := d.indexes[start : start+d.BatchSize]
	buf := d.buf[d.cur].RawMatrix().Data
	go func() {
		d.Input(index, buf)
		d.Done()
	}()
}

// Shuffle the data set
func (d *Dataset) Shuffle() {
	if d.rng != nil {
		d.indexes = d.rng.Perm(d.Samples)
	}
}

// data is the default gob encoded Data implementation: flat inputs with
// channel, row, column sample layout.
type data struct {
	Dims   []int // channels, height, width
	Inputs []float32
}

// NewData creates a data set from raw sample vectors.
func NewData(shape []int, inputs []float32) Data {
	return data{Dims: shape, Inputs: inputs}
}

func (d data) Len() int { return len(d.Inputs) / prod(d.Dims) }

func (d data) Shape() []int { return d.Dims }

func (d data) Input(index []int, buf []float64) {
	nfeat := prod(d.Dims)
	for i, ix := range index {
		for j, v := range d.Inputs[ix*nfeat : (ix+1)*nfeat] {
			buf[i*nfeat+j] = float64(v)
		}
	}
}

func (d data) Image(i int) image.Image {
	nfeat := prod(d.Dims)
	vec := make([]float64, nfeat)
	for j, v := range d.Inputs[i*nfeat : (i+1)*nfeat] {
		vec[j] = float64(v)
	}
	return img.FromVector(vec, d.Dims[2], d.Dims[1], d.Dims[0], false)
}

// Load the training data file for the given dataset name.
func LoadData(name string) (Data, error) {
	return LoadDataFile(name + "_train")
}

// Decode data from file in gob format under DataDir
func LoadDataFile(name string) (Data, error) {
	filePath := path.Join(DataDir, name+".dat")
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fmt.Printf("loading data from %s.dat:\t", name)
	var d Data
	if err = gob.NewDecoder(f).Decode(&d); err != nil {
		return nil, err
	}
	fmt.Println(append(d.Shape(), d.Len()))
	return d, nil
}

// Encode in gob format and save to file under DataDir
func SaveDataFile(d Data, name string) error {
	filePath := path.Join(DataDir, name+".dat")
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Println("saving data to", name+".dat")
	return gob.NewEncoder(f).Encode(&d)
}

// Check if file exists under DataDir
func FileExists(name string) bool {
	_, err := os.Stat(path.Join(DataDir, name))
	return err == nil
}

func prod(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
