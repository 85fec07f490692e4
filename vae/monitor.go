package vae

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"sync"
)

// Sink accepts named scalar time series and named images keyed by the
// iteration they were produced at.
type Sink interface {
	Scalar(name string, iter int, val float64)
	Image(name string, iter int, m image.Image)
}

// Tee fans out to multiple sinks.
type Tee []Sink

func (t Tee) Scalar(name string, iter int, val float64) {
	for _, s := range t {
		s.Scalar(name, iter, val)
	}
}

func (t Tee) Image(name string, iter int, m image.Image) {
	for _, s := range t {
		s.Image(name, iter, m)
	}
}

// Point is one sample of a scalar series.
type Point struct {
	Iter  int
	Value float64
}

// History keeps scalar series and the latest image per name in memory for
// the dashboard. Safe for concurrent access. If Notify is set it is called
// after each image update with the current iteration.
type History struct {
	Notify func(iter int)
	series map[string][]Point
	names  []string
	images map[string]image.Image
	sync.Mutex
}

func NewHistory() *History {
	return &History{series: map[string][]Point{}, images: map[string]image.Image{}}
}

func (h *History) Scalar(name string, iter int, val float64) {
	h.Lock()
	defer h.Unlock()
	if _, ok := h.series[name]; !ok {
		h.names = append(h.names, name)
	}
	h.series[name] = append(h.series[name], Point{Iter: iter, Value: val})
}

func (h *History) Image(name string, iter int, m image.Image) {
	h.Lock()
	h.images[name] = m
	notify := h.Notify
	h.Unlock()
	if notify != nil {
		notify(iter)
	}
}

// Series returns a copy of the named scalar series.
func (h *History) Series(name string) []Point {
	h.Lock()
	defer h.Unlock()
	return append([]Point{}, h.series[name]...)
}

// SeriesNames returns the scalar names in first seen order.
func (h *History) SeriesNames() []string {
	h.Lock()
	defer h.Unlock()
	return append([]string{}, h.names...)
}

// LatestImage returns the most recent image stored under name, or nil.
func (h *History) LatestImage(name string) image.Image {
	h.Lock()
	defer h.Unlock()
	return h.images[name]
}

// DirSink writes scalars as CSV rows and images as PNG files under a
// directory, one file per series and one file per image name and iteration.
type DirSink struct {
	Dir string
}

func NewDirSink(outDir, runName string) (*DirSink, error) {
	dir := path.Join(outDir, runName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DirSink{Dir: dir}, nil
}

func (s *DirSink) Scalar(name string, iter int, val float64) {
	f, err := os.OpenFile(path.Join(s.Dir, name+".csv"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "monitor:", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%d,%g\n", iter, val)
}

func (s *DirSink) Image(name string, iter int, m image.Image) {
	f, err := os.Create(path.Join(s.Dir, fmt.Sprintf("%s_%d.png", name, iter)))
	if err != nil {
		fmt.Fprintln(os.Stderr, "monitor:", err)
		return
	}
	defer f.Close()
	if err = png.Encode(f, m); err != nil {
		fmt.Fprintln(os.Stderr, "monitor:", err)
	}
}
