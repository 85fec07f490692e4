package vae

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func quadParam(w0 float64) []*Param {
	return []*Param{{
		Name: "w",
		W:    mat.NewDense(1, 1, []float64{w0}),
		Grad: mat.NewDense(1, 1, nil),
	}}
}

func TestAdamConverges(t *testing.T) {
	o := NewAdam(0.1, 0.9, 0.999)
	params := quadParam(5)
	for i := 0; i < 500; i++ {
		w := params[0].W.At(0, 0)
		params[0].Grad.Set(0, 0, 2*w)
		o.Update(params)
	}
	if w := params[0].W.At(0, 0); math.Abs(w) > 0.01 {
		t.Errorf("minimum of w^2 not reached: w=%v", w)
	}
}

func TestAdamStateRoundTrip(t *testing.T) {
	a := NewAdam(0.01, 0.9, 0.999)
	pa := quadParam(3)
	for i := 0; i < 10; i++ {
		pa[0].Grad.Set(0, 0, 2*pa[0].W.At(0, 0))
		a.Update(pa)
	}

	b := NewAdam(0.01, 0.9, 0.999)
	if err := b.SetState(a.State()); err != nil {
		t.Fatal(err)
	}
	pb := quadParam(pa[0].W.At(0, 0))

	// both must now follow bit for bit identical trajectories
	for i := 0; i < 10; i++ {
		pa[0].Grad.Set(0, 0, 2*pa[0].W.At(0, 0))
		pb[0].Grad.Set(0, 0, 2*pb[0].W.At(0, 0))
		a.Update(pa)
		b.Update(pb)
		if pa[0].W.At(0, 0) != pb[0].W.At(0, 0) {
			t.Fatalf("step %d: restored optimizer diverged: %v != %v",
				i, pa[0].W.At(0, 0), pb[0].W.At(0, 0))
		}
	}
}

func TestAdamSetStateMismatch(t *testing.T) {
	o := NewAdam(0.01, 0.9, 0.999)
	err := o.SetState(AdamState{Step: 1, M: [][]float64{{0, 0}}, V: [][]float64{{0}}})
	if err == nil {
		t.Error("expected error for mismatched moment sizes")
	}
}
