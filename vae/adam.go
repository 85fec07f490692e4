package vae

import (
	"fmt"
	"math"
)

// Adam optimizer with bias corrected first and second moment estimates.
// Moment buffers are allocated lazily on the first update and persisted in
// checkpoints so a resumed run continues as if uninterrupted.
type Adam struct {
	Eta     float64
	Beta1   float64
	Beta2   float64
	Epsilon float64
	step    int
	m, v    [][]float64
}

func NewAdam(eta, beta1, beta2 float64) *Adam {
	return &Adam{Eta: eta, Beta1: beta1, Beta2: beta2, Epsilon: 1e-8}
}

// Update applies one optimizer step to the given parameters.
func (o *Adam) Update(params []*Param) {
	if o.m == nil {
		o.m = make([][]float64, len(params))
		o.v = make([][]float64, len(params))
		for i, p := range params {
			n := len(p.W.RawMatrix().Data)
			o.m[i] = make([]float64, n)
			o.v[i] = make([]float64, n)
		}
	}
	o.step++
	c1 := 1 - math.Pow(o.Beta1, float64(o.step))
	c2 := 1 - math.Pow(o.Beta2, float64(o.step))
	for i, p := range params {
		w := p.W.RawMatrix().Data
		g := p.Grad.RawMatrix().Data
		m, v := o.m[i], o.v[i]
		for j, grad := range g {
			m[j] = o.Beta1*m[j] + (1-o.Beta1)*grad
			v[j] = o.Beta2*v[j] + (1-o.Beta2)*grad*grad
			w[j] -= o.Eta * (m[j] / c1) / (math.Sqrt(v[j]/c2) + o.Epsilon)
		}
	}
}

// AdamState is the serializable optimizer state.
type AdamState struct {
	Step int
	M, V [][]float64
}

// State returns a deep copy of the moment estimates for checkpointing.
func (o *Adam) State() AdamState {
	s := AdamState{Step: o.step, M: make([][]float64, len(o.m)), V: make([][]float64, len(o.v))}
	for i := range o.m {
		s.M[i] = append([]float64{}, o.m[i]...)
		s.V[i] = append([]float64{}, o.v[i]...)
	}
	return s
}

// SetState restores the moment estimates from a checkpoint.
func (o *Adam) SetState(s AdamState) error {
	if len(s.M) != len(s.V) {
		return fmt.Errorf("adam: mismatched moment arrays in state")
	}
	o.step = s.Step
	o.m = make([][]float64, len(s.M))
	o.v = make([][]float64, len(s.V))
	for i := range s.M {
		if len(s.M[i]) != len(s.V[i]) {
			return fmt.Errorf("adam: mismatched moment sizes for parameter %d", i)
		}
		o.m[i] = append([]float64{}, s.M[i]...)
		o.v[i] = append([]float64{}, s.V[i]...)
	}
	return nil
}
