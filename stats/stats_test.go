package stats

import (
	"math"
	"testing"
)

func TestAverage(t *testing.T) {
	var s Average
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Add(x)
	}
	if s.Count != 8 {
		t.Errorf("count: got %v expect 8", s.Count)
	}
	if s.Mean != 5 {
		t.Errorf("mean: got %v expect 5", s.Mean)
	}
	expect := math.Sqrt(32.0 / 7.0)
	if math.Abs(s.StdDev-expect) > 1e-12 {
		t.Errorf("stddev: got %v expect %v", s.StdDev, expect)
	}
}

func TestEMA(t *testing.T) {
	e := EMA(0)
	if v := e.Add(3, 10); v != 3 {
		t.Errorf("first value should pass through: got %v", v)
	}
	e = EMA(3)
	v := e.Add(5, 10)
	k := 2.0 / 11.0
	expect := 5*k + 3*(1-k)
	if math.Abs(v-expect) > 1e-12 {
		t.Errorf("ema: got %v expect %v", v, expect)
	}
}

func TestSmooth(t *testing.T) {
	vals := []float64{1, 1, 1, 1}
	sm := Smooth(vals, 5)
	for i, v := range sm {
		if v != 1 {
			t.Errorf("smooth of constant series: point %d got %v", i, v)
		}
	}
	if got := Smooth(vals, 1); &got[0] != &vals[0] {
		t.Error("n=1 should return input unchanged")
	}
}
