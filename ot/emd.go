// Package ot solves the discrete optimal transport problem between two
// empirical distributions with uniform weights. The transport plan between
// equal size point sets with uniform marginals is a scaled permutation, so
// the earth mover problem reduces to a linear assignment which is solved
// exactly by shortest augmenting paths with dual variable updates.
package ot

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Default bound on the number of cost entry scans before the solver gives up.
const DefaultMaxIter = 500000

var (
	// ErrMaxIter is returned when the solver exceeds its iteration budget.
	// The partial plan is never returned in this case.
	ErrMaxIter = errors.New("ot: max iterations exceeded before convergence")
	// ErrMarginals is returned for weight vectors this solver does not handle.
	ErrMarginals = errors.New("ot: marginals must be uniform and of equal size")
	// ErrInfeasible indicates no complete matching exists (non finite costs).
	ErrInfeasible = errors.New("ot: problem is infeasible")
)

// Dist returns the matrix of squared Euclidean distances between the rows
// of x and the rows of y.
func Dist(x, y *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	m, d2 := y.Dims()
	if d != d2 {
		panic("ot: dimension mismatch between point sets")
	}
	c := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		xi := x.RawRowView(i)
		for j := 0; j < m; j++ {
			yj := y.RawRowView(j)
			sum := 0.0
			for k := 0; k < d; k++ {
				diff := xi[k] - yj[k]
				sum += diff * diff
			}
			c.Set(i, j, sum)
		}
	}
	return c
}

// EMD solves the earth mover problem for uniform marginals a and b over the
// given cost matrix and returns the optimal transport plan. maxIter bounds
// the total number of cost entry scans; if exceeded ErrMaxIter is returned
// rather than an incomplete plan. If maxIter is <= 0 DefaultMaxIter applies.
func EMD(a, b []float64, cost *mat.Dense, maxIter int) (*mat.Dense, error) {
	n, m := cost.Dims()
	if n != m || len(a) != n || len(b) != m {
		return nil, ErrMarginals
	}
	w := 1 / float64(n)
	for i := 0; i < n; i++ {
		if math.Abs(a[i]-w) > 1e-9 || math.Abs(b[i]-w) > 1e-9 {
			return nil, ErrMarginals
		}
	}
	assign, err := Assign(cost, maxIter)
	if err != nil {
		return nil, err
	}
	plan := mat.NewDense(n, n, nil)
	for i, j := range assign {
		plan.Set(i, j, w)
	}
	return plan, nil
}

// Matching extracts the nonzero entries of a transport plan as a row to
// column assignment.
func Matching(plan *mat.Dense) []int {
	n, m := plan.Dims()
	match := make([]int, n)
	for i := range match {
		match[i] = -1
		for j := 0; j < m; j++ {
			if plan.At(i, j) != 0 {
				match[i] = j
				break
			}
		}
	}
	return match
}

// Assign finds the minimum cost perfect matching between the rows and
// columns of a square cost matrix. Implements the shortest augmenting path
// method with dual updates, O(n^3) for an n x n cost matrix.
func Assign(cost *mat.Dense, maxIter int) ([]int, error) {
	n, m := cost.Dims()
	if n != m {
		return nil, ErrMarginals
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	u := make([]float64, n)
	v := make([]float64, n)
	col4row := make([]int, n)
	row4col := make([]int, n)
	for i := range col4row {
		col4row[i] = -1
		row4col[i] = -1
	}
	path := make([]int, n)
	dist := make([]float64, n)
	onPathRow := make([]bool, n)
	inTree := make([]bool, n)
	remaining := make([]int, n)
	ops := 0

	for cur := 0; cur < n; cur++ {
		// find a shortest augmenting path from row cur to an unmatched column
		for j := 0; j < n; j++ {
			dist[j] = math.Inf(1)
			onPathRow[j] = false
			inTree[j] = false
			remaining[j] = n - j - 1
		}
		numRemaining := n
		minVal := 0.0
		i, sink := cur, -1
		for sink == -1 {
			onPathRow[i] = true
			index, lowest := -1, math.Inf(1)
			for it := 0; it < numRemaining; it++ {
				j := remaining[it]
				r := minVal + cost.At(i, j) - u[i] - v[j]
				if r < dist[j] {
					path[j] = i
					dist[j] = r
				}
				if dist[j] < lowest || (dist[j] == lowest && row4col[j] == -1) {
					lowest = dist[j]
					index = it
				}
			}
			ops += numRemaining
			if ops > maxIter {
				return nil, ErrMaxIter
			}
			minVal = lowest
			if math.IsInf(minVal, 1) {
				return nil, ErrInfeasible
			}
			j := remaining[index]
			if row4col[j] == -1 {
				sink = j
			} else {
				i = row4col[j]
			}
			inTree[j] = true
			numRemaining--
			remaining[index] = remaining[numRemaining]
		}
		// update dual variables
		u[cur] += minVal
		for i := 0; i < n; i++ {
			if onPathRow[i] && i != cur {
				u[i] += minVal - dist[col4row[i]]
			}
		}
		for j := 0; j < n; j++ {
			if inTree[j] {
				v[j] -= minVal - dist[j]
			}
		}
		// augment along the path back to cur
		for j := sink; ; {
			i := path[j]
			row4col[j] = i
			col4row[i], j = j, col4row[i]
			if i == cur {
				break
			}
		}
	}
	return col4row, nil
}
