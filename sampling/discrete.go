// Package sampling implements the host-side discrete and
// piecewise-constant continuous distributions driven by the renderer
// core: Discrete1D for light and material-group primitive selection,
// Continuous1D/Continuous2D for environment importance sampling.
// Integrals are accumulated with compensated (Kahan) summation via
// gonum, the way spec.md's Discrete1D/Continuous1D/Continuous2D
// require.
package sampling

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/sleepyeye/VLR/vlrerr"
)

// Discrete1D is a 1-D discrete probability distribution built from N
// non-negative weights.
type Discrete1D struct {
	pmf      []float32
	cdf      []float32 // len N+1; cdf[0]=0, cdf[N]=1 exactly
	integral float32
}

// NewDiscrete1D builds a Discrete1D from weights. weights must
// contain at least one non-negative entry; a negative weight or a
// non-finite weight is an InvalidArgument. A zero integral is not an
// error: sampling degenerates to always returning index 0 with
// probability 1, as spec.md documents.
func NewDiscrete1D(weights []float32) (*Discrete1D, error) {
	n := len(weights)
	if n == 0 {
		return nil, vlrerr.New(vlrerr.InvalidArgument, "sampling: Discrete1D needs at least one weight")
	}
	wf64 := make([]float64, n)
	for i, w := range weights {
		if w < 0 || math.IsNaN(float64(w)) || math.IsInf(float64(w), 0) {
			return nil, vlrerr.Newf(vlrerr.InvalidArgument, "sampling: Discrete1D weight[%d]=%v is not a finite non-negative value", i, w)
		}
		wf64[i] = float64(w)
	}
	integral := floats.KahanSum(wf64)

	d := &Discrete1D{
		pmf:      make([]float32, n),
		cdf:      make([]float32, n+1),
		integral: float32(integral),
	}
	if integral == 0 {
		// Degenerate distribution: all mass on index 0.
		d.pmf[0] = 1
		for i := 1; i <= n; i++ {
			d.cdf[i] = 1
		}
		return d, nil
	}
	acc := 0.0
	for i, w := range wf64 {
		d.pmf[i] = float32(w / integral)
		acc += w / integral
		d.cdf[i+1] = float32(acc)
	}
	d.cdf[n] = 1 // exact, per invariant
	return d, nil
}

// Count returns the number of weights the distribution was built from.
func (d *Discrete1D) Count() int { return len(d.pmf) }

// Integral returns the pre-normalization Kahan-summed integral.
func (d *Discrete1D) Integral() float32 { return d.integral }

// PMF returns the normalized probability of index i.
func (d *Discrete1D) PMF(i int) float32 { return d.pmf[i] }

// Sample returns the index i such that CDF[i] <= u < CDF[i+1], along
// with its probability and a residual value in [0,1) reusable as a
// fresh uniform sample by the caller.
func (d *Discrete1D) Sample(u float32) (index int, pmf float32, residual float32) {
	n := len(d.pmf)
	// upper_bound(CDF, u) - 1, clamped to [0, N-1].
	i := sort.Search(len(d.cdf), func(i int) bool { return d.cdf[i] > u }) - 1
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	p := d.pmf[i]
	var res float32
	if p > 0 {
		res = (u - d.cdf[i]) / p
	}
	return i, p, res
}
