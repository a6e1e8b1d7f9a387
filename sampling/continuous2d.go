package sampling

import (
	"math"

	"github.com/sleepyeye/VLR/vlrerr"
)

// Continuous2D is a 2-D piecewise-constant continuous distribution
// built from H rows of W weights: one Continuous1D per row (the
// "conditional" distribution given a row), plus a top-level
// Continuous1D over the row integrals (the "marginal" distribution
// over rows). Used for environment-map importance sampling.
type Continuous2D struct {
	width, height int
	rows          []*Continuous1D
	marginal      *Continuous1D
}

// NewContinuous2D builds a Continuous2D from weights, indexed
// weights[y][x], every row having the same length W > 0.
// Fails with InvalidDistribution if the top-level (marginal)
// integral is not finite. A zero integral is accepted.
func NewContinuous2D(weights [][]float32) (*Continuous2D, error) {
	h := len(weights)
	if h == 0 || len(weights[0]) == 0 {
		return nil, vlrerr.New(vlrerr.InvalidArgument, "sampling: Continuous2D needs at least one row and column")
	}
	w := len(weights[0])
	rows := make([]*Continuous1D, h)
	rowIntegrals := make([]float32, h)
	for y, row := range weights {
		if len(row) != w {
			return nil, vlrerr.Newf(vlrerr.InvalidArgument, "sampling: Continuous2D row %d has width %d, want %d", y, len(row), w)
		}
		c, err := NewContinuous1D(row)
		if err != nil {
			return nil, err
		}
		rows[y] = c
		rowIntegrals[y] = c.Integral()
	}
	marginal, err := NewContinuous1D(rowIntegrals)
	if err != nil {
		return nil, err
	}
	if in := marginal.Integral(); math.IsNaN(float64(in)) || math.IsInf(float64(in), 0) {
		return nil, vlrerr.New(vlrerr.InvalidDistribution, "sampling: Continuous2D top-level integral is not finite")
	}

	return &Continuous2D{width: w, height: h, rows: rows, marginal: marginal}, nil
}

// Width and Height return the distribution's grid dimensions.
func (c *Continuous2D) Width() int  { return c.width }
func (c *Continuous2D) Height() int { return c.height }

// Sample returns a coordinate (x,y) in [0,1)^2 and the joint PDF at
// that coordinate, given independent uniforms u, v.
func (c *Continuous2D) Sample(u, v float32) (x, y float32, pdf float32) {
	row, rowPDF := c.marginal.Sample(v)
	ri := int(row * float32(c.height))
	if ri < 0 {
		ri = 0
	}
	if ri > c.height-1 {
		ri = c.height - 1
	}
	colX, colPDF := c.rows[ri].Sample(u)
	return colX, row, rowPDF * colPDF
}

// PDF returns the joint density at (x,y) in [0,1)^2.
func (c *Continuous2D) PDF(x, y float32) float32 {
	ri := int(y * float32(c.height))
	if ri < 0 {
		ri = 0
	}
	if ri > c.height-1 {
		ri = c.height - 1
	}
	return c.marginal.PDF(y) * c.rows[ri].PDF(x)
}
