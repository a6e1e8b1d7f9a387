package sampling

// Continuous1D is a piecewise-constant continuous distribution over
// [0,1), built from N bins of equal width 1/N. It has the same
// construction as Discrete1D but reports bin heights scaled so that
// the PDF integrates to 1 over the unit interval, and Sample returns
// a continuous coordinate rather than a bin index.
type Continuous1D struct {
	disc *Discrete1D
}

// NewContinuous1D builds a Continuous1D from N non-negative weights,
// one per bin. See NewDiscrete1D for the weight validity rules.
func NewContinuous1D(weights []float32) (*Continuous1D, error) {
	d, err := NewDiscrete1D(weights)
	if err != nil {
		return nil, err
	}
	return &Continuous1D{disc: d}, nil
}

// Count returns the number of bins.
func (c *Continuous1D) Count() int { return c.disc.Count() }

// Integral returns the distribution's pre-normalization integral.
func (c *Continuous1D) Integral() float32 { return c.disc.integral }

// PDFAt returns the bin height (PDF value, constant within the bin)
// for bin i.
func (c *Continuous1D) PDFAt(i int) float32 {
	return c.disc.pmf[i] * float32(c.Count())
}

// Sample returns a coordinate x in [0,1) and the PDF at x, using
// x = (i + (u-CDF[i])/(PDF[i]/N)) / N where i is the bin CDF-search
// selects.
func (c *Continuous1D) Sample(u float32) (x float32, pdf float32) {
	n := float32(c.Count())
	i, pmf, _ := c.disc.Sample(u)
	height := pmf * n
	if height == 0 {
		return float32(i) / n, 0
	}
	residual := (u - c.disc.cdf[i]) / (height / n)
	x = (float32(i) + residual) / n
	return x, height
}

// PDF returns the density at coordinate x in [0,1).
func (c *Continuous1D) PDF(x float32) float32 {
	n := c.Count()
	i := int(x * float32(n))
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	return c.PDFAt(i)
}
