package sampling

import (
	"errors"
	"math"
	"testing"

	"github.com/sleepyeye/VLR/vlrerr"
)

func TestDiscrete1DNormalization(t *testing.T) {
	d, err := NewDiscrete1D([]float32{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NewDiscrete1D: %v", err)
	}
	var sum float32
	for i := 0; i < d.Count(); i++ {
		sum += d.PMF(i)
	}
	if math.Abs(float64(sum-1)) > 1e-5 {
		t.Fatalf("sum(PMF) = %v, want 1", sum)
	}
	if d.cdf[d.Count()] != 1 {
		t.Fatalf("CDF[N] = %v, want exactly 1", d.cdf[d.Count()])
	}
}

func TestDiscrete1DSampleBounds(t *testing.T) {
	d, err := NewDiscrete1D([]float32{1, 1, 1, 1})
	if err != nil {
		t.Fatalf("NewDiscrete1D: %v", err)
	}
	for _, u := range []float32{0, 0.1, 0.24, 0.25, 0.5, 0.75, 0.999} {
		i, pmf, _ := d.Sample(u)
		if u < d.cdf[i] || u >= d.cdf[i+1] {
			t.Fatalf("Sample(%v) -> i=%d, but u not in [CDF[i],CDF[i+1]) = [%v,%v)", u, i, d.cdf[i], d.cdf[i+1])
		}
		if pmf != d.PMF(i) {
			t.Fatalf("Sample(%v) pmf=%v, want PMF(i)=%v", u, pmf, d.PMF(i))
		}
	}
}

func TestDiscrete1DZeroIntegral(t *testing.T) {
	d, err := NewDiscrete1D([]float32{0, 0, 0})
	if err != nil {
		t.Fatalf("NewDiscrete1D: %v", err)
	}
	i, pmf, _ := d.Sample(0.5)
	if i != 0 || pmf != 1 {
		t.Fatalf("zero-integral Sample: have (i=%d pmf=%v), want (0, 1)", i, pmf)
	}
}

func TestDiscrete1DInvalidWeight(t *testing.T) {
	_, err := NewDiscrete1D([]float32{1, -1})
	if !errors.Is(err, vlrerr.InvalidArgument) {
		t.Fatalf("negative weight: have %v, want InvalidArgument", err)
	}
}

func TestContinuous1DIntegratesToOne(t *testing.T) {
	c, err := NewContinuous1D([]float32{1, 3, 1, 1})
	if err != nil {
		t.Fatalf("NewContinuous1D: %v", err)
	}
	n := c.Count()
	var sum float32
	for i := 0; i < n; i++ {
		sum += c.PDFAt(i) / float32(n)
	}
	if math.Abs(float64(sum-1)) > 1e-5 {
		t.Fatalf("integral of PDF = %v, want 1", sum)
	}
}

func TestContinuous1DSampleRange(t *testing.T) {
	c, err := NewContinuous1D([]float32{1, 1, 1, 1})
	if err != nil {
		t.Fatalf("NewContinuous1D: %v", err)
	}
	for _, u := range []float32{0, 0.3, 0.99} {
		x, pdf := c.Sample(u)
		if x < 0 || x >= 1 {
			t.Fatalf("Sample(%v) = %v, want in [0,1)", u, x)
		}
		if pdf <= 0 {
			t.Fatalf("Sample(%v) pdf = %v, want > 0 for uniform weights", u, pdf)
		}
	}
}

func TestContinuous2DJointPDF(t *testing.T) {
	w := [][]float32{
		{1, 1},
		{1, 1},
	}
	c, err := NewContinuous2D(w)
	if err != nil {
		t.Fatalf("NewContinuous2D: %v", err)
	}
	x, y, pdf := c.Sample(0.25, 0.75)
	if x < 0 || x >= 1 || y < 0 || y >= 1 {
		t.Fatalf("Sample = (%v,%v), want both in [0,1)", x, y)
	}
	if pdf <= 0 {
		t.Fatalf("joint pdf = %v, want > 0", pdf)
	}
}

func TestEnvironmentImportanceMapSinWeighting(t *testing.T) {
	const h, w = 4, 4
	lum := make([][]float32, h)
	for y := range lum {
		row := make([]float32, w)
		for x := range row {
			row[x] = 1 // uniform luminance
		}
		lum[y] = row
	}
	m, err := NewEnvironmentImportanceMap(lum)
	if err != nil {
		t.Fatalf("NewEnvironmentImportanceMap: %v", err)
	}
	// PDF across rows must be proportional to sin(pi*(y+0.5)/H): every
	// row's PDF/sin ratio must equal row 0's.
	var base float32
	for y := 0; y < h; y++ {
		got := m.PDF(0.5, (float32(y)+0.5)/float32(h))
		want := float32(math.Sin(math.Pi * (float64(y) + 0.5) / float64(h)))
		ratio := got / want
		if y == 0 {
			base = ratio
			continue
		}
		if math.Abs(float64(ratio/base-1)) > 1e-5 {
			t.Fatalf("row %d: PDF/sin ratio %v, want row 0's ratio %v", y, ratio, base)
		}
	}
	// Row 0 (smallest sin) must also have a lower marginal PDF than
	// row 1.
	edge := m.marginal.PDF(0.5 / float32(h))
	middle := m.marginal.PDF(1.5 / float32(h))
	if edge >= middle {
		t.Fatalf("edge-row PDF (%v) should be less than a middle-row PDF (%v) under sin weighting", edge, middle)
	}
}
