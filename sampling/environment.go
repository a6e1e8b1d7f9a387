package sampling

import "math"

// NewEnvironmentImportanceMap builds the Continuous2D used for
// environment-map importance sampling from a luminance grid
// (luminance[y][x], downsampled to at most width×height by the
// caller). Each cell is weighted by sin(pi*(y+0.5)/height) to account
// for the solid angle a latitude-longitude texel subtends, matching
// EnvironmentTextureShaderNode::createImportanceMap.
func NewEnvironmentImportanceMap(luminance [][]float32) (*Continuous2D, error) {
	h := len(luminance)
	weighted := make([][]float32, h)
	for y, row := range luminance {
		theta := math.Pi * (float64(y) + 0.5) / float64(h)
		sinTheta := float32(math.Sin(theta))
		wr := make([]float32, len(row))
		for x, l := range row {
			wr[x] = l * sinTheta
		}
		weighted[y] = wr
	}
	return NewContinuous2D(weighted)
}
