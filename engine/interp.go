package engine

import (
	"math"
)

// Bicubic resampling with the Keys convolution kernel (a = -0.75) and
// half-pixel centers, matching resize implementations that do not align
// corners. The four tap weights at any sample position sum to one, so
// constant images are preserved exactly.

const bicubicA = -0.75

func cubicKernel(t float64) float64 {
	t = math.Abs(t)
	if t <= 1 {
		return (bicubicA+2)*t*t*t - (bicubicA+3)*t*t + 1
	}
	if t < 2 {
		return bicubicA*t*t*t - 5*bicubicA*t*t + 8*bicubicA*t - 4*bicubicA
	}
	return 0
}

type bicubicTap struct {
	idx [4]int
	wgt [4]float64
}

// bicubicTaps precomputes, for each output coordinate along one axis, the
// four clamped source indices and their kernel weights.
func bicubicTaps(inSize, outSize int) []bicubicTap {
	taps := make([]bicubicTap, outSize)
	scale := float64(inSize) / float64(outSize)

	for o := 0; o < outSize; o++ {
		src := (float64(o)+0.5)*scale - 0.5
		base := math.Floor(src)
		frac := src - base

		var tap bicubicTap
		for m := 0; m < 4; m++ {
			i := int(base) + m - 1
			if i < 0 {
				i = 0
			} else if i >= inSize {
				i = inSize - 1
			}
			tap.idx[m] = i
			tap.wgt[m] = cubicKernel(frac - float64(m-1))
		}
		taps[o] = tap
	}

	return taps
}

// resizeBicubic resamples each plane of a NCHW batch to outH x outW.
func resizeBicubic(in []float32, n, c, inH, inW, outH, outW int) []float32 {
	rowTaps := bicubicTaps(inH, outH)
	colTaps := bicubicTaps(inW, outW)

	out := make([]float32, n*c*outH*outW)

	for plane := 0; plane < n*c; plane++ {
		inBase := plane * inH * inW
		outBase := plane * outH * outW

		for oy := 0; oy < outH; oy++ {
			ty := rowTaps[oy]
			for ox := 0; ox < outW; ox++ {
				tx := colTaps[ox]

				var sum float64
				for m := 0; m < 4; m++ {
					rowOff := inBase + ty.idx[m]*inW
					wy := ty.wgt[m]
					for k := 0; k < 4; k++ {
						sum += wy * tx.wgt[k] * float64(in[rowOff+tx.idx[k]])
					}
				}
				out[outBase+oy*outW+ox] = float32(sum)
			}
		}
	}

	return out
}

// resizeBicubicBackward scatters output gradients back to the source grid
// with the same tap weights used by the forward pass.
func resizeBicubicBackward(gradOut []float32, n, c, inH, inW, outH, outW int) []float32 {
	rowTaps := bicubicTaps(inH, outH)
	colTaps := bicubicTaps(inW, outW)

	dIn := make([]float32, n*c*inH*inW)

	for plane := 0; plane < n*c; plane++ {
		inBase := plane * inH * inW
		outBase := plane * outH * outW

		for oy := 0; oy < outH; oy++ {
			ty := rowTaps[oy]
			for ox := 0; ox < outW; ox++ {
				tx := colTaps[ox]
				gv := float64(gradOut[outBase+oy*outW+ox])
				if gv == 0 {
					continue
				}

				for m := 0; m < 4; m++ {
					rowOff := inBase + ty.idx[m]*inW
					wy := ty.wgt[m]
					for k := 0; k < 4; k++ {
						dIn[rowOff+tx.idx[k]] += float32(gv * wy * tx.wgt[k])
					}
				}
			}
		}
	}

	return dIn
}
