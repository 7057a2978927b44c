package engine

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// conv2dForward computes a zero-padded 2D convolution over a NCHW batch.
// Samples are processed in parallel; within a sample the loops are plain
// and cache-friendly.
func conv2dForward(in []float32, n, inC, inH, inW int, weight, bias []float32, outC, kernel, stride, pad int) ([]float32, int, int) {
	outH := (inH+2*pad-kernel)/stride + 1
	outW := (inW+2*pad-kernel)/stride + 1

	out := make([]float32, n*outC*outH*outW)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for s := 0; s < n; s++ {
		s := s
		g.Go(func() error {
			inBase := s * inC * inH * inW
			outBase := s * outC * outH * outW

			for oc := 0; oc < outC; oc++ {
				var b float32
				if bias != nil {
					b = bias[oc]
				}
				wBase := oc * inC * kernel * kernel

				for oy := 0; oy < outH; oy++ {
					for ox := 0; ox < outW; ox++ {
						sum := b
						for ic := 0; ic < inC; ic++ {
							wc := wBase + ic*kernel*kernel
							inPlane := inBase + ic*inH*inW

							for ky := 0; ky < kernel; ky++ {
								iy := oy*stride - pad + ky
								if iy < 0 || iy >= inH {
									continue
								}
								inRow := inPlane + iy*inW
								wRow := wc + ky*kernel

								for kx := 0; kx < kernel; kx++ {
									ix := ox*stride - pad + kx
									if ix < 0 || ix >= inW {
										continue
									}
									sum += in[inRow+ix] * weight[wRow+kx]
								}
							}
						}
						out[outBase+oc*outH*outW+oy*outW+ox] = sum
					}
				}
			}
			return nil
		})
	}
	g.Wait()

	return out, outH, outW
}

// conv2dBackward computes the weight, bias, and input gradients for a
// zero-padded 2D convolution. Per-sample partial weight gradients are
// reduced after the parallel section so workers never share accumulators.
func conv2dBackward(gradOut, in []float32, n, inC, inH, inW int, weight []float32, outC, kernel, stride, pad int, useBias bool) (dW, dB, dIn []float32) {
	outH := (inH+2*pad-kernel)/stride + 1
	outW := (inW+2*pad-kernel)/stride + 1

	wSize := outC * inC * kernel * kernel
	dW = make([]float32, wSize)
	if useBias {
		dB = make([]float32, outC)
	}
	dIn = make([]float32, n*inC*inH*inW)

	partialW := make([][]float32, n)
	var partialB [][]float32
	if useBias {
		partialB = make([][]float32, n)
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for s := 0; s < n; s++ {
		s := s
		g.Go(func() error {
			pw := make([]float32, wSize)
			var pb []float32
			if useBias {
				pb = make([]float32, outC)
			}

			inBase := s * inC * inH * inW
			outBase := s * outC * outH * outW

			for oc := 0; oc < outC; oc++ {
				wBase := oc * inC * kernel * kernel

				for oy := 0; oy < outH; oy++ {
					for ox := 0; ox < outW; ox++ {
						gv := gradOut[outBase+oc*outH*outW+oy*outW+ox]
						if gv == 0 {
							continue
						}
						if useBias {
							pb[oc] += gv
						}

						for ic := 0; ic < inC; ic++ {
							wc := wBase + ic*kernel*kernel
							inPlane := inBase + ic*inH*inW

							for ky := 0; ky < kernel; ky++ {
								iy := oy*stride - pad + ky
								if iy < 0 || iy >= inH {
									continue
								}
								inRow := inPlane + iy*inW
								wRow := wc + ky*kernel

								for kx := 0; kx < kernel; kx++ {
									ix := ox*stride - pad + kx
									if ix < 0 || ix >= inW {
										continue
									}
									pw[wRow+kx] += gv * in[inRow+ix]
									dIn[inRow+ix] += gv * weight[wRow+kx]
								}
							}
						}
					}
				}
			}

			partialW[s] = pw
			if useBias {
				partialB[s] = pb
			}
			return nil
		})
	}
	g.Wait()

	for s := 0; s < n; s++ {
		pw := partialW[s]
		for i := range dW {
			dW[i] += pw[i]
		}
		if useBias {
			pb := partialB[s]
			for i := range dB {
				dB[i] += pb[i]
			}
		}
	}

	return dW, dB, dIn
}
