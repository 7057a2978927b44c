package training

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pranath-reddy/lens-sr/tensor"
)

// SSIM regularization constants from Wang et al. (2004)
const (
	ssimK1 = 0.01
	ssimK2 = 0.03
)

// SampleMetrics holds the fidelity metrics for a single reconstruction
type SampleMetrics struct {
	MSE  float64
	MAE  float64
	SSIM float64
	PSNR float64
}

// EvaluationReport aggregates per-sample metrics over a validation set
type EvaluationReport struct {
	Samples []SampleMetrics

	MeanMSE  float64
	MeanMAE  float64
	MeanSSIM float64
	MeanPSNR float64
}

// ComputeSampleMetrics computes MSE, MAE, SSIM and PSNR for one
// prediction/target pair. SSIM and PSNR use the target's own min-max
// range as the reference dynamic range. Identical arrays report
// SSIM 1 and PSNR +Inf.
func ComputeSampleMetrics(pred, target *tensor.Tensor) (SampleMetrics, error) {
	if err := checkLossInputs(pred, target); err != nil {
		return SampleMetrics{}, err
	}

	p := toFloat64(pred.Float32s())
	t := toFloat64(target.Float32s())

	var m SampleMetrics

	var sumSq, sumAbs float64
	for i := range p {
		d := p[i] - t[i]
		sumSq += d * d
		sumAbs += math.Abs(d)
	}
	n := float64(len(p))
	m.MSE = sumSq / n
	m.MAE = sumAbs / n

	dataRange := sampleRange(t)

	if m.MSE == 0 {
		m.SSIM = 1.0
		m.PSNR = math.Inf(1)
		return m, nil
	}

	m.SSIM = globalSSIM(p, t, dataRange)
	m.PSNR = 10 * math.Log10(dataRange*dataRange/m.MSE)

	return m, nil
}

// globalSSIM computes the structural similarity index over the whole
// image rather than a sliding window.
func globalSSIM(p, t []float64, dataRange float64) float64 {
	muP := stat.Mean(p, nil)
	muT := stat.Mean(t, nil)
	varP := stat.Variance(p, nil)
	varT := stat.Variance(t, nil)
	cov := stat.Covariance(p, t, nil)

	c1 := (ssimK1 * dataRange) * (ssimK1 * dataRange)
	c2 := (ssimK2 * dataRange) * (ssimK2 * dataRange)

	num := (2*muP*muT + c1) * (2*cov + c2)
	den := (muP*muP + muT*muT + c1) * (varP + varT + c2)
	if den == 0 {
		return 1.0
	}
	return num / den
}

func sampleRange(data []float64) float64 {
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

func toFloat64(src []float32) []float64 {
	dst := make([]float64, len(src))
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}

// Summarize computes arithmetic means over the collected per-sample
// metrics. PSNR values of +Inf propagate into the mean.
func (r *EvaluationReport) Summarize() error {
	if len(r.Samples) == 0 {
		return fmt.Errorf("no samples to summarize")
	}

	mse := make([]float64, len(r.Samples))
	mae := make([]float64, len(r.Samples))
	ssim := make([]float64, len(r.Samples))
	psnr := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		mse[i] = s.MSE
		mae[i] = s.MAE
		ssim[i] = s.SSIM
		psnr[i] = s.PSNR
	}

	r.MeanMSE = stat.Mean(mse, nil)
	r.MeanMAE = stat.Mean(mae, nil)
	r.MeanSSIM = stat.Mean(ssim, nil)
	r.MeanPSNR = stat.Mean(psnr, nil)
	return nil
}

// String formats the report means for display. Infinite PSNR prints as "inf".
func (r *EvaluationReport) String() string {
	psnr := fmt.Sprintf("%.4f", r.MeanPSNR)
	if math.IsInf(r.MeanPSNR, 1) {
		psnr = "inf"
	}
	return fmt.Sprintf("MSE: %.6f, MAE: %.6f, SSIM: %.4f, PSNR: %s dB",
		r.MeanMSE, r.MeanMAE, r.MeanSSIM, psnr)
}
