package training

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pranath-reddy/lens-sr/tensor"
)

func metricPair(t *testing.T, pred, target []float32) (*tensor.Tensor, *tensor.Tensor) {
	t.Helper()
	p, err := tensor.NewTensor([]int{len(pred)}, tensor.Float32, pred)
	if err != nil {
		t.Fatalf("failed to create prediction: %v", err)
	}
	tgt, err := tensor.NewTensor([]int{len(target)}, tensor.Float32, target)
	if err != nil {
		t.Fatalf("failed to create target: %v", err)
	}
	return p, tgt
}

func TestMetricsIdenticalArrays(t *testing.T) {
	pred, target := metricPair(t, []float32{0, 1, 2, 3}, []float32{0, 1, 2, 3})

	m, err := ComputeSampleMetrics(pred, target)
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}

	if m.MSE != 0 {
		t.Errorf("expected MSE 0, got %v", m.MSE)
	}
	if m.MAE != 0 {
		t.Errorf("expected MAE 0, got %v", m.MAE)
	}
	if m.SSIM != 1.0 {
		t.Errorf("expected SSIM 1, got %v", m.SSIM)
	}
	if !math.IsInf(m.PSNR, 1) {
		t.Errorf("expected PSNR +Inf, got %v", m.PSNR)
	}
}

func TestMetricsKnownValues(t *testing.T) {
	// Target range is 4, errors are +-1, so MSE = MAE = 1 and
	// PSNR = 10*log10(16).
	pred, target := metricPair(t, []float32{1, 3}, []float32{0, 4})

	m, err := ComputeSampleMetrics(pred, target)
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}

	if math.Abs(m.MSE-1.0) > 1e-9 {
		t.Errorf("expected MSE 1, got %v", m.MSE)
	}
	if math.Abs(m.MAE-1.0) > 1e-9 {
		t.Errorf("expected MAE 1, got %v", m.MAE)
	}
	wantPSNR := 10 * math.Log10(16)
	if math.Abs(m.PSNR-wantPSNR) > 1e-9 {
		t.Errorf("expected PSNR %v, got %v", wantPSNR, m.PSNR)
	}
}

func TestMetricsSSIMRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := make([]float32, 256)
	q := make([]float32, 256)
	for i := range p {
		p[i] = rng.Float32()
		q[i] = rng.Float32()
	}
	pred, target := metricPair(t, p, q)

	m, err := ComputeSampleMetrics(pred, target)
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}

	if m.SSIM < -1 || m.SSIM > 1 {
		t.Errorf("SSIM %v outside [-1, 1]", m.SSIM)
	}
	if m.SSIM > 0.9 {
		t.Errorf("independent noise should not be highly similar, got SSIM %v", m.SSIM)
	}
}

func TestMetricsSSIMAntiCorrelated(t *testing.T) {
	n := 64
	p := make([]float32, n)
	q := make([]float32, n)
	for i := range p {
		v := float32(i) / float32(n-1)
		p[i] = v
		q[i] = 1 - v
	}
	pred, target := metricPair(t, p, q)

	m, err := ComputeSampleMetrics(pred, target)
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}

	if m.SSIM >= 0 {
		t.Errorf("anti-correlated signals should give negative SSIM, got %v", m.SSIM)
	}
}

func TestEvaluationReportSummarize(t *testing.T) {
	report := &EvaluationReport{
		Samples: []SampleMetrics{
			{MSE: 1, MAE: 0.5, SSIM: 0.8, PSNR: 20},
			{MSE: 3, MAE: 1.5, SSIM: 0.6, PSNR: 10},
		},
	}

	if err := report.Summarize(); err != nil {
		t.Fatalf("summarize failed: %v", err)
	}

	if report.MeanMSE != 2 {
		t.Errorf("expected mean MSE 2, got %v", report.MeanMSE)
	}
	if report.MeanMAE != 1 {
		t.Errorf("expected mean MAE 1, got %v", report.MeanMAE)
	}
	if math.Abs(report.MeanSSIM-0.7) > 1e-9 {
		t.Errorf("expected mean SSIM 0.7, got %v", report.MeanSSIM)
	}
	if report.MeanPSNR != 15 {
		t.Errorf("expected mean PSNR 15, got %v", report.MeanPSNR)
	}
}

func TestEvaluationReportInfinitePSNR(t *testing.T) {
	report := &EvaluationReport{
		Samples: []SampleMetrics{
			{PSNR: math.Inf(1)},
			{PSNR: 30},
		},
	}

	if err := report.Summarize(); err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if !math.IsInf(report.MeanPSNR, 1) {
		t.Errorf("infinite PSNR should propagate into the mean, got %v", report.MeanPSNR)
	}

	s := report.String()
	if s == "" {
		t.Fatal("empty report string")
	}
}

func TestEvaluationReportEmpty(t *testing.T) {
	report := &EvaluationReport{}
	if err := report.Summarize(); err == nil {
		t.Error("expected error for empty report")
	}
}
