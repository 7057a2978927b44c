// Package panel renders side-by-side comparison images for qualitative
// inspection of super-resolution output.
package panel

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/pranath-reddy/lens-sr/tensor"
)

// Triple is one row of a comparison panel: the low-resolution input,
// the high-resolution ground truth, and the model reconstruction.
type Triple struct {
	LR *tensor.Tensor
	HR *tensor.Tensor
	SR *tensor.Tensor
}

const panelGap = 2 // pixels between panels

// RenderComparison composites one row per triple, each row showing
// LR | HR | SR as grayscale panels. Every panel is scaled to its own
// min-max range, and the low-resolution panel is upscaled to the
// high-resolution size with nearest-neighbor sampling.
func RenderComparison(triples []Triple) (image.Image, error) {
	if len(triples) == 0 {
		return nil, fmt.Errorf("no samples to render")
	}

	hrH, hrW, err := imageDims(triples[0].HR)
	if err != nil {
		return nil, err
	}

	width := 3*hrW + 2*panelGap
	height := len(triples)*hrH + (len(triples)-1)*panelGap
	out := image.NewGray(image.Rect(0, 0, width, height))

	for row, tr := range triples {
		y0 := row * (hrH + panelGap)

		lr, err := toGray(tr.LR)
		if err != nil {
			return nil, fmt.Errorf("sample %d low-resolution: %v", row, err)
		}
		hr, err := toGray(tr.HR)
		if err != nil {
			return nil, fmt.Errorf("sample %d high-resolution: %v", row, err)
		}
		sr, err := toGray(tr.SR)
		if err != nil {
			return nil, fmt.Errorf("sample %d reconstruction: %v", row, err)
		}

		drawScaled(out, lr, 0, y0, hrW, hrH)
		drawScaled(out, hr, hrW+panelGap, y0, hrW, hrH)
		drawScaled(out, sr, 2*(hrW+panelGap), y0, hrW, hrH)
	}

	return out, nil
}

// WritePNG renders the comparison and writes it to path
func WritePNG(path string, triples []Triple) error {
	img, err := RenderComparison(triples)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %v", err)
	}
	return nil
}

func imageDims(t *tensor.Tensor) (h, w int, err error) {
	if t == nil {
		return 0, 0, fmt.Errorf("nil tensor")
	}
	switch {
	case len(t.Shape) == 2:
		return t.Shape[0], t.Shape[1], nil
	case len(t.Shape) == 3 && t.Shape[0] == 1:
		return t.Shape[1], t.Shape[2], nil
	default:
		return 0, 0, fmt.Errorf("expected single-channel image, got shape %v", t.Shape)
	}
}

// toGray maps a tensor to an 8-bit grayscale image using the tensor's
// own min-max range. Constant images map to mid-gray.
func toGray(t *tensor.Tensor) (*image.Gray, error) {
	h, w, err := imageDims(t)
	if err != nil {
		return nil, err
	}
	if t.DType != tensor.Float32 {
		return nil, fmt.Errorf("expected float32 tensor, got %v", t.DType)
	}

	data := t.Float32s()
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	span := hi - lo
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := data[y*w+x]
			var g uint8
			if span == 0 {
				g = 128
			} else {
				g = uint8((v - lo) / span * 255)
			}
			img.SetGray(x, y, color.Gray{Y: g})
		}
	}
	return img, nil
}

// drawScaled copies src into dst at (x0,y0) stretched to w x h with
// nearest-neighbor sampling
func drawScaled(dst *image.Gray, src *image.Gray, x0, y0, w, h int) {
	srcW := src.Rect.Dx()
	srcH := src.Rect.Dy()
	for y := 0; y < h; y++ {
		sy := y * srcH / h
		for x := 0; x < w; x++ {
			sx := x * srcW / w
			dst.SetGray(x0+x, y0+y, src.GrayAt(sx, sy))
		}
	}
}
