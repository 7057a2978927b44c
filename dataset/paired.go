// Package dataset provides on-disk paired image datasets for
// super-resolution training, plus remote archive acquisition.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sbinet/npyio"

	"github.com/pranath-reddy/lens-sr/tensor"
)

// PairedImageDataset indexes matched low/high resolution array files
// from two directories. Pairing is by sorted filename order; no key
// validation beyond the directory listings.
type PairedImageDataset struct {
	lrFiles []string
	hrFiles []string
}

// NewPairedImageDataset enumerates *.npy files in both directories.
// The two listings must have the same length.
func NewPairedImageDataset(lrDir, hrDir string) (*PairedImageDataset, error) {
	lrFiles, err := listArrayFiles(lrDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list low-resolution files: %v", err)
	}
	hrFiles, err := listArrayFiles(hrDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list high-resolution files: %v", err)
	}

	if len(lrFiles) == 0 {
		return nil, fmt.Errorf("no .npy files in %s", lrDir)
	}
	if len(lrFiles) != len(hrFiles) {
		return nil, fmt.Errorf("file count mismatch: %d low-resolution vs %d high-resolution",
			len(lrFiles), len(hrFiles))
	}

	return &PairedImageDataset{lrFiles: lrFiles, hrFiles: hrFiles}, nil
}

// Len returns the number of sample pairs
func (d *PairedImageDataset) Len() int {
	return len(d.lrFiles)
}

// Get loads the pair at idx from disk as float32 [1,H,W] tensors
func (d *PairedImageDataset) Get(idx int) (*tensor.Tensor, *tensor.Tensor, error) {
	if idx < 0 || idx >= len(d.lrFiles) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(d.lrFiles))
	}

	lr, err := loadArray(d.lrFiles[idx])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %v", d.lrFiles[idx], err)
	}
	hr, err := loadArray(d.hrFiles[idx])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %v", d.hrFiles[idx], err)
	}
	return lr, hr, nil
}

func listArrayFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) == ".npy" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// loadArray reads a single-channel numpy array and returns it as a
// [1,H,W] float32 tensor. Both float32 and float64 files are accepted;
// shapes (H,W) and (1,H,W) are recognized.
func loadArray(path string) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("invalid npy file: %v", err)
	}

	shape := r.Header.Descr.Shape
	var h, w int
	switch {
	case len(shape) == 2:
		h, w = shape[0], shape[1]
	case len(shape) == 3 && shape[0] == 1:
		h, w = shape[1], shape[2]
	default:
		return nil, fmt.Errorf("unsupported array shape %v", shape)
	}

	var data []float32
	switch r.Header.Descr.Type {
	case "<f4", "|f4", ">f4":
		if err := r.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read float32 data: %v", err)
		}
	case "<f8", "|f8", ">f8":
		var wide []float64
		if err := r.Read(&wide); err != nil {
			return nil, fmt.Errorf("failed to read float64 data: %v", err)
		}
		data = make([]float32, len(wide))
		for i, v := range wide {
			data[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("unsupported dtype %q", r.Header.Descr.Type)
	}

	if len(data) != h*w {
		return nil, fmt.Errorf("data length %d doesn't match shape %v", len(data), shape)
	}

	return tensor.NewTensor([]int{1, h, w}, tensor.Float32, data)
}
