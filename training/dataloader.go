package training

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pranath-reddy/lens-sr/tensor"
)

// Dataset interface defines methods that all datasets must implement
type Dataset interface {
	Len() int                                                             // Total number of samples
	Get(idx int) (input *tensor.Tensor, target *tensor.Tensor, err error) // Returns a single input/target pair
}

// Batch represents a batch of inputs and targets
type Batch struct {
	Inputs  *tensor.Tensor
	Targets *tensor.Tensor
}

// DataLoader provides batching, shuffling, and parallel sample loading
type DataLoader struct {
	dataset   Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	indices   []int
	position  int
	mutex     sync.Mutex
}

// NewDataLoader creates a new DataLoader. A seeded source keeps the
// shuffle order reproducible across runs.
func NewDataLoader(dataset Dataset, batchSize int, shuffle bool, seed int64) (*DataLoader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if dataset.Len() == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	indices := make([]int, dataset.Len())
	for i := range indices {
		indices[i] = i
	}

	return &DataLoader{
		dataset:   dataset,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
		indices:   indices,
	}, nil
}

// Len returns the number of batches in an epoch
func (dl *DataLoader) Len() int {
	return (dl.dataset.Len() + dl.batchSize - 1) / dl.batchSize
}

// Reset resets the data loader for a new epoch
func (dl *DataLoader) Reset() {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	dl.position = 0

	if dl.shuffle {
		dl.rng.Shuffle(len(dl.indices), func(i, j int) {
			dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i]
		})
	}
}

// HasNext returns true if there are more batches in the current epoch
func (dl *DataLoader) HasNext() bool {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()
	return dl.position < len(dl.indices)
}

// Next returns the next batch or nil if the epoch is complete.
// The final batch of an epoch may be smaller than the batch size.
func (dl *DataLoader) Next() (*Batch, error) {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	if dl.position >= len(dl.indices) {
		return nil, nil // End of epoch
	}

	batchEnd := dl.position + dl.batchSize
	if batchEnd > len(dl.indices) {
		batchEnd = len(dl.indices)
	}

	batchIndices := dl.indices[dl.position:batchEnd]
	dl.position = batchEnd

	batch, err := dl.loadBatch(batchIndices)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %v", err)
	}

	return batch, nil
}

// loadBatch loads samples in parallel and stacks them into batched tensors
func (dl *DataLoader) loadBatch(indices []int) (*Batch, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("empty batch indices")
	}

	// Load the first sample to determine per-sample shapes
	firstIn, firstTgt, err := dl.dataset.Get(indices[0])
	if err != nil {
		return nil, fmt.Errorf("failed to load sample %d: %v", indices[0], err)
	}
	if firstIn.DType != tensor.Float32 || firstTgt.DType != tensor.Float32 {
		return nil, fmt.Errorf("dataset must yield float32 tensors")
	}

	n := len(indices)
	inputShape := append([]int{n}, firstIn.Shape...)
	targetShape := append([]int{n}, firstTgt.Shape...)

	inputs, err := tensor.Zeros(inputShape, tensor.Float32)
	if err != nil {
		return nil, err
	}
	targets, err := tensor.Zeros(targetShape, tensor.Float32)
	if err != nil {
		return nil, err
	}

	inData := inputs.Float32s()
	tgtData := targets.Float32s()
	inSize := firstIn.NumElems
	tgtSize := firstTgt.NumElems

	copy(inData[:inSize], firstIn.Float32s())
	copy(tgtData[:tgtSize], firstTgt.Float32s())

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for slot := 1; slot < n; slot++ {
		slot := slot
		g.Go(func() error {
			in, tgt, err := dl.dataset.Get(indices[slot])
			if err != nil {
				return fmt.Errorf("failed to load sample %d: %v", indices[slot], err)
			}
			if in.NumElems != inSize || tgt.NumElems != tgtSize {
				return fmt.Errorf("sample %d shape doesn't match batch: input %v, target %v",
					indices[slot], in.Shape, tgt.Shape)
			}
			copy(inData[slot*inSize:(slot+1)*inSize], in.Float32s())
			copy(tgtData[slot*tgtSize:(slot+1)*tgtSize], tgt.Float32s())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Batch{Inputs: inputs, Targets: targets}, nil
}
