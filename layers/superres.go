package layers

// Geometry of the lensing dataset: 64x64 single-channel inputs upsampled
// to 128x128 reconstructions.
const (
	LowResSize  = 64
	HighResSize = 128
)

// SuperResolutionSpec builds the fixed reconstruction topology: three
// convolutions (1->64 k9, 64->32 k5, 32->1 k5, each size-preserving) with
// ReLU after the first two, followed by a bicubic upsample to the target
// resolution.
func SuperResolutionSpec(batchSize int) (*ModelSpec, error) {
	builder := NewModelBuilder([]int{batchSize, 1, LowResSize, LowResSize})
	return builder.
		AddConv2D(64, 9, 1, 4, true, "conv1").
		AddReLU("relu1").
		AddConv2D(32, 5, 1, 2, true, "conv2").
		AddReLU("relu2").
		AddConv2D(1, 5, 1, 2, true, "conv3").
		AddUpsample2D(HighResSize, HighResSize, "upsample").
		Compile()
}
