package request

// Sample is the reference affine layer: 8×16 1-byte weights against four
// 16-element 2-byte input vectors with 4-byte biases.
func Sample() *Descriptor {
	weights := []int8{
		-6, -2, -1, -1, -2, 9, 6, 5, 2, 4, -1, 5, -2, -4, 0, 9,
		-8, 8, -4, 6, 5, 3, -7, -9, 1, -9, 0, 9, 6, 0, 5, -3,
		2, 4, 3, 8, 5, -3, 9, 3, -4, 7, 4, 5, 7, -9, -1, -6,
		2, 4, 1, 3, -2, 3, 7, -9, 9, 0, -2, -9, -8, -8, 2, 4,
		0, -9, 0, -1, 2, -4, 0, -8, -3, 0, 5, 2, 0, -9, 2, 3,
		-1, 8, -4, 0, 8, 0, 3, -3, 5, -6, -2, -5, -8, -3, -3, 6,
		1, -2, 6, 9, 6, -7, 4, 5, 9, 9, 5, -8, 9, 2, -3, 5,
		-2, -3, 1, 0, -8, -4, -4, -2, -8, 2, 5, -5, -4, 9, -4, 4,
	}
	inputs := []int16{
		-5, 9, -7, 4,
		5, -4, -7, 4,
		0, 7, 1, -7,
		1, 6, 7, 9,
		2, -4, 9, 8,
		-5, -1, 2, 9,
		-8, -8, 8, 1,
		-7, 2, -1, -1,
		-9, -4, -5, 6,
		-1, 4, -4, 8,
		2, -7, 7, 5,
		2, 4, 0, 7,
		2, 4, 2, 0,
		-8, 9, 1, -3,
		4, 2, -9, 6,
		4, -8, 5, -2,
	}
	biases := []int32{5, 4, -2, 5, -7, -5, 4, -1}

	return &Descriptor{
		ID:          "sample",
		Op:          "affine",
		WeightWidth: 1,
		InputWidth:  2,
		Rows:        8,
		Columns:     16,
		Vectors:     4,
		Weights:     Inline(weights),
		Input:       Inline(inputs),
		Bias:        &BiasSpec{Kind: "simple", Width: 4, Values: Inline(biases)},
	}
}

// SampleOutput is the expected result of Sample, 8 rows by 4 vectors.
var SampleOutput = []int64{
	-58, -174, 100, 105,
	242, -23, 29, 188,
	53, 15, 127, 212,
	-25, -227, -43, 85,
	160, -113, 105, -10,
	20, -299, 64, 37,
	-108, 19, 173, 84,
	34, 74, 49, -231,
}
