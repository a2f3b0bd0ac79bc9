package ai

import (
	"fmt"
	"math"
)

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// CheckVectors verifies a backend result: exactly want vectors, all of the
// same non-zero length, equal to dims when dims > 0. It returns the common
// length. Errors wrap ErrResultMismatch.
func CheckVectors(vectors [][]float32, want, dims int) (int, error) {
	if len(vectors) != want {
		return 0, fmt.Errorf("%w: expected %d embeddings, got %d", ErrResultMismatch, want, len(vectors))
	}
	if want == 0 {
		return dims, nil
	}

	got := len(vectors[0])
	if got == 0 {
		return 0, fmt.Errorf("%w: embedding 0 is empty", ErrResultMismatch)
	}
	if dims > 0 && got != dims {
		return 0, fmt.Errorf("%w: expected dimension %d, got %d", ErrResultMismatch, dims, got)
	}
	for i, v := range vectors[1:] {
		if len(v) != got {
			return 0, fmt.Errorf("%w: embedding %d has dimension %d, want %d", ErrResultMismatch, i+1, len(v), got)
		}
	}
	return got, nil
}
