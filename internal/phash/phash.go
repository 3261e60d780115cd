// Package phash computes perceptual difference hashes for frame deduplication.
//
// The hash is a classic dHash: the image is converted to grayscale, resized
// to a (resolution+1) x resolution grid, and each pixel is compared to its
// right neighbor, one bit per comparison, packed row-major. Identical input
// at the same resolution always produces an identical hash; small noise and
// compression artifacts leave it stable while layout changes flip bits.
package phash

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// Hash is a resolution² bit difference hash. Widths beyond 64 bits are
// carried as 64-bit words, so resolutions above 8 need no truncation.
type Hash = goimagehash.ExtImageHash

// ValidateResolution rejects grid sizes the hash representation cannot
// carry. The word-packed hash requires resolution² to fill whole 64-bit
// words, which means resolution must be a positive multiple of 8.
func ValidateResolution(resolution int) error {
	if resolution <= 0 || resolution%8 != 0 {
		return fmt.Errorf("hash resolution must be a positive multiple of 8, got %d", resolution)
	}
	return nil
}

// Compute returns the difference hash of img at the given grid resolution.
func Compute(img image.Image, resolution int) (*Hash, error) {
	if err := ValidateResolution(resolution); err != nil {
		return nil, err
	}
	h, err := goimagehash.ExtDifferenceHash(img, resolution, resolution)
	if err != nil {
		return nil, fmt.Errorf("compute dhash: %w", err)
	}
	return h, nil
}

// Distance returns the Hamming distance between two hashes: the population
// count of their XOR. Hashes of different widths are incomparable.
func Distance(a, b *Hash) (int, error) {
	d, err := a.Distance(b)
	if err != nil {
		return 0, fmt.Errorf("hamming distance: %w", err)
	}
	return d, nil
}
