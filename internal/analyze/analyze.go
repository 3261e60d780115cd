// Package analyze defines the pluggable post-capture analysis hook. The
// capture engine never performs analysis itself; the consumer side invokes
// an Analyzer and attaches whatever it returns to the stored metadata.
package analyze

import (
	"context"
	"image"
)

// Metadata is the optional result of analyzing a captured frame.
type Metadata struct {
	Text string
}

// Analyzer inspects an emitted frame. A nil Metadata with nil error means
// the frame yielded nothing of interest.
type Analyzer interface {
	Analyze(ctx context.Context, img image.Image) (*Metadata, error)
}

// Noop satisfies Analyzer without doing any work.
type Noop struct{}

// Analyze returns no metadata.
func (Noop) Analyze(context.Context, image.Image) (*Metadata, error) {
	return nil, nil
}
