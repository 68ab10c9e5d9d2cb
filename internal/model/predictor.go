package model

import (
	"context"
	"errors"
)

// Predictor returns a verdict for a feature vector built by FlowSample.Features.
type Predictor interface {
	Predict(ctx context.Context, features []float64) (Verdict, error)
}

// ErrArtifactMissing is returned by predictor loaders when the model artifact
// or service is not available. The agent keeps forwarding without classification.
var ErrArtifactMissing = errors.New("predictor artifact missing")
