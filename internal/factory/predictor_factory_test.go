package factory

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/model"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constPredictor model.Verdict

func (c constPredictor) Predict(context.Context, []float64) (model.Verdict, error) {
	return model.Verdict(c), nil
}

func init() {
	RegisterPredictor("test-const", func(cfg config.PredictorConfig) (model.Predictor, error) {
		if cfg.ArtifactPath == "" {
			return nil, model.ErrArtifactMissing
		}
		return constPredictor(model.VerdictMalicious), nil
	})
}

func TestNewPredictor(t *testing.T) {
	p, err := NewPredictor(config.PredictorConfig{Type: "test-const", ArtifactPath: "x"})
	require.NoError(t, err)
	v, err := p.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictMalicious, v)
	assert.Contains(t, Registered(), "test-const")
}

func TestNewPredictor_FactoryErrorIsWrapped(t *testing.T) {
	_, err := NewPredictor(config.PredictorConfig{Type: "test-const"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrArtifactMissing))
}

func TestNewPredictor_UnknownType(t *testing.T) {
	_, err := NewPredictor(config.PredictorConfig{Type: "nope"})
	assert.Error(t, err)
}

func TestRegisterPredictor_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		RegisterPredictor("test-const", func(config.PredictorConfig) (model.Predictor, error) { return nil, nil })
	})
}
