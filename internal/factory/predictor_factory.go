package factory

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/model"
	"fmt"
	"log"
	"sort"
)

// PredictorFactory builds a predictor backend from its config section.
type PredictorFactory func(cfg config.PredictorConfig) (model.Predictor, error)

// registry holds the mapping of predictor types to their factory functions.
var registry = make(map[string]PredictorFactory)

// RegisterPredictor registers a new predictor type with its factory function.
func RegisterPredictor(name string, factory PredictorFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("predictor type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered lists the known predictor types.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewPredictor creates the predictor selected by cfg.Type.
func NewPredictor(cfg config.PredictorConfig) (model.Predictor, error) {
	log.Printf("Creating predictor of type: '%s'", cfg.Type)

	factory, ok := registry[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown predictor type: '%s'", cfg.Type)
	}

	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating predictor type '%s': %w", cfg.Type, err)
	}
	return p, nil
}
