// Package forest evaluates a random-forest classifier exported as JSON.
package forest

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/factory"
	"SDNGuard/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
)

func init() {
	factory.RegisterPredictor("forest", func(cfg config.PredictorConfig) (model.Predictor, error) {
		return Load(cfg.ArtifactPath)
	})
}

// Node is one node of a decision tree. A node with Left < 0 is a leaf and
// Value holds the class it predicts.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Artifact is the on-disk model.
type Artifact struct {
	FeatureNames []string `json:"feature_names"`
	Trees        []Tree   `json:"trees"`
}

// Forest is a loaded, validated model.
type Forest struct {
	trees       []Tree
	numFeatures int
}

// Load reads and validates an artifact. A missing file wraps model.ErrArtifactMissing.
func Load(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact '%s': %w", path, err)
	}
	f, err := New(a)
	if err != nil {
		return nil, fmt.Errorf("invalid model artifact '%s': %w", path, err)
	}
	log.Printf("Loaded forest model from %s (%d trees)", path, len(f.trees))
	return f, nil
}

// New validates an artifact and builds a forest from it.
func New(a Artifact) (*Forest, error) {
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}
	numFeatures := len(a.FeatureNames)
	if numFeatures == 0 {
		numFeatures = len(model.FeatureNames)
	}
	for i, t := range a.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", i)
		}
		for j, n := range t.Nodes {
			if n.Left < 0 {
				continue
			}
			if n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("tree %d node %d has an out-of-range child", i, j)
			}
			if n.Feature < 0 || n.Feature >= numFeatures {
				return nil, fmt.Errorf("tree %d node %d splits on unknown feature %d", i, j, n.Feature)
			}
		}
	}
	return &Forest{trees: a.Trees, numFeatures: numFeatures}, nil
}

// Predict takes a majority vote over the trees. A tie is benign.
func (f *Forest) Predict(_ context.Context, features []float64) (model.Verdict, error) {
	if len(features) != f.numFeatures {
		return model.VerdictBenign, fmt.Errorf("expected %d features, got %d", f.numFeatures, len(features))
	}
	malicious := 0
	for i, t := range f.trees {
		v, err := t.eval(features)
		if err != nil {
			return model.VerdictBenign, fmt.Errorf("tree %d: %w", i, err)
		}
		if v == model.VerdictMalicious {
			malicious++
		}
	}
	if 2*malicious > len(f.trees) {
		return model.VerdictMalicious, nil
	}
	return model.VerdictBenign, nil
}

func (t Tree) eval(features []float64) (model.Verdict, error) {
	idx := 0
	// a well-formed tree reaches a leaf in fewer steps than it has nodes
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := t.Nodes[idx]
		if n.Left < 0 {
			if n.Value >= 0.5 {
				return model.VerdictMalicious, nil
			}
			return model.VerdictBenign, nil
		}
		if features[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return model.VerdictBenign, fmt.Errorf("cycle in decision tree")
}
