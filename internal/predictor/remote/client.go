// Package remote asks an external model service for verdicts over HTTP.
package remote

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/factory"
	"SDNGuard/internal/model"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// MaliciousThreshold is the score at or above which a prediction is malicious.
const MaliciousThreshold = 0.5

func init() {
	factory.RegisterPredictor("http", func(cfg config.PredictorConfig) (model.Predictor, error) {
		timeout, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid predictor timeout: %w", err)
		}
		c := NewClient(cfg.ServiceURL, timeout)
		if _, err := c.Health(context.Background()); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrArtifactMissing, err)
		}
		log.Printf("Connected to model service at %s", cfg.ServiceURL)
		return c, nil
	})
}

// Client is the model service client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new model service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PredictRequest is the request for making predictions.
type PredictRequest struct {
	Data [][]float64 `json:"data"`
}

// PredictResponse is the response from predictions.
type PredictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// HealthResponse is the response from health check.
type HealthResponse struct {
	Status       string   `json:"status"`
	LoadedModels []string `json:"loaded_models"`
}

// Health checks if the service is healthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &result, nil
}

// Predict implements model.Predictor.
func (c *Client) Predict(ctx context.Context, features []float64) (model.Verdict, error) {
	body, err := json.Marshal(PredictRequest{Data: [][]float64{features}})
	if err != nil {
		return model.VerdictBenign, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return model.VerdictBenign, fmt.Errorf("failed to build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.VerdictBenign, fmt.Errorf("predict request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return model.VerdictBenign, fmt.Errorf("predict failed with status %d: %s", resp.StatusCode, string(msg))
	}

	var result PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.VerdictBenign, fmt.Errorf("failed to decode predict response: %w", err)
	}
	if len(result.Predictions) != 1 {
		return model.VerdictBenign, fmt.Errorf("expected 1 prediction, got %d", len(result.Predictions))
	}
	if result.Predictions[0] >= MaliciousThreshold {
		return model.VerdictMalicious, nil
	}
	return model.VerdictBenign, nil
}
