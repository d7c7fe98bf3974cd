package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/OldStager01/dcsim/internal/logger"
)

type HTTPPredictor struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

type HTTPPredictorConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPPredictor(cfg HTTPPredictorConfig) *HTTPPredictor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPPredictor{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		timeout:  timeout,
	}
}

func (p *HTTPPredictor) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if !req.ModelType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, req.ModelType)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrPredictionFailed, err)
	}

	url := p.endpoint + "/predict"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrPredictionFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	logger.WithField("model", req.ModelType).Debugf("Requesting prediction from %s", url)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: rejected by prediction service", ErrInvalidInput)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrPredictionFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrPredictionFailed, err)
	}

	var prediction Prediction
	if err := json.Unmarshal(raw, &prediction); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if prediction.ModelType != req.ModelType {
		return nil, fmt.Errorf("%w: asked for %s, got %q", ErrInvalidResponse, req.ModelType, prediction.ModelType)
	}

	prediction.Source = SourceRemote
	if prediction.Timestamp.IsZero() {
		prediction.Timestamp = time.Now()
	}
	return &prediction, nil
}

func (p *HTTPPredictor) HealthCheck(ctx context.Context) error {
	url := p.endpoint + "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (p *HTTPPredictor) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
