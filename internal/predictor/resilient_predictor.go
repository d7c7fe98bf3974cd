package predictor

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/internal/resilience"
)

// ResilientPredictor calls a remote backend behind a circuit breaker and
// answers from the heuristic whenever the remote call cannot.
type ResilientPredictor struct {
	remote         Predictor
	fallback       *HeuristicPredictor
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
}

type ResilientPredictorConfig struct {
	Remote        Predictor
	Fallback      *HeuristicPredictor
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientPredictor(cfg ResilientPredictorConfig) *ResilientPredictor {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Fallback == nil {
		cfg.Fallback = NewHeuristicPredictor(HeuristicConfig{})
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "predictor",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientPredictor{
		remote:         cfg.Remote,
		fallback:       cfg.Fallback,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

func (p *ResilientPredictor) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if !req.ModelType.Valid() {
		return nil, ErrUnknownModel
	}

	// Bad input is the caller's problem, not the backend's.
	local, err := p.fallback.Predict(ctx, req)
	if err != nil {
		return nil, err
	}
	if p.remote == nil {
		return local, nil
	}

	var prediction *Prediction
	var lastErr, rejected error

	err = p.circuitBreaker.Execute(func() error {
		for attempt := 1; attempt <= p.retryAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var err error
			prediction, err = p.remote.Predict(ctx, req)
			if err == nil {
				return nil
			}
			// A rejected request says nothing about the backend's health.
			if errors.Is(err, ErrInvalidInput) {
				rejected = err
				return nil
			}

			lastErr = err
			logger.WithField("model", req.ModelType).Warnf(
				"Prediction attempt %d/%d failed: %v",
				attempt, p.retryAttempts, err,
			)

			if attempt < p.retryAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(p.retryDelay):
				}
			}
		}
		return lastErr
	})

	if err != nil {
		logger.WithField("model", req.ModelType).Warnf("Remote prediction unavailable, using heuristic: %v", err)
		return local, nil
	}
	if rejected != nil {
		logger.WithField("model", req.ModelType).Warnf("Remote rejected the request, using heuristic: %v", rejected)
		return local, nil
	}

	return prediction, nil
}

func (p *ResilientPredictor) HealthCheck(ctx context.Context) error {
	if p.remote == nil {
		return nil
	}
	return p.remote.HealthCheck(ctx)
}

func (p *ResilientPredictor) Close() error {
	if p.remote == nil {
		return nil
	}
	return p.remote.Close()
}

func (p *ResilientPredictor) CircuitState() resilience.State {
	return p.circuitBreaker.State()
}

