package exsat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type endpoint struct {
	url     string
	breaker *gobreaker.CircuitBreaker
}

// endpointPool fails over across chain API endpoints in order. Each endpoint
// has its own breaker; open breakers are skipped without a request.
type endpointPool struct {
	endpoints []*endpoint
	metrics   Metrics
	logger    *zap.Logger
}

// outcome carries API errors through the breaker as a successful call, so
// a rejected request does not count against a healthy endpoint.
type outcome[T any] struct {
	value  T
	apiErr *APIError
}

func newEndpointPool(urls []string, failures uint32, openTimeout time.Duration, metrics Metrics, logger *zap.Logger) (*endpointPool, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one chain endpoint is required")
	}
	if failures == 0 {
		failures = 1
	}

	pool := &endpointPool{metrics: metrics, logger: logger}
	for _, url := range urls {
		pool.endpoints = append(pool.endpoints, &endpoint{
			url: url,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        url,
				MaxRequests: 1,
				Timeout:     openTimeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= failures
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					logger.Warn("chain endpoint breaker changed state",
						zap.String("endpoint", name),
						zap.Stringer("from", from),
						zap.Stringer("to", to),
					)
					metrics.ObserveBreaker(name, to == gobreaker.StateOpen)
				},
			}),
		})
	}
	return pool, nil
}

func execute[T any](ctx context.Context, p *endpointPool, operation string, call func(ctx context.Context, baseURL string) (T, *APIError, error)) (T, error) {
	var (
		zero T
		errs *multierror.Error
	)
	for _, ep := range p.endpoints {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		started := time.Now()
		res, err := ep.breaker.Execute(func() (interface{}, error) {
			v, apiErr, err := call(ctx, ep.url)
			if err != nil {
				return nil, err
			}
			return outcome[T]{value: v, apiErr: apiErr}, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			continue
		}
		if err != nil {
			p.metrics.ObserveRequest(ep.url, operation, err, started)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", ep.url, err))
			continue
		}

		out := res.(outcome[T])
		if out.apiErr != nil {
			p.metrics.ObserveRequest(ep.url, operation, out.apiErr, started)
			return zero, out.apiErr
		}
		p.metrics.ObserveRequest(ep.url, operation, nil, started)
		return out.value, nil
	}

	if err := errs.ErrorOrNil(); err != nil {
		return zero, err
	}
	return zero, ErrNoEndpoint
}
