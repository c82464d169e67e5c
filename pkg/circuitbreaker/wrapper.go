package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"cablesync/internal/config"
	"cablesync/pkg/metrics"
)

// ErrOpen is returned without calling through while the breaker is open or
// while the half-open probe quota is used up.
var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      60 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.5,
	}
}

// FromSettings applies the non-zero values of cfg over DefaultConfig(name).
func FromSettings(name string, cfg config.CircuitBreakerConfig) Config {
	out := DefaultConfig(name)
	if cfg.MaxRequests > 0 {
		out.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		out.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		out.Timeout = cfg.Timeout
	}
	if cfg.MinRequests > 0 {
		out.MinRequests = cfg.MinRequests
	}
	if cfg.FailureRatio > 0 {
		out.FailureRatio = cfg.FailureRatio
	}
	return out
}

// Wrapper guards calls to an optional dependency such as the counter cache.
type Wrapper struct {
	cb *gobreaker.CircuitBreaker
}

func NewWrapper(cfg Config) *Wrapper {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// The caller giving up says nothing about the dependency's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			setStateMetric(name, to)
		},
	})
	setStateMetric(cfg.Name, cb.State())

	return &Wrapper{cb: cb}
}

// Call runs fn through the breaker. A rejected call returns an error wrapping ErrOpen.
func (w *Wrapper) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state := w.cb.State()
	_, err := w.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.IncCircuitBreakerRequest(w.cb.Name(), state.String(), false)
		return fmt.Errorf("%s: %w", w.cb.Name(), ErrOpen)
	}
	metrics.IncCircuitBreakerRequest(w.cb.Name(), state.String(), err != nil)
	return err
}

// State is one of "closed", "half-open" or "open".
func (w *Wrapper) State() string {
	return w.cb.State().String()
}

func (w *Wrapper) Name() string {
	return w.cb.Name()
}

func setStateMetric(name string, state gobreaker.State) {
	var value float64
	switch state {
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	metrics.SetCircuitBreakerState(name, value)
}
