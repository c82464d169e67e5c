package health

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const checkTimeout = 5 * time.Second

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

// Probe adapts a function to Checker. Each call gets its own checkTimeout.
type Probe struct {
	name string
	fn   func(ctx context.Context) error
}

func NewProbe(name string, fn func(ctx context.Context) error) *Probe {
	return &Probe{name: name, fn: fn}
}

func (p *Probe) Name() string { return p.name }

func (p *Probe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := p.fn(ctx); err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

func Postgres(db *sql.DB) *Probe {
	return NewProbe("postgresql", db.PingContext)
}

func Redis(client *redis.Client) *Probe {
	return NewProbe("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

func Mongo(client *mongo.Client) *Probe {
	return NewProbe("mongodb", func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
}

// Breaker fails while the breaker reports "open". Half-open counts as healthy.
func Breaker(name string, state func() string) *Probe {
	return NewProbe(name, func(context.Context) error {
		if s := state(); s == "open" {
			return fmt.Errorf("circuit breaker is %s", s)
		}
		return nil
	})
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Optional  bool      `json:"optional,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type registration struct {
	checker  Checker
	optional bool
}

// CheckerRegistry reports unhealthy when a required dependency fails and degraded
// when only optional ones do.
type CheckerRegistry struct {
	checkers []registration
	now      func() time.Time
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{now: time.Now}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers = append(r.checkers, registration{checker: checker})
}

// RegisterOptional adds a dependency the service keeps working without, such as
// the counter cache.
func (r *CheckerRegistry) RegisterOptional(checker Checker) {
	r.checkers = append(r.checkers, registration{checker: checker, optional: true})
}

func (r *CheckerRegistry) Names() []string {
	names := make([]string, 0, len(r.checkers))
	for _, reg := range r.checkers {
		names = append(names, reg.checker.Name())
	}
	sort.Strings(names)
	return names
}

// Check runs every checker concurrently.
func (r *CheckerRegistry) Check(ctx context.Context) Health {
	var (
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(r.checkers))
		g       errgroup.Group
	)

	for _, reg := range r.checkers {
		g.Go(func() error {
			result := CheckResult{Status: StatusHealthy, Optional: reg.optional}
			if err := reg.checker.Check(ctx); err != nil {
				result.Message = err.Error()
				result.Status = StatusUnhealthy
				if reg.optional {
					result.Status = StatusDegraded
				}
			}
			result.Timestamp = r.now()

			mu.Lock()
			results[reg.checker.Name()] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Health{Status: overall(results), Timestamp: r.now(), Checks: results}
}

func overall(results map[string]CheckResult) Status {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}
