package health

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string { return s.name }
func (s stubChecker) Check(context.Context) error { return s.err }

func TestCheckerRegistry_Check(t *testing.T) {
	down := errors.New("connection refused")

	tests := []struct {
		name     string
		required []Checker
		optional []Checker
		want     Status
	}{
		{
			name:     "all healthy",
			required: []Checker{stubChecker{name: "postgresql"}},
			optional: []Checker{stubChecker{name: "redis"}},
			want:     StatusHealthy,
		},
		{
			name:     "optional failure degrades",
			required: []Checker{stubChecker{name: "postgresql"}},
			optional: []Checker{stubChecker{name: "redis", err: down}},
			want:     StatusDegraded,
		},
		{
			name:     "required failure wins",
			required: []Checker{stubChecker{name: "postgresql", err: down}},
			optional: []Checker{stubChecker{name: "redis", err: down}},
			want:     StatusUnhealthy,
		},
		{
			name: "empty registry",
			want: StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewCheckerRegistry()
			for _, c := range tt.required {
				registry.Register(c)
			}
			for _, c := range tt.optional {
				registry.RegisterOptional(c)
			}

			h := registry.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.required)+len(tt.optional))
		})
	}
}

func TestCheckerRegistry_ReportsOptionalFlag(t *testing.T) {
	registry := NewCheckerRegistry()
	registry.RegisterOptional(stubChecker{name: "redis", err: errors.New("timeout")})
	registry.Register(stubChecker{name: "postgresql"})

	h := registry.Check(context.Background())
	require.Contains(t, h.Checks, "redis")
	assert.True(t, h.Checks["redis"].Optional)
	assert.Equal(t, StatusDegraded, h.Checks["redis"].Status)
	assert.Equal(t, "timeout", h.Checks["redis"].Message)
	assert.Equal(t, StatusHealthy, h.Checks["postgresql"].Status)
	assert.Equal(t, []string{"postgresql", "redis"}, registry.Names())
}

func TestBreaker(t *testing.T) {
	state := "closed"
	checker := Breaker("redis-counters", func() string { return state })

	assert.NoError(t, checker.Check(context.Background()))
	state = "half-open"
	assert.NoError(t, checker.Check(context.Background()))
	state = "open"
	assert.Error(t, checker.Check(context.Background()))
}

func TestPostgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	checker := Postgres(db)
	assert.Equal(t, "postgresql", checker.Name())
	mock.ExpectPing()
	assert.NoError(t, checker.Check(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("bad connection"))
	assert.EqualError(t, checker.Check(context.Background()), "postgresql: bad connection")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProbe_AppliesTimeout(t *testing.T) {
	probe := NewProbe("slow", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	assert.NoError(t, probe.Check(context.Background()))
}
