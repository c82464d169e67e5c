package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := WithImportID(context.Background(), "imp-1")
	ctx = WithScopeID(ctx, "scope-1")
	ctx = WithTraceID(ctx, "trace-1")

	assert.Equal(t, []interface{}{"trace_id", "trace-1", "scope_id", "scope-1", "import_id", "imp-1"}, GetLogFields(ctx))
	assert.Empty(t, GetLogFields(context.Background()))
}

func TestContextKeysDoNotCollideWithPlainStrings(t *testing.T) {
	//nolint:staticcheck
	ctx := context.WithValue(context.Background(), "request_id", "plain")
	assert.Empty(t, GetRequestID(ctx))

	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
}
