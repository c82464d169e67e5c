package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic converts a recovered value into a fatal ErrInternal carrying the
// stack. A handler that panicked on a message will panic again on redelivery.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	default:
		err = fmt.Errorf("panic: %v", v)
	}

	return ErrInternal.
		WithCause(err).
		WithDetails(map[string]interface{}{
			"panic":       true,
			"stack_trace": string(debug.Stack()),
		}).
		AsFatal()
}
