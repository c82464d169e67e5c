package retry

import (
	"github.com/cenkalti/backoff/v4"
)

// exponential leaves MaxElapsedTime at zero (no limit) unless the policy sets one.
func exponential(policy Policy) *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialInterval
	exp.MaxInterval = policy.MaxInterval
	exp.Multiplier = policy.Multiplier
	exp.MaxElapsedTime = policy.MaxElapsedTime
	exp.Reset()
	return exp
}
