package metrics

var (
	breakerState    = gaugeVec("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)", "name")
	breakerRequests = counterVec("circuit_breaker_requests_total", "Calls through a circuit breaker by state (count)", "name", "state")
	breakerFailures = counterVec("circuit_breaker_failures_total", "Failed calls through a circuit breaker (count)", "name")
)

func RegisterCircuitBreakerMetrics() {
	register(breakerState, breakerRequests, breakerFailures)
}

func SetCircuitBreakerState(name string, code float64) {
	breakerState.WithLabelValues(name).Set(code)
}

func IncCircuitBreakerRequest(name, state string, failed bool) {
	breakerRequests.WithLabelValues(name, state).Inc()
	if failed {
		breakerFailures.WithLabelValues(name).Inc()
	}
}
