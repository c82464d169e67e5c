package metrics

import "time"

var (
	rateLimited  = counterVec("rate_limit_requests_total", "Write requests checked against the rate limit (count)", "status")
	httpRequests = counterVec("http_requests_total", "HTTP requests by route and status (count)", "method", "route", "status")
	httpTime     = histogramVec("http_request_duration_ms", "Duration of HTTP requests in milliseconds",
		[]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}, "method", "route")
)

func RegisterAPIMetrics() {
	register(rateLimited, httpRequests, httpTime)
}

func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpTime.WithLabelValues(method, route).Observe(ms(duration))
}

// IncRateLimit takes status "allowed" or "limited".
func IncRateLimit(status string) {
	rateLimited.WithLabelValues(status).Inc()
}
