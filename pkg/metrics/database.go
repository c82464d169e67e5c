package metrics

import "time"

var (
	dbQueries     = counterVec("database_queries_total", "Database queries by outcome (count)", "service", "database", "operation", "status")
	dbQueryTime   = histogramVec("database_query_duration_ms", "Duration of database queries in milliseconds", latencyBuckets, "service", "database", "operation")
	dbConnections = gaugeVec("database_connections_active", "Open database connections (count)", "service", "database")
)

func RegisterDatabaseMetrics() {
	register(dbQueries, dbQueryTime, dbConnections)
}

func IncDatabaseQuery(service, database, operation, status string) {
	dbQueries.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	dbQueryTime.WithLabelValues(service, database, operation).Observe(ms(duration))
}

func SetDatabaseConnectionsActive(service, database string, count int) {
	dbConnections.WithLabelValues(service, database).Set(float64(count))
}
