package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	TripSavesTotal         metric.Int64Counter
	TripLoadsTotal         metric.Int64Counter
	ImportFailuresTotal    metric.Int64Counter
	RoutingLookupsTotal    metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal     metric.Int64Counter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("japan-itinerary")
		var err error
		m := &AppMetrics{}

		m.TripSavesTotal, err = meter.Int64Counter(
			"trip_saves_total",
			metric.WithDescription("Total number of trip snapshots saved remotely"),
			metric.WithUnit("{save}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create trip_saves_total: %v", err)
		}

		m.TripLoadsTotal, err = meter.Int64Counter(
			"trip_loads_total",
			metric.WithDescription("Total number of trip snapshots loaded from remote"),
			metric.WithUnit("{load}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create trip_loads_total: %v", err)
		}

		m.ImportFailuresTotal, err = meter.Int64Counter(
			"trip_import_failures_total",
			metric.WithDescription("Total number of snapshot imports rejected as malformed"),
			metric.WithUnit("{failure}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create trip_import_failures_total: %v", err)
		}

		m.RoutingLookupsTotal, err = meter.Int64Counter(
			"routing_lookups_total",
			metric.WithDescription("Total number of path lookups against the routing backend"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create routing_lookups_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance, initializing it
// against the current global MeterProvider if startup has not done so yet.
func Get() *AppMetrics {
	if appMetrics == nil {
		InitAppMetrics()
	}
	return appMetrics
}
