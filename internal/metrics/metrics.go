package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API.
    Registry = prometheus.NewRegistry()

    // HTTPRequests counts requests by method, path, and status.
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds.
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // EventsIngested counts raw order events accepted into the store.
    EventsIngested = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "staffcast_events_ingested_total", Help: "Order events accepted."},
    )
    // ForecastRows counts forecast grid cells produced.
    ForecastRows = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "staffcast_forecast_rows_total", Help: "Forecast grid rows produced."},
    )
    // Plans counts allocation runs by outcome (optimal, suboptimal, error).
    Plans = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "staffcast_plans_total", Help: "Allocation plan runs by outcome."},
        []string{"status"},
    )
    // SolveDuration tracks end-to-end formulate+solve time.
    SolveDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "staffcast_solve_duration_seconds", Help: "Formulate and solve duration.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}},
    )
    // TrainDuration tracks model training time.
    TrainDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "staffcast_train_duration_seconds", Help: "Demand model training duration.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10}},
    )

    // WebhookDeliveries counts webhook attempts by event type and outcome.
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
        []string{"event_type", "status"},
    )
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the dedicated registry.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(EventsIngested)
        Registry.MustRegister(ForecastRows)
        Registry.MustRegister(Plans)
        Registry.MustRegister(SolveDuration)
        Registry.MustRegister(TrainDuration)
        Registry.MustRegister(WebhookDeliveries)
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}
