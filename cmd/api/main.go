package main

import (
    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "staffcast/internal/api"
    "staffcast/internal/config"
    "staffcast/internal/metrics"
)

func main() {
    cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
    if err != nil {
        log.Fatalf("config: %v", err)
    }
    srvDeps, err := api.NewServer(cfg)
    if err != nil {
        log.Fatalf("failed to init server: %v", err)
    }
    metrics.RegisterDefault()

    mux := http.NewServeMux()

    // Order events
    mux.HandleFunc("/v1/events", srvDeps.EventsHandler)
    mux.HandleFunc("/v1/simulate", srvDeps.SimulateHandler)

    // Forecasts
    mux.HandleFunc("/v1/forecasts", srvDeps.ForecastsHandler)
    mux.HandleFunc("/v1/forecasts/", srvDeps.ForecastByIDHandler)

    // Allocation plans
    mux.HandleFunc("/v1/plans", srvDeps.PlansHandler)
    mux.HandleFunc("/v1/plans/stream", srvDeps.PlanStreamHandler)
    mux.HandleFunc("/v1/plans/", srvDeps.PlanByIDHandler)

    // Webhook subscriptions
    mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
    mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

    // Health and metrics
    mux.HandleFunc("/healthz", srvDeps.HealthHandler)
    mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

    limiter := api.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)
    handler := logMiddleware(api.MetricsMiddleware(limiter.Middleware(mux)))

    srv := &http.Server{
        Addr:              cfg.HTTP.Addr,
        Handler:           handler,
        ReadHeaderTimeout: 5 * time.Second,
    }

    worker := srvDeps.NewWebhookWorker()
    worker.Start()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    go func() {
        log.Printf("API listening on %s", cfg.HTTP.Addr)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatalf("server error: %v", err)
        }
    }()

    <-ctx.Done()
    log.Printf("shutting down")
    close(worker.Stop)
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        log.Printf("shutdown: %v", err)
    }
}

func logMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        next.ServeHTTP(w, r)
        dur := time.Since(start)
        log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
    })
}
