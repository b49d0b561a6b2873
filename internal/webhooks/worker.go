package webhooks

import (
    "bytes"
    "context"
    "net/http"
    "os"
    "strconv"
    "time"

    "staffcast/internal/metrics"
    "staffcast/internal/store"
)

// Worker drains the webhook delivery queue in the background.
type Worker struct {
    Store       store.Store
    HTTP        *http.Client
    Stop        chan struct{}
    MaxAttempts int
}

func NewWorker(s store.Store) *Worker {
    max := 10
    if v := os.Getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            max = n
        }
    }
    return &Worker{Store: s, HTTP: &http.Client{Timeout: 5 * time.Second}, Stop: make(chan struct{}), MaxAttempts: max}
}

func (w *Worker) Start() {
    go func() {
        ticker := time.NewTicker(1 * time.Second)
        defer ticker.Stop()
        for {
            select {
            case <-w.Stop:
                return
            case <-ticker.C:
                w.processOnce()
            }
        }
    }()
}

func (w *Worker) processOnce() {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    items, err := w.Store.FetchDueWebhookDeliveries(ctx, 50)
    if err != nil || len(items) == 0 {
        return
    }
    for _, it := range items {
        w.attempt(ctx, it)
    }
}

func (w *Worker) attempt(ctx context.Context, it store.WebhookDelivery) {
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
    if err != nil {
        _ = w.Store.FailWebhookDelivery(ctx, it.ID, err.Error(), 0, 0)
        return
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Event-Type", it.EventType)
    if it.Secret != "" {
        req.Header.Set("X-Signature", SignHMAC(it.Secret, it.Payload))
    }

    start := time.Now()
    resp, err := w.HTTP.Do(req)
    latency := int(time.Since(start).Milliseconds())
    code := 0
    success := false
    if err == nil && resp != nil {
        code = resp.StatusCode
        if resp.Body != nil {
            _ = resp.Body.Close()
        }
        success = code >= 200 && code < 300
    }
    lastErr := ""
    if !success && err != nil {
        lastErr = err.Error()
    }
    status := "retry"
    switch {
    case success:
        status = "delivered"
        _ = w.Store.MarkWebhookDelivery(ctx, it.ID, true, nil, "", code, latency)
    case it.Attempts+1 >= w.MaxAttempts:
        status = "failed"
        _ = w.Store.FailWebhookDelivery(ctx, it.ID, lastErr, code, latency)
    default:
        next := time.Now().Add(nextBackoff(it.Attempts))
        _ = w.Store.MarkWebhookDelivery(ctx, it.ID, false, &next, lastErr, code, latency)
    }
    metrics.WebhookDeliveries.WithLabelValues(it.EventType, status).Inc()
}

// nextBackoff doubles per attempt, capped at one hour.
func nextBackoff(attempts int) time.Duration {
    if attempts < 0 {
        attempts = 0
    }
    if attempts > 10 {
        attempts = 10
    }
    base := time.Second * time.Duration(1<<attempts)
    if base > time.Hour {
        base = time.Hour
    }
    return base
}
