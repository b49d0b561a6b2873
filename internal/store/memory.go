package store

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"

    "staffcast/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu        sync.Mutex
    events    map[string][]model.OrderEvent // tenant -> events, insertion order
    forecasts map[string]model.Forecast     // id -> forecast
    fcByTen   map[string][]string           // tenant -> forecast ids
    plans     map[string]model.Plan         // id -> plan
    plByTen   map[string][]string           // tenant -> plan ids
    subs      map[string][]model.Subscription

    deliveries map[string]*memDelivery
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
    WebhookDelivery
    NextAttemptAt time.Time
    LastError     string
    ResponseCode  int
    LatencyMs     int
}

func NewMemory() *Memory {
    return &Memory{
        events:     map[string][]model.OrderEvent{},
        forecasts:  map[string]model.Forecast{},
        fcByTen:    map[string][]string{},
        plans:      map[string]model.Plan{},
        plByTen:    map[string][]string{},
        subs:       map[string][]model.Subscription{},
        deliveries: map[string]*memDelivery{},
    }
}

func (m *Memory) InsertEvents(ctx context.Context, tenantID string, events []model.OrderEvent) (int, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.events[tenantID] = append(m.events[tenantID], events...)
    return len(events), nil
}

func (m *Memory) ListEvents(ctx context.Context, tenantID, cursor string, limit int) ([]model.OrderEvent, string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    all := m.events[tenantID]
    start := 0
    if cursor != "" {
        for i, e := range all {
            if e.OrderID == cursor {
                start = i + 1
                break
            }
        }
    }
    if limit <= 0 {
        limit = 1000
    }
    end := start + limit
    if end > len(all) {
        end = len(all)
    }
    out := append([]model.OrderEvent(nil), all[start:end]...)
    next := ""
    if end < len(all) && len(out) > 0 {
        next = out[len(out)-1].OrderID
    }
    return out, next, nil
}

func (m *Memory) SaveForecast(ctx context.Context, f model.Forecast) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.forecasts[f.ID] = f
    m.fcByTen[f.TenantID] = append(m.fcByTen[f.TenantID], f.ID)
    return nil
}

func (m *Memory) GetForecast(ctx context.Context, tenantID, id string) (model.Forecast, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    f, ok := m.forecasts[id]
    if !ok || f.TenantID != tenantID {
        return model.Forecast{}, ErrNotFound
    }
    return f, nil
}

func (m *Memory) ListForecasts(ctx context.Context, tenantID, cursor string, limit int) ([]model.Forecast, string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    ids := m.fcByTen[tenantID]
    items := make([]model.Forecast, 0, len(ids))
    for _, id := range ids {
        f := m.forecasts[id]
        f.Rows = nil // listings omit the grid
        items = append(items, f)
    }
    return pageByID(items, cursor, limit, func(f model.Forecast) string { return f.ID })
}

func (m *Memory) SavePlan(ctx context.Context, p model.Plan) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.plans[p.ID] = p
    m.plByTen[p.TenantID] = append(m.plByTen[p.TenantID], p.ID)
    return nil
}

func (m *Memory) GetPlan(ctx context.Context, tenantID, id string) (model.Plan, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    p, ok := m.plans[id]
    if !ok || p.TenantID != tenantID {
        return model.Plan{}, ErrNotFound
    }
    return p, nil
}

func (m *Memory) ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.Plan, string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    ids := m.plByTen[tenantID]
    items := make([]model.Plan, 0, len(ids))
    for _, id := range ids {
        p := m.plans[id]
        p.Rows = nil
        items = append(items, p)
    }
    return pageByID(items, cursor, limit, func(p model.Plan) string { return p.ID })
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    sub := model.Subscription{
        ID:       uuid.New().String(),
        TenantID: req.TenantID,
        URL:      req.URL,
        Events:   req.Events,
        Secret:   req.Secret,
    }
    m.subs[req.TenantID] = append(m.subs[req.TenantID], sub)
    return sub, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.Subscription
    for _, s := range m.subs[tenantID] {
        for _, e := range s.Events {
            if e == eventType || e == "*" {
                out = append(out, s)
                break
            }
        }
    }
    return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    items := append([]model.Subscription(nil), m.subs[tenantID]...)
    return pageByID(items, cursor, limit, func(s model.Subscription) string { return s.ID })
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    subs := m.subs[tenantID]
    for i, s := range subs {
        if s.ID == id {
            m.subs[tenantID] = append(subs[:i], subs[i+1:]...)
            return nil
        }
    }
    return ErrNotFound
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    id := uuid.New().String()
    m.deliveries[id] = &memDelivery{
        WebhookDelivery: WebhookDelivery{
            ID: id, TenantID: tenantID, SubscriptionID: subscriptionID,
            EventType: eventType, URL: url, Secret: secret,
            Payload: payload, Status: "pending",
        },
        NextAttemptAt: time.Now(),
    }
    return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    now := time.Now()
    var out []WebhookDelivery
    for _, d := range m.deliveries {
        if d.Status == "pending" && !d.NextAttemptAt.After(now) {
            out = append(out, d.WebhookDelivery)
            if len(out) >= limit {
                break
            }
        }
    }
    return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    d, ok := m.deliveries[id]
    if !ok {
        return ErrNotFound
    }
    d.Attempts++
    d.LastError = lastError
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    if success {
        d.Status = "delivered"
    } else if nextAttemptAt != nil {
        d.NextAttemptAt = *nextAttemptAt
    }
    return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    d, ok := m.deliveries[id]
    if !ok {
        return ErrNotFound
    }
    d.Attempts++
    d.Status = "failed"
    d.LastError = lastError
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    return nil
}

// pageByID pages a slice using the last returned ID as the cursor.
func pageByID[T any](items []T, cursor string, limit int, id func(T) string) ([]T, string, error) {
    start := 0
    if cursor != "" {
        for i := range items {
            if id(items[i]) == cursor {
                start = i + 1
                break
            }
        }
    }
    if limit <= 0 {
        limit = 100
    }
    end := start + limit
    if end > len(items) {
        end = len(items)
    }
    out := items[start:end]
    next := ""
    if end < len(items) && len(out) > 0 {
        next = id(out[len(out)-1])
    }
    return out, next, nil
}
