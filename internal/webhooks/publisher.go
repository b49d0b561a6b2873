// Package webhooks delivers plan and forecast lifecycle events to tenant
// subscriptions with signed payloads and retry.
package webhooks

import (
    "context"
    "encoding/json"
    "time"

    "github.com/google/uuid"

    "staffcast/internal/store"
)

// Event types emitted by the pipeline.
const (
    EventForecastCompleted = "forecast.completed"
    EventPlanCompleted     = "plan.completed"
)

type Publisher struct {
    Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
    return &Publisher{Store: s}
}

// Emit enqueues the event for every matching subscription of the tenant.
// Delivery is asynchronous; the pipeline never blocks on webhooks.
func (p *Publisher) Emit(ctx context.Context, tenantID, eventType string, data any) {
    subs, err := p.Store.GetSubscriptionsForEvent(ctx, tenantID, eventType)
    if err != nil || len(subs) == 0 {
        return
    }
    payload := map[string]any{
        "id":       "evt_" + uuid.New().String(),
        "type":     eventType,
        "tenantId": tenantID,
        "ts":       time.Now().UTC().Format(time.RFC3339),
        "data":     data,
    }
    body, err := json.Marshal(payload)
    if err != nil {
        return
    }
    for _, s := range subs {
        _, _ = p.Store.EnqueueWebhook(ctx, tenantID, s.ID, eventType, s.URL, s.Secret, body)
    }
}
