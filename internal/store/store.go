package store

import (
    "context"
    "errors"
    "time"

    "staffcast/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
    // Order events
    InsertEvents(ctx context.Context, tenantID string, events []model.OrderEvent) (accepted int, err error)
    ListEvents(ctx context.Context, tenantID, cursor string, limit int) (items []model.OrderEvent, nextCursor string, err error)

    // Forecasts
    SaveForecast(ctx context.Context, f model.Forecast) error
    GetForecast(ctx context.Context, tenantID, id string) (model.Forecast, error)
    ListForecasts(ctx context.Context, tenantID, cursor string, limit int) ([]model.Forecast, string, error)

    // Plans
    SavePlan(ctx context.Context, p model.Plan) error
    GetPlan(ctx context.Context, tenantID, id string) (model.Plan, error)
    ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.Plan, string, error)

    // Subscriptions
    CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
    GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
    ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
    DeleteSubscription(ctx context.Context, tenantID, id string) error

    // Webhook delivery queue
    EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
}

var ErrNotFound = errors.New("not found")
