package store

// WebhookDelivery is one queued webhook attempt fetched by the delivery
// worker. Secret signs the payload; Attempts drives the retry backoff.
type WebhookDelivery struct {
    ID             string
    TenantID       string
    SubscriptionID string
    EventType      string
    URL            string
    Secret         string
    Payload        []byte
    Status         string
    Attempts       int
}
