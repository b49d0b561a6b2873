package api

import (
    "context"
    "os"
    "strings"

    "staffcast/internal/auth"
    "staffcast/internal/config"
    "staffcast/internal/store"
    "staffcast/internal/webhooks"
)

type Server struct {
    Store  store.Store
    Pub    *webhooks.Publisher
    Auth   *auth.Verifier
    Broker EventBroker
    Cfg    config.Config
}

// NewServer wires the server from configuration. An empty database URL
// selects the in-memory store; an empty Redis URL selects the in-process
// broker.
func NewServer(cfg config.Config) (*Server, error) {
    var s store.Store
    if strings.TrimSpace(cfg.Database.URL) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(cfg.Database.URL)
        if err != nil {
            return nil, err
        }
        // Run migrations (dev helper)
        if os.Getenv("DB_MIGRATE") != "false" {
            if err := sp.Migrate(context.Background()); err != nil {
                return nil, err
            }
        }
        s = sp
    }
    var broker EventBroker
    if cfg.Redis.URL != "" {
        rb, err := NewRedisBroker(cfg.Redis.URL)
        if err != nil {
            return nil, err
        }
        broker = rb
    } else {
        broker = NewBroker()
    }
    return &Server{
        Store:  s,
        Pub:    webhooks.NewPublisher(s),
        Auth:   auth.NewVerifier(cfg.Auth.Mode, cfg.Auth.Secret),
        Broker: broker,
        Cfg:    cfg,
    }, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store)
}
