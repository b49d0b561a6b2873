package api

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    redis "github.com/redis/go-redis/v9"
)

type EventBroker interface {
    Subscribe(tenantID string) chan StreamEvent
    Unsubscribe(tenantID string, ch chan StreamEvent)
    Publish(tenantID string, evt StreamEvent)
}

// RedisBroker implements EventBroker over Redis Pub/Sub so stream
// subscribers see events published by any API replica.
type RedisBroker struct {
    rdb *redis.Client
    mu  sync.Mutex
    ps  map[chan StreamEvent]*redis.PubSub
}

func NewRedisBroker(url string) (*RedisBroker, error) {
    opt, err := redis.ParseURL(url)
    if err != nil {
        return nil, err
    }
    return &RedisBroker{rdb: redis.NewClient(opt), ps: map[chan StreamEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(tenantID string) chan StreamEvent {
    ch := make(chan StreamEvent, 16)
    ctx := context.Background()
    ps := b.rdb.Subscribe(ctx, b.chanName(tenantID))
    // initial consume to ensure subscription
    _, _ = ps.Receive(ctx)
    b.mu.Lock()
    b.ps[ch] = ps
    b.mu.Unlock()
    // The reader goroutine owns ch: it closes it when the PubSub channel
    // drains, which Unsubscribe triggers by closing the PubSub.
    go func() {
        defer close(ch)
        for msg := range ps.Channel() {
            var evt StreamEvent
            if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
                select {
                case ch <- evt:
                default:
                }
            }
        }
    }()
    return ch
}

func (b *RedisBroker) Unsubscribe(tenantID string, ch chan StreamEvent) {
    b.mu.Lock()
    ps := b.ps[ch]
    delete(b.ps, ch)
    b.mu.Unlock()
    if ps != nil {
        _ = ps.Close()
    }
}

func (b *RedisBroker) Publish(tenantID string, evt StreamEvent) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, _ := json.Marshal(evt)
    _ = b.rdb.Publish(ctx, b.chanName(tenantID), data).Err()
}

func (b *RedisBroker) chanName(tenantID string) string { return "plans:" + tenantID }
