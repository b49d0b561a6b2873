package api

import (
    "sync"
)

// StreamEvent is a pipeline lifecycle event fanned out to live stream
// subscribers (forecast.completed, plan.completed).
type StreamEvent struct {
    Type string
    Data map[string]any
}

// Broker is the in-process fanout, keyed by tenant.
type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan StreamEvent]struct{}
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan StreamEvent]struct{}{}}
}

func (b *Broker) Subscribe(tenantID string) chan StreamEvent {
    ch := make(chan StreamEvent, 8)
    b.mu.Lock()
    if b.subs[tenantID] == nil {
        b.subs[tenantID] = map[chan StreamEvent]struct{}{}
    }
    b.subs[tenantID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(tenantID string, ch chan StreamEvent) {
    b.mu.Lock()
    if m := b.subs[tenantID]; m != nil {
        delete(m, ch)
        if len(m) == 0 {
            delete(b.subs, tenantID)
        }
    }
    b.mu.Unlock()
    close(ch)
}

func (b *Broker) Publish(tenantID string, evt StreamEvent) {
    b.mu.Lock()
    m := b.subs[tenantID]
    for ch := range m {
        select {
        case ch <- evt:
        default:
        }
    }
    b.mu.Unlock()
}
