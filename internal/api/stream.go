package api

import (
    "net/http"
    "time"

    "github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type streamFrame struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data,omitempty"`
}

// PlanStreamHandler handles GET /v1/plans/stream: a WebSocket that pushes
// forecast.completed and plan.completed events for the caller's tenant as
// pipeline runs finish. An optional ?type= query narrows to one event type.
func (s *Server) PlanStreamHandler(w http.ResponseWriter, r *http.Request) {
    p := s.getPrincipal(r)
    only := r.URL.Query().Get("type")

    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        return
    }
    defer func() { _ = conn.Close() }()

    conn.SetReadLimit(1 << 16)
    _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
    conn.SetPongHandler(func(string) error {
        _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
        return nil
    })

    ch := s.Broker.Subscribe(p.Tenant)
    done := make(chan struct{})

    // Drain client frames so pongs are processed; any read error ends the
    // session.
    go func() {
        defer close(done)
        for {
            if _, _, err := conn.ReadMessage(); err != nil {
                return
            }
        }
    }()

    ping := time.NewTicker(20 * time.Second)
    defer ping.Stop()
    defer s.Broker.Unsubscribe(p.Tenant, ch)

    _ = conn.WriteJSON(streamFrame{Type: "ready"})
    for {
        select {
        case <-done:
            return
        case <-ping.C:
            if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
                return
            }
        case evt, ok := <-ch:
            if !ok {
                return
            }
            if only != "" && evt.Type != only {
                continue
            }
            if err := conn.WriteJSON(streamFrame{Type: evt.Type, Data: evt.Data}); err != nil {
                return
            }
        }
    }
}
