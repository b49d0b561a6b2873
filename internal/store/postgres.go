package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "strconv"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "staffcast/internal/model"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// schema holds the dev migration; forecast/plan row sets are stored as
// JSONB since they are written once and always read whole.
const schema = `
CREATE TABLE IF NOT EXISTS order_events (
    id          UUID PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    ts          TIMESTAMPTZ NOT NULL,
    zone_id     INT NOT NULL,
    order_ref   TEXT NOT NULL,
    delivery_min DOUBLE PRECISION NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS order_events_tenant_ts ON order_events (tenant_id, ts);

CREATE TABLE IF NOT EXISTS forecasts (
    id            TEXT PRIMARY KEY,
    tenant_id     TEXT NOT NULL,
    horizon_start TIMESTAMPTZ NOT NULL,
    periods       INT NOT NULL,
    zones         JSONB NOT NULL,
    mae           DOUBLE PRECISION NOT NULL,
    grid          JSONB NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS plans (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    forecast_id TEXT NOT NULL,
    config      JSONB NOT NULL,
    grid        JSONB NOT NULL,
    objective   DOUBLE PRECISION NOT NULL,
    kpis        JSONB NOT NULL,
    status      TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id        UUID PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    url       TEXT NOT NULL,
    events    JSONB NOT NULL,
    secret    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id              UUID PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    subscription_id UUID NOT NULL,
    event_type      TEXT NOT NULL,
    url             TEXT NOT NULL,
    secret          TEXT NOT NULL DEFAULT '',
    payload         BYTEA NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending',
    attempts        INT NOT NULL DEFAULT 0,
    next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_error      TEXT NOT NULL DEFAULT '',
    response_code   INT NOT NULL DEFAULT 0,
    latency_ms      INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS webhook_deliveries_due ON webhook_deliveries (status, next_attempt_at);
`

// Migrate applies the dev schema.
func (p *Postgres) Migrate(ctx context.Context) error {
    _, err := p.db.ExecContext(ctx, schema)
    return err
}

func (p *Postgres) InsertEvents(ctx context.Context, tenantID string, events []model.OrderEvent) (int, error) {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    defer func() { _ = tx.Rollback() }()
    accepted := 0
    for _, e := range events {
        _, err := tx.ExecContext(ctx,
            `INSERT INTO order_events (id, tenant_id, ts, zone_id, order_ref, delivery_min) VALUES ($1,$2,$3,$4,$5,$6)`,
            uuid.New(), tenantID, e.Timestamp, e.ZoneID, e.OrderID, e.DeliveryTimeMin)
        if err != nil {
            return 0, err
        }
        accepted++
    }
    return accepted, tx.Commit()
}

func (p *Postgres) ListEvents(ctx context.Context, tenantID, cursor string, limit int) ([]model.OrderEvent, string, error) {
    if limit <= 0 {
        limit = 1000
    }
    q := `SELECT order_ref, ts, zone_id, delivery_min FROM order_events WHERE tenant_id=$1`
    args := []any{tenantID}
    if cursor != "" {
        q += ` AND order_ref > $2`
        args = append(args, cursor)
    }
    q += ` ORDER BY order_ref LIMIT ` + strconv.Itoa(limit+1)
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, "", err
    }
    defer rows.Close()
    var out []model.OrderEvent
    for rows.Next() {
        var e model.OrderEvent
        if err := rows.Scan(&e.OrderID, &e.Timestamp, &e.ZoneID, &e.DeliveryTimeMin); err != nil {
            return nil, "", err
        }
        out = append(out, e)
    }
    next := ""
    if len(out) > limit {
        out = out[:limit]
        next = out[len(out)-1].OrderID
    }
    return out, next, rows.Err()
}

func (p *Postgres) SaveForecast(ctx context.Context, f model.Forecast) error {
    zones, err := json.Marshal(f.Zones)
    if err != nil {
        return err
    }
    rows, err := json.Marshal(f.Rows)
    if err != nil {
        return err
    }
    _, err = p.db.ExecContext(ctx,
        `INSERT INTO forecasts (id, tenant_id, horizon_start, periods, zones, mae, grid, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
        f.ID, f.TenantID, f.HorizonStart, f.Periods, zones, f.MAE, rows, f.CreatedAt)
    return err
}

func (p *Postgres) GetForecast(ctx context.Context, tenantID, id string) (model.Forecast, error) {
    var f model.Forecast
    var zones, rows []byte
    err := p.db.QueryRowContext(ctx,
        `SELECT id::text, horizon_start, periods, zones, mae, grid, created_at FROM forecasts WHERE tenant_id=$1 AND id=$2`,
        tenantID, id).Scan(&f.ID, &f.HorizonStart, &f.Periods, &zones, &f.MAE, &rows, &f.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return f, ErrNotFound
    }
    if err != nil {
        return f, err
    }
    f.TenantID = tenantID
    if err := json.Unmarshal(zones, &f.Zones); err != nil {
        return f, err
    }
    if err := json.Unmarshal(rows, &f.Rows); err != nil {
        return f, err
    }
    return f, nil
}

func (p *Postgres) ListForecasts(ctx context.Context, tenantID, cursor string, limit int) ([]model.Forecast, string, error) {
    if limit <= 0 {
        limit = 100
    }
    q := `SELECT id::text, horizon_start, periods, zones, mae, created_at FROM forecasts WHERE tenant_id=$1`
    args := []any{tenantID}
    if cursor != "" {
        q += ` AND id::text > $2`
        args = append(args, cursor)
    }
    q += ` ORDER BY id::text LIMIT ` + strconv.Itoa(limit+1)
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, "", err
    }
    defer rows.Close()
    var out []model.Forecast
    for rows.Next() {
        var f model.Forecast
        var zones []byte
        if err := rows.Scan(&f.ID, &f.HorizonStart, &f.Periods, &zones, &f.MAE, &f.CreatedAt); err != nil {
            return nil, "", err
        }
        f.TenantID = tenantID
        if err := json.Unmarshal(zones, &f.Zones); err != nil {
            return nil, "", err
        }
        out = append(out, f)
    }
    next := ""
    if len(out) > limit {
        out = out[:limit]
        next = out[len(out)-1].ID
    }
    return out, next, rows.Err()
}

func (p *Postgres) SavePlan(ctx context.Context, pl model.Plan) error {
    cfg, err := json.Marshal(pl.Config)
    if err != nil {
        return err
    }
    rows, err := json.Marshal(pl.Rows)
    if err != nil {
        return err
    }
    kpis, err := json.Marshal(pl.KPIs)
    if err != nil {
        return err
    }
    _, err = p.db.ExecContext(ctx,
        `INSERT INTO plans (id, tenant_id, forecast_id, config, grid, objective, kpis, status, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
        pl.ID, pl.TenantID, pl.ForecastID, cfg, rows, pl.Objective, kpis, pl.Status, pl.CreatedAt)
    return err
}

func (p *Postgres) GetPlan(ctx context.Context, tenantID, id string) (model.Plan, error) {
    var pl model.Plan
    var cfg, rows, kpis []byte
    err := p.db.QueryRowContext(ctx,
        `SELECT id::text, forecast_id::text, config, grid, objective, kpis, status, created_at FROM plans WHERE tenant_id=$1 AND id=$2`,
        tenantID, id).Scan(&pl.ID, &pl.ForecastID, &cfg, &rows, &pl.Objective, &kpis, &pl.Status, &pl.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return pl, ErrNotFound
    }
    if err != nil {
        return pl, err
    }
    pl.TenantID = tenantID
    if err := json.Unmarshal(cfg, &pl.Config); err != nil {
        return pl, err
    }
    if err := json.Unmarshal(rows, &pl.Rows); err != nil {
        return pl, err
    }
    if err := json.Unmarshal(kpis, &pl.KPIs); err != nil {
        return pl, err
    }
    return pl, nil
}

func (p *Postgres) ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.Plan, string, error) {
    if limit <= 0 {
        limit = 100
    }
    q := `SELECT id::text, forecast_id::text, config, objective, kpis, status, created_at FROM plans WHERE tenant_id=$1`
    args := []any{tenantID}
    if cursor != "" {
        q += ` AND id::text > $2`
        args = append(args, cursor)
    }
    q += ` ORDER BY id::text LIMIT ` + strconv.Itoa(limit+1)
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, "", err
    }
    defer rows.Close()
    var out []model.Plan
    for rows.Next() {
        var pl model.Plan
        var cfg, kpis []byte
        if err := rows.Scan(&pl.ID, &pl.ForecastID, &cfg, &pl.Objective, &kpis, &pl.Status, &pl.CreatedAt); err != nil {
            return nil, "", err
        }
        pl.TenantID = tenantID
        if err := json.Unmarshal(cfg, &pl.Config); err != nil {
            return nil, "", err
        }
        if err := json.Unmarshal(kpis, &pl.KPIs); err != nil {
            return nil, "", err
        }
        out = append(out, pl)
    }
    next := ""
    if len(out) > limit {
        out = out[:limit]
        next = out[len(out)-1].ID
    }
    return out, next, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    sub := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
    events, err := json.Marshal(req.Events)
    if err != nil {
        return sub, err
    }
    _, err = p.db.ExecContext(ctx,
        `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
        sub.ID, sub.TenantID, sub.URL, events, sub.Secret)
    return sub, err
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    rows, err := p.db.QueryContext(ctx,
        `SELECT id::text, url, events, secret FROM subscriptions WHERE tenant_id=$1 AND (events ? $2 OR events ? '*')`,
        tenantID, eventType)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Subscription
    for rows.Next() {
        var s model.Subscription
        var events []byte
        if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
            return nil, err
        }
        s.TenantID = tenantID
        if err := json.Unmarshal(events, &s.Events); err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    if limit <= 0 {
        limit = 100
    }
    q := `SELECT id::text, url, events, secret FROM subscriptions WHERE tenant_id=$1`
    args := []any{tenantID}
    if cursor != "" {
        q += ` AND id::text > $2`
        args = append(args, cursor)
    }
    q += ` ORDER BY id::text LIMIT ` + strconv.Itoa(limit+1)
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, "", err
    }
    defer rows.Close()
    var out []model.Subscription
    for rows.Next() {
        var s model.Subscription
        var events []byte
        if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
            return nil, "", err
        }
        s.TenantID = tenantID
        if err := json.Unmarshal(events, &s.Events); err != nil {
            return nil, "", err
        }
        out = append(out, s)
    }
    next := ""
    if len(out) > limit {
        out = out[:limit]
        next = out[len(out)-1].ID
    }
    return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    id := uuid.New().String()
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
        id, tenantID, subscriptionID, eventType, url, secret, payload)
    return id, err
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    rows, err := p.db.QueryContext(ctx,
        `SELECT id::text, tenant_id, subscription_id::text, event_type, url, secret, payload, status, attempts
         FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now() ORDER BY next_attempt_at LIMIT `+strconv.Itoa(limit))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []WebhookDelivery
    for rows.Next() {
        var d WebhookDelivery
        if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
    status := "pending"
    if success {
        status = "delivered"
    }
    var next any
    if nextAttemptAt != nil {
        next = *nextAttemptAt
    }
    _, err := p.db.ExecContext(ctx,
        `UPDATE webhook_deliveries SET status=$2, attempts=attempts+1, next_attempt_at=COALESCE($3, next_attempt_at),
         last_error=$4, response_code=$5, latency_ms=$6 WHERE id=$1`,
        id, status, next, lastError, responseCode, latencyMs)
    return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
    _, err := p.db.ExecContext(ctx,
        `UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$1`,
        id, lastError, responseCode, latencyMs)
    return err
}

