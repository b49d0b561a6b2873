package model

import "time"

// OnTimeThresholdMin is the SLA cutoff: deliveries at or under this many
// minutes count as on time.
const OnTimeThresholdMin = 45.0

// OrderEvent is a single raw delivery order as produced by upstream systems
// (or the synthetic generator). Immutable once ingested.
type OrderEvent struct {
    Timestamp       time.Time `json:"timestamp"`
    ZoneID          int       `json:"zoneId"`
    OrderID         string    `json:"orderId"`
    DeliveryTimeMin float64   `json:"deliveryTimeMin"`
}

// OnTime reports whether the order met the delivery SLA.
func (e OrderEvent) OnTime() bool { return e.DeliveryTimeMin <= OnTimeThresholdMin }

// HourlyDemand is one aggregated (hour, zone) bucket with calendar features.
// Buckets with no observed events are absent, not zero.
type HourlyDemand struct {
    Hour      time.Time `json:"hour"`
    ZoneID    int       `json:"zoneId"`
    Orders    int       `json:"orders"`
    HourOfDay int       `json:"hourOfDay"`
    DayOfWeek int       `json:"dayOfWeek"` // 0=Monday .. 6=Sunday
    IsWeekend bool      `json:"isWeekend"`
}

// ForecastRow is one cell of the forecast grid. The grid is always the full
// cross product of the requested horizon and zone set.
type ForecastRow struct {
    Hour           time.Time `json:"hour"`
    ZoneID         int       `json:"zoneId"`
    HourOfDay      int       `json:"hourOfDay"`
    DayOfWeek      int       `json:"dayOfWeek"`
    IsWeekend      bool      `json:"isWeekend"`
    ForecastOrders float64   `json:"forecastOrders"`
}

// AllocationRow is the solved assignment for one (hour, zone) pair.
type AllocationRow struct {
    Hour     time.Time `json:"hour"`
    ZoneID   int       `json:"zoneId"`
    Workers  float64   `json:"workers"`
    Unserved float64   `json:"unserved"`
}

// KPISet summarizes a solved allocation. TotalCost is filled by the caller
// from the solver objective; OnTimeRate is nil when the forecast carried no
// demand (a quiet period, not an error).
type KPISet struct {
    TotalCost   *float64 `json:"totalCost"`
    LateOrders  float64  `json:"lateOrders"`
    DriverHours float64  `json:"driverHours"`
    OnTimeRate  *float64 `json:"onTimeRate"`
}

// Forecast is a persisted forecast run.
type Forecast struct {
    ID           string        `json:"id"`
    TenantID     string        `json:"tenantId"`
    HorizonStart time.Time     `json:"horizonStart"`
    Periods      int           `json:"periods"`
    Zones        []int         `json:"zones"`
    MAE          float64       `json:"mae"`
    Rows         []ForecastRow `json:"rows"`
    CreatedAt    time.Time     `json:"createdAt"`
}

// Plan is a persisted allocation run against a forecast.
type Plan struct {
    ID         string          `json:"id"`
    TenantID   string          `json:"tenantId"`
    ForecastID string          `json:"forecastId"`
    Config     PlanConfig      `json:"config"`
    Rows       []AllocationRow `json:"rows"`
    Objective  float64         `json:"objective"`
    KPIs       KPISet          `json:"kpis"`
    Status     string          `json:"status"` // optimal, suboptimal
    CreatedAt  time.Time       `json:"createdAt"`
}

// PlanConfig is the cost/capacity configuration a plan was built with.
type PlanConfig struct {
    CostPerDriver     float64 `json:"costPerDriver"`
    LatePenalty       float64 `json:"latePenalty"`
    CapacityPerDriver float64 `json:"capacityPerDriver"`
    HoursToOptimize   int     `json:"hoursToOptimize"`
}

// API request bodies.

type ForecastRequest struct {
    TenantID     string `json:"tenantId,omitempty"`
    Zones        []int  `json:"zones,omitempty"` // default: zones seen in events
    Periods      int    `json:"periods,omitempty"`
    HorizonStart string `json:"horizonStart"` // RFC3339, required
}

type PlanRequest struct {
    TenantID          string  `json:"tenantId,omitempty"`
    ForecastID        string  `json:"forecastId"`
    CostPerDriver     float64 `json:"costPerDriver,omitempty"`
    LatePenalty       float64 `json:"latePenalty,omitempty"`
    CapacityPerDriver float64 `json:"capacityPerDriver,omitempty"`
    HoursToOptimize   int     `json:"hoursToOptimize,omitempty"`
}

type SimulateRequest struct {
    TenantID string `json:"tenantId,omitempty"`
    Start    string `json:"start"` // RFC3339
    End      string `json:"end"`   // RFC3339
    Zones    int    `json:"zones,omitempty"`
    Seed     uint64 `json:"seed,omitempty"`
}

// Webhook subscriptions (tenant-scoped).

type SubscriptionRequest struct {
    TenantID string   `json:"tenantId"`
    URL      string   `json:"url"`
    Events   []string `json:"events"`
    Secret   string   `json:"secret"`
}

type Subscription struct {
    ID       string   `json:"id"`
    TenantID string   `json:"tenantId"`
    URL      string   `json:"url"`
    Events   []string `json:"events"`
    Secret   string   `json:"secret,omitempty"`
}
