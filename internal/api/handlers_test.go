package api

import (
    "bytes"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    "staffcast/internal/config"
    "staffcast/internal/model"
)

func newTestServer(t *testing.T) *Server {
    t.Helper()
    s, err := NewServer(config.Default())
    if err != nil {
        t.Fatalf("NewServer: %v", err)
    }
    return s
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
    t.Helper()
    b, err := json.Marshal(body)
    if err != nil {
        t.Fatalf("marshal: %v", err)
    }
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
    req.Header.Set("Content-Type", "application/json")
    h(rr, req)
    return rr
}

func TestHealthReady(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    if rr.Code != 200 {
        t.Fatalf("health: got %d", rr.Code)
    }
    rr = httptest.NewRecorder()
    s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
    if rr.Code != 200 {
        t.Fatalf("ready: got %d", rr.Code)
    }
}

func TestEventsIngestAndList(t *testing.T) {
    s := newTestServer(t)
    body := map[string]any{
        "tenantId": "t_test",
        "events": []map[string]any{
            {"timestamp": "2024-03-01T08:15:00Z", "zoneId": 1, "orderId": "O1", "deliveryTimeMin": 22.5},
            {"timestamp": "2024-03-01T08:40:00Z", "zoneId": 2, "orderId": "O2", "deliveryTimeMin": 51.0},
        },
    }
    rr := postJSON(t, s.EventsHandler, "/v1/events", body)
    if rr.Code != http.StatusAccepted {
        t.Fatalf("events create: got %d body=%s", rr.Code, rr.Body.String())
    }

    rr = httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/v1/events?limit=5", nil)
    req.Header.Set("X-Tenant-Id", "t_test")
    s.EventsHandler(rr, req)
    if rr.Code != 200 {
        t.Fatalf("events list: got %d", rr.Code)
    }
    var out struct {
        Items []model.OrderEvent `json:"items"`
    }
    if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if len(out.Items) != 2 {
        t.Fatalf("expected 2 events, got %d", len(out.Items))
    }
}

func TestEventsRejectsEmptyBatch(t *testing.T) {
    s := newTestServer(t)
    rr := postJSON(t, s.EventsHandler, "/v1/events", map[string]any{"tenantId": "t_test", "events": []any{}})
    if rr.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rr.Code)
    }
}

// seedHistory simulates a week of demand for three zones.
func seedHistory(t *testing.T, s *Server) {
    t.Helper()
    rr := postJSON(t, s.SimulateHandler, "/v1/simulate", map[string]any{
        "tenantId": "t_test",
        "start":    "2024-03-01T00:00:00Z",
        "end":      "2024-03-07T23:00:00Z",
        "zones":    3,
        "seed":     7,
    })
    if rr.Code != http.StatusCreated {
        t.Fatalf("simulate: got %d body=%s", rr.Code, rr.Body.String())
    }
}

func createForecast(t *testing.T, s *Server, periods int) model.Forecast {
    t.Helper()
    rr := postJSON(t, s.ForecastsHandler, "/v1/forecasts", map[string]any{
        "tenantId":     "t_test",
        "horizonStart": "2024-03-08T00:00:00Z",
        "periods":      periods,
    })
    if rr.Code != http.StatusCreated {
        t.Fatalf("forecast create: got %d body=%s", rr.Code, rr.Body.String())
    }
    var f model.Forecast
    if err := json.Unmarshal(rr.Body.Bytes(), &f); err != nil {
        t.Fatalf("decode forecast: %v", err)
    }
    return f
}

func TestForecastPipeline(t *testing.T) {
    s := newTestServer(t)
    seedHistory(t, s)

    f := createForecast(t, s, 48)
    if f.ID == "" {
        t.Fatal("forecast id empty")
    }
    if len(f.Zones) != 3 {
        t.Fatalf("zones: got %v", f.Zones)
    }
    if len(f.Rows) != 48*3 {
        t.Fatalf("expected full 48x3 grid, got %d rows", len(f.Rows))
    }
    if f.MAE < 0 {
        t.Fatalf("negative MAE: %v", f.MAE)
    }
    for _, row := range f.Rows {
        if row.ForecastOrders < 0 {
            t.Fatalf("negative forecast at %v zone %d", row.Hour, row.ZoneID)
        }
    }

    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/v1/forecasts/"+f.ID, nil)
    req.Header.Set("X-Tenant-Id", "t_test")
    s.ForecastByIDHandler(rr, req)
    if rr.Code != 200 {
        t.Fatalf("forecast get: %d", rr.Code)
    }
}

func TestForecastRequiresHorizonStart(t *testing.T) {
    s := newTestServer(t)
    seedHistory(t, s)
    rr := postJSON(t, s.ForecastsHandler, "/v1/forecasts", map[string]any{"tenantId": "t_test"})
    if rr.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
    }
}

func TestForecastWithoutHistory(t *testing.T) {
    s := newTestServer(t)
    rr := postJSON(t, s.ForecastsHandler, "/v1/forecasts", map[string]any{
        "tenantId":     "t_empty",
        "horizonStart": "2024-03-08T00:00:00Z",
    })
    if rr.Code != http.StatusUnprocessableEntity {
        t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
    }
}

func TestPlanPipeline(t *testing.T) {
    s := newTestServer(t)
    seedHistory(t, s)
    f := createForecast(t, s, 48)

    rr := postJSON(t, s.PlansHandler, "/v1/plans", map[string]any{
        "tenantId":        "t_test",
        "forecastId":      f.ID,
        "hoursToOptimize": 24,
    })
    if rr.Code != http.StatusCreated {
        t.Fatalf("plan create: got %d body=%s", rr.Code, rr.Body.String())
    }
    var plan model.Plan
    if err := json.Unmarshal(rr.Body.Bytes(), &plan); err != nil {
        t.Fatalf("decode plan: %v", err)
    }
    if plan.Status != "optimal" {
        t.Fatalf("status: got %q", plan.Status)
    }
    if len(plan.Rows) != 24*3 {
        t.Fatalf("expected 24x3 rows, got %d", len(plan.Rows))
    }
    if plan.KPIs.TotalCost == nil || *plan.KPIs.TotalCost != plan.Objective {
        t.Fatalf("total cost should equal objective: %+v vs %v", plan.KPIs.TotalCost, plan.Objective)
    }
    // Every covered cell must be feasible against its forecast demand.
    demandAt := map[[2]int64]float64{}
    for _, row := range f.Rows {
        demandAt[[2]int64{row.Hour.Unix(), int64(row.ZoneID)}] = row.ForecastOrders
    }
    capacity := s.Cfg.Plan.CapacityPerDriver
    for _, row := range plan.Rows {
        d := demandAt[[2]int64{row.Hour.Unix(), int64(row.ZoneID)}]
        if row.Workers*capacity+row.Unserved < d-1e-6 {
            t.Fatalf("infeasible row %+v against demand %v", row, d)
        }
    }

    rr = httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/v1/plans/"+plan.ID, nil)
    req.Header.Set("X-Tenant-Id", "t_test")
    s.PlanByIDHandler(rr, req)
    if rr.Code != 200 {
        t.Fatalf("plan get: %d", rr.Code)
    }

    rr = httptest.NewRecorder()
    req = httptest.NewRequest(http.MethodGet, "/v1/plans/"+plan.ID+"/kpis", nil)
    req.Header.Set("X-Tenant-Id", "t_test")
    s.PlanByIDHandler(rr, req)
    if rr.Code != 200 {
        t.Fatalf("plan kpis: %d", rr.Code)
    }
    var k model.KPISet
    if err := json.Unmarshal(rr.Body.Bytes(), &k); err != nil {
        t.Fatalf("decode kpis: %v", err)
    }
    if k.OnTimeRate == nil || *k.OnTimeRate < 0 || *k.OnTimeRate > 1 {
        t.Fatalf("on-time rate out of range: %+v", k.OnTimeRate)
    }
}

func TestPlanUnknownForecast(t *testing.T) {
    s := newTestServer(t)
    rr := postJSON(t, s.PlansHandler, "/v1/plans", map[string]any{"tenantId": "t_test", "forecastId": "f_missing"})
    if rr.Code != http.StatusNotFound {
        t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
    }
}

func TestViewerCannotMutate(t *testing.T) {
    s := newTestServer(t)
    b, _ := json.Marshal(map[string]any{"tenantId": "t_test", "horizonStart": "2024-03-08T00:00:00Z"})
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/v1/forecasts", bytes.NewReader(b))
    req.Header.Set("X-Tenant-Id", "t_test")
    req.Header.Set("X-Role", "viewer")
    s.ForecastsHandler(rr, req)
    if rr.Code != http.StatusForbidden {
        t.Fatalf("expected 403, got %d", rr.Code)
    }
}

func TestSubscriptionsLifecycle(t *testing.T) {
    s := newTestServer(t)
    rr := postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", map[string]any{
        "tenantId": "t_test",
        "url":      "https://example.com/hook",
        "events":   []string{"plan.completed"},
        "secret":   "shh",
    })
    if rr.Code != http.StatusCreated {
        t.Fatalf("sub create: got %d body=%s", rr.Code, rr.Body.String())
    }
    var sub model.Subscription
    if err := json.Unmarshal(rr.Body.Bytes(), &sub); err != nil {
        t.Fatalf("decode sub: %v", err)
    }
    if sub.Secret != "" {
        t.Fatal("secret must not be echoed")
    }

    rr = httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/v1/subscriptions", nil)
    req.Header.Set("X-Tenant-Id", "t_test")
    s.SubscriptionsHandler(rr, req)
    if rr.Code != 200 {
        t.Fatalf("sub list: %d", rr.Code)
    }

    rr = httptest.NewRecorder()
    req = httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil)
    req.Header.Set("X-Tenant-Id", "t_test")
    s.SubscriptionByIDHandler(rr, req)
    if rr.Code != http.StatusNoContent {
        t.Fatalf("sub delete: %d", rr.Code)
    }
}

func TestSubscriptionRejectsBadURL(t *testing.T) {
    s := newTestServer(t)
    rr := postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", map[string]any{
        "tenantId": "t_test",
        "url":      "ftp://example.com",
        "events":   []string{"plan.completed"},
    })
    if rr.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rr.Code)
    }
}
