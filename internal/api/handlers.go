package api

import (
    "context"
    "encoding/json"
    "fmt"
    "math/rand/v2"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"

    "staffcast/internal/alloc"
    "staffcast/internal/buildinfo"
    "staffcast/internal/demand"
    "staffcast/internal/forecast"
    "staffcast/internal/gen"
    "staffcast/internal/kpi"
    "staffcast/internal/metrics"
    "staffcast/internal/model"
    "staffcast/internal/webhooks"
)

// EventsHandler handles POST/GET /v1/events
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        p := s.getPrincipal(r)
        if !p.CanPlan() {
            writeProblem(w, http.StatusForbidden, "Forbidden", "planner or admin required", r.URL.Path)
            return
        }
        var req struct {
            TenantID string             `json:"tenantId"`
            Events   []model.OrderEvent `json:"events"`
        }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.TenantID == "" {
            req.TenantID = p.Tenant
        }
        if len(req.Events) == 0 {
            writeProblem(w, http.StatusBadRequest, "Invalid request", "events must not be empty", r.URL.Path)
            return
        }
        accepted, err := s.Store.InsertEvents(r.Context(), req.TenantID, req.Events)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Insert events failed", err.Error(), r.URL.Path)
            return
        }
        metrics.EventsIngested.Add(float64(accepted))
        writeJSON(w, http.StatusAccepted, map[string]any{"accepted": accepted})
    case http.MethodGet:
        p := s.getPrincipal(r)
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" {
            fmt.Sscanf(v, "%d", &limit)
        }
        items, next, err := s.Store.ListEvents(r.Context(), p.Tenant, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List events failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SimulateHandler handles POST /v1/simulate: generate a synthetic event
// stream and ingest it for the tenant.
func (s *Server) SimulateHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    p := s.getPrincipal(r)
    if !p.CanPlan() {
        writeProblem(w, http.StatusForbidden, "Forbidden", "planner or admin required", r.URL.Path)
        return
    }
    var req model.SimulateRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    start, end, err := validateSimulateRequest(&req)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid simulate request", err.Error(), r.URL.Path)
        return
    }
    if req.TenantID == "" {
        req.TenantID = p.Tenant
    }
    zones := req.Zones
    if zones == 0 {
        zones = 5
    }
    events, err := gen.Generate(gen.Config{Start: start, End: end, Zones: zones}, rand.NewPCG(req.Seed, 0))
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Generate failed", err.Error(), r.URL.Path)
        return
    }
    accepted, err := s.Store.InsertEvents(r.Context(), req.TenantID, events)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Insert events failed", err.Error(), r.URL.Path)
        return
    }
    metrics.EventsIngested.Add(float64(accepted))
    writeJSON(w, http.StatusCreated, map[string]any{"generated": len(events), "accepted": accepted})
}

// ForecastsHandler handles POST/GET /v1/forecasts
func (s *Server) ForecastsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        s.createForecast(w, r)
    case http.MethodGet:
        p := s.getPrincipal(r)
        cursor := r.URL.Query().Get("cursor")
        limit := 50
        if v := r.URL.Query().Get("limit"); v != "" {
            fmt.Sscanf(v, "%d", &limit)
        }
        items, next, err := s.Store.ListForecasts(r.Context(), p.Tenant, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List forecasts failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (s *Server) createForecast(w http.ResponseWriter, r *http.Request) {
    p := s.getPrincipal(r)
    if !p.CanPlan() {
        writeProblem(w, http.StatusForbidden, "Forbidden", "planner or admin required", r.URL.Path)
        return
    }
    var req model.ForecastRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    start, err := validateForecastRequest(&req)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid forecast request", err.Error(), r.URL.Path)
        return
    }
    if req.TenantID == "" {
        req.TenantID = p.Tenant
    }
    periods := req.Periods
    if periods == 0 {
        periods = s.Cfg.Forecast.Periods
    }

    events, err := s.allEvents(r.Context(), req.TenantID)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Load events failed", err.Error(), r.URL.Path)
        return
    }
    historical := demand.Aggregate(events)
    zones := req.Zones
    if len(zones) == 0 {
        zones = demand.Zones(events)
    }
    if len(zones) == 0 {
        writeProblem(w, http.StatusUnprocessableEntity, "No demand history", "no zones observed and none requested", r.URL.Path)
        return
    }

    trainStart := time.Now()
    mdl, mae, err := forecast.Train(historical, nil)
    if err != nil {
        writeProblem(w, http.StatusUnprocessableEntity, "Train failed", err.Error(), r.URL.Path)
        return
    }
    metrics.TrainDuration.Observe(time.Since(trainStart).Seconds())
    rows, err := forecast.Predict(mdl, zones, start, periods)
    if err != nil {
        writePipelineProblem(w, err, r.URL.Path)
        return
    }
    metrics.ForecastRows.Add(float64(len(rows)))

    f := model.Forecast{
        ID:           "f_" + uuid.New().String(),
        TenantID:     req.TenantID,
        HorizonStart: demand.TruncateHour(start),
        Periods:      periods,
        Zones:        zones,
        MAE:          mae,
        Rows:         rows,
        CreatedAt:    time.Now().UTC(),
    }
    if err := s.Store.SaveForecast(r.Context(), f); err != nil {
        writeProblem(w, http.StatusInternalServerError, "Save forecast failed", err.Error(), r.URL.Path)
        return
    }
    summary := map[string]any{"forecastId": f.ID, "mae": f.MAE, "rows": len(f.Rows)}
    s.Pub.Emit(r.Context(), f.TenantID, webhooks.EventForecastCompleted, summary)
    s.Broker.Publish(f.TenantID, StreamEvent{Type: webhooks.EventForecastCompleted, Data: summary})
    writeJSON(w, http.StatusCreated, f)
}

// allEvents pages through the full event history for a tenant.
func (s *Server) allEvents(ctx context.Context, tenantID string) ([]model.OrderEvent, error) {
    var all []model.OrderEvent
    cursor := ""
    for {
        items, next, err := s.Store.ListEvents(ctx, tenantID, cursor, 1000)
        if err != nil {
            return nil, err
        }
        all = append(all, items...)
        if next == "" {
            return all, nil
        }
        cursor = next
    }
}

// ForecastByIDHandler handles GET /v1/forecasts/{id}
func (s *Server) ForecastByIDHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    id := strings.TrimPrefix(r.URL.Path, "/v1/forecasts/")
    if id == "" || strings.Contains(id, "/") {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    p := s.getPrincipal(r)
    f, err := s.Store.GetForecast(r.Context(), p.Tenant, id)
    if err != nil {
        writePipelineProblem(w, err, r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, f)
}

// PlansHandler handles POST/GET /v1/plans
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        s.createPlan(w, r)
    case http.MethodGet:
        p := s.getPrincipal(r)
        cursor := r.URL.Query().Get("cursor")
        limit := 50
        if v := r.URL.Query().Get("limit"); v != "" {
            fmt.Sscanf(v, "%d", &limit)
        }
        items, next, err := s.Store.ListPlans(r.Context(), p.Tenant, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
    p := s.getPrincipal(r)
    if !p.CanPlan() {
        writeProblem(w, http.StatusForbidden, "Forbidden", "planner or admin required", r.URL.Path)
        return
    }
    var req model.PlanRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validatePlanRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
        return
    }
    if req.TenantID == "" {
        req.TenantID = p.Tenant
    }
    f, err := s.Store.GetForecast(r.Context(), req.TenantID, req.ForecastID)
    if err != nil {
        writePipelineProblem(w, err, r.URL.Path)
        return
    }
    cfg := s.planConfig(req)

    solveStart := time.Now()
    prob, err := alloc.Formulate(f.Rows, alloc.Config(cfg))
    if err != nil {
        metrics.Plans.WithLabelValues("error").Inc()
        writePipelineProblem(w, err, r.URL.Path)
        return
    }
    sol, err := alloc.Solve(prob)
    metrics.SolveDuration.Observe(time.Since(solveStart).Seconds())
    if err != nil {
        metrics.Plans.WithLabelValues("error").Inc()
        writePipelineProblem(w, err, r.URL.Path)
        return
    }
    metrics.Plans.WithLabelValues(sol.Status).Inc()

    kpis := kpi.Summarize(sol.Rows, horizonRows(f.Rows, sol.Rows))
    kpis.TotalCost = &sol.Objective

    plan := model.Plan{
        ID:         "p_" + uuid.New().String(),
        TenantID:   req.TenantID,
        ForecastID: f.ID,
        Config:     cfg,
        Rows:       sol.Rows,
        Objective:  sol.Objective,
        KPIs:       kpis,
        Status:     sol.Status,
        CreatedAt:  time.Now().UTC(),
    }
    if err := s.Store.SavePlan(r.Context(), plan); err != nil {
        writeProblem(w, http.StatusInternalServerError, "Save plan failed", err.Error(), r.URL.Path)
        return
    }
    summary := map[string]any{"planId": plan.ID, "forecastId": f.ID, "status": plan.Status, "objective": plan.Objective}
    s.Pub.Emit(r.Context(), plan.TenantID, webhooks.EventPlanCompleted, summary)
    s.Broker.Publish(plan.TenantID, StreamEvent{Type: webhooks.EventPlanCompleted, Data: summary})
    writeJSON(w, http.StatusCreated, plan)
}

// planConfig applies request overrides onto the configured defaults. Zero
// means "use the default"; validation already rejected negatives.
func (s *Server) planConfig(req model.PlanRequest) model.PlanConfig {
    cfg := model.PlanConfig{
        CostPerDriver:     s.Cfg.Plan.CostPerDriver,
        LatePenalty:       s.Cfg.Plan.LatePenalty,
        CapacityPerDriver: s.Cfg.Plan.CapacityPerDriver,
        HoursToOptimize:   s.Cfg.Plan.HoursToOptimize,
    }
    if req.CostPerDriver > 0 {
        cfg.CostPerDriver = req.CostPerDriver
    }
    if req.LatePenalty > 0 {
        cfg.LatePenalty = req.LatePenalty
    }
    if req.CapacityPerDriver > 0 {
        cfg.CapacityPerDriver = req.CapacityPerDriver
    }
    if req.HoursToOptimize > 0 {
        cfg.HoursToOptimize = req.HoursToOptimize
    }
    return cfg
}

// horizonRows restricts the forecast to the (hour, zone) cells the solve
// actually covered, so KPI denominators match the optimized horizon.
func horizonRows(forecastRows []model.ForecastRow, allocRows []model.AllocationRow) []model.ForecastRow {
    covered := make(map[alloc.Pair]bool, len(allocRows))
    for _, a := range allocRows {
        covered[alloc.Pair{Hour: a.Hour, ZoneID: a.ZoneID}] = true
    }
    out := make([]model.ForecastRow, 0, len(allocRows))
    for _, fr := range forecastRows {
        if covered[alloc.Pair{Hour: fr.Hour, ZoneID: fr.ZoneID}] {
            out = append(out, fr)
        }
    }
    return out
}

// PlanByIDHandler handles GET /v1/plans/{id} and GET /v1/plans/{id}/kpis
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    rest := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
    if rest == r.URL.Path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
        return
    }
    parts := strings.Split(rest, "/")
    id := parts[0]
    p := s.getPrincipal(r)
    plan, err := s.Store.GetPlan(r.Context(), p.Tenant, id)
    if err != nil {
        writePipelineProblem(w, err, r.URL.Path)
        return
    }
    if len(parts) > 1 {
        if parts[1] == "kpis" {
            writeJSON(w, http.StatusOK, plan.KPIs)
            return
        }
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, plan)
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    p := s.getPrincipal(r)
    switch r.Method {
    case http.MethodPost:
        if !p.IsAdmin() {
            writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
            return
        }
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.TenantID == "" {
            req.TenantID = p.Tenant
        }
        if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
            writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url must be http(s)", r.URL.Path)
            return
        }
        if len(req.Events) == 0 {
            writeProblem(w, http.StatusBadRequest, "Invalid subscription", "events must not be empty", r.URL.Path)
            return
        }
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
            return
        }
        sub.Secret = ""
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        cursor := r.URL.Query().Get("cursor")
        limit := 50
        if v := r.URL.Query().Get("limit"); v != "" {
            fmt.Sscanf(v, "%d", &limit)
        }
        items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
            return
        }
        for i := range items {
            items[i].Secret = ""
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    if id == "" || strings.Contains(id, "/") {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    if r.Method != http.MethodDelete {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    p := s.getPrincipal(r)
    if !p.IsAdmin() {
        writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
        return
    }
    if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil {
        writePipelineProblem(w, err, r.URL.Path)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using the Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil {
            writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
            return
        }
    }
    writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
