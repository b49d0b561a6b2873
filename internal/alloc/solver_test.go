package alloc

import (
    "math"
    "testing"
)

// Staffing scenario: 2 zones x 3 hours, constant demand 10, capacity 4.
// Hiring beats lateness (30 < 50*10/4 per pair), so each pair gets
// ceil(10/4)=3 workers and zero unserved; objective = 3*30*6 = 540.
func TestSolveHiresWhenPenaltyDominates(t *testing.T) {
    cfg := Config{CostPerDriver: 30, LatePenalty: 50, CapacityPerDriver: 4, HoursToOptimize: 24}
    p, err := Formulate(grid(3, 2, 10), cfg)
    if err != nil {
        t.Fatalf("Formulate: %v", err)
    }
    sol, err := Solve(p)
    if err != nil {
        t.Fatalf("Solve: %v", err)
    }
    if sol.Status != StatusOptimal {
        t.Fatalf("status = %s", sol.Status)
    }
    for _, r := range sol.Rows {
        if r.Workers != 3 || r.Unserved != 0 {
            t.Fatalf("row %v/%d: workers=%v unserved=%v", r.Hour, r.ZoneID, r.Workers, r.Unserved)
        }
    }
    if math.Abs(sol.Objective-540) > 1e-6 {
        t.Fatalf("objective = %v, want 540", sol.Objective)
    }
}

// Same grid but capacity 100 and penalty 1: cheaper to eat the lateness
// than to hire anyone. Every pair leaves all 10 orders unserved;
// objective = 1*10*6 = 60.
func TestSolveEatsLatenessWhenCheap(t *testing.T) {
    cfg := Config{CostPerDriver: 30, LatePenalty: 1, CapacityPerDriver: 100, HoursToOptimize: 24}
    p, err := Formulate(grid(3, 2, 10), cfg)
    if err != nil {
        t.Fatalf("Formulate: %v", err)
    }
    sol, err := Solve(p)
    if err != nil {
        t.Fatalf("Solve: %v", err)
    }
    for _, r := range sol.Rows {
        if r.Workers != 0 || r.Unserved != 10 {
            t.Fatalf("row %v/%d: workers=%v unserved=%v", r.Hour, r.ZoneID, r.Workers, r.Unserved)
        }
    }
    if math.Abs(sol.Objective-60) > 1e-6 {
        t.Fatalf("objective = %v, want 60", sol.Objective)
    }
}

// Feasibility law and objective identity over an uneven demand surface.
func TestSolveInvariants(t *testing.T) {
    start := grid(6, 3, 0)
    for i := range start {
        start[i].ForecastOrders = float64((i*7)%23) + 0.5
    }
    cfg := Config{CostPerDriver: 30, LatePenalty: 50, CapacityPerDriver: 4, HoursToOptimize: 4}
    p, err := Formulate(start, cfg)
    if err != nil {
        t.Fatalf("Formulate: %v", err)
    }
    sol, err := Solve(p)
    if err != nil {
        t.Fatalf("Solve: %v", err)
    }
    var workers, unserved float64
    for i, r := range sol.Rows {
        if r.Workers < 0 || r.Unserved < 0 {
            t.Fatalf("negative variable at %d: %+v", i, r)
        }
        if r.Workers*cfg.CapacityPerDriver+r.Unserved < p.Demand(i)-1e-6 {
            t.Fatalf("infeasible row %d: %v*%v+%v < %v", i, r.Workers, cfg.CapacityPerDriver, r.Unserved, p.Demand(i))
        }
        workers += r.Workers
        unserved += r.Unserved
    }
    want := cfg.CostPerDriver*workers + cfg.LatePenalty*unserved
    if math.Abs(sol.Objective-want) > 1e-6 {
        t.Fatalf("objective %v != recomputed %v", sol.Objective, want)
    }
    if unserved > p.TotalDemand()+1e-6 {
        t.Fatalf("unserved %v exceeds total demand %v", unserved, p.TotalDemand())
    }
}

func TestSolveZeroDemand(t *testing.T) {
    p, err := Formulate(grid(2, 2, 0), defaultCfg())
    if err != nil {
        t.Fatalf("Formulate: %v", err)
    }
    sol, err := Solve(p)
    if err != nil {
        t.Fatalf("Solve: %v", err)
    }
    if sol.Objective != 0 {
        t.Fatalf("objective = %v, want 0", sol.Objective)
    }
    for _, r := range sol.Rows {
        if r.Workers != 0 || r.Unserved != 0 {
            t.Fatalf("expected all-zero allocation, got %+v", r)
        }
    }
}
