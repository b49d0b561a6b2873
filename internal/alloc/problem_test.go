package alloc

import (
    "errors"
    "testing"
    "time"

    "staffcast/internal/model"
)

func grid(hours, zones int, demandPer float64) []model.ForecastRow {
    start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
    var rows []model.ForecastRow
    for h := 0; h < hours; h++ {
        for z := 0; z < zones; z++ {
            rows = append(rows, model.ForecastRow{
                Hour:           start.Add(time.Duration(h) * time.Hour),
                ZoneID:         z,
                ForecastOrders: demandPer,
            })
        }
    }
    return rows
}

func defaultCfg() Config {
    return Config{CostPerDriver: 30, LatePenalty: 50, CapacityPerDriver: 4, HoursToOptimize: 24}
}

func TestFormulateTruncatesHorizon(t *testing.T) {
    cfg := defaultCfg()
    cfg.HoursToOptimize = 5
    p, err := Formulate(grid(48, 3, 10), cfg)
    if err != nil {
        t.Fatalf("Formulate: %v", err)
    }
    if len(p.Pairs()) != 5*3 {
        t.Fatalf("pairs: got %d want 15", len(p.Pairs()))
    }
    // Hour-major ascending order.
    for i := 1; i < len(p.Pairs()); i++ {
        prev, cur := p.Pairs()[i-1], p.Pairs()[i]
        if cur.Hour.Before(prev.Hour) {
            t.Fatalf("pair %d out of order: %v before %v", i, cur.Hour, prev.Hour)
        }
        if cur.Hour.Equal(prev.Hour) && cur.ZoneID <= prev.ZoneID {
            t.Fatalf("pair %d zone out of order", i)
        }
    }
}

func TestFormulateDeterministic(t *testing.T) {
    rows := grid(10, 4, 7.5)
    // Shuffle-ish: reverse the input; horizon selection must not care.
    rev := make([]model.ForecastRow, len(rows))
    for i, r := range rows {
        rev[len(rows)-1-i] = r
    }
    a, err := Formulate(rows, defaultCfg())
    if err != nil {
        t.Fatalf("Formulate a: %v", err)
    }
    b, err := Formulate(rev, defaultCfg())
    if err != nil {
        t.Fatalf("Formulate b: %v", err)
    }
    if len(a.Pairs()) != len(b.Pairs()) {
        t.Fatalf("pair count differs: %d vs %d", len(a.Pairs()), len(b.Pairs()))
    }
    for i := range a.Pairs() {
        if a.Pairs()[i] != b.Pairs()[i] || a.Demand(i) != b.Demand(i) {
            t.Fatalf("index differs at %d: %+v/%v vs %+v/%v", i, a.Pairs()[i], a.Demand(i), b.Pairs()[i], b.Demand(i))
        }
    }
}

func TestFormulateMissingCell(t *testing.T) {
    rows := grid(3, 2, 10)
    // Punch a hole in the grid: drop (hour 1, zone 1).
    var holed []model.ForecastRow
    for _, r := range rows {
        if r.ZoneID == 1 && r.Hour.Hour() == 1 {
            continue
        }
        holed = append(holed, r)
    }
    _, err := Formulate(holed, defaultCfg())
    var miss *MissingForecastError
    if !errors.As(err, &miss) {
        t.Fatalf("err = %v, want MissingForecastError", err)
    }
    if miss.Pair.ZoneID != 1 {
        t.Fatalf("reported pair %+v", miss.Pair)
    }
}

func TestFormulateRejectsBadConfig(t *testing.T) {
    cases := []Config{
        {CostPerDriver: 30, LatePenalty: 50, CapacityPerDriver: 0, HoursToOptimize: 24},
        {CostPerDriver: -1, LatePenalty: 50, CapacityPerDriver: 4, HoursToOptimize: 24},
        {CostPerDriver: 30, LatePenalty: 50, CapacityPerDriver: 4, HoursToOptimize: 0},
    }
    for i, cfg := range cases {
        if _, err := Formulate(grid(2, 2, 1), cfg); err == nil {
            t.Errorf("case %d: expected config error", i)
        }
    }
}

func TestFormulateEmptyForecast(t *testing.T) {
    if _, err := Formulate(nil, defaultCfg()); err == nil {
        t.Fatal("expected error for empty forecast")
    }
}
