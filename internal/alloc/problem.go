// Package alloc formulates and solves the per-hour, per-zone worker
// allocation problem over a bounded planning horizon.
package alloc

import (
    "fmt"
    "sort"
    "time"

    "staffcast/internal/model"
)

// Config carries the cost and capacity parameters of one formulation.
type Config struct {
    CostPerDriver     float64
    LatePenalty       float64
    CapacityPerDriver float64
    HoursToOptimize   int
}

func (c Config) validate() error {
    if c.CapacityPerDriver <= 0 {
        return fmt.Errorf("capacityPerDriver must be positive, got %v", c.CapacityPerDriver)
    }
    if c.CostPerDriver < 0 || c.LatePenalty < 0 {
        return fmt.Errorf("costs must be non-negative (costPerDriver=%v latePenalty=%v)", c.CostPerDriver, c.LatePenalty)
    }
    if c.HoursToOptimize <= 0 {
        return fmt.Errorf("hoursToOptimize must be positive, got %d", c.HoursToOptimize)
    }
    return nil
}

// Pair identifies one (hour, zone) cell of the truncated horizon.
type Pair struct {
    Hour   time.Time
    ZoneID int
}

// MissingForecastError reports a hole in the forecast grid: the horizon ×
// zone cross product referenced a cell with no forecast row. Missing demand
// is never treated as zero demand; that would understate staffing.
type MissingForecastError struct {
    Pair Pair
}

func (e *MissingForecastError) Error() string {
    return fmt.Sprintf("no forecast row for hour %s zone %d", e.Pair.Hour.Format(time.RFC3339), e.Pair.ZoneID)
}

// Problem is the formulated allocation problem: a dense (hour, zone) index
// with one demand value per pair, plus the cost configuration. It is the
// opaque handle consumed by Solve. Each Problem owns its index; concurrent
// formulate/solve cycles never share state.
type Problem struct {
    cfg    Config
    pairs  []Pair    // hour-major, zone-minor
    demand []float64 // demand[i] belongs to pairs[i]
}

// Formulate truncates the forecast to its first cfg.HoursToOptimize distinct
// timestamps (ascending, so repeated calls yield the same horizon), takes
// every zone present, and builds one variable pair and one feasibility
// constraint per (hour, zone) cell:
//
//	workers*capacity + unserved >= demand
//
// A cell of the cross product absent from the forecast is a
// *MissingForecastError.
func Formulate(forecast []model.ForecastRow, cfg Config) (*Problem, error) {
    if err := cfg.validate(); err != nil {
        return nil, err
    }
    if len(forecast) == 0 {
        return nil, fmt.Errorf("forecast is empty")
    }

    byPair := make(map[Pair]float64, len(forecast))
    hourSet := map[time.Time]struct{}{}
    zoneSet := map[int]struct{}{}
    for _, r := range forecast {
        byPair[Pair{r.Hour, r.ZoneID}] = r.ForecastOrders
        hourSet[r.Hour] = struct{}{}
        zoneSet[r.ZoneID] = struct{}{}
    }
    hours := make([]time.Time, 0, len(hourSet))
    for h := range hourSet {
        hours = append(hours, h)
    }
    sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })
    if len(hours) > cfg.HoursToOptimize {
        hours = hours[:cfg.HoursToOptimize]
    }
    zones := make([]int, 0, len(zoneSet))
    for z := range zoneSet {
        zones = append(zones, z)
    }
    sort.Ints(zones)

    p := &Problem{
        cfg:    cfg,
        pairs:  make([]Pair, 0, len(hours)*len(zones)),
        demand: make([]float64, 0, len(hours)*len(zones)),
    }
    for _, h := range hours {
        for _, z := range zones {
            pr := Pair{h, z}
            d, ok := byPair[pr]
            if !ok {
                return nil, &MissingForecastError{Pair: pr}
            }
            p.pairs = append(p.pairs, pr)
            p.demand = append(p.demand, d)
        }
    }
    return p, nil
}

// Pairs returns the (hour, zone) index in variable order.
func (p *Problem) Pairs() []Pair { return p.pairs }

// Demand returns the forecast demand for pair i.
func (p *Problem) Demand(i int) float64 { return p.demand[i] }

// Config returns the configuration the problem was formulated with.
func (p *Problem) Config() Config { return p.cfg }

// TotalDemand is the forecast demand summed over the truncated horizon.
func (p *Problem) TotalDemand() float64 {
    t := 0.0
    for _, d := range p.demand {
        t += d
    }
    return t
}
