// Package gen produces synthetic order-event streams for development and
// load testing. The event shape matches real ingested orders exactly.
package gen

import (
    "fmt"
    "math"
    "math/rand/v2"
    "time"

    "gonum.org/v1/gonum/stat/distuv"

    "staffcast/internal/model"
)

// Rush hours carry extra demand and inflated service times.
var rushHours = map[int]bool{7: true, 8: true, 9: true, 16: true, 17: true, 18: true}

const (
    baseDemandLambda = 3.0 // Poisson mean per hour/zone
    rushDemandLambda = 4.0 // additional Poisson mean during rush
    serviceMeanMin   = 25.0
    serviceStddevMin = 5.0
    rushInflation    = 1.4
    minServiceMin    = 10.0
)

type Config struct {
    Start time.Time
    End   time.Time // inclusive
    Zones int
}

// Generate simulates hourly demand for every zone between Start and End.
// The random source is passed in, never taken from package-global state, so
// two calls with equal seeds produce identical streams and concurrent runs
// are independent.
func Generate(cfg Config, src rand.Source) ([]model.OrderEvent, error) {
    if cfg.Zones <= 0 {
        return nil, fmt.Errorf("zones must be positive, got %d", cfg.Zones)
    }
    if cfg.End.Before(cfg.Start) {
        return nil, fmt.Errorf("end %s before start %s", cfg.End.Format(time.RFC3339), cfg.Start.Format(time.RFC3339))
    }
    rng := rand.New(src)
    basePois := distuv.Poisson{Lambda: baseDemandLambda, Src: src}
    rushPois := distuv.Poisson{Lambda: rushDemandLambda, Src: src}
    service := distuv.Normal{Mu: serviceMeanMin, Sigma: serviceStddevMin, Src: src}

    var events []model.OrderEvent
    for ts := cfg.Start.Truncate(time.Hour); !ts.After(cfg.End); ts = ts.Add(time.Hour) {
        rush := rushHours[ts.Hour()]
        for zone := 0; zone < cfg.Zones; zone++ {
            n := int(basePois.Rand())
            if rush {
                n += int(rushPois.Rand())
            }
            for i := 0; i < n; i++ {
                events = append(events, model.OrderEvent{
                    Timestamp:       ts,
                    ZoneID:          zone,
                    OrderID:         fmt.Sprintf("O%09d", rng.IntN(1_000_000_000)),
                    DeliveryTimeMin: serviceTime(&service, rush),
                })
            }
        }
    }
    return events, nil
}

// serviceTime draws a delivery duration in minutes, inflated during rush
// hours and floored at the minimum feasible time.
func serviceTime(dist *distuv.Normal, rush bool) float64 {
    t := dist.Rand()
    if rush {
        t *= rushInflation
    }
    return math.Max(minServiceMin, t)
}
