// Package kpi derives summary indicators from a solved allocation.
package kpi

import (
    "gonum.org/v1/gonum/floats"

    "staffcast/internal/model"
)

// Summarize computes KPIs from an allocation and the forecast slice it was
// optimized against. Pass the same forecast slice that fed the formulation;
// a superset inflates the denominator and deflates the on-time rate.
//
// TotalCost is left nil: the solver objective is the single source of truth
// for cost and the caller copies it in. A forecast with zero total demand
// yields a nil OnTimeRate: a quiet period, not an error.
func Summarize(alloc []model.AllocationRow, forecast []model.ForecastRow) model.KPISet {
    workers := make([]float64, len(alloc))
    unserved := make([]float64, len(alloc))
    for i, r := range alloc {
        workers[i] = r.Workers
        unserved[i] = r.Unserved
    }
    demand := make([]float64, len(forecast))
    for i, r := range forecast {
        demand[i] = r.ForecastOrders
    }

    k := model.KPISet{
        LateOrders:  floats.Sum(unserved),
        DriverHours: floats.Sum(workers),
    }
    if total := floats.Sum(demand); total > 0 {
        rate := 1 - k.LateOrders/total
        k.OnTimeRate = &rate
    }
    return k
}
