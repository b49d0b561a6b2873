package api

import (
    "fmt"
    "strings"
    "time"

    "staffcast/internal/model"
)

func validateForecastRequest(req *model.ForecastRequest) (time.Time, error) {
    if strings.TrimSpace(req.HorizonStart) == "" {
        return time.Time{}, fmt.Errorf("horizonStart is required")
    }
    start, err := time.Parse(time.RFC3339, req.HorizonStart)
    if err != nil {
        return time.Time{}, fmt.Errorf("horizonStart must be RFC3339: %v", err)
    }
    if req.Periods < 0 {
        return time.Time{}, fmt.Errorf("periods must be >= 0")
    }
    for _, z := range req.Zones {
        if z < 0 {
            return time.Time{}, fmt.Errorf("zone ids must be >= 0, got %d", z)
        }
    }
    return start, nil
}

func validatePlanRequest(req *model.PlanRequest) error {
    if strings.TrimSpace(req.ForecastID) == "" {
        return fmt.Errorf("forecastId is required")
    }
    if req.CostPerDriver < 0 {
        return fmt.Errorf("costPerDriver must be >= 0")
    }
    if req.LatePenalty < 0 {
        return fmt.Errorf("latePenalty must be >= 0")
    }
    if req.CapacityPerDriver < 0 {
        return fmt.Errorf("capacityPerDriver must be >= 0")
    }
    if req.HoursToOptimize < 0 {
        return fmt.Errorf("hoursToOptimize must be >= 0")
    }
    return nil
}

func validateSimulateRequest(req *model.SimulateRequest) (start, end time.Time, err error) {
    start, err = time.Parse(time.RFC3339, req.Start)
    if err != nil {
        return start, end, fmt.Errorf("start must be RFC3339: %v", err)
    }
    end, err = time.Parse(time.RFC3339, req.End)
    if err != nil {
        return start, end, fmt.Errorf("end must be RFC3339: %v", err)
    }
    if end.Before(start) {
        return start, end, fmt.Errorf("end must not precede start")
    }
    if end.Sub(start) > 365*24*time.Hour {
        return start, end, fmt.Errorf("window must not exceed one year")
    }
    if req.Zones < 0 {
        return start, end, fmt.Errorf("zones must be >= 0")
    }
    return start, end, nil
}
