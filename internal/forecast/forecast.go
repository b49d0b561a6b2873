// Package forecast trains a demand model on historical hourly demand and
// projects it onto a future zone × hour grid.
package forecast

import (
    "errors"
    "fmt"
    "math"
    "time"

    "staffcast/internal/demand"
    "staffcast/internal/model"
)

// ErrMissingHorizonStart is returned when a forecast is requested without an
// explicit anchor; forecasts implicitly anchored to "now" are disallowed.
var ErrMissingHorizonStart = errors.New("horizonStart is required")

// HoldoutFraction is the trailing share of the historical series reserved
// for MAE evaluation. The split is chronological: shuffling would leak
// future hours into training.
const HoldoutFraction = 0.25

// Model wraps a fitted Regressor.
type Model struct {
    reg Regressor
}

// featureRow builds the model input for one hour/zone cell. The calendar
// features come from demand.Calendar so training and prediction can never
// derive them differently.
func featureRow(ts time.Time, zoneID int) []float64 {
    h, d, wk := demand.Calendar(ts)
    w := 0.0
    if wk {
        w = 1
    }
    return []float64{float64(h), float64(d), w, float64(zoneID)}
}

// Train fits reg on the historical series and reports mean absolute error
// on the chronological holdout segment. Pass nil to use the default
// least-squares regressor.
func Train(historical []model.HourlyDemand, reg Regressor) (*Model, float64, error) {
    if reg == nil {
        reg = NewLeastSquares()
    }
    if len(historical) < 8 {
        return nil, 0, fmt.Errorf("need at least 8 hourly samples, have %d", len(historical))
    }
    split := len(historical) - int(math.Round(float64(len(historical))*HoldoutFraction))
    if split <= 0 || split >= len(historical) {
        split = len(historical) * 3 / 4
    }
    features := make([][]float64, len(historical))
    target := make([]float64, len(historical))
    for i, h := range historical {
        features[i] = featureRow(h.Hour, h.ZoneID)
        target[i] = float64(h.Orders)
    }
    if err := reg.Fit(features[:split], target[:split]); err != nil {
        return nil, 0, fmt.Errorf("fit: %w", err)
    }
    preds, err := reg.Predict(features[split:])
    if err != nil {
        return nil, 0, fmt.Errorf("holdout predict: %w", err)
    }
    mae := 0.0
    for i, p := range preds {
        mae += math.Abs(p - target[split+i])
    }
    mae /= float64(len(preds))
    return &Model{reg: reg}, mae, nil
}

// Predict builds the full zones × periods grid of consecutive hourly slots
// starting at horizonStart and scores every cell. The grid has exactly
// periods × len(zones) rows with no gaps or duplicates. Forecast values are
// continuous; negative regression output is clamped to zero, nothing is
// rounded.
func Predict(m *Model, zones []int, horizonStart time.Time, periods int) ([]model.ForecastRow, error) {
    if horizonStart.IsZero() {
        return nil, ErrMissingHorizonStart
    }
    if periods <= 0 {
        return nil, fmt.Errorf("periods must be positive, got %d", periods)
    }
    if len(zones) == 0 {
        return nil, errors.New("at least one zone is required")
    }
    start := demand.TruncateHour(horizonStart)
    rows := make([]model.ForecastRow, 0, periods*len(zones))
    features := make([][]float64, 0, periods*len(zones))
    for p := 0; p < periods; p++ {
        ts := start.Add(time.Duration(p) * time.Hour)
        h, d, wk := demand.Calendar(ts)
        for _, z := range zones {
            rows = append(rows, model.ForecastRow{
                Hour:      ts,
                ZoneID:    z,
                HourOfDay: h,
                DayOfWeek: d,
                IsWeekend: wk,
            })
            features = append(features, featureRow(ts, z))
        }
    }
    preds, err := m.reg.Predict(features)
    if err != nil {
        return nil, fmt.Errorf("predict: %w", err)
    }
    for i := range rows {
        rows[i].ForecastOrders = math.Max(0, preds[i])
    }
    return rows, nil
}
