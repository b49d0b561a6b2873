package api

import (
    "encoding/json"
    "errors"
    "net/http"

    "staffcast/internal/alloc"
    "staffcast/internal/forecast"
    "staffcast/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
    Type     string `json:"type"`
    Title    string `json:"title"`
    Status   int    `json:"status"`
    Detail   string `json:"detail,omitempty"`
    Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
    writeJSON(w, status, Problem{
        Type:     "about:blank",
        Title:    title,
        Status:   status,
        Detail:   detail,
        Instance: instance,
    })
}

// writePipelineProblem maps pipeline errors onto HTTP statuses: bad inputs
// are 400, a forecast grid hole is 422 (the stored data is inconsistent, not
// the request), and solver failures are 500.
func writePipelineProblem(w http.ResponseWriter, err error, instance string) {
    var missing *alloc.MissingForecastError
    var solveErr *alloc.SolveError
    switch {
    case errors.Is(err, forecast.ErrMissingHorizonStart):
        writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error(), instance)
    case errors.As(err, &missing):
        writeProblem(w, http.StatusUnprocessableEntity, "Forecast grid incomplete", err.Error(), instance)
    case errors.As(err, &solveErr):
        writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), instance)
    case errors.Is(err, store.ErrNotFound):
        writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), instance)
    default:
        writeProblem(w, http.StatusInternalServerError, "Internal error", err.Error(), instance)
    }
}
