package alloc

import (
    "fmt"

    "github.com/draffensperger/golp"

    "staffcast/internal/model"
)

// Solution statuses. Suboptimal solutions are returned with their rows; the
// caller decides whether a time-limited solve is acceptable.
const (
    StatusOptimal    = "optimal"
    StatusSuboptimal = "suboptimal"
)

// Solution is a successful solve: one row per variable pair plus the
// objective value at that assignment.
type Solution struct {
    Status    string
    Rows      []model.AllocationRow
    Objective float64
}

// SolveError reports a non-optimal solver outcome together with the horizon
// and configuration that produced it. Infeasibility cannot occur for this
// formulation (unserved can absorb any demand) and unboundedness cannot
// occur with non-negative costs, but both are handled rather than assumed
// away.
type SolveError struct {
    Status string // infeasible, unbounded, or the raw solver code
    Pairs  int
    Config Config
}

func (e *SolveError) Error() string {
    return fmt.Sprintf("solver returned %s for %d (hour, zone) pairs (capacity=%v cost=%v penalty=%v)",
        e.Status, e.Pairs, e.Config.CapacityPerDriver, e.Config.CostPerDriver, e.Config.LatePenalty)
}

// Solve hands the formulated problem to lp_solve and maps the result back
// through the problem's pair index. Variables are integer: a worker
// allocation is a whole number of people.
//
// Column layout: pair i owns columns 2i (workers) and 2i+1 (unserved).
// lp_solve's default column bounds are [0, +inf), which is exactly the
// non-negativity the formulation needs.
func Solve(p *Problem) (*Solution, error) {
    n := len(p.pairs)
    lp := golp.NewLP(0, 2*n)
    for i, pr := range p.pairs {
        lp.SetColName(2*i, fmt.Sprintf("w_%s_%d", pr.Hour.Format("2006010215"), pr.ZoneID))
        lp.SetColName(2*i+1, fmt.Sprintf("u_%s_%d", pr.Hour.Format("2006010215"), pr.ZoneID))
        lp.SetInt(2*i, true)
        lp.SetInt(2*i+1, true)
    }

    // workers*capacity + unserved >= demand, one constraint per pair
    for i := 0; i < n; i++ {
        entries := []golp.Entry{
            {Col: 2 * i, Val: p.cfg.CapacityPerDriver},
            {Col: 2*i + 1, Val: 1.0},
        }
        if err := lp.AddConstraintSparse(entries, golp.GE, p.demand[i]); err != nil {
            return nil, fmt.Errorf("add constraint %d: %w", i, err)
        }
    }

    obj := make([]float64, 2*n)
    for i := 0; i < n; i++ {
        obj[2*i] = p.cfg.CostPerDriver
        obj[2*i+1] = p.cfg.LatePenalty
    }
    lp.SetObjFn(obj) // minimize is the default sense

    switch st := lp.Solve(); st {
    case golp.OPTIMAL:
        return extract(p, lp, StatusOptimal), nil
    case golp.SUBOPTIMAL:
        return extract(p, lp, StatusSuboptimal), nil
    case golp.INFEASIBLE:
        return nil, &SolveError{Status: "infeasible", Pairs: n, Config: p.cfg}
    case golp.UNBOUNDED:
        return nil, &SolveError{Status: "unbounded", Pairs: n, Config: p.cfg}
    default:
        return nil, &SolveError{Status: fmt.Sprintf("status %d", st), Pairs: n, Config: p.cfg}
    }
}

func extract(p *Problem, lp *golp.LP, status string) *Solution {
    vals := lp.Variables()
    rows := make([]model.AllocationRow, len(p.pairs))
    for i, pr := range p.pairs {
        rows[i] = model.AllocationRow{
            Hour:     pr.Hour,
            ZoneID:   pr.ZoneID,
            Workers:  vals[2*i],
            Unserved: vals[2*i+1],
        }
    }
    return &Solution{Status: status, Rows: rows, Objective: lp.Objective()}
}
