package forecast

import (
    "errors"

    "gonum.org/v1/gonum/mat"
)

// Regressor is the external regression capability: fit on a feature matrix
// against a target vector, then score new feature rows. The boosting/tree
// internals of a production model live behind this boundary.
type Regressor interface {
    Fit(features [][]float64, target []float64) error
    Predict(features [][]float64) ([]float64, error)
}

// LeastSquares fits an ordinary least-squares model (with intercept) via a
// thin SVD, taking the minimum-norm solution. Rank-deficient feature
// matrices are common here: a history confined to zone 0 makes the zone
// column all zeros, and a constant series makes every column collinear with
// the intercept. It is the default Regressor implementation.
type LeastSquares struct {
    coef []float64 // intercept followed by one weight per feature
}

func NewLeastSquares() *LeastSquares { return &LeastSquares{} }

var errNotFitted = errors.New("regressor not fitted")

// machEps is the float64 machine epsilon, used for the rank cutoff.
const machEps = 2.220446049250313e-16

func (l *LeastSquares) Fit(features [][]float64, target []float64) error {
    if len(features) == 0 || len(features) != len(target) {
        return errors.New("features and target must be non-empty and equal length")
    }
    rows := len(features)
    cols := len(features[0]) + 1
    if rows < cols {
        return errors.New("not enough samples for least squares fit")
    }
    x := mat.NewDense(rows, cols, nil)
    for i, row := range features {
        x.Set(i, 0, 1) // intercept
        for j, v := range row {
            x.Set(i, j+1, v)
        }
    }

    var svd mat.SVD
    if ok := svd.Factorize(x, mat.SVDThin); !ok {
        return errors.New("svd factorization failed")
    }
    var u, v mat.Dense
    svd.UTo(&u)
    svd.VTo(&v)
    s := svd.Values(nil)

    // Singular values below the cutoff contribute nothing: their directions
    // are unconstrained by the data, so their coefficients stay zero.
    cutoff := float64(rows) * machEps * s[0]

    // z = pinv(S) * U^T * y
    z := make([]float64, len(s))
    for i, sv := range s {
        if sv <= cutoff {
            continue
        }
        dot := 0.0
        for r := 0; r < rows; r++ {
            dot += u.At(r, i) * target[r]
        }
        z[i] = dot / sv
    }

    l.coef = make([]float64, cols)
    for i := 0; i < cols; i++ {
        acc := 0.0
        for j := range z {
            acc += v.At(i, j) * z[j]
        }
        l.coef[i] = acc
    }
    return nil
}

func (l *LeastSquares) Predict(features [][]float64) ([]float64, error) {
    if l.coef == nil {
        return nil, errNotFitted
    }
    out := make([]float64, len(features))
    for i, row := range features {
        if len(row) != len(l.coef)-1 {
            return nil, errors.New("feature width does not match fitted model")
        }
        v := l.coef[0]
        for j, f := range row {
            v += l.coef[j+1] * f
        }
        out[i] = v
    }
    return out, nil
}
