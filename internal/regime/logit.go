package regime

import (
	"errors"
	"math"
)

// ErrDegenerateFit marks a training window whose labels are all one class.
// The classifier recovers by substituting the window's class value.
var ErrDegenerateFit = errors.New("degenerate label distribution in training window")

// logitModel is a binary logistic regression fit by full-batch gradient
// descent. Zero initialization, fixed step and iteration count: the fit is
// fully deterministic, so repeated runs produce bit-identical ledgers.
type logitModel struct {
	weights []float64
	bias    float64

	// Standardization parameters from the training window only
	means []float64
	stds  []float64
}

const (
	gdIterations = 200
	gdLearnRate  = 0.1
)

// fitLogit trains on rows X (n x d) with binary labels y. Returns
// ErrDegenerateFit if y contains a single class.
func fitLogit(X [][]float64, y []int) (*logitModel, error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, errors.New("empty or mismatched training data")
	}
	d := len(X[0])

	ones := 0
	for _, label := range y {
		ones += label
	}
	if ones == 0 || ones == n {
		return nil, ErrDegenerateFit
	}

	means, stds := columnMoments(X)
	scaled := make([][]float64, n)
	for i, row := range X {
		scaled[i] = standardizeRow(row, means, stds)
	}

	m := &logitModel{
		weights: make([]float64, d),
		bias:    0,
		means:   means,
		stds:    stds,
	}

	grad := make([]float64, d)
	for iter := 0; iter < gdIterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0

		for i, row := range scaled {
			p := sigmoid(dot(m.weights, row) + m.bias)
			diff := p - float64(y[i])
			for j := range row {
				grad[j] += diff * row[j]
			}
			gradBias += diff
		}

		scale := gdLearnRate / float64(n)
		for j := range m.weights {
			m.weights[j] -= scale * grad[j]
		}
		m.bias -= scale * gradBias
	}

	return m, nil
}

// predict returns P(high | x) for a raw (unstandardized) feature vector
func (m *logitModel) predict(x []float64) float64 {
	return sigmoid(dot(m.weights, standardizeRow(x, m.means, m.stds)) + m.bias)
}

func columnMoments(X [][]float64) (means, stds []float64) {
	n := len(X)
	d := len(X[0])
	means = make([]float64, d)
	stds = make([]float64, d)

	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}
	for _, row := range X {
		for j, v := range row {
			diff := v - means[j]
			stds[j] += diff * diff
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / float64(n))
	}
	return means, stds
}

func standardizeRow(row, means, stds []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if stds[j] > 0 {
			out[j] = (v - means[j]) / stds[j]
		}
	}
	return out
}

func sigmoid(z float64) float64 {
	// Clamp to keep exp finite; probabilities saturate well before ±30.
	if z > 30 {
		return 1
	}
	if z < -30 {
		return 0
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
