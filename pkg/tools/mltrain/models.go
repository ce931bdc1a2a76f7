package mltrain

import (
	"math"
	"math/rand"
	"sort"
)

// logistic is binary logistic regression fit by gradient descent.
type logistic struct {
	lr      float64
	epochs  int
	weights []float64
	bias    float64
}

func newLogistic(lr float64, epochs int) *logistic {
	return &logistic{lr: lr, epochs: epochs}
}

func (m *logistic) Fit(X [][]float64, y []float64) {
	m.weights = make([]float64, len(X[0]))
	m.bias = 0

	for epoch := 0; epoch < m.epochs; epoch++ {
		for i, row := range X {
			p := sigmoid(dot(m.weights, row) + m.bias)
			grad := p - y[i]
			for j, v := range row {
				m.weights[j] -= m.lr * grad * v
			}
			m.bias -= m.lr * grad
		}
	}
}

func (m *logistic) Predict(x []float64) float64 {
	if sigmoid(dot(m.weights, x)+m.bias) >= 0.5 {
		return 1
	}
	return 0
}

// hinge is a linear max-margin classifier trained with subgradient
// descent on hinge loss.
type hinge struct {
	lr      float64
	epochs  int
	weights []float64
	bias    float64
}

func newHinge(lr float64, epochs int) *hinge {
	return &hinge{lr: lr, epochs: epochs}
}

func (m *hinge) Fit(X [][]float64, y []float64) {
	m.weights = make([]float64, len(X[0]))
	m.bias = 0

	const lambda = 0.001
	for epoch := 0; epoch < m.epochs; epoch++ {
		for i, row := range X {
			// Labels move to {-1, +1} for the margin formulation.
			target := 2*y[i] - 1
			margin := target * (dot(m.weights, row) + m.bias)
			for j := range m.weights {
				m.weights[j] -= m.lr * lambda * m.weights[j]
			}
			if margin < 1 {
				for j, v := range row {
					m.weights[j] += m.lr * target * v
				}
				m.bias += m.lr * target
			}
		}
	}
}

func (m *hinge) Predict(x []float64) float64 {
	if dot(m.weights, x)+m.bias >= 0 {
		return 1
	}
	return 0
}

// linearRegressor is ordinary least squares fit by gradient descent.
type linearRegressor struct {
	lr      float64
	epochs  int
	weights []float64
	bias    float64
}

func newLinearRegressor(lr float64, epochs int) *linearRegressor {
	return &linearRegressor{lr: lr, epochs: epochs}
}

func (m *linearRegressor) Fit(X [][]float64, y []float64) {
	m.weights = make([]float64, len(X[0]))
	m.bias = 0
	n := float64(len(X))

	for epoch := 0; epoch < m.epochs; epoch++ {
		gradW := make([]float64, len(m.weights))
		gradB := 0.0
		for i, row := range X {
			residual := dot(m.weights, row) + m.bias - y[i]
			for j, v := range row {
				gradW[j] += residual * v
			}
			gradB += residual
		}
		for j := range m.weights {
			m.weights[j] -= m.lr * gradW[j] / n
		}
		m.bias -= m.lr * gradB / n
	}
}

func (m *linearRegressor) Predict(x []float64) float64 {
	return dot(m.weights, x) + m.bias
}

// stump is a depth-1 decision tree over a single feature threshold.
type stump struct {
	classify  bool
	feature   int
	threshold float64
	left      float64
	right     float64
}

func newStump(classify bool) *stump {
	return &stump{classify: classify}
}

func (m *stump) Fit(X [][]float64, y []float64) {
	bestLoss := math.Inf(1)

	for feature := 0; feature < len(X[0]); feature++ {
		values := make([]float64, len(X))
		for i, row := range X {
			values[i] = row[feature]
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		// Candidate thresholds at quartiles keep fitting cheap.
		for _, q := range []float64{0.25, 0.5, 0.75} {
			threshold := sorted[int(float64(len(sorted)-1)*q)]
			left, right := partitionOutputs(values, y, threshold, m.classify)
			loss := splitLoss(values, y, threshold, left, right)
			if loss < bestLoss {
				bestLoss = loss
				m.feature = feature
				m.threshold = threshold
				m.left = left
				m.right = right
			}
		}
	}
}

func (m *stump) Predict(x []float64) float64 {
	if x[m.feature] <= m.threshold {
		return m.left
	}
	return m.right
}

func partitionOutputs(values []float64, y []float64, threshold float64, classify bool) (float64, float64) {
	var leftSum, rightSum float64
	var leftN, rightN int
	for i, v := range values {
		if v <= threshold {
			leftSum += y[i]
			leftN++
		} else {
			rightSum += y[i]
			rightN++
		}
	}

	left, right := 0.0, 0.0
	if leftN > 0 {
		left = leftSum / float64(leftN)
	}
	if rightN > 0 {
		right = rightSum / float64(rightN)
	}
	if classify {
		left = roundLabel(left)
		right = roundLabel(right)
	}

	return left, right
}

func splitLoss(values []float64, y []float64, threshold float64, left float64, right float64) float64 {
	loss := 0.0
	for i, v := range values {
		pred := right
		if v <= threshold {
			pred = left
		}
		loss += (y[i] - pred) * (y[i] - pred)
	}

	return loss
}

// forest bags stumps over bootstrap samples and aggregates by vote or
// mean.
type forest struct {
	rng      *rand.Rand
	size     int
	classify bool
	trees    []*stump
}

func newForest(rng *rand.Rand, size int, classify bool) *forest {
	return &forest{rng: rng, size: size, classify: classify}
}

func (m *forest) Fit(X [][]float64, y []float64) {
	m.trees = make([]*stump, m.size)
	for t := 0; t < m.size; t++ {
		sampleX := make([][]float64, len(X))
		sampleY := make([]float64, len(y))
		for i := range sampleX {
			idx := m.rng.Intn(len(X))
			sampleX[i] = X[idx]
			sampleY[i] = y[idx]
		}

		tree := newStump(m.classify)
		tree.Fit(sampleX, sampleY)
		m.trees[t] = tree
	}
}

func (m *forest) Predict(x []float64) float64 {
	sum := 0.0
	for _, tree := range m.trees {
		sum += tree.Predict(x)
	}
	mean := sum / float64(len(m.trees))
	if m.classify {
		return roundLabel(mean)
	}

	return mean
}

func dot(a []float64, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}

	return sum
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func roundLabel(v float64) float64 {
	if v >= 0.5 {
		return 1
	}
	return 0
}
