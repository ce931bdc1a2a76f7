// Package mltrain trains a small model zoo on synthetic data and emits
// dashboard or pipeline-diagram payloads for the kernel GUI.
package mltrain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

const (
	DashboardPrefix = "GUI_ML_DASHBOARD:"
	PipelinePrefix  = "GUI_PIPELINE_DIAGRAM:"

	numSamples  = 400
	numFeatures = 20
	testRatio   = 0.25
	randomSeed  = 42
)

type dashboardPayload struct {
	Summary         string          `json:"summary"`
	AccuracyChart   accuracyChart   `json:"accuracy_chart"`
	ConfusionMatrix confusionMatrix `json:"confusion_matrix"`
}

type accuracyChart struct {
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Train  []float64 `json:"train"`
	Test   []float64 `json:"test"`
}

type confusionMatrix struct {
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Grid   [][]int  `json:"grid"`
}

type pipelinePayload struct {
	Title string         `json:"title"`
	Nodes []pipelineNode `json:"nodes"`
	Edges []pipelineEdge `json:"edges"`
}

type pipelineNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	W     int    `json:"w"`
	H     int    `json:"h"`
	Color string `json:"color"`
}

type pipelineEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type model interface {
	Fit(X [][]float64, y []float64)
	Predict(x []float64) float64
}

// Build trains four models on a deterministic synthetic dataset and
// returns a dashboard payload, or a pipeline diagram when the request
// asks for one.
func Build(instructions string) (string, error) {
	lower := strings.ToLower(instructions)
	isRegression := strings.Contains(lower, "regression")

	rng := rand.New(rand.NewSource(randomSeed))

	var X [][]float64
	var y []float64
	var models []namedModel
	if isRegression {
		X, y = makeRegression(rng)
		models = []namedModel{
			{"LinReg", newLinearRegressor(0.05, 200)},
			{"SVM", newLinearRegressor(0.01, 400)},
			{"RF", newForest(rng, 10, false)},
			{"DT", newStump(false)},
		}
	} else {
		X, y = makeClassification(rng)
		models = []namedModel{
			{"LogReg", newLogistic(0.1, 200)},
			{"SVM", newHinge(0.05, 200)},
			{"RF", newForest(rng, 20, true)},
			{"DT", newStump(true)},
		}
	}

	trainX, trainY, testX, testY := split(rng, X, y)
	scaler := fitScaler(trainX)
	trainX = scaler.transform(trainX)
	testX = scaler.transform(testX)

	labels := make([]string, 0, len(models))
	trainScores := make([]float64, 0, len(models))
	testScores := make([]float64, 0, len(models))

	bestName := ""
	bestScore := math.Inf(-1)
	var bestPredictions []float64

	for _, entry := range models {
		entry.model.Fit(trainX, trainY)

		trainPred := predictAll(entry.model, trainX)
		testPred := predictAll(entry.model, testX)

		var trainScore, testScore float64
		if isRegression {
			trainScore = r2Score(trainY, trainPred)
			testScore = r2Score(testY, testPred)
		} else {
			trainScore = accuracy(trainY, trainPred)
			testScore = accuracy(testY, testPred)
		}

		if testScore > bestScore {
			bestScore = testScore
			bestName = entry.name
			bestPredictions = testPred
		}

		labels = append(labels, entry.name)
		trainScores = append(trainScores, round2(trainScore))
		testScores = append(testScores, round2(testScore))
	}

	if strings.Contains(lower, "pipeline") || strings.Contains(lower, "diagram") {
		return renderPipeline(bestName, bestScore)
	}

	matrix := confusionMatrix{
		Title:  fmt.Sprintf("Confusion Matrix (%s)", bestName),
		Labels: []string{"Class 0", "Class 1"},
		Grid:   [][]int{},
	}
	if !isRegression {
		matrix.Grid = confusion(testY, bestPredictions)
	}

	payload := dashboardPayload{
		Summary: fmt.Sprintf("Trained 4 Models on %d samples.\nBest Model: %s (Acc: %.2f)",
			numSamples, bestName, bestScore),
		AccuracyChart: accuracyChart{
			Title:  "Train vs Validation Accuracy",
			Labels: labels,
			Train:  trainScores,
			Test:   testScores,
		},
		ConfusionMatrix: matrix,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return DashboardPrefix + string(body), nil
}

type namedModel struct {
	name  string
	model model
}

func renderPipeline(bestName string, bestScore float64) (string, error) {
	payload := pipelinePayload{
		Title: "ML Data Pipeline",
		Nodes: []pipelineNode{
			{ID: "n1", Label: fmt.Sprintf("Syn Data\n(%dx%d)", numSamples, numFeatures), X: 40, Y: 200, W: 120, H: 60, Color: "blue"},
			{ID: "n2", Label: "Scaler\n(Standard)", X: 200, Y: 200, W: 120, H: 60, Color: "green"},
			{ID: "n3", Label: "Split\n(75/25)", X: 360, Y: 200, W: 100, H: 60, Color: "yellow"},
			{ID: "n4", Label: fmt.Sprintf("Model: %s\n(%.2f)", bestName, bestScore), X: 500, Y: 200, W: 130, H: 60, Color: "red"},
		},
		Edges: []pipelineEdge{
			{From: "n1", To: "n2"},
			{From: "n2", To: "n3"},
			{From: "n3", To: "n4"},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return PipelinePrefix + string(body), nil
}

// makeClassification draws two gaussian clusters with opposite means on
// the informative features.
func makeClassification(rng *rand.Rand) ([][]float64, []float64) {
	const informative = 15

	X := make([][]float64, numSamples)
	y := make([]float64, numSamples)
	for i := range X {
		label := float64(i % 2)
		shift := 1.0
		if label == 0 {
			shift = -1.0
		}

		row := make([]float64, numFeatures)
		for j := range row {
			row[j] = rng.NormFloat64()
			if j < informative {
				row[j] += shift
			}
		}
		X[i] = row
		y[i] = label
	}

	return X, y
}

// makeRegression draws a linear target over random weights plus noise.
func makeRegression(rng *rand.Rand) ([][]float64, []float64) {
	weights := make([]float64, numFeatures)
	for j := range weights {
		weights[j] = rng.NormFloat64()
	}

	X := make([][]float64, numSamples)
	y := make([]float64, numSamples)
	for i := range X {
		row := make([]float64, numFeatures)
		target := 0.0
		for j := range row {
			row[j] = rng.NormFloat64()
			target += row[j] * weights[j]
		}
		X[i] = row
		y[i] = target + 0.1*rng.NormFloat64()
	}

	return X, y
}

func split(rng *rand.Rand, X [][]float64, y []float64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	order := rng.Perm(len(X))
	testCount := int(float64(len(X)) * testRatio)

	for i, idx := range order {
		if i < testCount {
			testX = append(testX, X[idx])
			testY = append(testY, y[idx])
		} else {
			trainX = append(trainX, X[idx])
			trainY = append(trainY, y[idx])
		}
	}

	return trainX, trainY, testX, testY
}

type standardScaler struct {
	mean []float64
	std  []float64
}

func fitScaler(X [][]float64) standardScaler {
	features := len(X[0])
	mean := make([]float64, features)
	std := make([]float64, features)

	for _, row := range X {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(X))
	}

	for _, row := range X {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / float64(len(X)))
		if std[j] == 0 {
			std[j] = 1
		}
	}

	return standardScaler{mean: mean, std: std}
}

func (s standardScaler) transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.mean[j]) / s.std[j]
		}
		out[i] = scaled
	}

	return out
}

func predictAll(m model, X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = m.Predict(row)
	}

	return out
}

func accuracy(truth []float64, pred []float64) float64 {
	correct := 0
	for i := range truth {
		if truth[i] == pred[i] {
			correct++
		}
	}

	return float64(correct) / float64(len(truth))
}

func r2Score(truth []float64, pred []float64) float64 {
	mean := 0.0
	for _, v := range truth {
		mean += v
	}
	mean /= float64(len(truth))

	var ssRes, ssTot float64
	for i := range truth {
		ssRes += (truth[i] - pred[i]) * (truth[i] - pred[i])
		ssTot += (truth[i] - mean) * (truth[i] - mean)
	}
	if ssTot == 0 {
		return 0
	}

	return 1 - ssRes/ssTot
}

func confusion(truth []float64, pred []float64) [][]int {
	grid := [][]int{{0, 0}, {0, 0}}
	for i := range truth {
		grid[int(truth[i])][int(pred[i])]++
	}

	return grid
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
