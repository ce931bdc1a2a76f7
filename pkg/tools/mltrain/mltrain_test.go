package mltrain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBuildClassificationDashboard(t *testing.T) {
	result, err := Build("build 4 ml models")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if !strings.HasPrefix(result, DashboardPrefix) {
		t.Fatalf("missing dashboard prefix: %q", result[:40])
	}

	var payload dashboardPayload
	if err := json.Unmarshal([]byte(strings.TrimPrefix(result, DashboardPrefix)), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	if len(payload.AccuracyChart.Labels) != 4 {
		t.Fatalf("model count = %d, want 4", len(payload.AccuracyChart.Labels))
	}
	if len(payload.AccuracyChart.Train) != 4 || len(payload.AccuracyChart.Test) != 4 {
		t.Fatal("expected train and test scores for all models")
	}
	if !strings.Contains(payload.Summary, "Best Model:") {
		t.Fatalf("summary = %q", payload.Summary)
	}

	// The clusters are well separated, so every model should beat a
	// coin flip comfortably.
	for i, score := range payload.AccuracyChart.Test {
		if score < 0.7 {
			t.Fatalf("model %s test score = %v, want >= 0.7", payload.AccuracyChart.Labels[i], score)
		}
	}

	if len(payload.ConfusionMatrix.Grid) != 2 {
		t.Fatalf("confusion grid rows = %d, want 2", len(payload.ConfusionMatrix.Grid))
	}
	total := 0
	for _, row := range payload.ConfusionMatrix.Grid {
		for _, cell := range row {
			total += cell
		}
	}
	if total != int(float64(numSamples)*testRatio) {
		t.Fatalf("confusion total = %d, want test set size %d", total, int(float64(numSamples)*testRatio))
	}
}

func TestBuildRegressionDashboard(t *testing.T) {
	result, err := Build("build regression models")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	var payload dashboardPayload
	if err := json.Unmarshal([]byte(strings.TrimPrefix(result, DashboardPrefix)), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	if payload.AccuracyChart.Labels[0] != "LinReg" {
		t.Fatalf("first model = %q, want LinReg", payload.AccuracyChart.Labels[0])
	}
	// The target is linear, so the linear model must fit it well.
	if payload.AccuracyChart.Test[0] < 0.9 {
		t.Fatalf("LinReg r2 = %v, want >= 0.9", payload.AccuracyChart.Test[0])
	}
	if len(payload.ConfusionMatrix.Grid) != 0 {
		t.Fatal("regression run should not produce a confusion matrix")
	}
}

func TestBuildPipelineDiagram(t *testing.T) {
	result, err := Build("show the ml pipeline diagram")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if !strings.HasPrefix(result, PipelinePrefix) {
		t.Fatalf("missing pipeline prefix: %q", result[:40])
	}

	var payload pipelinePayload
	if err := json.Unmarshal([]byte(strings.TrimPrefix(result, PipelinePrefix)), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	if len(payload.Nodes) != 4 || len(payload.Edges) != 3 {
		t.Fatalf("nodes/edges = %d/%d, want 4/3", len(payload.Nodes), len(payload.Edges))
	}
	if payload.Title != "ML Data Pipeline" {
		t.Fatalf("title = %q", payload.Title)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	first, err := Build("build 4 ml models")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	second, err := Build("build 4 ml models")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if first != second {
		t.Fatal("expected identical output for identical seed")
	}
}
