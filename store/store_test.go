package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/epimath/go-epimod/model"
	"github.com/epimath/go-epimod/results"
	"github.com/epimath/go-epimod/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id, modelName string) *results.Results {
	return &results.Results{
		Version: results.SchemaVersion,
		Metadata: results.Metadata{
			RunID:     id,
			Timestamp: time.Date(2021, 3, 15, 12, 0, 0, 0, time.UTC),
			Solver:    "Tsit5",
			Status:    "success",
		},
		Model: results.ModelInfo{
			Name:   modelName,
			States: []string{"S", "I", "R"},
		},
		Simulation: results.Simulation{
			Timespan: [2]float64{0, 100},
			Draws:    3,
		},
		Series: results.Data{
			Timeseries: results.Timeseries{
				Time:   []float64{0, 1, 2},
				States: map[string][]float64{"I": {1, 2, 4}},
			},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	r := sampleRun("run-1", "sir")
	if err := s.SaveRun(ctx, r); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	back, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if back.Metadata.RunID != "run-1" || back.Model.Name != "sir" {
		t.Errorf("round trip lost metadata: %+v", back.Metadata)
	}
	if len(back.Series.Timeseries.States["I"]) != 3 {
		t.Error("round trip lost series")
	}
}

func TestGetMissingRun(t *testing.T) {
	s := newStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	r1 := sampleRun("run-1", "sir")
	r2 := sampleRun("run-2", "seird")
	r2.Metadata.Timestamp = r1.Metadata.Timestamp.Add(time.Hour)
	if err := s.SaveRun(ctx, r1); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.SaveRun(ctx, r2); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	infos, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(infos))
	}
	if infos[0].ID != "run-2" {
		t.Errorf("expected newest first, got %s", infos[0].ID)
	}
	if infos[0].Model != "seird" || infos[0].Draws != 3 {
		t.Errorf("listing incomplete: %+v", infos[0])
	}

	byModel, err := s.RunsForModel(ctx, "sir")
	if err != nil {
		t.Fatalf("runs for model failed: %v", err)
	}
	if len(byModel) != 1 || byModel[0].ID != "run-1" {
		t.Errorf("expected only run-1 for sir, got %+v", byModel)
	}
}

func TestDeleteRun(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, sampleRun("run-1", "sir")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.GetRun(ctx, "run-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}
	if err := s.DeleteRun(ctx, "run-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got: %v", err)
	}
}

func TestSampleChains(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, sampleRun("run-1", "sir")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	samples := model.Samples{
		"beta":  {0.03, 0.035, 0.04},
		"gamma": {0.1, 0.12},
	}
	if err := s.SaveSamples(ctx, "run-1", samples); err != nil {
		t.Fatalf("save samples failed: %v", err)
	}

	back, err := s.GetSamples(ctx, "run-1")
	if err != nil {
		t.Fatalf("get samples failed: %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("expected 2 chains, got %d", len(back))
	}
	beta := back["beta"]
	if len(beta) != 3 || beta[0] != 0.03 || beta[2] != 0.04 {
		t.Errorf("beta chain order lost: %v", beta)
	}
	if len(back["gamma"]) != 2 {
		t.Errorf("gamma chain incomplete: %v", back["gamma"])
	}
}
