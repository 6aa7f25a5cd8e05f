package repository

import (
	"context"
	"testing"

	"github.com/medtext/labguard/constants"
	"github.com/medtext/labguard/internal/entity"
)

func openTestStore(t *testing.T) *SQLiteRunStore {
	t.Helper()
	store, err := OpenSQLiteRunStore(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteRunStore_CreateAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := &entity.ProcessingRun{
		InputType: "text",
		InputData: "glucose 95 mg/dl",
	}
	if err := store.Create(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	if run.ID.String() == "" {
		t.Fatal("create must assign an ID")
	}

	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(constants.RunStatusQueued) {
		t.Errorf("status = %q, want queued", got.Status)
	}
	if got.InputData != run.InputData {
		t.Errorf("input_data = %q", got.InputData)
	}
	if got.FinishedAt != nil {
		t.Error("finished_at must be unset on a fresh run")
	}
}

func TestSQLiteRunStore_StatusTransitions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := &entity.ProcessingRun{InputType: "text", InputData: "glucose 95 mg/dl"}
	if err := store.Create(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, s := range []constants.RunStatus{
		constants.RunStatusRunning,
		constants.RunStatusExtractOK,
		constants.RunStatusNormalizeOK,
	} {
		if err := store.UpdateStatus(ctx, run.ID, s); err != nil {
			t.Fatalf("update to %s: %v", s, err)
		}
		got, err := store.GetByID(ctx, run.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != string(s) {
			t.Errorf("status = %q, want %q", got.Status, s)
		}
	}
}

func TestSQLiteRunStore_FinishSuccess(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := &entity.ProcessingRun{InputType: "text", InputData: "glucose 95 mg/dl"}
	if err := store.Create(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	payload := []byte(`{"result":{"status":"ok"}}`)
	if err := store.FinishSuccess(ctx, run.ID, 0.92, 3, payload); err != nil {
		t.Fatalf("finish success: %v", err)
	}

	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(constants.RunStatusCompleted) {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.TestCount == nil || *got.TestCount != 3 {
		t.Errorf("test_count = %v, want 3", got.TestCount)
	}
	if got.Confidence == nil || *got.Confidence < 0.91 || *got.Confidence > 0.93 {
		t.Errorf("confidence = %v, want ~0.92", got.Confidence)
	}
	if string(got.OutputJSON) != string(payload) {
		t.Errorf("output_json = %s", got.OutputJSON)
	}
	if got.FinishedAt == nil {
		t.Error("finished_at must be set")
	}
	if got.ElapsedMS == nil || *got.ElapsedMS < 0 {
		t.Errorf("elapsed_ms = %v", got.ElapsedMS)
	}
}

func TestSQLiteRunStore_FinishFailure(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := &entity.ProcessingRun{InputType: "text", InputData: "short"}
	if err := store.Create(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.FinishFailure(ctx, run.ID, "confidence below acceptable threshold", nil); err != nil {
		t.Fatalf("finish failure: %v", err)
	}

	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(constants.RunStatusFailed) {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.Reason == nil || *got.Reason != "confidence below acceptable threshold" {
		t.Errorf("reason = %v", got.Reason)
	}
	if got.Confidence != nil {
		t.Errorf("confidence should stay unset on failure, got %v", *got.Confidence)
	}
}
