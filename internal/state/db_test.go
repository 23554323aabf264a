package state

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func sampleReport() *models.Report {
	return &models.Report{
		RunID: "run-1",
		Goal:  models.Goal{Text: "check the weather", Outcomes: []models.Outcome{"weather_conditions"}},
		Verdict: models.Verdict{
			Achievement: models.GoalAchieved,
			Rationale:   "all 1 outcomes satisfied",
		},
		Chain:   []string{"launch", "weather"},
		Context: map[string]any{"weather_conditions": map[string]any{"wind": 3.5}},
		Steps: []models.StepResult{
			{Capability: "launch", Status: models.StepSuccess, Iteration: 1, Duration: 120 * time.Millisecond},
			{Capability: "weather", Status: models.StepSuccess, Iteration: 1, Duration: 80 * time.Millisecond},
		},
		Iterations: 1,
		Elapsed:    250 * time.Millisecond,
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		StopReason: "achieved",
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestSaveAndGetRun(t *testing.T) {
	db := openTestDB(t)
	report := sampleReport()

	if err := db.SaveReport(report); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	loaded, err := db.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if loaded.Goal.Text != report.Goal.Text {
		t.Errorf("goal = %q, want %q", loaded.Goal.Text, report.Goal.Text)
	}
	if loaded.Verdict.Achievement != models.GoalAchieved {
		t.Errorf("achievement = %s", loaded.Verdict.Achievement)
	}
	if loaded.StopReason != "achieved" {
		t.Errorf("stop reason = %s", loaded.StopReason)
	}
	if len(loaded.Chain) != 2 || loaded.Chain[1] != "weather" {
		t.Errorf("chain = %v", loaded.Chain)
	}
	if len(loaded.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(loaded.Steps))
	}
	if loaded.Steps[0].Capability != "launch" || loaded.Steps[0].Status != models.StepSuccess {
		t.Errorf("step 0 = %+v", loaded.Steps[0])
	}
	if loaded.Steps[1].Duration != 80*time.Millisecond {
		t.Errorf("step 1 duration = %s", loaded.Steps[1].Duration)
	}
}

func TestGetRunNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetRun("missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)

	first := sampleReport()
	first.RunID = "run-old"
	first.StartedAt = time.Now().UTC().Add(-time.Hour)
	second := sampleReport()
	second.RunID = "run-new"
	second.StartedAt = time.Now().UTC()

	if err := db.SaveReport(first); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if err := db.SaveReport(second); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].RunID != "run-new" || runs[1].RunID != "run-old" {
		t.Errorf("order = [%s %s], want newest first", runs[0].RunID, runs[1].RunID)
	}
}

func TestListRunsLimit(t *testing.T) {
	db := openTestDB(t)
	for i, id := range []string{"a", "b", "c"} {
		r := sampleReport()
		r.RunID = id
		r.StartedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if err := db.SaveReport(r); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}
}
