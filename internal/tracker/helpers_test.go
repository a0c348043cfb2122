package tracker

import (
	"database/sql"
	"testing"
	"time"

	"github.com/austin/timebill-mcp/internal/database"
)

func newTestEngine(t *testing.T) (*Engine, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), db
}

func seedProject(t *testing.T, db *sql.DB, clientName, projectName string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO clients (name) VALUES (?)`, clientName)
	if err != nil {
		t.Fatalf("failed to insert client: %v", err)
	}
	clientID, _ := res.LastInsertId()

	res, err = db.Exec(`INSERT INTO projects (client_id, name) VALUES (?, ?)`, clientID, projectName)
	if err != nil {
		t.Fatalf("failed to insert project: %v", err)
	}
	projectID, _ := res.LastInsertId()
	return projectID
}

// insertStoppedEntry inserts a finished entry ending an hour ago, with cost
// derived from minutes and rate the same way the engine derives it.
func insertStoppedEntry(t *testing.T, db *sql.DB, projectID, minutes int64, rate float64) int64 {
	t.Helper()
	end := time.Now().UTC().Add(-time.Hour)
	start := end.Add(-time.Duration(minutes) * time.Minute)

	res, err := db.Exec(`
		INSERT INTO time_entries (project_id, description, start_time, end_time, duration_minutes, hourly_rate, total_cost, is_active, created_at)
		VALUES (?, '', ?, ?, ?, ?, ?, 0, ?)
	`, projectID, start.Format(time.RFC3339), end.Format(time.RFC3339),
		minutes, rate, Cost(minutes, rate), start.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("failed to insert entry: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// backdateStart shifts an entry's start time into the past so a subsequent
// stop produces a deterministic duration.
func backdateStart(t *testing.T, db *sql.DB, entryID int64, d time.Duration) {
	t.Helper()
	var startStr string
	if err := db.QueryRow(`SELECT start_time FROM time_entries WHERE id = ?`, entryID).Scan(&startStr); err != nil {
		t.Fatalf("failed to read start time: %v", err)
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		t.Fatalf("failed to parse start time: %v", err)
	}
	if _, err := db.Exec(`UPDATE time_entries SET start_time = ? WHERE id = ?`,
		start.Add(-d).Format(time.RFC3339), entryID); err != nil {
		t.Fatalf("failed to backdate start time: %v", err)
	}
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }
func stringPtr(v string) *string    { return &v }
