package tracker

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/austin/timebill-mcp/internal/models"
)

const entryColumns = `id, project_id, task_id, description, start_time, end_time,
	duration_minutes, hourly_rate, total_cost, is_active, invoice_id, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.TimeEntry, error) {
	e := &models.TimeEntry{}
	var taskID, invoiceID sql.NullInt64
	var startTime string
	var endTime sql.NullString
	var isActive int

	err := row.Scan(&e.ID, &e.ProjectID, &taskID, &e.Description, &startTime, &endTime,
		&e.DurationMinutes, &e.HourlyRate, &e.TotalCost, &isActive, &invoiceID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if taskID.Valid {
		e.TaskID = &taskID.Int64
	}
	if invoiceID.Valid {
		e.InvoiceID = &invoiceID.Int64
	}
	e.IsActive = isActive == 1
	e.StartTime, _ = time.Parse(time.RFC3339, startTime)
	if endTime.Valid {
		t, _ := time.Parse(time.RFC3339, endTime.String)
		e.EndTime = &t
	}
	return e, nil
}

// StartTimer creates a new running entry, snapshotting the current default
// hourly rate. If another timer is running it is stopped first, so at most
// one active entry exists at any time.
func (e *Engine) StartTimer(projectID int64, taskID *int64, description string) (*models.TimeEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	if err := e.stopActiveLocked(now); err != nil {
		return nil, err
	}

	settings, err := e.settingsLocked()
	if err != nil {
		return nil, err
	}

	nowStr := now.Format(time.RFC3339)
	res, err := e.db.Exec(`
		INSERT INTO time_entries (project_id, task_id, description, start_time, hourly_rate, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
	`, projectID, taskID, description, nowStr, settings.DefaultHourlyRate, nowStr)
	if err != nil {
		return nil, fmt.Errorf("failed to start timer: %w", err)
	}

	id, _ := res.LastInsertId()
	return e.getEntryLocked(id)
}

// StopTimer stops the entry with the given id, computing its duration
// (rounded up to whole minutes) and total cost. Stopping an entry that is
// not running returns ErrInvalidState so duplicate stop requests are
// detectable rather than silently absorbed.
func (e *Engine) StopTimer(entryID int64) (*models.TimeEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var isActive int
	err := e.db.QueryRow(`SELECT is_active FROM time_entries WHERE id = ?`, entryID).Scan(&isActive)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("time entry %d: %w", entryID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up time entry %d: %w", entryID, err)
	}
	if isActive != 1 {
		return nil, fmt.Errorf("time entry %d is not running: %w", entryID, ErrInvalidState)
	}

	if err := e.stopEntryLocked(entryID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return e.getEntryLocked(entryID)
}

// stopActiveLocked stops whichever entry is currently running, if any.
func (e *Engine) stopActiveLocked(now time.Time) error {
	var id int64
	err := e.db.QueryRow(`SELECT id FROM time_entries WHERE is_active = 1 LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find active timer: %w", err)
	}
	return e.stopEntryLocked(id, now)
}

func (e *Engine) stopEntryLocked(id int64, now time.Time) error {
	var startStr string
	var rate float64
	err := e.db.QueryRow(`SELECT start_time, hourly_rate FROM time_entries WHERE id = ?`, id).Scan(&startStr, &rate)
	if err != nil {
		return fmt.Errorf("failed to read entry %d start: %w", id, err)
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return fmt.Errorf("failed to parse entry %d start time: %w", id, err)
	}

	minutes := CeilMinutes(now.Sub(start))
	cost := Cost(minutes, rate)

	_, err = e.db.Exec(`
		UPDATE time_entries
		SET end_time = ?, duration_minutes = ?, total_cost = ?, is_active = 0
		WHERE id = ?
	`, now.Format(time.RFC3339), minutes, cost, id)
	if err != nil {
		return fmt.Errorf("failed to stop entry %d: %w", id, err)
	}
	return nil
}

// GetActiveTimer returns the running entry, or nil if no timer is running.
func (e *Engine) GetActiveTimer() (*models.TimeEntry, error) {
	row := e.db.QueryRow(`SELECT ` + entryColumns + ` FROM time_entries WHERE is_active = 1 LIMIT 1`)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active timer: %w", err)
	}
	return entry, nil
}

// GetEntry returns the entry with the given id.
func (e *Engine) GetEntry(id int64) (*models.TimeEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getEntryLocked(id)
}

func (e *Engine) getEntryLocked(id int64) (*models.TimeEntry, error) {
	row := e.db.QueryRow(`SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("time entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time entry %d: %w", id, err)
	}
	return entry, nil
}

// ListEntries returns entries newest-first, optionally filtered by project.
func (e *Engine) ListEntries(projectID *int64) ([]models.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE 1=1`
	args := []interface{}{}

	if projectID != nil {
		query += ` AND project_id = ?`
		args = append(args, *projectID)
	}
	query += ` ORDER BY start_time DESC, id DESC`

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []models.TimeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// EntryUpdate holds the fields UpdateEntry may change. Cost is never set
// directly; it is recomputed whenever duration or rate changes so the three
// can never drift apart.
type EntryUpdate struct {
	Description     *string
	TaskID          *int64
	ClearTask       bool
	DurationMinutes *int64
	HourlyRate      *float64
}

// UpdateEntry applies a partial update to a non-billed entry. Changing
// duration or rate on a running entry returns ErrInvalidState: a running
// entry's duration and cost are zero by contract until it stops.
func (e *Engine) UpdateEntry(id int64, update EntryUpdate) (*models.TimeEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.getEntryLocked(id)
	if err != nil {
		return nil, err
	}
	if entry.InvoiceID != nil {
		return nil, fmt.Errorf("time entry %d is billed on invoice %d: %w", id, *entry.InvoiceID, ErrConflict)
	}
	if entry.IsActive && (update.DurationMinutes != nil || update.HourlyRate != nil) {
		return nil, fmt.Errorf("time entry %d is running, duration and rate are fixed until stop: %w", id, ErrInvalidState)
	}

	setParts := []string{}
	values := []interface{}{}

	if update.Description != nil {
		setParts = append(setParts, "description = ?")
		values = append(values, *update.Description)
	}
	if update.ClearTask {
		setParts = append(setParts, "task_id = NULL")
	} else if update.TaskID != nil {
		setParts = append(setParts, "task_id = ?")
		values = append(values, *update.TaskID)
	}

	duration := entry.DurationMinutes
	rate := entry.HourlyRate
	recompute := false
	if update.DurationMinutes != nil {
		if *update.DurationMinutes < 0 {
			return nil, fmt.Errorf("duration must not be negative: %w", ErrInvalidInput)
		}
		duration = *update.DurationMinutes
		setParts = append(setParts, "duration_minutes = ?")
		values = append(values, duration)
		recompute = true
	}
	if update.HourlyRate != nil {
		rate = *update.HourlyRate
		setParts = append(setParts, "hourly_rate = ?")
		values = append(values, rate)
		recompute = true
	}
	if recompute {
		setParts = append(setParts, "total_cost = ?")
		values = append(values, Cost(duration, rate))
	}

	if len(setParts) == 0 {
		return nil, fmt.Errorf("no fields provided to update: %w", ErrInvalidInput)
	}

	values = append(values, id)
	query := fmt.Sprintf("UPDATE time_entries SET %s WHERE id = ?", strings.Join(setParts, ", "))
	if _, err := e.db.Exec(query, values...); err != nil {
		return nil, fmt.Errorf("failed to update time entry %d: %w", id, err)
	}

	return e.getEntryLocked(id)
}

// DeleteEntry removes a stopped, unbilled entry. Billed entries are
// immutable history and return ErrConflict; running entries must be stopped
// first.
func (e *Engine) DeleteEntry(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.getEntryLocked(id)
	if err != nil {
		return err
	}
	if entry.InvoiceID != nil {
		return fmt.Errorf("time entry %d is billed on invoice %d: %w", id, *entry.InvoiceID, ErrConflict)
	}
	if entry.IsActive {
		return fmt.Errorf("time entry %d is running, stop it before deleting: %w", id, ErrInvalidState)
	}

	if _, err := e.db.Exec(`DELETE FROM time_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete time entry %d: %w", id, err)
	}
	return nil
}
