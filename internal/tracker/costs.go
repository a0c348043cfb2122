package tracker

import (
	"fmt"
	"math"
	"time"

	"github.com/austin/timebill-mcp/internal/models"
)

// Round2 rounds a monetary value to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Cost converts a duration in minutes at an hourly rate into a monetary
// amount rounded to cents.
func Cost(durationMinutes int64, hourlyRate float64) float64 {
	return Round2(float64(durationMinutes) / 60 * hourlyRate)
}

// CeilMinutes returns the number of whole minutes covering d. Any positive
// elapsed time bills at least one minute.
func CeilMinutes(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Minute - 1) / time.Minute)
}

// Stats aggregates all stopped entries whose start time falls within the
// optional [from, to) range. Running entries are excluded because their cost
// is not final. Efficiency is the percentage of entries that reference a
// task, a data-quality signal for free-floating project time.
func (e *Engine) Stats(from, to *time.Time) (*models.TimeTrackingStats, error) {
	query := `
		SELECT COALESCE(SUM(duration_minutes), 0),
		       COALESCE(SUM(total_cost), 0),
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN task_id IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM time_entries
		WHERE is_active = 0`
	args := []interface{}{}

	if from != nil {
		query += " AND start_time >= ?"
		args = append(args, from.UTC().Format(time.RFC3339))
	}
	if to != nil {
		query += " AND start_time < ?"
		args = append(args, to.UTC().Format(time.RFC3339))
	}

	var minutes int64
	var revenue float64
	var count, tasked int
	err := e.db.QueryRow(query, args...).Scan(&minutes, &revenue, &count, &tasked)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	stats := &models.TimeTrackingStats{
		TotalHours:   float64(minutes) / 60,
		TotalRevenue: Round2(revenue),
		EntryCount:   count,
	}
	if stats.TotalHours > 0 {
		stats.AverageHourlyRate = Round2(stats.TotalRevenue / stats.TotalHours)
	}
	if count > 0 {
		stats.Efficiency = Round2(float64(tasked) / float64(count) * 100)
	}
	return stats, nil
}

// ProjectStats aggregates stopped entries per project, with a per-task
// breakdown inside each project.
func (e *Engine) ProjectStats() ([]models.ProjectTimeStats, error) {
	rows, err := e.db.Query(`
		SELECT te.project_id, COALESCE(p.name, ''),
		       COALESCE(SUM(te.duration_minutes), 0),
		       COALESCE(SUM(te.total_cost), 0),
		       COUNT(*)
		FROM time_entries te
		LEFT JOIN projects p ON p.id = te.project_id
		WHERE te.is_active = 0
		GROUP BY te.project_id
		ORDER BY te.project_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate project stats: %w", err)
	}
	defer rows.Close()

	var stats []models.ProjectTimeStats
	index := map[int64]int{}
	for rows.Next() {
		var ps models.ProjectTimeStats
		var minutes int64
		if err := rows.Scan(&ps.ProjectID, &ps.ProjectName, &minutes, &ps.TotalRevenue, &ps.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan project stats: %w", err)
		}
		ps.TotalHours = float64(minutes) / 60
		ps.TotalRevenue = Round2(ps.TotalRevenue)
		index[ps.ProjectID] = len(stats)
		stats = append(stats, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	taskRows, err := e.db.Query(`
		SELECT project_id, task_id,
		       COALESCE(SUM(duration_minutes), 0),
		       COALESCE(SUM(total_cost), 0),
		       COUNT(*)
		FROM time_entries
		WHERE is_active = 0 AND task_id IS NOT NULL
		GROUP BY project_id, task_id
		ORDER BY project_id, task_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate task breakdown: %w", err)
	}
	defer taskRows.Close()

	for taskRows.Next() {
		var projectID int64
		var tb models.TaskBreakdown
		var minutes int64
		if err := taskRows.Scan(&projectID, &tb.TaskID, &minutes, &tb.TotalRevenue, &tb.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan task breakdown: %w", err)
		}
		tb.TotalHours = float64(minutes) / 60
		tb.TotalRevenue = Round2(tb.TotalRevenue)
		if i, ok := index[projectID]; ok {
			stats[i].Tasks = append(stats[i].Tasks, tb)
		}
	}
	return stats, taskRows.Err()
}
