package tracker

import (
	"fmt"

	"github.com/austin/timebill-mcp/internal/models"
)

// RunAutomaticBilling invoices every project whose unbilled total exceeds
// the auto-billing threshold, consuming all of its currently unbilled
// entries. Each project is its own transaction: one project's failure is
// recorded in the report and does not abort the others. Because a successful
// pass marks everything billed, an immediate re-run is a no-op.
func (e *Engine) RunAutomaticBilling() (*models.SweepReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings, err := e.settingsLocked()
	if err != nil {
		return nil, err
	}

	rows, err := e.db.Query(`
		SELECT project_id FROM time_entries
		WHERE is_active = 0 AND invoice_id IS NULL
		GROUP BY project_id
		HAVING SUM(total_cost) > ?
		ORDER BY project_id
	`, settings.AutoBillingThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to find projects over threshold: %w", err)
	}

	var projectIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		projectIDs = append(projectIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	report := &models.SweepReport{}
	for _, projectID := range projectIDs {
		entryIDs, err := e.unbilledIDsLocked(projectID)
		if err != nil {
			return nil, err
		}

		invoice, err := e.generateInvoiceLocked(projectID, entryIDs)
		if err != nil {
			report.Failures = append(report.Failures, models.SweepFailure{
				ProjectID: projectID,
				Reason:    err.Error(),
			})
			continue
		}

		report.ProjectsBilled++
		report.InvoicesCreated++
		report.TotalAmountBilled = Round2(report.TotalAmountBilled + invoice.TotalAmount)
	}
	return report, nil
}

func (e *Engine) unbilledIDsLocked(projectID int64) ([]int64, error) {
	rows, err := e.db.Query(`
		SELECT id FROM time_entries
		WHERE project_id = ? AND is_active = 0 AND invoice_id IS NULL
		ORDER BY start_time, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unbilled ids for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entry id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
