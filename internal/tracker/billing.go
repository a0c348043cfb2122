package tracker

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/austin/timebill-mcp/internal/models"
	"github.com/google/uuid"
)

// UnbilledEntries returns stopped entries not yet attached to any invoice,
// optionally filtered by project, oldest-first (invoice line-item order).
func (e *Engine) UnbilledEntries(projectID *int64) ([]models.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE is_active = 0 AND invoice_id IS NULL`
	args := []interface{}{}

	if projectID != nil {
		query += ` AND project_id = ?`
		args = append(args, *projectID)
	}
	query += ` ORDER BY start_time, id`

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list unbilled entries: %w", err)
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

// GenerateInvoice consolidates the given unbilled entries of one project
// into exactly one draft invoice, atomically marking them billed. Either the
// invoice is created and every entry is marked, or nothing happens: any
// validation failure lists the offending ids and leaves the store untouched.
func (e *Engine) GenerateInvoice(projectID int64, entryIDs []int64) (*models.Invoice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generateInvoiceLocked(projectID, entryIDs)
}

func (e *Engine) generateInvoiceLocked(projectID int64, entryIDs []int64) (*models.Invoice, error) {
	if len(entryIDs) == 0 {
		return nil, &InvalidInputError{Reason: "no time entry ids provided"}
	}

	var clientID int64
	err := e.db.QueryRow(`SELECT client_id FROM projects WHERE id = ?`, projectID).Scan(&clientID)
	if err == sql.ErrNoRows {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("project %d not found", projectID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve client for project %d: %w", projectID, err)
	}

	settings, err := e.settingsLocked()
	if err != nil {
		return nil, err
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var amount float64
	var offending []int64
	for _, id := range entryIDs {
		var entryProject int64
		var isActive int
		var invoiceID sql.NullInt64
		var cost float64
		err := tx.QueryRow(`
			SELECT project_id, is_active, invoice_id, total_cost
			FROM time_entries WHERE id = ?
		`, id).Scan(&entryProject, &isActive, &invoiceID, &cost)
		if err == sql.ErrNoRows {
			offending = append(offending, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to validate time entry %d: %w", id, err)
		}
		if entryProject != projectID || isActive == 1 || invoiceID.Valid {
			offending = append(offending, id)
			continue
		}
		amount += cost
	}
	if len(offending) > 0 {
		return nil, &InvalidInputError{
			Reason:   fmt.Sprintf("%d of %d entries are missing, running, billed, or belong to another project", len(offending), len(entryIDs)),
			EntryIDs: offending,
		}
	}

	amount = Round2(amount)
	taxAmount := Round2(amount * settings.TaxRate)
	totalAmount := Round2(amount + taxAmount)

	now := time.Now().UTC()
	invoiceNumber := fmt.Sprintf("INV-%s-%s", now.Format("200601"), uuid.New().String()[:8])
	issueDate := now
	dueDate := now.AddDate(0, 0, settings.InvoiceTermsDays)

	res, err := tx.Exec(`
		INSERT INTO invoices (invoice_number, project_id, client_id, amount, tax_amount, total_amount, status, issue_date, due_date)
		VALUES (?, ?, ?, ?, ?, ?, 'draft', ?, ?)
	`, invoiceNumber, projectID, clientID, amount, taxAmount, totalAmount,
		issueDate.Format("2006-01-02"), dueDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	invoiceID, _ := res.LastInsertId()

	// The invoice_id IS NULL guard re-checks inside the transaction; a miss
	// here rolls the invoice back rather than leaving it referencing an
	// entry that was never marked.
	for _, id := range entryIDs {
		res, err := tx.Exec(`
			UPDATE time_entries SET invoice_id = ?
			WHERE id = ? AND is_active = 0 AND invoice_id IS NULL
		`, invoiceID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to mark time entry %d as billed: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return nil, fmt.Errorf("time entry %d changed state during invoicing: %w", id, ErrConflict)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit invoice: %w", err)
	}

	return e.getInvoiceLocked(invoiceID)
}

// BillingStats reports the outstanding unbilled amount and hours, and how
// many projects have unbilled work above the auto-billing threshold.
func (e *Engine) BillingStats() (*models.BillingStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings, err := e.settingsLocked()
	if err != nil {
		return nil, err
	}

	stats := &models.BillingStats{}
	var minutes int64
	err = e.db.QueryRow(`
		SELECT COALESCE(SUM(total_cost), 0), COALESCE(SUM(duration_minutes), 0)
		FROM time_entries
		WHERE is_active = 0 AND invoice_id IS NULL
	`).Scan(&stats.UnbilledAmount, &minutes)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate unbilled totals: %w", err)
	}
	stats.UnbilledAmount = Round2(stats.UnbilledAmount)
	stats.UnbilledHours = float64(minutes) / 60

	err = e.db.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT project_id FROM time_entries
			WHERE is_active = 0 AND invoice_id IS NULL
			GROUP BY project_id
			HAVING SUM(total_cost) > ?
		)
	`, settings.AutoBillingThreshold).Scan(&stats.ProjectsOverThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects over threshold: %w", err)
	}
	return stats, nil
}

// GetInvoice returns an invoice with its member entries.
func (e *Engine) GetInvoice(id int64) (*models.Invoice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getInvoiceLocked(id)
}

// GetInvoiceByNumber returns an invoice looked up by its invoice number.
func (e *Engine) GetInvoiceByNumber(number string) (*models.Invoice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var id int64
	err := e.db.QueryRow(`SELECT id FROM invoices WHERE invoice_number = ?`, number).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invoice %s: %w", number, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up invoice %s: %w", number, err)
	}
	return e.getInvoiceLocked(id)
}

func (e *Engine) getInvoiceLocked(id int64) (*models.Invoice, error) {
	inv := &models.Invoice{}
	var pdfPath sql.NullString
	err := e.db.QueryRow(`
		SELECT id, invoice_number, project_id, client_id, amount, tax_amount, total_amount,
		       status, issue_date, due_date, pdf_path, created_at
		FROM invoices WHERE id = ?
	`, id).Scan(&inv.ID, &inv.InvoiceNumber, &inv.ProjectID, &inv.ClientID, &inv.Amount,
		&inv.TaxAmount, &inv.TotalAmount, &inv.Status, &inv.IssueDate, &inv.DueDate,
		&pdfPath, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice %d: %w", id, err)
	}
	if pdfPath.Valid {
		inv.PDFPath = pdfPath.String
	}

	rows, err := e.db.Query(`SELECT `+entryColumns+` FROM time_entries WHERE invoice_id = ? ORDER BY start_time, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice %d entries: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice entry: %w", err)
		}
		inv.TimeEntries = append(inv.TimeEntries, *entry)
	}
	return inv, rows.Err()
}

// ListInvoices returns invoices newest-first, optionally filtered by status.
func (e *Engine) ListInvoices(status string) ([]models.Invoice, error) {
	query := `
		SELECT id, invoice_number, project_id, client_id, amount, tax_amount, total_amount,
		       status, issue_date, due_date, pdf_path, created_at
		FROM invoices WHERE 1=1`
	args := []interface{}{}

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY issue_date DESC, id DESC`

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		var pdfPath sql.NullString
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ProjectID, &inv.ClientID, &inv.Amount,
			&inv.TaxAmount, &inv.TotalAmount, &inv.Status, &inv.IssueDate, &inv.DueDate,
			&pdfPath, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		if pdfPath.Valid {
			inv.PDFPath = pdfPath.String
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

var validInvoiceStatuses = map[string]bool{
	"draft":     true,
	"sent":      true,
	"paid":      true,
	"overdue":   true,
	"cancelled": true,
}

// UpdateInvoiceStatus moves an invoice out of draft. The member entry set is
// fixed at creation and never changes with status.
func (e *Engine) UpdateInvoiceStatus(number, status string) error {
	if !validInvoiceStatuses[status] {
		return fmt.Errorf("invalid status %q, valid statuses are: draft, sent, paid, overdue, cancelled: %w", status, ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.db.Exec(`UPDATE invoices SET status = ? WHERE invoice_number = ?`, status, number)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invoice %s: %w", number, ErrNotFound)
	}
	return nil
}

// SetInvoicePDFPath records where an invoice's rendered PDF was written.
func (e *Engine) SetInvoicePDFPath(id int64, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.db.Exec(`UPDATE invoices SET pdf_path = ? WHERE id = ?`, path, id)
	if err != nil {
		return fmt.Errorf("failed to record invoice pdf path: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return nil
}
