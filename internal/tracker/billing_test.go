package tracker

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateInvoice(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")

	e1 := insertStoppedEntry(t, db, projectID, 90, 85) // 127.50
	e2 := insertStoppedEntry(t, db, projectID, 30, 85) // 42.50

	invoice, err := engine.GenerateInvoice(projectID, []int64{e1, e2})
	if err != nil {
		t.Fatalf("failed to generate invoice: %v", err)
	}

	if invoice.Amount != 170.00 {
		t.Errorf("expected subtotal 170.00, got %.2f", invoice.Amount)
	}
	if invoice.TaxAmount != 0 {
		t.Errorf("expected no tax at default settings, got %.2f", invoice.TaxAmount)
	}
	if invoice.TotalAmount != 170.00 {
		t.Errorf("expected total 170.00, got %.2f", invoice.TotalAmount)
	}
	if invoice.Status != "draft" {
		t.Errorf("expected draft status, got %q", invoice.Status)
	}
	if !strings.HasPrefix(invoice.InvoiceNumber, "INV-") {
		t.Errorf("unexpected invoice number format: %q", invoice.InvoiceNumber)
	}
	if len(invoice.TimeEntries) != 2 {
		t.Errorf("expected 2 member entries, got %d", len(invoice.TimeEntries))
	}

	// Default terms are 30 days.
	wantDue := invoice.IssueDate.AddDate(0, 0, 30)
	if !invoice.DueDate.Equal(wantDue) {
		t.Errorf("expected due date %v, got %v", wantDue, invoice.DueDate)
	}

	// Every member entry is now billed and out of the unbilled pool.
	for _, id := range []int64{e1, e2} {
		entry, err := engine.GetEntry(id)
		if err != nil {
			t.Fatalf("failed to get entry %d: %v", id, err)
		}
		if entry.InvoiceID == nil || *entry.InvoiceID != invoice.ID {
			t.Errorf("entry %d not linked to invoice %d: %v", id, invoice.ID, entry.InvoiceID)
		}
	}
	unbilled, err := engine.UnbilledEntries(&projectID)
	if err != nil {
		t.Fatalf("failed to list unbilled entries: %v", err)
	}
	if len(unbilled) != 0 {
		t.Errorf("expected no unbilled entries after invoicing, got %d", len(unbilled))
	}
}

func TestGenerateInvoiceAppliesTax(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	e1 := insertStoppedEntry(t, db, projectID, 120, 85) // 170.00

	if _, err := engine.UpdateSettings(SettingsUpdate{TaxRate: float64Ptr(0.08)}); err != nil {
		t.Fatalf("failed to set tax rate: %v", err)
	}

	invoice, err := engine.GenerateInvoice(projectID, []int64{e1})
	if err != nil {
		t.Fatalf("failed to generate invoice: %v", err)
	}
	if invoice.Amount != 170.00 {
		t.Errorf("expected subtotal 170.00, got %.2f", invoice.Amount)
	}
	if invoice.TaxAmount != 13.60 {
		t.Errorf("expected tax 13.60, got %.2f", invoice.TaxAmount)
	}
	if invoice.TotalAmount != 183.60 {
		t.Errorf("expected total 183.60, got %.2f", invoice.TotalAmount)
	}
}

func TestGenerateInvoiceRejectsBadEntryIDs(t *testing.T) {
	engine, db := newTestEngine(t)
	projectA := seedProject(t, db, "Acme", "Website")
	projectB := seedProject(t, db, "Globex", "Migration")

	good := insertStoppedEntry(t, db, projectA, 60, 85)
	foreign := insertStoppedEntry(t, db, projectB, 60, 85)
	running, err := engine.StartTimer(projectA, nil, "in progress")
	if err != nil {
		t.Fatalf("failed to start timer: %v", err)
	}
	missing := int64(9999)

	_, err = engine.GenerateInvoice(projectA, []int64{good, foreign, running.ID, missing})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidInputError, got %T", err)
	}
	want := map[int64]bool{foreign: true, running.ID: true, missing: true}
	if len(invalid.EntryIDs) != len(want) {
		t.Fatalf("expected %d offending ids, got %v", len(want), invalid.EntryIDs)
	}
	for _, id := range invalid.EntryIDs {
		if !want[id] {
			t.Errorf("unexpected offending id %d", id)
		}
	}

	// No partial invoice: nothing was created and the good entry is untouched.
	invoices, err := engine.ListInvoices("")
	if err != nil {
		t.Fatalf("failed to list invoices: %v", err)
	}
	if len(invoices) != 0 {
		t.Errorf("expected no invoices after failed generation, got %d", len(invoices))
	}
	entry, err := engine.GetEntry(good)
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}
	if entry.InvoiceID != nil {
		t.Errorf("expected good entry to remain unbilled, got invoice %d", *entry.InvoiceID)
	}
}

func TestGenerateInvoiceRejectsEmptyAndUnknown(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	entryID := insertStoppedEntry(t, db, projectID, 60, 85)

	if _, err := engine.GenerateInvoice(projectID, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty id list, got %v", err)
	}
	if _, err := engine.GenerateInvoice(9999, []int64{entryID}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown project, got %v", err)
	}
}

func TestGenerateInvoiceTwiceRejectsBilledEntries(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	entryID := insertStoppedEntry(t, db, projectID, 60, 85)

	if _, err := engine.GenerateInvoice(projectID, []int64{entryID}); err != nil {
		t.Fatalf("failed to generate invoice: %v", err)
	}

	_, err := engine.GenerateInvoice(projectID, []int64{entryID})
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidInputError on re-billing, got %v", err)
	}
	if len(invalid.EntryIDs) != 1 || invalid.EntryIDs[0] != entryID {
		t.Errorf("expected offending id %d, got %v", entryID, invalid.EntryIDs)
	}

	invoices, err := engine.ListInvoices("")
	if err != nil {
		t.Fatalf("failed to list invoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Errorf("expected exactly one invoice, got %d", len(invoices))
	}
}

func TestUpdateAndDeleteBilledEntry(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	entryID := insertStoppedEntry(t, db, projectID, 60, 85)

	if _, err := engine.GenerateInvoice(projectID, []int64{entryID}); err != nil {
		t.Fatalf("failed to generate invoice: %v", err)
	}

	_, err := engine.UpdateEntry(entryID, EntryUpdate{DurationMinutes: int64Ptr(30)})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict updating billed entry, got %v", err)
	}
	if err := engine.DeleteEntry(entryID); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict deleting billed entry, got %v", err)
	}
}

func TestBillingStats(t *testing.T) {
	engine, db := newTestEngine(t)
	projectA := seedProject(t, db, "Acme", "Website")
	projectB := seedProject(t, db, "Globex", "Migration")

	insertStoppedEntry(t, db, projectA, 120, 85) // 170.00, under the 500 threshold
	insertStoppedEntry(t, db, projectB, 360, 100) // 600.00, over it

	stats, err := engine.BillingStats()
	if err != nil {
		t.Fatalf("failed to get billing stats: %v", err)
	}
	if stats.UnbilledAmount != 770.00 {
		t.Errorf("expected unbilled amount 770.00, got %.2f", stats.UnbilledAmount)
	}
	if stats.UnbilledHours != 8.0 {
		t.Errorf("expected 8.0 unbilled hours, got %.2f", stats.UnbilledHours)
	}
	if stats.ProjectsOverThreshold != 1 {
		t.Errorf("expected 1 project over threshold, got %d", stats.ProjectsOverThreshold)
	}
}

func TestGetInvoiceByNumber(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	entryID := insertStoppedEntry(t, db, projectID, 60, 85)

	created, err := engine.GenerateInvoice(projectID, []int64{entryID})
	if err != nil {
		t.Fatalf("failed to generate invoice: %v", err)
	}

	got, err := engine.GetInvoiceByNumber(created.InvoiceNumber)
	if err != nil {
		t.Fatalf("failed to get invoice: %v", err)
	}
	if got.ID != created.ID || len(got.TimeEntries) != 1 {
		t.Errorf("unexpected invoice: %+v", got)
	}

	if _, err := engine.GetInvoiceByNumber("INV-000000-nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateInvoiceStatus(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	entryID := insertStoppedEntry(t, db, projectID, 60, 85)

	invoice, err := engine.GenerateInvoice(projectID, []int64{entryID})
	if err != nil {
		t.Fatalf("failed to generate invoice: %v", err)
	}

	if err := engine.UpdateInvoiceStatus(invoice.InvoiceNumber, "sent"); err != nil {
		t.Fatalf("failed to update status: %v", err)
	}
	got, err := engine.GetInvoice(invoice.ID)
	if err != nil {
		t.Fatalf("failed to get invoice: %v", err)
	}
	if got.Status != "sent" {
		t.Errorf("expected status sent, got %q", got.Status)
	}
	// Membership is fixed at creation; a status change never alters it.
	if len(got.TimeEntries) != 1 {
		t.Errorf("expected 1 member entry after status change, got %d", len(got.TimeEntries))
	}

	if err := engine.UpdateInvoiceStatus(invoice.InvoiceNumber, "shredded"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bogus status, got %v", err)
	}
	if err := engine.UpdateInvoiceStatus("INV-000000-nope", "paid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListInvoicesByStatus(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	e1 := insertStoppedEntry(t, db, projectID, 60, 85)
	e2 := insertStoppedEntry(t, db, projectID, 60, 85)

	first, err := engine.GenerateInvoice(projectID, []int64{e1})
	if err != nil {
		t.Fatalf("failed to generate first invoice: %v", err)
	}
	if _, err := engine.GenerateInvoice(projectID, []int64{e2}); err != nil {
		t.Fatalf("failed to generate second invoice: %v", err)
	}
	if err := engine.UpdateInvoiceStatus(first.InvoiceNumber, "paid"); err != nil {
		t.Fatalf("failed to update status: %v", err)
	}

	all, err := engine.ListInvoices("")
	if err != nil {
		t.Fatalf("failed to list invoices: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 invoices, got %d", len(all))
	}

	paid, err := engine.ListInvoices("paid")
	if err != nil {
		t.Fatalf("failed to list paid invoices: %v", err)
	}
	if len(paid) != 1 || paid[0].InvoiceNumber != first.InvoiceNumber {
		t.Errorf("unexpected paid invoices: %+v", paid)
	}
}

func TestSetInvoicePDFPath(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	entryID := insertStoppedEntry(t, db, projectID, 60, 85)

	invoice, err := engine.GenerateInvoice(projectID, []int64{entryID})
	if err != nil {
		t.Fatalf("failed to generate invoice: %v", err)
	}

	if err := engine.SetInvoicePDFPath(invoice.ID, "/tmp/invoice.pdf"); err != nil {
		t.Fatalf("failed to set pdf path: %v", err)
	}
	got, err := engine.GetInvoice(invoice.ID)
	if err != nil {
		t.Fatalf("failed to get invoice: %v", err)
	}
	if got.PDFPath != "/tmp/invoice.pdf" {
		t.Errorf("expected pdf path to be recorded, got %q", got.PDFPath)
	}

	if err := engine.SetInvoicePDFPath(9999, "/tmp/x.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInvoiceDatesUseDayPrecision(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	entryID := insertStoppedEntry(t, db, projectID, 60, 85)

	invoice, err := engine.GenerateInvoice(projectID, []int64{entryID})
	if err != nil {
		t.Fatalf("failed to generate invoice: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	if invoice.IssueDate.Format("2006-01-02") != today {
		t.Errorf("expected issue date %s, got %v", today, invoice.IssueDate)
	}
	if h, m, s := invoice.IssueDate.Clock(); h != 0 || m != 0 || s != 0 {
		t.Errorf("expected issue date truncated to midnight, got %v", invoice.IssueDate)
	}
}
