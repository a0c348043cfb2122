package tracker

import (
	"testing"
)

func TestAutomaticBillingRespectsThreshold(t *testing.T) {
	engine, db := newTestEngine(t)
	projectA := seedProject(t, db, "Acme", "Website")
	projectB := seedProject(t, db, "Globex", "Migration")

	insertStoppedEntry(t, db, projectA, 360, 100) // 600.00, over the 500 default
	insertStoppedEntry(t, db, projectB, 120, 85)  // 170.00, under it

	report, err := engine.RunAutomaticBilling()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.ProjectsBilled != 1 || report.InvoicesCreated != 1 {
		t.Errorf("expected 1 project billed, got %+v", report)
	}
	if report.TotalAmountBilled != 600.00 {
		t.Errorf("expected 600.00 billed, got %.2f", report.TotalAmountBilled)
	}
	if len(report.Failures) != 0 {
		t.Errorf("expected no failures, got %+v", report.Failures)
	}

	// The under-threshold project keeps its unbilled work.
	unbilled, err := engine.UnbilledEntries(&projectB)
	if err != nil {
		t.Fatalf("failed to list unbilled entries: %v", err)
	}
	if len(unbilled) != 1 {
		t.Errorf("expected project %d to remain unbilled, got %d entries", projectB, len(unbilled))
	}

	invoices, err := engine.ListInvoices("")
	if err != nil {
		t.Fatalf("failed to list invoices: %v", err)
	}
	if len(invoices) != 1 || invoices[0].ProjectID != projectA {
		t.Errorf("unexpected invoices after sweep: %+v", invoices)
	}
}

func TestAutomaticBillingIsIdempotent(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	insertStoppedEntry(t, db, projectID, 360, 100)

	first, err := engine.RunAutomaticBilling()
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if first.InvoicesCreated != 1 {
		t.Fatalf("expected first sweep to bill, got %+v", first)
	}

	second, err := engine.RunAutomaticBilling()
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if second.ProjectsBilled != 0 || second.InvoicesCreated != 0 || second.TotalAmountBilled != 0 {
		t.Errorf("expected second sweep to be a no-op, got %+v", second)
	}

	invoices, err := engine.ListInvoices("")
	if err != nil {
		t.Fatalf("failed to list invoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Errorf("expected exactly one invoice after two sweeps, got %d", len(invoices))
	}
}

func TestAutomaticBillingIsolatesFailures(t *testing.T) {
	engine, db := newTestEngine(t)
	healthy := seedProject(t, db, "Acme", "Website")
	insertStoppedEntry(t, db, healthy, 360, 100)

	// Entries pointing at a project the directory has no row for: that
	// project's invoice cannot resolve a client and must fail alone.
	orphanProject := int64(777)
	insertStoppedEntry(t, db, orphanProject, 360, 100)

	report, err := engine.RunAutomaticBilling()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.ProjectsBilled != 1 || report.InvoicesCreated != 1 {
		t.Errorf("expected the healthy project to be billed, got %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].ProjectID != orphanProject {
		t.Fatalf("expected one failure for project %d, got %+v", orphanProject, report.Failures)
	}

	// The failed project's entries are untouched and picked up again once
	// the directory problem is fixed.
	unbilled, err := engine.UnbilledEntries(&orphanProject)
	if err != nil {
		t.Fatalf("failed to list unbilled entries: %v", err)
	}
	if len(unbilled) != 1 {
		t.Errorf("expected orphan project entries to remain unbilled, got %d", len(unbilled))
	}

	invoices, err := engine.ListInvoices("")
	if err != nil {
		t.Fatalf("failed to list invoices: %v", err)
	}
	if len(invoices) != 1 || invoices[0].ProjectID != healthy {
		t.Errorf("unexpected invoices after sweep: %+v", invoices)
	}
}

func TestAutomaticBillingConsumesAllUnbilledEntries(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")

	// One small entry plus one large one: both get swept even though the
	// small one alone is under the threshold.
	insertStoppedEntry(t, db, projectID, 30, 85)   // 42.50
	insertStoppedEntry(t, db, projectID, 360, 100) // 600.00

	report, err := engine.RunAutomaticBilling()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.TotalAmountBilled != 642.50 {
		t.Errorf("expected 642.50 billed, got %.2f", report.TotalAmountBilled)
	}

	unbilled, err := engine.UnbilledEntries(&projectID)
	if err != nil {
		t.Fatalf("failed to list unbilled entries: %v", err)
	}
	if len(unbilled) != 0 {
		t.Errorf("expected all entries swept, got %d unbilled", len(unbilled))
	}
}

func TestAutomaticBillingIgnoresRunningTimers(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	insertStoppedEntry(t, db, projectID, 360, 100)

	running, err := engine.StartTimer(projectID, nil, "in progress")
	if err != nil {
		t.Fatalf("failed to start timer: %v", err)
	}

	report, err := engine.RunAutomaticBilling()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.InvoicesCreated != 1 || len(report.Failures) != 0 {
		t.Fatalf("expected clean sweep around the running timer, got %+v", report)
	}

	entry, err := engine.GetEntry(running.ID)
	if err != nil {
		t.Fatalf("failed to get running entry: %v", err)
	}
	if !entry.IsActive || entry.InvoiceID != nil {
		t.Errorf("expected running timer untouched by sweep, got %+v", entry)
	}
}
