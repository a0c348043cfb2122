package tracker

import (
	"errors"
	"testing"
)

func TestSettingsDefaults(t *testing.T) {
	engine, _ := newTestEngine(t)

	settings, err := engine.Settings()
	if err != nil {
		t.Fatalf("failed to get settings: %v", err)
	}
	if settings.DefaultHourlyRate != 85.0 {
		t.Errorf("expected default rate 85.0, got %.2f", settings.DefaultHourlyRate)
	}
	if settings.TaxRate != 0 {
		t.Errorf("expected default tax rate 0, got %.4f", settings.TaxRate)
	}
	if settings.AutoBillingThreshold != 500.0 {
		t.Errorf("expected default threshold 500.0, got %.2f", settings.AutoBillingThreshold)
	}
	if settings.InvoiceTermsDays != 30 {
		t.Errorf("expected default terms 30 days, got %d", settings.InvoiceTermsDays)
	}
}

func TestUpdateSettingsPartial(t *testing.T) {
	engine, _ := newTestEngine(t)

	settings, err := engine.UpdateSettings(SettingsUpdate{TaxRate: float64Ptr(0.08)})
	if err != nil {
		t.Fatalf("failed to update settings: %v", err)
	}
	if settings.TaxRate != 0.08 {
		t.Errorf("expected tax rate 0.08, got %.4f", settings.TaxRate)
	}
	// Untouched fields keep their values.
	if settings.DefaultHourlyRate != 85.0 || settings.AutoBillingThreshold != 500.0 || settings.InvoiceTermsDays != 30 {
		t.Errorf("partial update changed unrelated fields: %+v", settings)
	}

	settings, err = engine.UpdateSettings(SettingsUpdate{
		DefaultHourlyRate: float64Ptr(120),
		InvoiceTermsDays:  intPtr(14),
	})
	if err != nil {
		t.Fatalf("failed to update settings: %v", err)
	}
	if settings.DefaultHourlyRate != 120 || settings.InvoiceTermsDays != 14 || settings.TaxRate != 0.08 {
		t.Errorf("unexpected settings after second update: %+v", settings)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	engine, _ := newTestEngine(t)

	cases := []SettingsUpdate{
		{DefaultHourlyRate: float64Ptr(-1)},
		{TaxRate: float64Ptr(-0.05)},
		{AutoBillingThreshold: float64Ptr(-100)},
		{InvoiceTermsDays: intPtr(0)},
		{}, // nothing to update
	}
	for i, update := range cases {
		if _, err := engine.UpdateSettings(update); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}

	// A failed update leaves the settings untouched.
	settings, err := engine.Settings()
	if err != nil {
		t.Fatalf("failed to get settings: %v", err)
	}
	if settings.DefaultHourlyRate != 85.0 || settings.InvoiceTermsDays != 30 {
		t.Errorf("settings changed by rejected updates: %+v", settings)
	}
}

func TestRateChangeDoesNotRewriteHistory(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	entryID := insertStoppedEntry(t, db, projectID, 60, 85)

	if _, err := engine.UpdateSettings(SettingsUpdate{DefaultHourlyRate: float64Ptr(200)}); err != nil {
		t.Fatalf("failed to update settings: %v", err)
	}

	entry, err := engine.GetEntry(entryID)
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}
	if entry.HourlyRate != 85 || entry.TotalCost != 85.00 {
		t.Errorf("stopped entry rewritten by rate change: %+v", entry)
	}

	fresh, err := engine.StartTimer(projectID, nil, "new work")
	if err != nil {
		t.Fatalf("failed to start timer: %v", err)
	}
	if fresh.HourlyRate != 200 {
		t.Errorf("expected new timer to snapshot 200, got %.2f", fresh.HourlyRate)
	}
}

func TestInvoiceTermsDriveDueDate(t *testing.T) {
	engine, db := newTestEngine(t)
	projectID := seedProject(t, db, "Acme", "Website")
	entryID := insertStoppedEntry(t, db, projectID, 60, 85)

	if _, err := engine.UpdateSettings(SettingsUpdate{InvoiceTermsDays: intPtr(14)}); err != nil {
		t.Fatalf("failed to update settings: %v", err)
	}

	invoice, err := engine.GenerateInvoice(projectID, []int64{entryID})
	if err != nil {
		t.Fatalf("failed to generate invoice: %v", err)
	}
	wantDue := invoice.IssueDate.AddDate(0, 0, 14)
	if !invoice.DueDate.Equal(wantDue) {
		t.Errorf("expected due date %v, got %v", wantDue, invoice.DueDate)
	}
}
