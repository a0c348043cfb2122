package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/austin/timebill-mcp/internal/models"
)

// Settings returns the current billing configuration.
func (e *Engine) Settings() (*models.BillingSettings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settingsLocked()
}

func (e *Engine) settingsLocked() (*models.BillingSettings, error) {
	s := &models.BillingSettings{}
	err := e.db.QueryRow(`
		SELECT default_hourly_rate, tax_rate, auto_billing_threshold, invoice_terms_days, updated_at
		FROM billing_settings WHERE id = 1
	`).Scan(&s.DefaultHourlyRate, &s.TaxRate, &s.AutoBillingThreshold, &s.InvoiceTermsDays, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read billing settings: %w", err)
	}
	return s, nil
}

// SettingsUpdate holds the fields UpdateSettings may change.
type SettingsUpdate struct {
	DefaultHourlyRate    *float64
	TaxRate              *float64
	AutoBillingThreshold *float64
	InvoiceTermsDays     *int
}

// UpdateSettings applies a partial update to the billing configuration.
// Changing the default rate affects only future StartTimer calls; existing
// entries keep the rate snapshotted at their start.
func (e *Engine) UpdateSettings(update SettingsUpdate) (*models.BillingSettings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	setParts := []string{}
	values := []interface{}{}

	if update.DefaultHourlyRate != nil {
		if *update.DefaultHourlyRate < 0 {
			return nil, fmt.Errorf("default hourly rate must not be negative: %w", ErrInvalidInput)
		}
		setParts = append(setParts, "default_hourly_rate = ?")
		values = append(values, *update.DefaultHourlyRate)
	}
	if update.TaxRate != nil {
		if *update.TaxRate < 0 {
			return nil, fmt.Errorf("tax rate must not be negative: %w", ErrInvalidInput)
		}
		setParts = append(setParts, "tax_rate = ?")
		values = append(values, *update.TaxRate)
	}
	if update.AutoBillingThreshold != nil {
		if *update.AutoBillingThreshold < 0 {
			return nil, fmt.Errorf("auto-billing threshold must not be negative: %w", ErrInvalidInput)
		}
		setParts = append(setParts, "auto_billing_threshold = ?")
		values = append(values, *update.AutoBillingThreshold)
	}
	if update.InvoiceTermsDays != nil {
		if *update.InvoiceTermsDays <= 0 {
			return nil, fmt.Errorf("invoice terms must be at least one day: %w", ErrInvalidInput)
		}
		setParts = append(setParts, "invoice_terms_days = ?")
		values = append(values, *update.InvoiceTermsDays)
	}

	if len(setParts) == 0 {
		return nil, fmt.Errorf("no fields provided to update: %w", ErrInvalidInput)
	}

	setParts = append(setParts, "updated_at = ?")
	values = append(values, time.Now().UTC())

	query := fmt.Sprintf("UPDATE billing_settings SET %s WHERE id = 1", strings.Join(setParts, ", "))
	if _, err := e.db.Exec(query, values...); err != nil {
		return nil, fmt.Errorf("failed to update billing settings: %w", err)
	}

	return e.settingsLocked()
}
