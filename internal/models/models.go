package models

import (
	"time"
)

type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Project struct {
	ID        int64     `json:"id"`
	ClientID  int64     `json:"client_id"`
	Name      string    `json:"name"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client *Client `json:"client,omitempty"`
}

type TimeEntry struct {
	ID              int64      `json:"id"`
	ProjectID       int64      `json:"project_id"`
	TaskID          *int64     `json:"task_id,omitempty"`
	Description     string     `json:"description,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes int64      `json:"duration_minutes"`
	HourlyRate      float64    `json:"hourly_rate"`
	TotalCost       float64    `json:"total_cost"`
	IsActive        bool       `json:"is_active"`
	InvoiceID       *int64     `json:"invoice_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type Invoice struct {
	ID            int64     `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	ProjectID     int64     `json:"project_id"`
	ClientID      int64     `json:"client_id"`
	Amount        float64   `json:"amount"`
	TaxAmount     float64   `json:"tax_amount"`
	TotalAmount   float64   `json:"total_amount"`
	Status        string    `json:"status"`
	IssueDate     time.Time `json:"issue_date"`
	DueDate       time.Time `json:"due_date"`
	PDFPath       string    `json:"pdf_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	Client      *Client     `json:"client,omitempty"`
	Project     *Project    `json:"project,omitempty"`
	TimeEntries []TimeEntry `json:"time_entries,omitempty"`
}

type BillingSettings struct {
	DefaultHourlyRate    float64   `json:"default_hourly_rate"`
	TaxRate              float64   `json:"tax_rate"`
	AutoBillingThreshold float64   `json:"auto_billing_threshold"`
	InvoiceTermsDays     int       `json:"invoice_terms_days"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TimeTrackingStats aggregates completed entries over a date range.
// Running entries are excluded because their cost is not final.
type TimeTrackingStats struct {
	TotalHours        float64 `json:"total_hours"`
	TotalRevenue      float64 `json:"total_revenue"`
	AverageHourlyRate float64 `json:"average_hourly_rate"`
	EntryCount        int     `json:"entry_count"`
	Efficiency        float64 `json:"efficiency"` // percent of entries linked to a task
}

type ProjectTimeStats struct {
	ProjectID    int64           `json:"project_id"`
	ProjectName  string          `json:"project_name"`
	TotalHours   float64         `json:"total_hours"`
	TotalRevenue float64         `json:"total_revenue"`
	EntryCount   int             `json:"entry_count"`
	Tasks        []TaskBreakdown `json:"tasks,omitempty"`
}

type TaskBreakdown struct {
	TaskID       int64   `json:"task_id"`
	TotalHours   float64 `json:"total_hours"`
	TotalRevenue float64 `json:"total_revenue"`
	EntryCount   int     `json:"entry_count"`
}

type BillingStats struct {
	UnbilledAmount        float64 `json:"unbilled_amount"`
	UnbilledHours         float64 `json:"unbilled_hours"`
	ProjectsOverThreshold int     `json:"projects_over_threshold"`
}

type SweepFailure struct {
	ProjectID int64  `json:"project_id"`
	Reason    string `json:"reason"`
}

type SweepReport struct {
	ProjectsBilled    int            `json:"projects_billed"`
	InvoicesCreated   int            `json:"invoices_created"`
	TotalAmountBilled float64        `json:"total_amount_billed"`
	Failures          []SweepFailure `json:"failures,omitempty"`
}
