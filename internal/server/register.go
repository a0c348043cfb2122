package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/austin/timebill-mcp/internal/models"
	"github.com/austin/timebill-mcp/internal/pdf"
	"github.com/austin/timebill-mcp/internal/timeparse"
	"github.com/austin/timebill-mcp/internal/tracker"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers all tools with the MCP server. Engine semantics
// (timers, costs, reconciliation, the sweep) live in the tracker package;
// the client/project directory is plain CRUD handled here.
func RegisterTools(server *mcp.Server, engine *tracker.Engine, db *sql.DB) {
	h := &Handler{db: db}

	// Start Timer tool
	type startTimerArgs struct {
		ProjectID   int64  `json:"project_id" jsonschema:"Project to track time against"`
		TaskID      *int64 `json:"task_id,omitempty" jsonschema:"Task within the project (optional)"`
		Description string `json:"description,omitempty" jsonschema:"Description of the work"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_timer",
		Description: "Start a work timer. Any timer already running is stopped first, so at most one timer runs at a time",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args startTimerArgs) (*mcp.CallToolResult, any, error) {
		entry, err := engine.StartTimer(args.ProjectID, args.TaskID, args.Description)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start timer: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Timer started on project %d at %s (entry ID: %d, rate: %.2f/h)",
						entry.ProjectID, entry.StartTime.Format("15:04:05"), entry.ID, entry.HourlyRate),
				},
			},
		}, entry, nil
	})

	// Stop Timer tool
	type stopTimerArgs struct {
		EntryID int64 `json:"entry_id" jsonschema:"Time entry ID to stop"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stop_timer",
		Description: "Stop a running timer, computing its duration and cost",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args stopTimerArgs) (*mcp.CallToolResult, any, error) {
		entry, err := engine.StopTimer(args.EntryID)
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Timer stopped: %d minutes at %.2f/h = %.2f (entry ID: %d)",
						entry.DurationMinutes, entry.HourlyRate, entry.TotalCost, entry.ID),
				},
			},
		}, entry, nil
	})

	// Get Active Timer tool
	type getActiveTimerArgs struct{}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_active_timer",
		Description: "Get the currently running timer, if any",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getActiveTimerArgs) (*mcp.CallToolResult, any, error) {
		entry, err := engine.GetActiveTimer()
		if err != nil {
			return nil, nil, err
		}

		if entry == nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: "No timer is running."},
				},
			}, nil, nil
		}

		elapsed := time.Since(entry.StartTime).Round(time.Second)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Timer running on project %d since %s (%s elapsed, entry ID: %d)",
						entry.ProjectID, entry.StartTime.Format("15:04:05"), elapsed, entry.ID),
				},
			},
		}, entry, nil
	})

	// List Entries tool
	type listEntriesArgs struct {
		ProjectID *int64 `json:"project_id,omitempty" jsonschema:"Filter by project (optional)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_entries",
		Description: "List time entries, newest first, optionally filtered by project",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listEntriesArgs) (*mcp.CallToolResult, any, error) {
		entries, err := engine.ListEntries(args.ProjectID)
		if err != nil {
			return nil, nil, err
		}

		text := fmt.Sprintf("Found %d entries:\n", len(entries))
		for _, e := range entries {
			state := "stopped"
			if e.IsActive {
				state = "running"
			} else if e.InvoiceID != nil {
				state = fmt.Sprintf("billed on invoice %d", *e.InvoiceID)
			}
			text += fmt.Sprintf("- ID %d: project %d - %d min - %.2f (%s)", e.ID, e.ProjectID, e.DurationMinutes, e.TotalCost, state)
			if e.Description != "" {
				text += fmt.Sprintf(" - %s", e.Description)
			}
			text += "\n"
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, entries, nil
	})

	// Update Entry tool
	type updateEntryArgs struct {
		EntryID         int64    `json:"entry_id" jsonschema:"Time entry ID to update"`
		Description     *string  `json:"description,omitempty" jsonschema:"New description (optional)"`
		TaskID          *int64   `json:"task_id,omitempty" jsonschema:"New task ID (optional)"`
		ClearTask       bool     `json:"clear_task,omitempty" jsonschema:"Detach the entry from its task"`
		DurationMinutes *int64   `json:"duration_minutes,omitempty" jsonschema:"Corrected duration in minutes (optional, stopped entries only; cost is recomputed)"`
		HourlyRate      *float64 `json:"hourly_rate,omitempty" jsonschema:"Corrected hourly rate (optional, stopped entries only; cost is recomputed)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_entry",
		Description: "Update a non-billed time entry. Cost is recomputed when duration or rate changes",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateEntryArgs) (*mcp.CallToolResult, any, error) {
		entry, err := engine.UpdateEntry(args.EntryID, tracker.EntryUpdate{
			Description:     args.Description,
			TaskID:          args.TaskID,
			ClearTask:       args.ClearTask,
			DurationMinutes: args.DurationMinutes,
			HourlyRate:      args.HourlyRate,
		})
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Updated entry %d: %d min at %.2f/h = %.2f",
						entry.ID, entry.DurationMinutes, entry.HourlyRate, entry.TotalCost),
				},
			},
		}, entry, nil
	})

	// Delete Entry tool
	type deleteEntryArgs struct {
		EntryID int64 `json:"entry_id" jsonschema:"Time entry ID to delete"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_entry",
		Description: "Delete a stopped, unbilled time entry. Billed entries are immutable history",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args deleteEntryArgs) (*mcp.CallToolResult, any, error) {
		if err := engine.DeleteEntry(args.EntryID); err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Deleted time entry %d", args.EntryID)},
			},
		}, nil, nil
	})

	// Get Stats tool
	type getStatsArgs struct {
		Period    string `json:"period,omitempty" jsonschema:"Named period like 'this month' 'last week' 'January 2025' (optional)"`
		StartDate string `json:"start_date,omitempty" jsonschema:"Range start (YYYY-MM-DD or natural language, optional)"`
		EndDate   string `json:"end_date,omitempty" jsonschema:"Range end (YYYY-MM-DD or natural language, optional)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stats",
		Description: "Get time tracking statistics over an optional date range. Running timers are excluded",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getStatsArgs) (*mcp.CallToolResult, any, error) {
		var from, to *time.Time

		if args.Period != "" {
			start, end, err := timeparse.ParsePeriod(args.Period)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid period: %w", err)
			}
			end = end.AddDate(0, 0, 1) // inclusive end date
			from, to = &start, &end
		} else {
			if args.StartDate != "" {
				start, err := timeparse.ParseDate(args.StartDate)
				if err != nil {
					return nil, nil, fmt.Errorf("invalid start date: %w", err)
				}
				from = &start
			}
			if args.EndDate != "" {
				end, err := timeparse.ParseDate(args.EndDate)
				if err != nil {
					return nil, nil, fmt.Errorf("invalid end date: %w", err)
				}
				end = end.AddDate(0, 0, 1)
				to = &end
			}
		}

		stats, err := engine.Stats(from, to)
		if err != nil {
			return nil, nil, err
		}

		text := "Time tracking stats:\n"
		text += fmt.Sprintf("Total Hours: %.2f\n", stats.TotalHours)
		text += fmt.Sprintf("Total Revenue: %.2f\n", stats.TotalRevenue)
		text += fmt.Sprintf("Average Rate: %.2f/h\n", stats.AverageHourlyRate)
		text += fmt.Sprintf("Entries: %d\n", stats.EntryCount)
		text += fmt.Sprintf("Task Coverage: %.1f%%\n", stats.Efficiency)

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, stats, nil
	})

	// Get Project Stats tool
	type getProjectStatsArgs struct{}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_project_stats",
		Description: "Get per-project time and revenue totals with a per-task breakdown",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getProjectStatsArgs) (*mcp.CallToolResult, any, error) {
		stats, err := engine.ProjectStats()
		if err != nil {
			return nil, nil, err
		}

		text := fmt.Sprintf("Stats for %d projects:\n", len(stats))
		for _, ps := range stats {
			name := ps.ProjectName
			if name == "" {
				name = fmt.Sprintf("project %d", ps.ProjectID)
			}
			text += fmt.Sprintf("- %s: %.2f hours, %.2f revenue, %d entries\n",
				name, ps.TotalHours, ps.TotalRevenue, ps.EntryCount)
			for _, tb := range ps.Tasks {
				text += fmt.Sprintf("    task %d: %.2f hours, %.2f revenue\n", tb.TaskID, tb.TotalHours, tb.TotalRevenue)
			}
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, stats, nil
	})

	// Get Unbilled Entries tool
	type getUnbilledEntriesArgs struct {
		ProjectID *int64 `json:"project_id,omitempty" jsonschema:"Filter by project (optional)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_unbilled_entries",
		Description: "List stopped time entries not yet attached to any invoice",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getUnbilledEntriesArgs) (*mcp.CallToolResult, any, error) {
		entries, err := engine.UnbilledEntries(args.ProjectID)
		if err != nil {
			return nil, nil, err
		}

		var total float64
		for _, e := range entries {
			total += e.TotalCost
		}

		text := fmt.Sprintf("Found %d unbilled entries (%.2f total):\n", len(entries), tracker.Round2(total))
		for _, e := range entries {
			text += fmt.Sprintf("- ID %d: project %d - %d min - %.2f", e.ID, e.ProjectID, e.DurationMinutes, e.TotalCost)
			if e.Description != "" {
				text += fmt.Sprintf(" (%s)", e.Description)
			}
			text += "\n"
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, entries, nil
	})

	// Generate Invoice tool
	type generateInvoiceArgs struct {
		ProjectID int64   `json:"project_id" jsonschema:"Project the entries belong to"`
		EntryIDs  []int64 `json:"entry_ids" jsonschema:"Unbilled time entry IDs to consolidate into the invoice"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_invoice",
		Description: "Consolidate unbilled time entries of a project into a draft invoice, marking them billed. All-or-nothing: a single bad entry id fails the whole request",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args generateInvoiceArgs) (*mcp.CallToolResult, any, error) {
		invoice, err := engine.GenerateInvoice(args.ProjectID, args.EntryIDs)
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Invoice %s created for project %d\nSubtotal: %.2f  Tax: %.2f  Total: %.2f (%d entries)",
						invoice.InvoiceNumber, invoice.ProjectID, invoice.Amount, invoice.TaxAmount,
						invoice.TotalAmount, len(invoice.TimeEntries)),
				},
			},
		}, invoice, nil
	})

	// Run Automatic Billing tool
	type runAutomaticBillingArgs struct{}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_automatic_billing",
		Description: "Invoice every project whose unbilled total exceeds the auto-billing threshold. Safe to re-run: a second pass with no new entries bills nothing",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args runAutomaticBillingArgs) (*mcp.CallToolResult, any, error) {
		report, err := engine.RunAutomaticBilling()
		if err != nil {
			return nil, nil, err
		}

		text := fmt.Sprintf("Automatic billing complete: %d projects billed, %d invoices, %.2f total\n",
			report.ProjectsBilled, report.InvoicesCreated, report.TotalAmountBilled)
		for _, f := range report.Failures {
			text += fmt.Sprintf("- project %d failed: %s\n", f.ProjectID, f.Reason)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, report, nil
	})

	// Get Billing Stats tool
	type getBillingStatsArgs struct{}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_billing_stats",
		Description: "Get outstanding unbilled amount, unbilled hours, and the number of projects over the auto-billing threshold",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getBillingStatsArgs) (*mcp.CallToolResult, any, error) {
		stats, err := engine.BillingStats()
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Unbilled: %.2f (%.2f hours) across projects; %d projects over threshold",
						stats.UnbilledAmount, stats.UnbilledHours, stats.ProjectsOverThreshold),
				},
			},
		}, stats, nil
	})

	// Get Settings tool
	type getSettingsArgs struct{}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_settings",
		Description: "Get the billing configuration (default rate, tax rate, auto-billing threshold, invoice terms)",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getSettingsArgs) (*mcp.CallToolResult, any, error) {
		settings, err := engine.Settings()
		if err != nil {
			return nil, nil, err
		}

		text := "Billing settings:\n"
		text += fmt.Sprintf("Default Hourly Rate: %.2f\n", settings.DefaultHourlyRate)
		text += fmt.Sprintf("Tax Rate: %.4f\n", settings.TaxRate)
		text += fmt.Sprintf("Auto-Billing Threshold: %.2f\n", settings.AutoBillingThreshold)
		text += fmt.Sprintf("Invoice Terms: %d days\n", settings.InvoiceTermsDays)

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, settings, nil
	})

	// Update Settings tool
	type updateSettingsArgs struct {
		DefaultHourlyRate    *float64 `json:"default_hourly_rate,omitempty" jsonschema:"New default hourly rate; affects only future timers (optional)"`
		TaxRate              *float64 `json:"tax_rate,omitempty" jsonschema:"New flat tax rate, e.g. 0.08 (optional)"`
		AutoBillingThreshold *float64 `json:"auto_billing_threshold,omitempty" jsonschema:"New auto-billing threshold amount (optional)"`
		InvoiceTermsDays     *int     `json:"invoice_terms_days,omitempty" jsonschema:"New invoice payment terms in days (optional)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_settings",
		Description: "Update billing configuration. Rate changes never alter existing entries; their rate was snapshotted at start",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateSettingsArgs) (*mcp.CallToolResult, any, error) {
		settings, err := engine.UpdateSettings(tracker.SettingsUpdate{
			DefaultHourlyRate:    args.DefaultHourlyRate,
			TaxRate:              args.TaxRate,
			AutoBillingThreshold: args.AutoBillingThreshold,
			InvoiceTermsDays:     args.InvoiceTermsDays,
		})
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Settings updated: rate %.2f/h, tax %.4f, threshold %.2f, terms %d days",
						settings.DefaultHourlyRate, settings.TaxRate, settings.AutoBillingThreshold, settings.InvoiceTermsDays),
				},
			},
		}, settings, nil
	})

	// List Invoices tool
	type listInvoicesArgs struct {
		Status string `json:"status,omitempty" jsonschema:"Filter by status (draft, sent, paid, overdue, cancelled; optional)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_invoices",
		Description: "List invoices with an optional status filter",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listInvoicesArgs) (*mcp.CallToolResult, any, error) {
		invoices, err := engine.ListInvoices(args.Status)
		if err != nil {
			return nil, nil, err
		}

		var total float64
		for _, inv := range invoices {
			total += inv.TotalAmount
		}

		text := fmt.Sprintf("Found %d invoices (Total: %.2f):\n", len(invoices), tracker.Round2(total))
		for _, inv := range invoices {
			text += fmt.Sprintf("- %s: project %d - %.2f (%s) - Due: %s\n",
				inv.InvoiceNumber, inv.ProjectID, inv.TotalAmount, inv.Status,
				inv.DueDate.Format("2006-01-02"))
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, invoices, nil
	})

	// Get Invoice Details tool
	type getInvoiceDetailsArgs struct {
		InvoiceNumber string `json:"invoice_number" jsonschema:"Invoice number to get details for"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_invoice_details",
		Description: "Get an invoice with all its time entries",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getInvoiceDetailsArgs) (*mcp.CallToolResult, any, error) {
		invoice, err := engine.GetInvoiceByNumber(args.InvoiceNumber)
		if err != nil {
			return nil, nil, err
		}

		text := fmt.Sprintf("Invoice %s:\n", invoice.InvoiceNumber)
		text += fmt.Sprintf("Project: %d, Client: %d\n", invoice.ProjectID, invoice.ClientID)
		text += fmt.Sprintf("Status: %s\n", invoice.Status)
		text += fmt.Sprintf("Subtotal: %.2f  Tax: %.2f  Total: %.2f\n", invoice.Amount, invoice.TaxAmount, invoice.TotalAmount)
		text += fmt.Sprintf("Issued: %s, Due: %s\n", invoice.IssueDate.Format("2006-01-02"), invoice.DueDate.Format("2006-01-02"))
		if invoice.PDFPath != "" {
			text += fmt.Sprintf("PDF: %s\n", invoice.PDFPath)
		}
		text += fmt.Sprintf("\nTime entries (%d):\n", len(invoice.TimeEntries))
		for _, e := range invoice.TimeEntries {
			text += fmt.Sprintf("- ID %d: %s - %d min - %.2f (%s)\n",
				e.ID, e.StartTime.Format("2006-01-02"), e.DurationMinutes, e.TotalCost, e.Description)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, invoice, nil
	})

	// Update Invoice Status tool
	type updateInvoiceStatusArgs struct {
		InvoiceNumber string `json:"invoice_number" jsonschema:"Invoice number to update"`
		Status        string `json:"status" jsonschema:"New status (draft, sent, paid, overdue, cancelled)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_invoice_status",
		Description: "Update the status of an invoice",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateInvoiceStatusArgs) (*mcp.CallToolResult, any, error) {
		if err := engine.UpdateInvoiceStatus(args.InvoiceNumber, args.Status); err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Invoice %s status updated to '%s'", args.InvoiceNumber, args.Status),
				},
			},
		}, nil, nil
	})

	// Export Invoice PDF tool
	type exportInvoicePDFArgs struct {
		InvoiceNumber string `json:"invoice_number" jsonschema:"Invoice number to export"`
		OutputPath    string `json:"output_path,omitempty" jsonschema:"Where to write the PDF (optional, defaults to ~/Downloads)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_invoice_pdf",
		Description: "Render an invoice with its time entries to a PDF file",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args exportInvoicePDFArgs) (*mcp.CallToolResult, any, error) {
		invoice, err := engine.GetInvoiceByNumber(args.InvoiceNumber)
		if err != nil {
			return nil, nil, err
		}

		invoice.Client = h.getClient(invoice.ClientID)
		invoice.Project = h.getProject(invoice.ProjectID)

		outputPath := args.OutputPath
		if outputPath == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			outputPath = filepath.Join(homeDir, "Downloads", fmt.Sprintf("invoice_%s.pdf", invoice.InvoiceNumber))
		}

		generator := pdf.NewInvoiceGenerator()
		if err := generator.Generate(*invoice, outputPath); err != nil {
			return nil, nil, fmt.Errorf("failed to generate PDF: %w", err)
		}

		if err := engine.SetInvoicePDFPath(invoice.ID, outputPath); err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Invoice %s exported to %s", invoice.InvoiceNumber, outputPath),
				},
			},
		}, map[string]interface{}{
			"invoice_number": invoice.InvoiceNumber,
			"pdf_path":       outputPath,
		}, nil
	})

	// Add Client tool
	type addClientArgs struct {
		Name    string `json:"name" jsonschema:"Client name"`
		Email   string `json:"email,omitempty" jsonschema:"Contact email (optional)"`
		Address string `json:"address,omitempty" jsonschema:"Billing address (optional)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_client",
		Description: "Add a new client",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addClientArgs) (*mcp.CallToolResult, any, error) {
		result, err := db.Exec(`
			INSERT INTO clients (name, email, address)
			VALUES (?, ?, ?)
		`, args.Name, args.Email, args.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to add client: %w", err)
		}

		id, _ := result.LastInsertId()

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Client '%s' added successfully (ID: %d)", args.Name, id),
				},
			},
		}, nil, nil
	})

	// Add Project tool
	type addProjectArgs struct {
		ClientID int64  `json:"client_id" jsonschema:"Client the project belongs to"`
		Name     string `json:"name" jsonschema:"Project name"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_project",
		Description: "Add a new project for a client",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addProjectArgs) (*mcp.CallToolResult, any, error) {
		var exists int
		err := db.QueryRow(`SELECT COUNT(*) FROM clients WHERE id = ?`, args.ClientID).Scan(&exists)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check client: %w", err)
		}
		if exists == 0 {
			return nil, nil, fmt.Errorf("client %d not found", args.ClientID)
		}

		result, err := db.Exec(`
			INSERT INTO projects (client_id, name)
			VALUES (?, ?)
		`, args.ClientID, args.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to add project: %w", err)
		}

		id, _ := result.LastInsertId()

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Project '%s' added for client %d (ID: %d)", args.Name, args.ClientID, id),
				},
			},
		}, nil, nil
	})

	// List Projects tool
	type listProjectsArgs struct {
		IncludeArchived bool `json:"include_archived,omitempty" jsonschema:"Include archived projects"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_projects",
		Description: "List projects with their clients",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listProjectsArgs) (*mcp.CallToolResult, any, error) {
		query := `
			SELECT p.id, p.client_id, p.name, p.archived, p.created_at, p.updated_at, c.name
			FROM projects p
			JOIN clients c ON p.client_id = c.id
		`
		if !args.IncludeArchived {
			query += ` WHERE p.archived = 0`
		}
		query += ` ORDER BY p.name`

		rows, err := db.Query(query)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list projects: %w", err)
		}
		defer rows.Close()

		var projects []models.Project
		text := ""
		for rows.Next() {
			var p models.Project
			var archived int
			var clientName string
			if err := rows.Scan(&p.ID, &p.ClientID, &p.Name, &archived, &p.CreatedAt, &p.UpdatedAt, &clientName); err != nil {
				return nil, nil, fmt.Errorf("failed to scan project: %w", err)
			}
			p.Archived = archived == 1
			projects = append(projects, p)
			text += fmt.Sprintf("- ID %d: %s (client: %s)\n", p.ID, p.Name, clientName)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Found %d projects:\n%s", len(projects), text)},
			},
		}, projects, nil
	})
}

type Handler struct {
	db *sql.DB
}

// getClient returns the client record, or nil when the directory has no
// row for it; PDF export degrades gracefully without directory data.
func (h *Handler) getClient(id int64) *models.Client {
	c := &models.Client{}
	var email, address sql.NullString
	err := h.db.QueryRow(`
		SELECT id, name, email, address FROM clients WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &email, &address)
	if err != nil {
		return nil
	}
	c.Email = email.String
	c.Address = address.String
	return c
}

func (h *Handler) getProject(id int64) *models.Project {
	p := &models.Project{}
	var archived int
	err := h.db.QueryRow(`
		SELECT id, client_id, name, archived FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.ClientID, &p.Name, &archived)
	if err != nil {
		return nil
	}
	p.Archived = archived == 1
	return p
}
