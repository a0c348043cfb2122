package pdf

import (
	"fmt"

	"github.com/austin/timebill-mcp/internal/models"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type InvoiceGenerator struct{}

func NewInvoiceGenerator() *InvoiceGenerator {
	return &InvoiceGenerator{}
}

// Generate renders a draft invoice with its time entry line items to a PDF
// file at outputPath. Client and project details are optional; the monetary
// rows always come from the invoice record itself so the document matches
// what was reconciled.
func (g *InvoiceGenerator) Generate(invoice models.Invoice, outputPath string) error {
	m := maroto.New(config.NewBuilder().Build())

	projectName := fmt.Sprintf("Project %d", invoice.ProjectID)
	if invoice.Project != nil {
		projectName = invoice.Project.Name
	}

	m.AddRow(10,
		col.New(8).Add(
			text.New(projectName, props.Text{
				Size:  16,
				Style: fontstyle.Bold,
			}),
		),
		col.New(4).Add(
			text.New("INVOICE", props.Text{
				Size:  20,
				Style: fontstyle.BoldItalic,
				Align: align.Right,
			}),
		),
	)

	m.AddRow(6,
		col.New(8),
		col.New(4).Add(
			text.New(fmt.Sprintf("Invoice #: %s", invoice.InvoiceNumber), props.Text{
				Size:  10,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
	)

	m.AddRow(5,
		col.New(8),
		col.New(4).Add(
			text.New(fmt.Sprintf("Date: %s", invoice.IssueDate.Format("January 2, 2006")), props.Text{
				Size:  9,
				Align: align.Right,
			}),
		),
	)

	m.AddRow(5,
		col.New(8),
		col.New(4).Add(
			text.New(fmt.Sprintf("Due Date: %s", invoice.DueDate.Format("January 2, 2006")), props.Text{
				Size:  9,
				Align: align.Right,
			}),
		),
	)

	m.AddRow(10)

	if invoice.Client != nil {
		m.AddRow(8,
			col.New(12).Add(
				text.New(fmt.Sprintf("Bill To: %s", invoice.Client.Name), props.Text{
					Size:  11,
					Style: fontstyle.Bold,
				}),
			),
		)
		if invoice.Client.Email != "" {
			m.AddRow(5,
				col.New(12).Add(
					text.New(invoice.Client.Email, props.Text{
						Size: 9,
					}),
				),
			)
		}
		if invoice.Client.Address != "" {
			m.AddRow(5,
				col.New(12).Add(
					text.New(invoice.Client.Address, props.Text{
						Size: 9,
					}),
				),
			)
		}
		m.AddRow(10)
	}

	m.AddRow(8,
		col.New(12).Add(
			text.New("Time Entries", props.Text{
				Size:  12,
				Style: fontstyle.Bold,
			}),
		),
	)

	m.AddRow(8,
		col.New(2).Add(
			text.New("Date", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
			}),
		),
		col.New(5).Add(
			text.New("Description", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
			}),
		),
		col.New(1).Add(
			text.New("Hours", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
		col.New(2).Add(
			text.New("Rate", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
		col.New(2).Add(
			text.New("Amount", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
	)

	var totalMinutes int64
	for _, entry := range invoice.TimeEntries {
		totalMinutes += entry.DurationMinutes

		m.AddRow(6,
			col.New(2).Add(
				text.New(entry.StartTime.Format("2006-01-02"), props.Text{
					Size: 8,
				}),
			),
			col.New(5).Add(
				text.New(entry.Description, props.Text{
					Size: 8,
				}),
			),
			col.New(1).Add(
				text.New(fmt.Sprintf("%.2f", float64(entry.DurationMinutes)/60), props.Text{
					Size:  8,
					Align: align.Right,
				}),
			),
			col.New(2).Add(
				text.New(fmt.Sprintf("%.2f", entry.HourlyRate), props.Text{
					Size:  8,
					Align: align.Right,
				}),
			),
			col.New(2).Add(
				text.New(fmt.Sprintf("%.2f", entry.TotalCost), props.Text{
					Size:  8,
					Align: align.Right,
				}),
			),
		)
	}

	m.AddRow(8)

	m.AddRow(6,
		col.New(7),
		col.New(2).Add(
			text.New("Total Hours:", props.Text{
				Size: 9,
			}),
		),
		col.New(3).Add(
			text.New(fmt.Sprintf("%.2f", float64(totalMinutes)/60), props.Text{
				Size:  9,
				Align: align.Right,
			}),
		),
	)

	m.AddRow(6,
		col.New(7),
		col.New(2).Add(
			text.New("Subtotal:", props.Text{
				Size: 9,
			}),
		),
		col.New(3).Add(
			text.New(fmt.Sprintf("%.2f", invoice.Amount), props.Text{
				Size:  9,
				Align: align.Right,
			}),
		),
	)

	m.AddRow(6,
		col.New(7),
		col.New(2).Add(
			text.New("Tax:", props.Text{
				Size: 9,
			}),
		),
		col.New(3).Add(
			text.New(fmt.Sprintf("%.2f", invoice.TaxAmount), props.Text{
				Size:  9,
				Align: align.Right,
			}),
		),
	)

	m.AddRow(8,
		col.New(7),
		col.New(2).Add(
			text.New("Total:", props.Text{
				Size:  10,
				Style: fontstyle.Bold,
			}),
		),
		col.New(3).Add(
			text.New(fmt.Sprintf("%.2f", invoice.TotalAmount), props.Text{
				Size:  10,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
	)

	document, err := m.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate PDF document: %w", err)
	}

	if err := document.Save(outputPath); err != nil {
		return fmt.Errorf("failed to save PDF: %w", err)
	}

	return nil
}
