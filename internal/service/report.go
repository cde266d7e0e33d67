package service

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/Dan9191/float-report/internal/models"
	"github.com/Dan9191/float-report/internal/utils"
)

const (
	reportTitle      = "Daily Float Reconciliation Report"
	errorMarker      = "ERROR"
	incompleteNotice = "One or more balances could not be extracted. Please check logs."
	timestampLayout  = "2006-01-02 15:04:05 MST"
)

var htmlReport = template.Must(template.New("report").Parse(`<html>
  <head>
    <style>
      body { font-family: Arial, sans-serif; }
      .report-table { border-collapse: collapse; width: 500px; margin: 18px 0; }
      .report-table th, .report-table td { border: 1px solid #ddd; padding: 8px; text-align: left; }
      .report-table th { background-color: #f2f2f2; font-weight: bold; }
      .ok { color: #228B22; font-weight: bold; }
      .warn { color: #B22222; font-weight: bold; }
      .error { color: #B22222; font-weight: bold; }
    </style>
  </head>
  <body>
    <h2>{{.Title}} for {{.ReportDate}}</h2>
    <p><b>Report generated at: {{.GeneratedAt}}</b></p>
    <table class="report-table">
      <tr><th>Account</th><th>Balance ({{.Currency}})</th></tr>
{{- range .Rows}}
      <tr><td>{{.Name}}</td><td>{{if .Valid}}{{.Amount}}{{else}}<span class="error">ERROR</span>{{end}}</td></tr>
{{- end}}
    </table>
{{- if .Complete}}
    <p class="{{.Class}}">{{.Formula}}</p>
    <p class="{{.Class}}">{{.Status}}</p>
{{- else}}
    <p class="error">{{.Notice}}</p>
{{- end}}
  </body>
</html>
`))

type reportRow struct {
	Name   string
	Amount string
	Valid  bool
}

type reportView struct {
	Title       string
	ReportDate  string
	GeneratedAt string
	Currency    string
	Rows        []reportRow
	Complete    bool
	Class       string
	Formula     string
	Status      string
	Notice      string
}

// RenderReport renders the plain-text and HTML forms of result. The report
// covers the day before GeneratedAt in loc
func RenderReport(result models.ReconciliationResult, loc *time.Location) models.Report {
	if loc == nil {
		loc = time.UTC
	}
	generated := result.GeneratedAt.In(loc)
	view := reportView{
		Title:       reportTitle,
		ReportDate:  generated.AddDate(0, 0, -1).Format(time.DateOnly),
		GeneratedAt: generated.Format(timestampLayout),
		Currency:    models.Currency,
		Rows: []reportRow{
			row("CIMB", result.CIMB),
			row("V2", result.V2),
			row("VAS", result.VAS),
		},
		Complete: result.Complete,
		Notice:   incompleteNotice,
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\nReport generated at: %s\n\n", view.Title, view.GeneratedAt)
	for _, r := range view.Rows {
		if r.Valid {
			fmt.Fprintf(&text, "%s Balance: %s %s\n", r.Name, r.Amount, models.Currency)
		} else {
			fmt.Fprintf(&text, "%s Balance: %s\n", r.Name, errorMarker)
		}
	}

	if result.Complete {
		residual := result.Residual.Decimal
		view.Formula = fmt.Sprintf("CIMB - (V2 + VAS) = %s %s", utils.FormatAmount(residual), models.Currency)
		if result.Surplus() {
			view.Class = "ok"
			view.Status = fmt.Sprintf("CIMB balance is sufficient. Surplus: %s %s.", utils.FormatAmount(residual), models.Currency)
		} else {
			view.Class = "warn"
			view.Status = fmt.Sprintf("Warning: Combined V2 and VAS float exceeds CIMB account by %s %s!",
				utils.FormatAmount(residual.Abs()), models.Currency)
		}
		fmt.Fprintf(&text, "\n%s\n\n%s\n", view.Formula, view.Status)
	} else {
		fmt.Fprintf(&text, "\n%s\n", incompleteNotice)
	}

	var html bytes.Buffer
	if err := htmlReport.Execute(&html, view); err != nil {
		// fall back to the text body
		html.Reset()
		html.WriteString("<html><body><pre>" + template.HTMLEscapeString(text.String()) + "</pre></body></html>")
	}

	return models.Report{
		Subject: fmt.Sprintf("%s for %s", view.Title, view.ReportDate),
		Text:    text.String(),
		HTML:    html.String(),
	}
}

func row(name string, b models.Balance) reportRow {
	r := reportRow{Name: name, Valid: b.Valid}
	if b.Valid {
		r.Amount = utils.FormatAmount(b.Amount)
	}
	return r
}
