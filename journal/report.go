package journal

import (
	"io"
	"text/template"
	"time"
)

// RunRecord summarizes one simulation run.
type RunRecord struct {
	RunID   string
	Created time.Time
	Policy  string
	Dataset string

	Start time.Time
	End   time.Time

	Events     int
	Executions int

	Currency       string
	StartEquity    float64
	EndEquity      float64
	MaxDrawdownPct float64
}

func (r RunRecord) NetPL() float64 { return r.EndEquity - r.StartEquity }

func (r RunRecord) ReturnPct() float64 {
	if r.StartEquity == 0 {
		return 0
	}
	return r.NetPL() / r.StartEquity * 100
}

var reportFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var reportTemplate = template.Must(template.New("run").Funcs(reportFuncs).Parse(RunReportTemplate))

// WriteReport renders the run summary as an org-mode section.
func (r RunRecord) WriteReport(w io.Writer) error {
	return reportTemplate.Execute(w, r)
}

const RunReportTemplate = `* RUN: {{if .Policy}}{{.Policy}}{{else}}(policy?){{end}} {{.Start.Format "2006-01-02"}}..{{.End.Format "2006-01-02"}}
:PROPERTIES:
:RUN_ID:       {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:POLICY:       {{.Policy}}
:DATASET:      {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START:        {{.Start.Format "2006-01-02 15:04:05"}}
:END_TIME:     {{.End.Format "2006-01-02 15:04:05"}}
:CURRENCY:     {{.Currency}}
:START_EQUITY: {{printf "%.2f" .StartEquity}}
:END_EQUITY:   {{printf "%.2f" .EndEquity}}
:NET_PL:       {{printf "%.2f" .NetPL}}
:RETURN_PCT:   {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:   {{printf "%.2f" .MaxDrawdownPct}}
:EVENTS:       {{.Events}}
:EXECUTIONS:   {{.Executions}}
:CREATED:      [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:      *{{printf "%.2f" .NetPL}} {{.Currency}}*
- Return:       *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown: *{{printf "%.2f" .MaxDrawdownPct}}%*
`
