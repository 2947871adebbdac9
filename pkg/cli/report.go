package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Vvil1568/lct-hackathone/pkg/logging"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

const reportQueryWidth = 80

// consoleReporter prints analysis reports and loop traces for a terminal.
type consoleReporter struct {
	out io.Writer
}

func newConsoleReporter(out io.Writer, noColor bool) *consoleReporter {
	if noColor {
		color.NoColor = true
	}
	return &consoleReporter{out: out}
}

func priorityColor(priority int) *color.Color {
	switch {
	case priority >= 9:
		return color.New(color.FgRed, color.Bold)
	case priority >= 7:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgBlue, color.Bold)
	}
}

// Report prints ranked queries and findings, dominant finding first.
func (r *consoleReporter) Report(report *models.AnalysisReport) {
	if report == nil {
		return
	}

	fmt.Fprintln(r.out, color.New(color.Bold).Sprint("Top queries by cost"))
	if len(report.RankedQueries) == 0 {
		fmt.Fprintln(r.out, color.YellowString("  no query could be planned"))
	}
	for i, q := range report.RankedQueries {
		fmt.Fprintf(r.out, "  %d. %s cost=%s tables=%s\n",
			i+1,
			color.CyanString(q.QueryID),
			color.MagentaString("%d", q.Cost),
			strings.Join(q.Tables, ","))
		fmt.Fprintf(r.out, "     %s\n", logging.TruncateString(strings.Join(strings.Fields(q.Query), " "), reportQueryWidth))
	}
	fmt.Fprintln(r.out)

	if len(report.Findings) == 0 {
		fmt.Fprintln(r.out, color.GreenString("✔ No costly patterns detected."))
		return
	}

	fmt.Fprintln(r.out, color.New(color.Bold).Sprint("Findings"))
	for i, f := range report.Findings {
		marker := " "
		if i == 0 {
			marker = color.RedString("★")
		}
		fmt.Fprintf(r.out, "%s [%s] %s (%s)\n",
			marker,
			priorityColor(f.Priority).Sprintf("P%d", f.Priority),
			f.PatternName,
			f.DetectorID)
		fmt.Fprintf(r.out, "\t%s\n", f.Message)
		if ids := f.MatchedQueryIDs(); len(ids) > 0 {
			fmt.Fprintf(r.out, "\tqueries: %s\n", strings.Join(ids, ", "))
		}
	}
	fmt.Fprintf(r.out, "\n%s %d finding(s).\n", color.YellowString("⚠"), len(report.Findings))
}

// Transitions prints the correction loop trace.
func (r *consoleReporter) Transitions(transitions []models.LoopTransition) {
	if len(transitions) == 0 {
		return
	}
	fmt.Fprintln(r.out, color.New(color.Bold).Sprint("Correction loop"))
	for _, t := range transitions {
		line := fmt.Sprintf("  #%d %s → %s", t.Attempt, t.From, t.To)
		if t.Error != "" {
			fmt.Fprintf(r.out, "%s %s\n", line, color.RedString(logging.TruncateString(t.Error, reportQueryWidth)))
			continue
		}
		fmt.Fprintln(r.out, line)
	}
	fmt.Fprintln(r.out)
}

// Outcome prints a one-line verdict.
func (r *consoleReporter) Outcome(outcome models.Outcome) {
	switch {
	case outcome.Failed():
		fmt.Fprintf(r.out, "%s %s\n", color.RedString("✘"), outcome.Error)
	case outcome.Candidate == nil:
		fmt.Fprintln(r.out, color.YellowString("No remediation proposed."))
	default:
		fmt.Fprintf(r.out, "%s remediation validated: %d ddl, %d migrations, %d queries\n",
			color.GreenString("✔"),
			len(outcome.Candidate.DDL),
			len(outcome.Candidate.Migrations),
			len(outcome.Candidate.Queries))
	}
}
