// Package report renders the result of a run for the terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/imamik/netfabric/internal/health"
	"github.com/imamik/netfabric/internal/orchestration"
	"github.com/imamik/netfabric/internal/probe"
)

// Monitor is the health of one Gatus instance.
type Monitor struct {
	Name   string
	Result *health.Result

	// Endpoints is set when statuses were fetched; StatusErr when that failed.
	Endpoints *health.Summary
	StatusErr error
}

// Summary is everything shown after a run. Nil sections are omitted.
type Summary struct {
	Name     string
	Run      *orchestration.RunOutcome
	Probes   *probe.Report
	Monitors []Monitor
	Err      error
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Write renders s to w, styled when w is a terminal.
func Write(w io.Writer, s Summary) error {
	_, err := io.WriteString(w, Render(s, IsTerminal(w)))
	return err
}

type painter struct{ styled bool }

func (p painter) paint(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

// Render returns the summary as text. Colours are only applied when styled
// is set.
func Render(s Summary, styled bool) string {
	p := painter{styled: styled}
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(p.paint(titleStyle, "  netfabric: "+s.Name))
	b.WriteString("\n")
	b.WriteString(p.paint(dimStyle, "  "+strings.Repeat("═", 30)))
	b.WriteString("\n")

	if s.Run != nil {
		renderStages(&b, p, s.Run)
	}
	if s.Probes != nil {
		renderProbes(&b, p, s.Probes)
	}
	if len(s.Monitors) > 0 {
		renderMonitors(&b, p, s.Monitors)
	}

	b.WriteString("\n")
	if s.Err != nil {
		b.WriteString(p.paint(failedStyle, fmt.Sprintf("  %s FAILED: %v", crossMark, s.Err)))
	} else {
		b.WriteString(p.paint(okStyle, fmt.Sprintf("  %s PASSED", checkMark)))
	}
	b.WriteString("\n")
	return b.String()
}

func section(b *strings.Builder, p painter, title string) {
	b.WriteString("\n")
	b.WriteString(p.paint(sectionStyle, "  "+title))
	b.WriteString("\n")
	b.WriteString(p.paint(dimStyle, "  "+strings.Repeat("─", 50)))
	b.WriteString("\n")
}

func renderStages(b *strings.Builder, p painter, run *orchestration.RunOutcome) {
	section(b, p, "Stages")
	for _, so := range run.Outcomes {
		var mark, detail string
		var style lipgloss.Style
		switch {
		case so.Err != nil:
			mark, style, detail = crossMark, failedStyle, firstLine(so.Err.Error())
		case so.Skipped:
			mark, style, detail = skipMark, skippedStyle, "skipped: "+so.SkipReason
		case so.DestroyErr != nil:
			mark, style, detail = crossMark, failedStyle, "destroy failed: "+firstLine(so.DestroyErr.Error())
		case so.Destroyed:
			mark, style, detail = checkMark, okStyle, "applied, destroyed"
		case run.Preserved:
			mark, style, detail = keepMark, okStyle, "applied, preserved"
		default:
			mark, style, detail = checkMark, okStyle, "applied"
		}
		fmt.Fprintf(b, "  %s %-14s %s\n", p.paint(style, mark), so.Stage, p.paint(dimStyle, detail))
	}
	fmt.Fprintf(b, "  %s\n", p.paint(dimStyle, fmt.Sprintf("%s in %s", run.State, run.Duration.Round(time.Second))))
}

func renderProbes(b *strings.Builder, p painter, r *probe.Report) {
	section(b, p, "Reachability")
	for _, res := range r.Results {
		if res.Success {
			fmt.Fprintf(b, "  %s %-44s %s\n", p.paint(okStyle, checkMark), res.Name,
				p.paint(dimStyle, fmt.Sprintf("%d attempt(s)", res.Attempts)))
			continue
		}
		fmt.Fprintf(b, "  %s %-44s %s\n", p.paint(failedStyle, crossMark), res.Name,
			p.paint(dimStyle, fmt.Sprintf("failed after %d attempt(s)", res.Attempts)))
	}

	names := make([]string, 0, len(r.Errors))
	for name := range r.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, "  %s %-44s %s\n", p.paint(failedStyle, crossMark), name,
			p.paint(dimStyle, firstLine(r.Errors[name].Error())))
	}
}

func renderMonitors(b *strings.Builder, p painter, monitors []Monitor) {
	section(b, p, "Monitors")
	for _, m := range monitors {
		if m.Result == nil {
			continue
		}
		mark, style := checkMark, okStyle
		detail := fmt.Sprintf("healthy after %d attempt(s)", m.Result.Attempts)
		if !m.Result.Healthy {
			mark, style = crossMark, failedStyle
			detail = firstLine(m.Result.Message)
		}
		fmt.Fprintf(b, "  %s %-14s %s\n", p.paint(style, mark), m.Name, p.paint(dimStyle, detail))

		switch {
		case m.StatusErr != nil:
			fmt.Fprintf(b, "      %s\n", p.paint(dimStyle, "statuses unavailable: "+firstLine(m.StatusErr.Error())))
		case m.Endpoints != nil:
			fmt.Fprintf(b, "      %s\n", p.paint(dimStyle, fmt.Sprintf("%d/%d endpoints healthy", m.Endpoints.Healthy, m.Endpoints.Total)))
			for _, name := range m.Endpoints.Unhealthy {
				fmt.Fprintf(b, "      %s %s\n", p.paint(failedStyle, crossMark), name)
			}
		}
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
