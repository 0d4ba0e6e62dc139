package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/L1nMay/portscanner-console/internal/model"
	"github.com/L1nMay/portscanner-console/internal/results"
)

const (
	maxBannerLen = 48
	timeLayout   = "2006-01-02 15:04:05"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Findings renders one page of the result view.
func Findings(p results.Page) string {
	if p.Total == 0 {
		return LabelStyle.Render("No findings.")
	}

	t := newTable("IP", "PORT", "PROTO", "SERVICE", "BANNER", "LAST SEEN")
	for _, f := range p.Items {
		proto := f.Proto
		if proto == "" {
			proto = "tcp"
		}
		t.Row(
			f.IP,
			strconv.Itoa(f.Port),
			proto,
			f.ServiceName(),
			truncate(f.Banner, maxBannerLen),
			formatTime(f.LastSeen),
		)
	}

	footer := LabelStyle.Render(fmt.Sprintf("page %d/%d, %d findings", p.Page, p.PageCount, p.Total))
	return t.String() + "\n" + footer
}

// Runs renders the scan history, newest first.
func Runs(runs []model.ScanRun) string {
	if len(runs) == 0 {
		return LabelStyle.Render("No scans yet.")
	}

	t := newTable("STARTED", "ENGINE", "PORTS", "FOUND", "NEW", "NOTES")
	for _, r := range runs {
		t.Row(
			formatTime(r.StartedAt),
			r.Engine,
			r.PortsSpec,
			strconv.Itoa(r.Found),
			strconv.Itoa(r.NewFound),
			truncate(r.Notes, maxBannerLen),
		)
	}
	return t.String()
}

func kv(label string, value any) string {
	return LabelStyle.Render(fmt.Sprintf("%-14s", label)) + ValueStyle.Render(fmt.Sprint(value))
}

// Stats renders the summary block with the last run, if known.
func Stats(st model.Stats, runs []model.ScanRun) string {
	lines := []string{
		TitleStyle.Render("Port scanner"),
		kv("Findings", st.TotalFindings),
		kv("Unique hosts", st.UniqueHosts),
	}
	if last, ok := results.LastRun(runs); ok {
		lines = append(lines,
			kv("Last run", formatTime(last.StartedAt)),
			kv("Engine", last.Engine),
			kv("Found / new", fmt.Sprintf("%d / %d", last.Found, last.NewFound)),
		)
	} else {
		lines = append(lines, kv("Last run", "-"))
	}
	return strings.Join(lines, "\n")
}

// Plan renders the server's suggested scan.
func Plan(p model.ScanPlan) string {
	ports := p.Ports
	if ports == "" {
		ports = "auto"
	}
	lines := []string{
		TitleStyle.Render("Scan plan"),
		kv("Targets", strings.Join(p.Targets, ", ")),
		kv("Ports", ports),
		kv("Engine", p.Engine),
		kv("Interface", p.Interface),
		kv("Wait", fmt.Sprintf("%ds", p.WaitSeconds)),
		kv("Reason", p.Reason),
	}
	return strings.Join(lines, "\n")
}
