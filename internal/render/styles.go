// Package render turns view-model output into terminal text. It holds no
// state beyond the progress bar and never talks to the network.
package render

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.Color("#7D56F4")
	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().Foreground(Muted)
	ValueStyle = lipgloss.NewStyle().Bold(true)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(Muted)
)
