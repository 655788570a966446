package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/cloudmatch/internal/models"
)

var styles = NewPalette("#C20C0C", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a small stylesheet of named [lipgloss.Style] fields.
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	latest lipgloss.Style
	pane   lipgloss.Style
	page   lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		ok:     NewBold(s),
		err:    NewBold(e),
		warn:   NewStyle(w),
		help:   NewEm(h),
		latest: lipgloss.NewStyle().Reverse(true),
		pane:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(h)).Padding(0, 1),
		page:   NewBold(t).Underline(true),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// entryStyle colors a log line by outcome.
func (p *Palette) entryStyle(s models.LogStatus) lipgloss.Style {
	switch s {
	case models.LogSuccess:
		return p.ok
	case models.LogFailed:
		return p.err
	default:
		return p.help
	}
}
