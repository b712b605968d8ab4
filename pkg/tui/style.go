package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/unowned-ai/moodiary/pkg/moods"
)

// UI styles and layout settings
// Color palette "Blue Moon" from https://gogh-co.github.io/Gogh/
const (
	colorGray     = "#353b52"
	colorWhite    = "#ffffff"
	colorGreen    = "#acfab4"
	colorGreenDim = "#b4c4b4"
	colorRed      = "#e61f44"
	colorRedDim   = "#d06178"
	colorPurple   = "#b9a3eb"
	colorBlue     = "#89ddff"
	colorYellow   = "#ffd580"

	marqueeTickDuration = time.Duration(time.Second / 20)

	bordersAndPaddingWidth = 4
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color(colorBlue)).
			Background(lipgloss.Color(colorGray)).
			Padding(0, 2).Align(lipgloss.Center)
	subtitleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color(colorBlue))
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)).
			Background(lipgloss.Color(colorGreen))
	dangerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colorGray)).
				Background(lipgloss.Color(colorRed))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreenDim))
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWhite))
	textRedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue))
	todayStyle    = lipgloss.NewStyle().Bold(true).Underline(true).
			Foreground(lipgloss.Color(colorWhite))
	dayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreenDim))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray))
)

// moodStyle colours each mood from warm green down to red.
var moodStyle = map[moods.Mood]lipgloss.Style{
	moods.VeryHappy: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorGreen)),
	moods.Happy:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreenDim)),
	moods.Neutral:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue)),
	moods.Sad:       lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
	moods.VerySad:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorRed)),
}

func styleFor(m moods.Mood) lipgloss.Style {
	if s, ok := moodStyle[m]; ok {
		return s
	}
	return textStyle
}

// TextStatusColorize colours text by status.
// 0 (default) - unknown, 1 - green, 2 - red
func TextStatusColorize(text string, status int) string {
	switch status {
	case 1:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreenDim)).Render(text)
	case 2:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorRedDim)).Render(text)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)).Render(text)
	}
}

// Generates pointer symbol when line in focus
func generateLinePointer(isPoint bool, length int) string {
	if isPoint {
		return ">" + strings.Repeat(" ", length-1)
	}
	return strings.Repeat(" ", length)
}

// marqueeText scrolls text through a window of availableWidth runes.
func (m model) marqueeText(text string, availableWidth int) string {
	runes := []rune(text)
	if availableWidth <= 0 || len(runes) <= availableWidth {
		return text
	}
	padded := append(append(runes, []rune("    ")...), runes...)
	offset := m.marqueeOffset % (len(runes) + bordersAndPaddingWidth)
	return string(padded[offset : offset+availableWidth])
}

// truncate shortens text to width runes, marking the cut with "..".
func truncate(text string, width int) string {
	runes := []rune(text)
	if width <= 3 || len(runes) <= width {
		return text
	}
	return string(runes[:width-2]) + ".."
}

// columnWidths splits the terminal between the calendar and the entry
// panel, giving more room to whichever has focus.
func (m model) columnWidths() (int, int) {
	left := (m.width * 45) / 100
	if m.focus == focusEditor {
		left = (m.width * 35) / 100
	}
	if left < calendarWidth+bordersAndPaddingWidth {
		left = calendarWidth + bordersAndPaddingWidth
	}
	return left, m.width - left
}
