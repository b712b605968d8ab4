package printers

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/golang-sql/civil"
	"github.com/gosuri/uitable"

	"github.com/unowned-ai/moodiary/pkg/moods"
	"github.com/unowned-ai/moodiary/pkg/stats"
)

const barWidth = 20

// Bar draws a percentage as a fixed-width bar.
func Bar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * barWidth / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// Summary prints the statistics screen.
func (p *Printer) Summary(s stats.Summary) error {
	if p.JSON {
		return p.writeJSON(s)
	}

	_, _ = titleStyle.Fprintln(p.Out, "Mood statistics")
	_, _ = faint.Fprintf(p.Out, "as of %s, %d entries\n\n", s.AsOf, s.Total)

	gauge := MoodColor(s.Band)
	_, _ = bold.Fprint(p.Out, "Score  ")
	if s.Score.Valid() {
		_, _ = gauge.Fprintf(p.Out, "%s %3s/100\n", Bar(int(s.Score)), s.Score)
	} else {
		_, _ = none.Fprintf(p.Out, "%s %3s\n", Bar(0), s.Score)
	}
	_, _ = bold.Fprint(p.Out, "Most   ")
	if s.Total == 0 {
		_, _ = none.Fprintln(p.Out, "--")
	} else {
		_, _ = MoodColor(s.MostFrequent).Fprintf(p.Out, "%s %s\n", s.MostFrequent.Glyph(), s.MostFrequent.Label())
	}
	fmt.Fprintln(p.Out)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Mood"), bold.Sprint("Count"), bold.Sprint("Share"), "")
	for _, slice := range s.Distribution {
		pct := s.PercentOf(slice.Mood)
		c := MoodColor(slice.Mood)
		tbl.AddRow(
			c.Sprintf("%s %s", slice.Label, slice.Mood.Label()),
			slice.Count,
			fmt.Sprintf("%d%%", pct),
			c.Sprint(Bar(pct)),
		)
	}
	fmt.Fprintln(p.Out, tbl)
	fmt.Fprintln(p.Out)

	_, _ = bold.Fprintf(p.Out, "Trend since %s\n", stats.MonthBefore(s.AsOf))
	_, err := fmt.Fprintln(p.Out, Trend(s.Trend))
	return err
}

var levels = []string{"", "▁", "▃", "▅", "▆", "█"}

// Trend renders the series as a one-line chart, one column per point with
// day-of-month labels underneath every few columns.
func Trend(points []stats.TrendPoint) string {
	if len(points) == 1 && points[0].Placeholder {
		return none.Sprint("  no entries in the last month")
	}
	var chart, axis strings.Builder
	for i, pt := range points {
		glyph := " "
		if pt.Value >= 1 && pt.Value < len(levels) {
			glyph = levels[pt.Value]
		}
		chart.WriteString(MoodColor(moodForValue(pt.Value)).Sprint(glyph + glyph))
		if i%4 == 0 {
			axis.WriteString(fmt.Sprintf("%-8s", pt.Label))
		}
	}
	return chart.String() + "\n" + strings.TrimRight(axis.String(), " ")
}

func moodForValue(v int) moods.Mood {
	for _, m := range moods.All {
		if m.Ordinal() == v {
			return m
		}
	}
	return moods.Neutral
}

// Calendar prints a month grid with each recorded day's glyph. today is
// highlighted when it falls in the month.
func (p *Printer) Calendar(g stats.Grid, today civil.Date) error {
	if p.JSON {
		return p.writeJSON(g)
	}

	header := fmt.Sprintf("%s %d", g.Month, g.Year)
	_, _ = titleStyle.Fprintln(p.Out, header)
	_, _ = faint.Fprintln(p.Out, " Mo  Tu  We  Th  Fr  Sa  Su")

	todayStyle := color.New(color.Bold, color.Underline)
	recorded := 0
	for _, week := range g.Weeks {
		for _, cell := range week {
			switch {
			case !cell.Date.IsValid():
				fmt.Fprint(p.Out, "    ")
			case cell.HasEntry():
				recorded++
				fmt.Fprintf(p.Out, " %s ", cell.Mood.Glyph())
			case cell.Date == today:
				_, _ = todayStyle.Fprintf(p.Out, " %2d ", cell.Date.Day)
			default:
				_, _ = faint.Fprintf(p.Out, " %2d ", cell.Date.Day)
			}
		}
		fmt.Fprintln(p.Out)
	}
	_, err := faint.Fprintf(p.Out, "%d days recorded\n", recorded)
	return err
}
