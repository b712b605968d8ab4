// Package printers renders entries and statistics for the terminal, or as
// JSON when asked.
package printers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/unowned-ai/moodiary/pkg/moods"
)

// Printer writes command output to Out.
type Printer struct {
	Out  io.Writer
	JSON bool
}

// New returns a Printer on color.Output, which handles Windows consoles.
func New(asJSON bool) *Printer {
	return &Printer{Out: color.Output, JSON: asJSON}
}

var (
	titleStyle = color.New(color.Bold, color.Underline)
	faint      = color.New(color.Faint)
	none       = color.New(color.Faint, color.Italic)
	idStyle    = color.New(color.FgHiYellow, color.Italic, color.Faint)
	bold       = color.New(color.Bold)
)

// moodColor is the palette used for mood names and gauges.
var moodColor = map[moods.Mood]*color.Color{
	moods.VeryHappy: color.New(color.FgHiGreen, color.Bold),
	moods.Happy:     color.New(color.FgGreen),
	moods.Neutral:   color.New(color.FgHiBlue),
	moods.Sad:       color.New(color.FgYellow),
	moods.VerySad:   color.New(color.FgRed, color.Bold),
}

// MoodColor returns the colour mood m is drawn in.
func MoodColor(m moods.Mood) *color.Color {
	if c, ok := moodColor[m]; ok {
		return c
	}
	return color.New()
}

func (p *Printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Value prints v as indented JSON regardless of mode.
func (p *Printer) Value(v any) error {
	return p.writeJSON(v)
}

// Title prints a heading with an entry count.
func (p *Printer) Title(title string, count int) {
	_, _ = titleStyle.Fprint(p.Out, title)
	noun := "entries"
	if count == 1 {
		noun = "entry"
	}
	_, _ = faint.Fprintf(p.Out, " - %d %s\n", count, noun)
}

// Message prints a one-line status, or {"message": ...} in JSON mode.
func (p *Printer) Message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.JSON {
		return p.writeJSON(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(p.Out, msg)
	return err
}

// Entry prints one entry in full. A nil entry prints a placeholder, or null.
func (p *Printer) Entry(e *moods.Entry) error {
	if p.JSON {
		return p.writeJSON(e)
	}
	if e == nil {
		_, _ = none.Fprintln(p.Out, " no entry")
		return nil
	}

	_, _ = bold.Fprintf(p.Out, "%s  ", e.Date)
	_, _ = MoodColor(e.Mood).Fprintf(p.Out, "%s %s\n", e.Mood.Glyph(), e.Mood.Label())
	if e.Title != "" {
		_, _ = titleStyle.Fprintln(p.Out, e.Title)
	}
	if e.Body != "" {
		_, _ = fmt.Fprintln(p.Out, e.Body)
	}
	_, _ = faint.Fprintf(p.Out, "#%d  created %s  updated %s\n",
		e.ID,
		e.Created().Format("2006-01-02 15:04"),
		e.Updated().Format("2006-01-02 15:04"))
	return nil
}

// Entries prints a table of entries, newest first as given.
func (p *Printer) Entries(title string, entries []moods.Entry) error {
	if p.JSON {
		if entries == nil {
			entries = []moods.Entry{}
		}
		return p.writeJSON(entries)
	}

	p.Title(title, len(entries))
	if len(entries) == 0 {
		_, _ = none.Fprint(p.Out, " none\n\n")
		return nil
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Date"), bold.Sprint("Mood"), bold.Sprint("Title"))
	for _, e := range entries {
		tbl.AddRow(
			idStyle.Sprint(e.ID),
			e.Date.String(),
			MoodColor(e.Mood).Sprintf("%s %s", e.Mood.Glyph(), e.Mood.Label()),
			oneLine(e.Title),
		)
	}
	_, err := fmt.Fprintln(p.Out, tbl)
	return err
}

// Legend prints the mood scale.
func (p *Printer) Legend() error {
	if p.JSON {
		type legendRow struct {
			Mood    moods.Mood `json:"mood"`
			Glyph   string     `json:"glyph"`
			Label   string     `json:"label"`
			Ordinal int        `json:"ordinal"`
		}
		rows := make([]legendRow, 0, len(moods.All))
		for _, m := range moods.All {
			rows = append(rows, legendRow{Mood: m, Glyph: m.Glyph(), Label: m.Label(), Ordinal: m.Ordinal()})
		}
		return p.writeJSON(rows)
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Key"), bold.Sprint("Glyph"), bold.Sprint("Name"), bold.Sprint("Mood"))
	for _, m := range moods.All {
		tbl.AddRow(m.Ordinal(), m.Glyph(), m.String(), MoodColor(m).Sprint(m.Label()))
	}
	_, err := fmt.Fprintln(p.Out, tbl)
	return err
}

// Error prints err as {"error": ...} in JSON mode and reports it handled.
// Outside JSON mode it returns err for the caller to surface.
func (p *Printer) Error(err error) error {
	if p.JSON && err != nil {
		if werr := p.writeJSON(map[string]string{"error": err.Error()}); werr != nil {
			return werr
		}
		return nil
	}
	return err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
