package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"

	"github.com/unowned-ai/moodiary/pkg/moods"
)

// Cell is one day of a month grid. Mood is zero when the day has no entry.
type Cell struct {
	Date  civil.Date `json:"date"`
	Mood  moods.Mood `json:"mood,omitempty"`
	Title string     `json:"title,omitempty"`
}

// HasEntry reports whether an entry was recorded on the cell's day.
func (c Cell) HasEntry() bool {
	return c.Mood.Valid()
}

// Grid is a month laid out in Monday-first weeks. Cells outside the month
// are zero values.
type Grid struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks [][7]Cell  `json:"weeks"`
}

// MonthGrid lays out the given month and marks the days that have entries.
// Entries outside the month are ignored.
func MonthGrid(year int, month time.Month, entries []moods.Entry) Grid {
	byDay := make(map[int]moods.Entry, len(entries))
	for _, e := range entries {
		if e.Date.Year == year && e.Date.Month == month {
			byDay[e.Date.Day] = e
		}
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) + 6) % 7 // Monday = 0
	days := daysIn(year, month)

	g := Grid{Year: year, Month: month}
	var week [7]Cell
	col := offset
	for d := 1; d <= days; d++ {
		cell := Cell{Date: civil.Date{Year: year, Month: month, Day: d}}
		if e, ok := byDay[d]; ok {
			cell.Mood = e.Mood
			cell.Title = e.Title
		}
		week[col] = cell
		col++
		if col == 7 {
			g.Weeks = append(g.Weeks, week)
			week = [7]Cell{}
			col = 0
		}
	}
	if col > 0 {
		g.Weeks = append(g.Weeks, week)
	}
	return g
}

// Cell returns the cell for d, or false when d is outside the grid's month.
func (g Grid) Cell(d civil.Date) (Cell, bool) {
	for _, week := range g.Weeks {
		for _, c := range week {
			if c.Date == d {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// MonthBounds returns the first and last day of a month.
func MonthBounds(year int, month time.Month) (civil.Date, civil.Date) {
	return civil.Date{Year: year, Month: month, Day: 1},
		civil.Date{Year: year, Month: month, Day: daysIn(year, month)}
}

// ParseMonth reads YYYY-MM. An empty string means the month containing today.
func ParseMonth(s string, today civil.Date) (int, time.Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return today.Year, today.Month, nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: month %q, want YYYY-MM", moods.ErrInvalidDate, s)
	}
	return t.Year(), t.Month(), nil
}
