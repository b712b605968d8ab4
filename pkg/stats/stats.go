// Package stats derives the figures shown on the statistics screen from a
// snapshot of entries. Every function here is pure and total: an empty input
// is valid and never an error.
package stats

import (
	"sort"
	"strconv"
	"time"

	"github.com/golang-sql/civil"

	"github.com/unowned-ai/moodiary/pkg/moods"
)

// Counts maps each mood to the number of entries filed under it.
// CountsByMood always fills all five keys.
type Counts map[moods.Mood]int

// Total is the number of entries counted.
func (c Counts) Total() int {
	total := 0
	for _, m := range moods.All {
		total += c[m]
	}
	return total
}

// Score is a weighted mood score in 0..100, or NoScore.
type Score int

// NoScore is reported when there is nothing to score.
const NoScore Score = -1

// Valid reports whether s holds a real score.
func (s Score) Valid() bool { return s >= 0 }

// MarshalJSON writes null for NoScore.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(s))), nil
}

func (s Score) String() string {
	if !s.Valid() {
		return "--"
	}
	return strconv.Itoa(int(s))
}

var weights = map[moods.Mood]int{
	moods.VeryHappy: 100,
	moods.Happy:     75,
	moods.Neutral:   50,
	moods.Sad:       25,
	moods.VerySad:   0,
}

// Weight returns the score weight of m.
func Weight(m moods.Mood) int {
	return weights[m]
}

// CountsByMood counts every entry, whatever its date.
func CountsByMood(entries []moods.Entry) Counts {
	counts := make(Counts, len(moods.All))
	for _, m := range moods.All {
		counts[m] = 0
	}
	for _, e := range entries {
		if e.Mood.Valid() {
			counts[e.Mood]++
		}
	}
	return counts
}

// MostFrequent returns the mood with the highest count. Ties go to the mood
// that comes first in valence order; all-zero counts give Neutral.
func MostFrequent(counts Counts) moods.Mood {
	best, bestCount := moods.Neutral, 0
	for _, m := range moods.All {
		if counts[m] > bestCount {
			best, bestCount = m, counts[m]
		}
	}
	return best
}

// WeightedScore is floor(sum(count*weight) / total), or NoScore when total is 0.
func WeightedScore(counts Counts) Score {
	total, sum := 0, 0
	for _, m := range moods.All {
		total += counts[m]
		sum += counts[m] * weights[m]
	}
	if total == 0 {
		return NoScore
	}
	return Score(sum / total)
}

// ScoreBand buckets a score into the mood used to colour the gauge.
func ScoreBand(s Score) moods.Mood {
	switch {
	case !s.Valid():
		return moods.Neutral
	case s >= 80:
		return moods.VeryHappy
	case s >= 60:
		return moods.Happy
	case s >= 40:
		return moods.Neutral
	case s >= 20:
		return moods.Sad
	default:
		return moods.VerySad
	}
}

// Percentages returns floor(count*100/total) per mood; all zero when total is 0.
func Percentages(counts Counts) map[moods.Mood]int {
	total := counts.Total()
	out := make(map[moods.Mood]int, len(moods.All))
	for _, m := range moods.All {
		if total == 0 {
			out[m] = 0
			continue
		}
		out[m] = counts[m] * 100 / total
	}
	return out
}

// TrendPoint is one sample of the trend line.
type TrendPoint struct {
	Index       int        `json:"index"`
	Date        civil.Date `json:"date"`
	Label       string     `json:"label"`
	Value       int        `json:"value"`
	Placeholder bool       `json:"placeholder,omitempty"`
}

// placeholderPoint keeps a chart from ever receiving an empty series.
var placeholderPoint = TrendPoint{Index: 0, Value: 3, Placeholder: true}

// TrendSeries keeps the entries dated within [MonthBefore(asOf), asOf],
// oldest first, valued VerySad=1 .. VeryHappy=5.
func TrendSeries(entries []moods.Entry, asOf civil.Date) []TrendPoint {
	from := MonthBefore(asOf)

	window := make([]moods.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Date.Before(from) || e.Date.After(asOf) || !e.Mood.Valid() {
			continue
		}
		window = append(window, e)
	}
	if len(window) == 0 {
		return []TrendPoint{placeholderPoint}
	}

	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Date.Before(window[j].Date)
	})

	points := make([]TrendPoint, len(window))
	for i, e := range window {
		points[i] = TrendPoint{
			Index: i,
			Date:  e.Date,
			Label: strconv.Itoa(e.Date.Day),
			Value: e.Mood.Ordinal(),
		}
	}
	return points
}

// Slice is one wedge of the distribution chart.
type Slice struct {
	Mood  moods.Mood `json:"mood"`
	Label string     `json:"label"`
	Count int        `json:"count"`
}

// DistributionSeries yields one slice per mood in valence order, including
// moods nobody picked, each labelled by its glyph.
func DistributionSeries(counts Counts) []Slice {
	slices := make([]Slice, len(moods.All))
	for i, m := range moods.All {
		slices[i] = Slice{Mood: m, Label: m.Glyph(), Count: counts[m]}
	}
	return slices
}

// MonthBefore steps back one calendar month. When the day does not exist in
// the earlier month it clamps to that month's last day, so 2024-03-31 gives
// 2024-02-29.
func MonthBefore(d civil.Date) civil.Date {
	year, month := d.Year, d.Month-1
	if month < time.January {
		year, month = year-1, time.December
	}
	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Summary bundles everything the statistics screen shows.
type Summary struct {
	AsOf         civil.Date     `json:"as_of"`
	Total        int            `json:"total"`
	Counts       map[string]int `json:"counts"`
	Percentages  map[string]int `json:"percentages"`
	MostFrequent moods.Mood     `json:"most_frequent"`
	Score        Score          `json:"score"`
	Band         moods.Mood     `json:"band"`
	Trend        []TrendPoint   `json:"trend"`
	Distribution []Slice        `json:"distribution"`
}

// Summarize computes every statistic over entries as of the given date.
func Summarize(entries []moods.Entry, asOf civil.Date) Summary {
	counts := CountsByMood(entries)
	pct := Percentages(counts)
	score := WeightedScore(counts)

	s := Summary{
		AsOf:         asOf,
		Total:        counts.Total(),
		Counts:       make(map[string]int, len(moods.All)),
		Percentages:  make(map[string]int, len(moods.All)),
		MostFrequent: MostFrequent(counts),
		Score:        score,
		Band:         ScoreBand(score),
		Trend:        TrendSeries(entries, asOf),
		Distribution: DistributionSeries(counts),
	}
	for _, m := range moods.All {
		s.Counts[m.String()] = counts[m]
		s.Percentages[m.String()] = pct[m]
	}
	return s
}

// CountOf returns the count for m.
func (s Summary) CountOf(m moods.Mood) int {
	return s.Counts[m.String()]
}

// PercentOf returns the whole percentage of entries filed under m.
func (s Summary) PercentOf(m moods.Mood) int {
	return s.Percentages[m.String()]
}
