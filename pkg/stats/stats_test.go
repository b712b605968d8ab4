package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unowned-ai/moodiary/pkg/moods"
)

func d(t *testing.T, s string) civil.Date {
	t.Helper()
	date, err := civil.ParseDate(s)
	require.NoError(t, err)
	return date
}

func e(t *testing.T, date string, m moods.Mood) moods.Entry {
	t.Helper()
	return moods.Entry{Date: d(t, date), Mood: m}
}

func TestCountsByMood(t *testing.T) {
	t.Parallel()

	counts := CountsByMood([]moods.Entry{
		e(t, "2024-01-01", moods.Happy),
		e(t, "2023-01-01", moods.Happy),
		e(t, "2020-05-05", moods.VerySad),
	})

	assert.Len(t, counts, 5)
	assert.Equal(t, 2, counts[moods.Happy])
	assert.Equal(t, 1, counts[moods.VerySad])
	assert.Equal(t, 0, counts[moods.Neutral])
	assert.Equal(t, 3, counts.Total())

	empty := CountsByMood(nil)
	assert.Len(t, empty, 5)
	assert.Zero(t, empty.Total())
}

func TestMostFrequent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		counts Counts
		want   moods.Mood
	}{
		{
			name:   "tie goes to the most positive",
			counts: Counts{moods.VeryHappy: 2, moods.Happy: 2},
			want:   moods.VeryHappy,
		},
		{
			name:   "tie among negative moods",
			counts: Counts{moods.Sad: 3, moods.VerySad: 3, moods.Happy: 1},
			want:   moods.Sad,
		},
		{
			name:   "clear winner",
			counts: Counts{moods.VerySad: 5, moods.Neutral: 1},
			want:   moods.VerySad,
		},
		{
			name:   "all zero is neutral",
			counts: CountsByMood(nil),
			want:   moods.Neutral,
		},
		{
			name:   "nil map is neutral",
			counts: nil,
			want:   moods.Neutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MostFrequent(tt.counts))
		})
	}
}

func TestWeightedScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		counts Counts
		want   Score
	}{
		{
			name:   "one of each except neutral",
			counts: Counts{moods.VeryHappy: 1, moods.Happy: 1, moods.Neutral: 0, moods.Sad: 1, moods.VerySad: 1},
			want:   50,
		},
		{
			name:   "floors the average",
			counts: Counts{moods.VeryHappy: 1, moods.Happy: 2},
			want:   83, // 250 / 3
		},
		{
			name:   "all very happy",
			counts: Counts{moods.VeryHappy: 7},
			want:   100,
		},
		{
			name:   "all very sad",
			counts: Counts{moods.VerySad: 3},
			want:   0,
		},
		{
			name:   "no data",
			counts: CountsByMood(nil),
			want:   NoScore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, WeightedScore(tt.counts))
		})
	}
}

func TestWeightedScore_Bounds(t *testing.T) {
	t.Parallel()

	for vh := 0; vh < 4; vh++ {
		for h := 0; h < 4; h++ {
			for n := 0; n < 4; n++ {
				for s := 0; s < 4; s++ {
					for vs := 0; vs < 4; vs++ {
						c := Counts{moods.VeryHappy: vh, moods.Happy: h, moods.Neutral: n, moods.Sad: s, moods.VerySad: vs}
						score := WeightedScore(c)
						if c.Total() == 0 {
							require.Equal(t, NoScore, score)
							continue
						}
						require.True(t, score >= 0 && score <= 100, "score %d out of range for %v", score, c)
					}
				}
			}
		}
	}
}

func TestScore_Render(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "--", NoScore.String())
	assert.Equal(t, "42", Score(42).String())

	raw, err := json.Marshal(struct {
		A Score `json:"a"`
		B Score `json:"b"`
	}{A: NoScore, B: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":7}`, string(raw))
}

func TestScoreBand(t *testing.T) {
	t.Parallel()

	cases := map[Score]moods.Mood{
		100:     moods.VeryHappy,
		80:      moods.VeryHappy,
		79:      moods.Happy,
		60:      moods.Happy,
		59:      moods.Neutral,
		40:      moods.Neutral,
		39:      moods.Sad,
		20:      moods.Sad,
		19:      moods.VerySad,
		0:       moods.VerySad,
		NoScore: moods.Neutral,
	}
	for score, want := range cases {
		assert.Equal(t, want, ScoreBand(score), "score %d", score)
	}
}

func TestPercentages(t *testing.T) {
	t.Parallel()

	pct := Percentages(Counts{moods.Happy: 1, moods.Sad: 2})
	assert.Equal(t, 33, pct[moods.Happy])
	assert.Equal(t, 66, pct[moods.Sad])
	assert.Equal(t, 0, pct[moods.VeryHappy])

	none := Percentages(CountsByMood(nil))
	for _, m := range moods.All {
		assert.Equal(t, 0, none[m])
	}
}

func TestMonthBefore(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"2024-03-31", "2024-02-29"},
		{"2023-03-31", "2023-02-28"},
		{"2024-01-15", "2023-12-15"},
		{"2024-05-31", "2024-04-30"},
		{"2024-03-15", "2024-02-15"},
		{"2024-01-31", "2023-12-31"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MonthBefore(d(t, tt.in)).String(), "MonthBefore(%s)", tt.in)
	}
}

func TestTrendSeries(t *testing.T) {
	t.Parallel()

	asOf := d(t, "2024-03-31")
	entries := []moods.Entry{
		e(t, "2024-03-31", moods.VeryHappy), // upper bound, inclusive
		e(t, "2024-03-10", moods.Sad),
		e(t, "2024-02-29", moods.Neutral), // lower bound, inclusive
		e(t, "2024-02-28", moods.Happy),   // just outside
		e(t, "2024-04-01", moods.Happy),   // future
	}

	points := TrendSeries(entries, asOf)
	require.Len(t, points, 3)

	assert.Equal(t, "2024-02-29", points[0].Date.String())
	assert.Equal(t, 3, points[0].Value)
	assert.Equal(t, "29", points[0].Label)

	assert.Equal(t, "2024-03-10", points[1].Date.String())
	assert.Equal(t, 2, points[1].Value)

	assert.Equal(t, "2024-03-31", points[2].Date.String())
	assert.Equal(t, 5, points[2].Value)

	for i, p := range points {
		assert.Equal(t, i, p.Index)
		assert.False(t, p.Placeholder)
	}
}

func TestTrendSeries_Placeholder(t *testing.T) {
	t.Parallel()

	for name, entries := range map[string][]moods.Entry{
		"nil":           nil,
		"out of window": {e(t, "2020-01-01", moods.VeryHappy)},
	} {
		points := TrendSeries(entries, d(t, "2024-03-31"))
		require.Len(t, points, 1, name)
		assert.True(t, points[0].Placeholder, name)
		assert.Equal(t, 3, points[0].Value, name)
	}
}

func TestDistributionSeries(t *testing.T) {
	t.Parallel()

	slices := DistributionSeries(Counts{moods.Sad: 4})
	require.Len(t, slices, 5)
	for i, m := range moods.All {
		assert.Equal(t, m, slices[i].Mood)
		assert.Equal(t, m.Glyph(), slices[i].Label)
	}
	assert.Equal(t, 4, slices[3].Count)
	assert.Equal(t, 0, slices[0].Count)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	entries := []moods.Entry{
		e(t, "2024-03-01", moods.VeryHappy),
		e(t, "2024-03-02", moods.Happy),
		e(t, "2024-03-03", moods.Sad),
		e(t, "2024-03-04", moods.VerySad),
	}
	s := Summarize(entries, d(t, "2024-03-10"))

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, Score(50), s.Score)
	assert.Equal(t, moods.Neutral, s.Band)
	assert.Equal(t, moods.VeryHappy, s.MostFrequent)
	assert.Equal(t, 1, s.CountOf(moods.Sad))
	assert.Equal(t, 25, s.PercentOf(moods.Sad))
	assert.Len(t, s.Trend, 4)
	assert.Len(t, s.Distribution, 5)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "very-happy", decoded["most_frequent"])
	assert.Equal(t, float64(50), decoded["score"])

	empty := Summarize(nil, d(t, "2024-03-10"))
	assert.Equal(t, NoScore, empty.Score)
	assert.Equal(t, moods.Neutral, empty.MostFrequent)
	require.Len(t, empty.Trend, 1)
	assert.True(t, empty.Trend[0].Placeholder)
}

func TestMonthGrid(t *testing.T) {
	t.Parallel()

	// February 2024 starts on a Thursday and has 29 days.
	g := MonthGrid(2024, time.February, []moods.Entry{
		{Date: d(t, "2024-02-14"), Mood: moods.VeryHappy, Title: "valentine"},
		{Date: d(t, "2024-03-01"), Mood: moods.Sad},
	})

	require.Len(t, g.Weeks, 5)
	assert.False(t, g.Weeks[0][2].Date.IsValid(), "Wednesday before the 1st is blank")
	assert.Equal(t, "2024-02-01", g.Weeks[0][3].Date.String())
	assert.Equal(t, "2024-02-29", g.Weeks[4][3].Date.String())

	c, ok := g.Cell(d(t, "2024-02-14"))
	require.True(t, ok)
	assert.True(t, c.HasEntry())
	assert.Equal(t, "valentine", c.Title)

	c, ok = g.Cell(d(t, "2024-02-15"))
	require.True(t, ok)
	assert.False(t, c.HasEntry())

	_, ok = g.Cell(d(t, "2024-03-01"))
	assert.False(t, ok)
}

func TestParseMonth(t *testing.T) {
	t.Parallel()

	today := d(t, "2024-03-15")

	y, m, err := ParseMonth("", today)
	require.NoError(t, err)
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.March, m)

	y, m, err = ParseMonth("2023-12", today)
	require.NoError(t, err)
	assert.Equal(t, 2023, y)
	assert.Equal(t, time.December, m)

	_, _, err = ParseMonth("2023-13", today)
	assert.ErrorIs(t, err, moods.ErrInvalidDate)

	first, last := MonthBounds(2024, time.February)
	assert.Equal(t, "2024-02-01", first.String())
	assert.Equal(t, "2024-02-29", last.String())
}
