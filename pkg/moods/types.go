package moods

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// Mood is one of the five valence buckets an entry is filed under.
// The zero value is not a valid mood.
type Mood int

// Moods ordered by valence, most positive first.
const (
	VeryHappy Mood = iota + 1
	Happy
	Neutral
	Sad
	VerySad
)

// All lists every mood in valence order.
var All = []Mood{VeryHappy, Happy, Neutral, Sad, VerySad}

var moodNames = map[Mood]string{
	VeryHappy: "very-happy",
	Happy:     "happy",
	Neutral:   "neutral",
	Sad:       "sad",
	VerySad:   "very-sad",
}

var moodGlyphs = map[Mood]string{
	VeryHappy: "😄",
	Happy:     "🙂",
	Neutral:   "😐",
	Sad:       "😔",
	VerySad:   "😢",
}

var moodLabels = map[Mood]string{
	VeryHappy: "Very happy",
	Happy:     "Happy",
	Neutral:   "Calm",
	Sad:       "Sad",
	VerySad:   "Very sad",
}

// Valid reports whether m is one of the five known moods.
func (m Mood) Valid() bool {
	return m >= VeryHappy && m <= VerySad
}

// String returns the stable machine name, also used on disk.
func (m Mood) String() string {
	if name, ok := moodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mood(%d)", int(m))
}

// Glyph returns the emoji shown for the mood.
func (m Mood) Glyph() string {
	return moodGlyphs[m]
}

// Label returns the human readable name of the mood.
func (m Mood) Label() string {
	return moodLabels[m]
}

// Ordinal maps the mood onto 1 (VerySad) .. 5 (VeryHappy).
func (m Mood) Ordinal() int {
	if !m.Valid() {
		return 0
	}
	return int(VerySad-m) + 1
}

// ParseMood accepts a mood name ("very-happy", "very_happy", "VeryHappy"),
// its glyph, or its ordinal 1..5 where 5 is VeryHappy.
func ParseMood(s string) (Mood, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 5 {
			return 0, fmt.Errorf("%w: ordinal %d out of range 1..5", ErrInvalidMood, n)
		}
		return VerySad - Mood(n-1), nil
	}
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	for _, m := range All {
		if norm == strings.ReplaceAll(m.String(), "-", "") || s == m.Glyph() {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMood, s)
}

// MarshalText encodes the mood as its machine name.
func (m Mood) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMood, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes any form accepted by ParseMood.
func (m *Mood) UnmarshalText(b []byte) error {
	parsed, err := ParseMood(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Entry is a single mood record. At most one entry exists per Date.
type Entry struct {
	ID        int64      `json:"id"`
	Date      civil.Date `json:"date"`
	Mood      Mood       `json:"mood"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt int64      `json:"created_at"` // epoch milliseconds
	UpdatedAt int64      `json:"updated_at"` // epoch milliseconds
}

// Persisted reports whether the entry has been assigned an identity.
func (e Entry) Persisted() bool {
	return e.ID != 0
}

// Created returns CreatedAt as a time.Time.
func (e Entry) Created() time.Time {
	return time.UnixMilli(e.CreatedAt)
}

// Updated returns UpdatedAt as a time.Time.
func (e Entry) Updated() time.Time {
	return time.UnixMilli(e.UpdatedAt)
}

// Validate checks that the entry has a known mood and a real date.
func (e Entry) Validate() error {
	if !e.Mood.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMood, int(e.Mood))
	}
	if !e.Date.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidDate, e.Date)
	}
	return nil
}

// Snapshot is one result of a live query.
type Snapshot struct {
	Entries []Entry
	Err     error
}

// ParseDate parses a YYYY-MM-DD calendar date. The words "today" and
// "yesterday" resolve against now in the local zone.
func ParseDate(s string, now time.Time) (civil.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return civil.DateOf(now), nil
	case "yesterday":
		return civil.DateOf(now).AddDays(-1), nil
	}
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Today returns the current calendar date in the local zone.
func Today() civil.Date {
	return civil.DateOf(time.Now())
}
