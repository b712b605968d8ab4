package service

import (
	"context"

	"github.com/golang-sql/civil"

	"github.com/unowned-ai/moodiary/pkg/moods"
)

// Filter narrows a listing. Zero fields do not filter; From and To are
// inclusive and either may be left open.
type Filter struct {
	Mood  moods.Mood
	From  civil.Date
	To    civil.Date
	Limit int
}

func (f Filter) hasRange() bool {
	return f.From.IsValid() || f.To.IsValid()
}

func (f Filter) keep(e moods.Entry) bool {
	if f.Mood.Valid() && e.Mood != f.Mood {
		return false
	}
	if f.From.IsValid() && e.Date.Before(f.From) {
		return false
	}
	if f.To.IsValid() && e.Date.After(f.To) {
		return false
	}
	return true
}

var (
	minDate = civil.Date{Year: 1, Month: 1, Day: 1}
	maxDate = civil.Date{Year: 9999, Month: 12, Day: 31}
)

// Find runs the narrowest store query for f and applies the rest in memory.
// Results are newest first.
func (s *Service) Find(ctx context.Context, f Filter) ([]moods.Entry, error) {
	var (
		entries []moods.Entry
		err     error
	)
	switch {
	case f.Mood.Valid():
		entries, err = s.store.ListByMood(ctx, f.Mood)
	case f.hasRange():
		from, to := f.From, f.To
		if !from.IsValid() {
			from = minDate
		}
		if !to.IsValid() {
			to = maxDate
		}
		entries, err = s.store.ListBetween(ctx, from, to)
	case f.Limit > 0:
		return s.store.ListRecent(ctx, f.Limit)
	default:
		return s.store.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := entries[:0]
	for _, e := range entries {
		if f.keep(e) {
			out = append(out, e)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
