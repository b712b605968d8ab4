// Package service is the seam between consumers (session, CLI, MCP, TUI) and
// whichever moods.Store backs the journal. It adds logging and live queries
// and passes every store error through unchanged.
package service

import (
	"context"
	"log/slog"

	"github.com/golang-sql/civil"

	"github.com/unowned-ai/moodiary/pkg/moods"
)

// Service delegates to a moods.Store.
type Service struct {
	store moods.Store
	log   *slog.Logger
}

// New wraps store. The service owns store and closes it in Close.
func New(store moods.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: store,
		log:   log.With("service", "entries"),
	}
}

func (s *Service) Insert(ctx context.Context, e moods.Entry) (int64, error) {
	id, err := s.store.Insert(ctx, e)
	if err != nil {
		s.log.DebugContext(ctx, "insert failed", "date", e.Date, "error", err)
		return 0, err
	}
	s.log.InfoContext(ctx, "entry created", "id", id, "date", e.Date, "mood", e.Mood)
	return id, nil
}

func (s *Service) Update(ctx context.Context, e moods.Entry) error {
	if err := s.store.Update(ctx, e); err != nil {
		s.log.DebugContext(ctx, "update failed", "id", e.ID, "error", err)
		return err
	}
	s.log.InfoContext(ctx, "entry updated", "id", e.ID, "date", e.Date, "mood", e.Mood)
	return nil
}

// Delete removes the entry with e.ID. An id with no entry is not an error.
func (s *Service) Delete(ctx context.Context, e moods.Entry) error {
	stored, err := s.store.GetByID(ctx, e.ID)
	if err != nil {
		s.log.DebugContext(ctx, "delete failed", "id", e.ID, "error", err)
		return err
	}
	if stored == nil {
		s.log.DebugContext(ctx, "nothing to delete", "id", e.ID)
		return nil
	}
	if err := s.store.Delete(ctx, *stored); err != nil {
		s.log.DebugContext(ctx, "delete failed", "id", e.ID, "error", err)
		return err
	}
	s.log.InfoContext(ctx, "entry deleted", "id", stored.ID, "date", stored.Date)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*moods.Entry, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) GetByDate(ctx context.Context, d civil.Date) (*moods.Entry, error) {
	return s.store.GetByDate(ctx, d)
}

func (s *Service) List(ctx context.Context) ([]moods.Entry, error) {
	return s.store.List(ctx)
}

func (s *Service) ListByMood(ctx context.Context, m moods.Mood) ([]moods.Entry, error) {
	return s.store.ListByMood(ctx, m)
}

func (s *Service) ListBetween(ctx context.Context, start, end civil.Date) ([]moods.Entry, error) {
	return s.store.ListBetween(ctx, start, end)
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]moods.Entry, error) {
	return s.store.ListRecent(ctx, limit)
}

// ObserveAll streams the full listing now and after every change.
func (s *Service) ObserveAll(ctx context.Context) <-chan moods.Snapshot {
	return moods.Observe(ctx, s.store, s.store.List)
}

// ObserveByMood streams the entries filed under m.
func (s *Service) ObserveByMood(ctx context.Context, m moods.Mood) <-chan moods.Snapshot {
	return moods.Observe(ctx, s.store, func(ctx context.Context) ([]moods.Entry, error) {
		return s.store.ListByMood(ctx, m)
	})
}

// ObserveBetween streams the entries dated within [start, end].
func (s *Service) ObserveBetween(ctx context.Context, start, end civil.Date) <-chan moods.Snapshot {
	return moods.Observe(ctx, s.store, func(ctx context.Context) ([]moods.Entry, error) {
		return s.store.ListBetween(ctx, start, end)
	})
}

// ObserveRecent streams the newest limit entries.
func (s *Service) ObserveRecent(ctx context.Context, limit int) <-chan moods.Snapshot {
	return moods.Observe(ctx, s.store, func(ctx context.Context) ([]moods.Entry, error) {
		return s.store.ListRecent(ctx, limit)
	})
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}
