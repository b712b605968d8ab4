// Package diskstore keeps mood entries as one JSON file per date in a diskv
// directory tree. Keying files by date makes a second entry for the same date
// impossible; an in-memory id index is rebuilt on open.
package diskstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/golang-sql/civil"
	"github.com/peterbourgon/diskv/v3"

	"github.com/unowned-ai/moodiary/pkg/moods"
)

const (
	entryKeyPrefix = "entry:"
	sequenceKey    = "sequence"
	entriesDir     = "entries"
	fileSuffix     = ".json"
)

// Store is a moods.Store on top of diskv.
type Store struct {
	d        *diskv.Diskv
	basePath string
	logger   *slog.Logger

	mu     sync.RWMutex
	byID   map[int64]civil.Date
	lastID int64

	moods.Broadcaster
}

var _ moods.Store = (*Store)(nil)

// Open loads (or creates) a store rooted at basePath.
func Open(basePath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if basePath == "" {
		return nil, errors.New("diskstore: base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: diskstore: ensure base path: %w", moods.ErrStorageUnavailable, err)
	}

	s := &Store{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			// No read cache: files may change behind our back (see WatchExternal).
			CacheSizeMax: 0,
		}),
		basePath: basePath,
		logger:   logger.With("store", "diskv", "path", basePath),
		byID:     make(map[int64]civil.Date),
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadIndex() error {
	cancel := make(chan struct{})
	defer close(cancel)

	for key := range s.d.KeysPrefix(entryKeyPrefix, cancel) {
		e, err := s.read(key)
		if err != nil {
			s.logger.Warn("skipping unreadable entry", "key", key, "error", err)
			continue
		}
		s.byID[e.ID] = e.Date
		if e.ID > s.lastID {
			s.lastID = e.ID
		}
	}

	if s.d.Has(sequenceKey) {
		raw, err := s.d.Read(sequenceKey)
		if err != nil {
			return unavailable("read sequence", err)
		}
		seq, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
		if err != nil {
			return fmt.Errorf("diskstore: corrupt sequence %q: %w", raw, err)
		}
		if seq > s.lastID {
			s.lastID = seq
		}
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, e moods.Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := toKey(e.Date)
	if s.d.Has(key) {
		return 0, fmt.Errorf("%w: %s", moods.ErrConstraintViolation, e.Date)
	}

	id := s.lastID + 1
	if err := s.d.WriteString(sequenceKey, strconv.FormatInt(id, 10)); err != nil {
		return 0, unavailable("write sequence", err)
	}
	s.lastID = id

	e.ID = id
	if err := s.write(key, e); err != nil {
		return 0, err
	}
	s.byID[id] = e.Date

	s.logger.Debug("entry inserted", "id", id, "date", e.Date, "mood", e.Mood)
	s.Notify()
	return id, nil
}

func (s *Store) Update(ctx context.Context, e moods.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldDate, ok := s.byID[e.ID]
	if !ok {
		return fmt.Errorf("%w: id %d", moods.ErrNotFound, e.ID)
	}

	newKey := toKey(e.Date)
	if e.Date != oldDate && s.d.Has(newKey) {
		return fmt.Errorf("%w: %s", moods.ErrConstraintViolation, e.Date)
	}
	stored, err := s.read(toKey(oldDate))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: id %d", moods.ErrNotFound, e.ID)
	}
	if err != nil {
		return err
	}
	e.CreatedAt = stored.CreatedAt
	if err := s.write(newKey, e); err != nil {
		return err
	}
	if e.Date != oldDate {
		if err := s.d.Erase(toKey(oldDate)); err != nil {
			return unavailable("erase moved entry", err)
		}
		s.byID[e.ID] = e.Date
	}

	s.logger.Debug("entry updated", "id", e.ID, "date", e.Date, "mood", e.Mood)
	s.Notify()
	return nil
}

func (s *Store) Delete(ctx context.Context, e moods.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byID[e.ID]
	if !ok {
		return nil
	}
	if err := s.d.Erase(toKey(d)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return unavailable("erase entry", err)
	}
	delete(s.byID, e.ID)

	s.logger.Debug("entry deleted", "id", e.ID, "date", d)
	s.Notify()
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*moods.Entry, error) {
	s.mu.RLock()
	d, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.GetByDate(ctx, d)
}

func (s *Store) GetByDate(ctx context.Context, d civil.Date) (*moods.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := toKey(d)
	if !s.d.Has(key) {
		return nil, nil
	}
	e, err := s.read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (s *Store) List(ctx context.Context) ([]moods.Entry, error) {
	return s.filter(ctx, func(moods.Entry) bool { return true })
}

func (s *Store) ListByMood(ctx context.Context, m moods.Mood) ([]moods.Entry, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", moods.ErrInvalidMood, int(m))
	}
	return s.filter(ctx, func(e moods.Entry) bool { return e.Mood == m })
}

func (s *Store) ListBetween(ctx context.Context, start, end civil.Date) ([]moods.Entry, error) {
	return s.filter(ctx, func(e moods.Entry) bool {
		return !e.Date.Before(start) && !e.Date.After(end)
	})
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]moods.Entry, error) {
	if limit <= 0 {
		return []moods.Entry{}, nil
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Close ends all subscriptions. The files stay on disk.
func (s *Store) Close() error {
	s.Broadcaster.Close()
	return nil
}

func (s *Store) filter(ctx context.Context, keep func(moods.Entry) bool) ([]moods.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cancel := make(chan struct{})
	defer close(cancel)

	entries := []moods.Entry{}
	for key := range s.d.KeysPrefix(entryKeyPrefix, cancel) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := s.read(key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if keep(e) {
			entries = append(entries, e)
		}
	}
	moods.SortByDateDesc(entries)
	return entries, nil
}

func (s *Store) read(key string) (moods.Entry, error) {
	raw, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return moods.Entry{}, err
		}
		return moods.Entry{}, unavailable("read "+key, err)
	}
	var e moods.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return moods.Entry{}, fmt.Errorf("diskstore: decode %s: %w", key, err)
	}
	return e, nil
}

func (s *Store) write(key string, e moods.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("diskstore: encode %s: %w", key, err)
	}
	if err := s.d.Write(key, raw); err != nil {
		return unavailable("write "+key, err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: diskstore: %s: %w", moods.ErrStorageUnavailable, op, err)
}

// toKey makes `entry:YYYY-MM-DD`.
func toKey(d civil.Date) string {
	return entryKeyPrefix + d.String()
}

// keyToPathTransform lays entries out as entries/YYYY/MM/YYYY-MM-DD.json.
func keyToPathTransform(key string) *diskv.PathKey {
	if !strings.HasPrefix(key, entryKeyPrefix) {
		return &diskv.PathKey{Path: []string{}, FileName: key}
	}
	day := strings.TrimPrefix(key, entryKeyPrefix)
	parts := strings.SplitN(day, "-", 3)
	if len(parts) != 3 {
		return &diskv.PathKey{Path: []string{entriesDir}, FileName: day + fileSuffix}
	}
	return &diskv.PathKey{
		Path:     []string{entriesDir, parts[0], parts[1]},
		FileName: day + fileSuffix,
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	if len(pathKey.Path) > 0 && pathKey.Path[0] == entriesDir {
		return entryKeyPrefix + strings.TrimSuffix(pathKey.FileName, fileSuffix)
	}
	return pathKey.FileName
}
