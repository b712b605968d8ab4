package moods

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang-sql/civil"
	"github.com/mattn/go-sqlite3"
)

const (
	entryColumns = `id, date, mood, title, body, created_at, updated_at`

	insertEntryStatement = `
	INSERT INTO mood_entries (date, mood, title, body, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	updateEntryStatement = `
	UPDATE mood_entries
	SET date = ?, mood = ?, title = ?, body = ?, updated_at = ?
	WHERE id = ?
	`

	deleteEntryStatement = `
	DELETE FROM mood_entries
	WHERE id = ?
	`

	getEntryByIDStatement = `
	SELECT ` + entryColumns + `
	FROM mood_entries
	WHERE id = ?
	`

	getEntryByDateStatement = `
	SELECT ` + entryColumns + `
	FROM mood_entries
	WHERE date = ?
	`

	listEntriesStatement = `
	SELECT ` + entryColumns + `
	FROM mood_entries
	ORDER BY date DESC
	`

	listEntriesByMoodStatement = `
	SELECT ` + entryColumns + `
	FROM mood_entries
	WHERE mood = ?
	ORDER BY date DESC
	`

	listEntriesBetweenStatement = `
	SELECT ` + entryColumns + `
	FROM mood_entries
	WHERE date BETWEEN ? AND ?
	ORDER BY date DESC
	`

	listRecentEntriesStatement = `
	SELECT ` + entryColumns + `
	FROM mood_entries
	ORDER BY date DESC
	LIMIT ?
	`
)

// SQLiteStore is the default Store, backed by the mood_entries table.
// The unique index on date is the source of truth for the one-entry-per-date rule.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	writeMu sync.Mutex
	Broadcaster
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps an open, migrated database. The store owns db and
// closes it in Close.
func NewSQLiteStore(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{db: db, logger: logger.With("store", "sqlite")}
}

// DB returns the underlying connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Insert(ctx context.Context, e Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(
		ctx,
		insertEntryStatement,
		e.Date.String(),
		e.Mood.String(),
		e.Title,
		e.Body,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return 0, classify(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify(err)
	}

	s.logger.Debug("entry inserted", "id", id, "date", e.Date, "mood", e.Mood)
	s.Notify()
	return id, nil
}

func (s *SQLiteStore) Update(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(
		ctx,
		updateEntryStatement,
		e.Date.String(),
		e.Mood.String(),
		e.Title,
		e.Body,
		e.UpdatedAt,
		e.ID,
	)
	if err != nil {
		return classify(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, e.ID)
	}

	s.logger.Debug("entry updated", "id", e.ID, "date", e.Date, "mood", e.Mood)
	s.Notify()
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, e Entry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, deleteEntryStatement, e.ID)
	if err != nil {
		return classify(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if rowsAffected == 0 {
		return nil
	}

	s.logger.Debug("entry deleted", "id", e.ID, "date", e.Date)
	s.Notify()
	return nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*Entry, error) {
	return s.getOne(ctx, getEntryByIDStatement, id)
}

func (s *SQLiteStore) GetByDate(ctx context.Context, d civil.Date) (*Entry, error) {
	return s.getOne(ctx, getEntryByDateStatement, d.String())
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, listEntriesStatement)
}

func (s *SQLiteStore) ListByMood(ctx context.Context, m Mood) ([]Entry, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMood, int(m))
	}
	return s.query(ctx, listEntriesByMoodStatement, m.String())
}

func (s *SQLiteStore) ListBetween(ctx context.Context, start, end civil.Date) ([]Entry, error) {
	return s.query(ctx, listEntriesBetweenStatement, start.String(), end.String())
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	return s.query(ctx, listRecentEntriesStatement, limit)
}

// Close stops all subscriptions and closes the database.
func (s *SQLiteStore) Close() error {
	s.Broadcaster.Close()
	if s.db == nil {
		return nil
	}
	// TRUNCATE waits for readers and folds the WAL back into the main file.
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		s.logger.Warn("wal checkpoint failed during close", "error", err)
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry Entry
		date  string
		mood  string
	)
	err := row.Scan(
		&entry.ID,
		&date,
		&mood,
		&entry.Title,
		&entry.Body,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return Entry{}, err
	}

	entry.Date, err = civil.ParseDate(date)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: stored date %q for id %d", ErrInvalidDate, date, entry.ID)
	}
	entry.Mood, err = ParseMood(mood)
	if err != nil {
		return Entry{}, fmt.Errorf("stored mood for id %d: %w", entry.ID, err)
	}
	return entry, nil
}

func (s *SQLiteStore) getOne(ctx context.Context, statement string, arg any) (*Entry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, statement, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &entry, nil
}

func (s *SQLiteStore) query(ctx context.Context, statement string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, classify(err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, classify(err)
	}

	return entries, nil
}

// classify maps driver failures onto the package's sentinel errors, keeping
// the driver error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidDate) || errors.Is(err, ErrInvalidMood) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		case sqliteErr.Code == sqlite3.ErrCantOpen,
			sqliteErr.Code == sqlite3.ErrIoErr,
			sqliteErr.Code == sqlite3.ErrReadonly,
			sqliteErr.Code == sqlite3.ErrFull,
			sqliteErr.Code == sqlite3.ErrCorrupt,
			sqliteErr.Code == sqlite3.ErrNotADB,
			sqliteErr.Code == sqlite3.ErrBusy,
			sqliteErr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		return err
	}
	if err.Error() == "sql: database is closed" {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return err
}
