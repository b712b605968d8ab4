package moods

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-sql/civil"

	pkgdb "github.com/unowned-ai/moodiary/pkg/db"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	conn, err := pkgdb.Open(":memory:", false, "NORMAL")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	store := NewSQLiteStore(conn, nil)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func newEntry(t *testing.T, day string, mood Mood, title string) Entry {
	t.Helper()
	return Entry{
		Date:      date(t, day),
		Mood:      mood,
		Title:     title,
		Body:      "body of " + title,
		CreatedAt: 1710000000123,
		UpdatedAt: 1710000000456,
	}
}

func mustInsert(t *testing.T, s Store, e Entry) Entry {
	t.Helper()
	id, err := s.Insert(context.Background(), e)
	if err != nil {
		t.Fatalf("Insert(%s) failed: %v", e.Date, err)
	}
	e.ID = id
	return e
}

func TestSQLiteStore_InsertRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	in := newEntry(t, "2024-03-10", Happy, "A")
	in.ID = 999 // ignored on insert
	id, err := store.Insert(ctx, in)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id == 0 {
		t.Fatalf("Expected a non-zero id")
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatalf("GetByID returned nil for id %d", id)
	}

	want := in
	want.ID = id
	if *got != want {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", *got, want)
	}
}

func TestSQLiteStore_DuplicateDate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := mustInsert(t, store, newEntry(t, "2024-03-10", Happy, "A"))

	byDate, err := store.GetByDate(ctx, first.Date)
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if byDate == nil || byDate.ID != first.ID {
		t.Fatalf("GetByDate returned %+v, want id %d", byDate, first.ID)
	}

	_, err = store.Insert(ctx, newEntry(t, "2024-03-10", Sad, "B"))
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("Expected ErrConstraintViolation, got %v", err)
	}

	still, err := store.GetByDate(ctx, first.Date)
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if still.Mood != Happy || still.Title != "A" {
		t.Errorf("existing entry changed after failed insert: %+v", still)
	}
}

func TestSQLiteStore_ConcurrentInsertsSameDate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Insert(ctx, newEntry(t, "2024-05-01", Neutral, "racer"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if !errors.Is(err, ErrConstraintViolation) {
				t.Errorf("worker %d: unexpected error %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("Expected exactly one successful insert, got %d", succeeded)
	}
	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 stored entry, got %d", len(all))
	}
}

func TestSQLiteStore_Update(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e := mustInsert(t, store, newEntry(t, "2024-03-10", Happy, "A"))
	e.Title = "A, revised"
	e.Mood = VeryHappy
	e.UpdatedAt = e.UpdatedAt + 1000

	if err := store.Update(ctx, e); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := store.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if *got != e {
		t.Errorf("Update not persisted:\n got  %+v\n want %+v", *got, e)
	}

	missing := e
	missing.ID = e.ID + 100
	if err := store.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown id, got %v", err)
	}

	other := mustInsert(t, store, newEntry(t, "2024-03-11", Sad, "B"))
	other.Date = e.Date
	if err := store.Update(ctx, other); !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("Expected ErrConstraintViolation moving onto an occupied date, got %v", err)
	}
}

func TestSQLiteStore_UpdateKeepsCreatedAt(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e := mustInsert(t, store, newEntry(t, "2024-03-10", Happy, "A"))
	changed := e
	changed.CreatedAt = 1
	changed.UpdatedAt = e.UpdatedAt + 1000
	if err := store.Update(ctx, changed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CreatedAt != e.CreatedAt {
		t.Errorf("CreatedAt = %d after update, want %d", got.CreatedAt, e.CreatedAt)
	}
	if got.UpdatedAt != changed.UpdatedAt {
		t.Errorf("UpdatedAt = %d after update, want %d", got.UpdatedAt, changed.UpdatedAt)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := mustInsert(t, store, newEntry(t, "2024-03-10", Happy, "A"))
	b := mustInsert(t, store, newEntry(t, "2024-03-11", Sad, "B"))

	if err := store.Delete(ctx, a); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := store.GetByID(ctx, a.ID); got != nil {
		t.Errorf("Expected entry %d to be gone, got %+v", a.ID, got)
	}
	if err := store.Delete(ctx, a); err != nil {
		t.Errorf("Deleting an absent entry should succeed, got %v", err)
	}
	if got, _ := store.GetByID(ctx, b.ID); got == nil {
		t.Errorf("Unrelated entry %d was removed", b.ID)
	}
}

func TestSQLiteStore_Queries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	mustInsert(t, store, newEntry(t, "2024-03-02", Happy, "2"))
	mustInsert(t, store, newEntry(t, "2024-03-05", Sad, "5"))
	mustInsert(t, store, newEntry(t, "2024-03-01", Happy, "1"))
	mustInsert(t, store, newEntry(t, "2024-03-09", VerySad, "9"))

	assertDates := func(name string, entries []Entry, want ...string) {
		t.Helper()
		if len(entries) != len(want) {
			t.Fatalf("%s: got %d entries, want %d", name, len(entries), len(want))
		}
		for i, w := range want {
			if entries[i].Date.String() != w {
				t.Errorf("%s[%d]: got %s, want %s", name, i, entries[i].Date, w)
			}
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	assertDates("List", all, "2024-03-09", "2024-03-05", "2024-03-02", "2024-03-01")

	happy, err := store.ListByMood(ctx, Happy)
	if err != nil {
		t.Fatalf("ListByMood failed: %v", err)
	}
	assertDates("ListByMood", happy, "2024-03-02", "2024-03-01")

	between, err := store.ListBetween(ctx, date(t, "2024-03-02"), date(t, "2024-03-09"))
	if err != nil {
		t.Fatalf("ListBetween failed: %v", err)
	}
	assertDates("ListBetween", between, "2024-03-09", "2024-03-05", "2024-03-02")

	recent, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	assertDates("ListRecent", recent, "2024-03-09", "2024-03-05")

	none, err := store.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecent(0) failed: %v", err)
	}
	assertDates("ListRecent(0)", none)

	if got, err := store.GetByDate(ctx, date(t, "2024-04-01")); err != nil || got != nil {
		t.Errorf("GetByDate on empty date = %+v, %v; want nil, nil", got, err)
	}
}

func TestSQLiteStore_RejectsInvalidEntries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	bad := newEntry(t, "2024-03-10", Mood(0), "no mood")
	if _, err := store.Insert(ctx, bad); !errors.Is(err, ErrInvalidMood) {
		t.Errorf("Expected ErrInvalidMood, got %v", err)
	}
	noDate := newEntry(t, "2024-03-10", Happy, "no date")
	noDate.Date = civil.Date{}
	if _, err := store.Insert(ctx, noDate); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("Expected ErrInvalidDate, got %v", err)
	}
}

func TestSQLiteStore_ClosedIsUnavailable(t *testing.T) {
	conn, err := pkgdb.Open(":memory:", false, "")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	store := NewSQLiteStore(conn, nil)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err = store.List(context.Background())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Expected ErrStorageUnavailable after close, got %v", err)
	}
}

func TestSQLiteStore_ObserveReceivesUpdates(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := Observe(ctx, store, store.List)

	first := receive(t, snapshots)
	if first.Err != nil || len(first.Entries) != 0 {
		t.Fatalf("initial snapshot = %+v, want empty", first)
	}

	mustInsert(t, store, newEntry(t, "2024-03-10", Happy, "A"))
	waitFor(t, snapshots, func(s Snapshot) bool { return len(s.Entries) == 1 })

	mustInsert(t, store, newEntry(t, "2024-03-11", Sad, "B"))
	waitFor(t, snapshots, func(s Snapshot) bool { return len(s.Entries) == 2 })

	cancel()
	for range snapshots {
	}
}

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatalf("snapshot channel closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func waitFor(t *testing.T, ch <-chan Snapshot, ok func(Snapshot) bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s, open := <-ch:
			if !open {
				t.Fatalf("snapshot channel closed")
			}
			if s.Err != nil {
				t.Fatalf("snapshot error: %v", s.Err)
			}
			if ok(s) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for matching snapshot")
		}
	}
}
