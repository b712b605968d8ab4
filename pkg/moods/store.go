package moods

import (
	"context"
	"sort"
	"sync"

	"github.com/golang-sql/civil"
)

// Store is durable keyed storage for mood entries, one entry per date.
// All list operations return entries sorted by date, newest first.
type Store interface {
	// Insert persists e under a new identity and returns it. The caller's
	// timestamps are kept. Fails with ErrConstraintViolation when e.Date is taken.
	Insert(ctx context.Context, e Entry) (int64, error)
	// Update replaces the stored entry with e.ID, or fails with ErrNotFound.
	// The stored CreatedAt is kept whatever e carries.
	Update(ctx context.Context, e Entry) error
	// Delete removes the entry with e.ID. Deleting an absent entry succeeds.
	Delete(ctx context.Context, e Entry) error

	GetByID(ctx context.Context, id int64) (*Entry, error)
	GetByDate(ctx context.Context, d civil.Date) (*Entry, error)

	List(ctx context.Context) ([]Entry, error)
	ListByMood(ctx context.Context, m Mood) ([]Entry, error)
	ListBetween(ctx context.Context, start, end civil.Date) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)

	Notifier
	Close() error
}

// Notifier delivers a tick after every committed mutation. Ticks coalesce:
// a subscriber that has not drained its channel receives one tick for many
// mutations. The channel closes when ctx is done or the notifier closes.
type Notifier interface {
	Subscribe(ctx context.Context) <-chan struct{}
}

// Broadcaster is a Notifier that stores embed and call Notify on.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan struct{}
	next   int
	closed bool
	done   chan struct{}
}

func (b *Broadcaster) init() {
	if b.subs == nil {
		b.subs = make(map[int]chan struct{})
		b.done = make(chan struct{})
	}
}

// Subscribe registers a new subscriber until ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	b.init()
	id := b.next
	b.next++
	b.subs[id] = ch
	done := b.done
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}()
	return ch
}

// Notify ticks every subscriber without blocking.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close closes every subscriber channel. Later subscriptions are closed immediately.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.init()
	b.closed = true
	close(b.done)
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Observe runs query now and again after every tick from n, delivering each
// result on the returned channel. Only the latest undelivered result is
// kept, so a slow reader never sees stale data after a newer result exists.
// The channel closes when ctx is done or n stops.
func Observe(ctx context.Context, n Notifier, query func(context.Context) ([]Entry, error)) <-chan Snapshot {
	out := make(chan Snapshot)
	changes := n.Subscribe(ctx)

	go func() {
		defer close(out)

		var (
			next   Snapshot
			sendCh chan<- Snapshot
		)
		run := func() {
			entries, err := query(ctx)
			next = Snapshot{Entries: entries, Err: err}
			sendCh = out
		}
		run()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				run()
			case sendCh <- next:
				next = Snapshot{}
				sendCh = nil
			}
		}
	}()
	return out
}

// SortByDateDesc orders entries newest first, breaking ties by id.
func SortByDateDesc(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date == entries[j].Date {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Date.After(entries[j].Date)
	})
}
