// Package session holds the per-view selection state: which date is
// selected, the entry stored for it, and the draft being edited.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/unowned-ai/moodiary/pkg/moods"
)

// Entries is the part of the entry service a session needs.
type Entries interface {
	GetByDate(ctx context.Context, d civil.Date) (*moods.Entry, error)
	Insert(ctx context.Context, e moods.Entry) (int64, error)
	Update(ctx context.Context, e moods.Entry) error
	Delete(ctx context.Context, e moods.Entry) error
}

// Draft is the working copy edited before Save.
type Draft struct {
	Title string     `json:"title"`
	Body  string     `json:"body"`
	Mood  moods.Mood `json:"mood"`
}

// EmptyDraft is the draft for a date with no entry.
func EmptyDraft() Draft {
	return Draft{Mood: moods.Neutral}
}

// DraftOf copies an entry's editable fields.
func DraftOf(e moods.Entry) Draft {
	return Draft{Title: e.Title, Body: e.Body, Mood: e.Mood}
}

// State is a snapshot of a session.
type State struct {
	SelectedDate civil.Date   `json:"selected_date"`
	Current      *moods.Entry `json:"current"`
	Draft        Draft        `json:"draft"`
	Editing      bool         `json:"editing"`

	// Seq grows with every change, so a reader holding two states can tell
	// which one is newer.
	Seq uint64 `json:"-"`
}

// HasEntry reports whether the selected date has a stored entry.
func (s State) HasEntry() bool {
	return s.Current != nil
}

// Dirty reports whether the draft differs from what is stored.
func (s State) Dirty() bool {
	if s.Current == nil {
		return s.Draft != EmptyDraft()
	}
	return s.Draft != DraftOf(*s.Current)
}

func (s State) clone() State {
	if s.Current != nil {
		c := *s.Current
		s.Current = &c
	}
	return s
}

// Ticket orders date selections. A later ticket always wins.
type Ticket uint64

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now, which decides "today" and entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session is the selection state machine for one view. Methods that touch
// storage are serialized; draft setters only take the state lock.
type Session struct {
	ID uuid.UUID

	entries Entries
	log     *slog.Logger
	now     func() time.Time

	opMu    sync.Mutex
	tickets atomic.Uint64

	mu     sync.Mutex
	state  State
	subs   map[int]chan State
	nextID int
	closed bool
	done   chan struct{}
}

// New starts a session on today's date and loads its entry.
func New(ctx context.Context, entries Entries, opts ...Option) (*Session, error) {
	s := &Session{
		ID:      uuid.New(),
		entries: entries,
		log:     slog.Default(),
		now:     time.Now,
		subs:    make(map[int]chan State),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.ID.String())

	today := civil.DateOf(s.now())
	current, err := entries.GetByDate(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("load entry for %s: %w", today, err)
	}
	s.state = State{SelectedDate: today, Current: current, Draft: draftFor(current)}
	s.log.Debug("session started", "date", today, "has_entry", current != nil)
	return s, nil
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// SetSelectedDate moves the selection to d, refetches its entry and resets
// the draft to it. Selecting the date already selected does nothing. When the
// fetch fails the date still changes, with no entry and an empty draft, and
// the error is returned.
func (s *Session) SetSelectedDate(ctx context.Context, d civil.Date) error {
	return s.SetSelectedDateAt(ctx, s.ReserveSelection(), d)
}

// ReserveSelection hands out the ticket for a selection that will run later,
// for callers that start selections from several goroutines. Take the
// ticket where the user's choice is made, not where it is carried out.
func (s *Session) ReserveSelection() Ticket {
	return Ticket(s.tickets.Add(1))
}

// SetSelectedDateAt is SetSelectedDate for a reserved ticket. If a newer
// ticket has been handed out in the meantime the request is dropped and nil
// is returned: only the latest selection is applied.
func (s *Session) SetSelectedDateAt(ctx context.Context, t Ticket, d civil.Date) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if latest := Ticket(s.tickets.Load()); t < latest {
		s.log.Debug("selection superseded", "date", d, "ticket", t, "latest", latest)
		return nil
	}
	if s.State().SelectedDate == d {
		return nil
	}

	current, err := s.entries.GetByDate(ctx, d)
	if err != nil {
		current = nil
	}
	s.update(func(st *State) {
		st.SelectedDate = d
		st.Current = current
		st.Draft = draftFor(current)
	})
	if err != nil {
		s.log.Warn("load entry failed", "date", d, "error", err)
		return fmt.Errorf("load entry for %s: %w", d, err)
	}
	return nil
}

// Reload refetches the entry for the selected date, for when storage changed
// underneath the session. An unsaved draft is kept while editing.
func (s *Session) Reload(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	d := s.State().SelectedDate
	current, err := s.entries.GetByDate(ctx, d)
	if err != nil {
		return fmt.Errorf("load entry for %s: %w", d, err)
	}
	s.update(func(st *State) {
		st.Current = current
		if !st.Editing {
			st.Draft = draftFor(current)
		}
	})
	return nil
}

// StartEditing enters edit mode. With no stored entry the draft starts empty.
func (s *Session) StartEditing() {
	s.update(func(st *State) {
		st.Editing = true
		if st.Current == nil {
			st.Draft = EmptyDraft()
		}
	})
}

// CancelEditing leaves edit mode and throws the draft away.
func (s *Session) CancelEditing() {
	s.update(func(st *State) {
		st.Editing = false
		st.Draft = draftFor(st.Current)
	})
}

func (s *Session) UpdateDraftTitle(title string) {
	s.update(func(st *State) { st.Draft.Title = title })
}

func (s *Session) UpdateDraftBody(body string) {
	s.update(func(st *State) { st.Draft.Body = body })
}

func (s *Session) UpdateDraftMood(m moods.Mood) {
	s.update(func(st *State) { st.Draft.Mood = m })
}

// Save writes the draft: an update of the stored entry when there is one,
// otherwise a new entry for the selected date. Either way edit mode ends.
// On failure the state is left as it was.
func (s *Session) Save(ctx context.Context) (moods.Entry, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	st := s.State()
	now := s.now().UnixMilli()

	var saved moods.Entry
	if st.Current != nil {
		saved = *st.Current
		saved.Title, saved.Body, saved.Mood = st.Draft.Title, st.Draft.Body, st.Draft.Mood
		saved.UpdatedAt = now
		if err := s.entries.Update(ctx, saved); err != nil {
			s.log.Warn("save failed", "id", saved.ID, "error", err)
			return moods.Entry{}, err
		}
	} else {
		saved = moods.Entry{
			Date:      st.SelectedDate,
			Mood:      st.Draft.Mood,
			Title:     st.Draft.Title,
			Body:      st.Draft.Body,
			CreatedAt: now,
			UpdatedAt: now,
		}
		id, err := s.entries.Insert(ctx, saved)
		if err != nil {
			s.log.Warn("save failed", "date", saved.Date, "error", err)
			return moods.Entry{}, err
		}
		saved.ID = id
	}

	s.update(func(st *State) {
		e := saved
		st.Current = &e
		st.Editing = false
	})
	return saved, nil
}

// Delete removes the stored entry for the selected date and resets the
// draft. It does nothing when the date has no entry. Edit mode is untouched.
func (s *Session) Delete(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	st := s.State()
	if st.Current == nil {
		return nil
	}
	if err := s.entries.Delete(ctx, *st.Current); err != nil {
		s.log.Warn("delete failed", "id", st.Current.ID, "error", err)
		return err
	}
	s.update(func(st *State) {
		st.Current = nil
		st.Draft = EmptyDraft()
	})
	return nil
}

// Subscribe delivers the current state and then every later state until ctx
// is done or the session closes. A slow reader only gets the latest state.
func (s *Session) Subscribe(ctx context.Context) <-chan State {
	ch := make(chan State, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.state.clone()
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}()
	return ch
}

// Close ends every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.log.Debug("session closed")
}

// update applies fn under the state lock and publishes the result.
func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.state.Seq++
	st := s.state.clone()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func draftFor(e *moods.Entry) Draft {
	if e == nil {
		return EmptyDraft()
	}
	return DraftOf(*e)
}
