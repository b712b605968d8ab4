package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-sql/civil"

	"github.com/unowned-ai/moodiary/pkg/moods"
	"github.com/unowned-ai/moodiary/pkg/session"
)

// snapshotMsg carries a fresh result of the live entry list.
type snapshotMsg moods.Snapshot

// stateMsg carries a session state pushed by the subscription.
type stateMsg session.State

// opResultMsg reports the end of a storage operation started from the UI.
// state is the session as the operation left it; the model ignores it when
// it already holds a newer one.
type opResultMsg struct {
	ticket session.Ticket
	state  session.State
	status string
	err    error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(marqueeTickDuration, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Wait for the next live query result
func waitForSnapshot(ch <-chan moods.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

// Wait for the next session state
func waitForState(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

// Move the session to another date
func selectDate(ctx context.Context, sess *session.Session, t session.Ticket, d civil.Date) tea.Cmd {
	return func() tea.Msg {
		err := sess.SetSelectedDateAt(ctx, t, d)
		return opResultMsg{ticket: t, state: sess.State(), err: err}
	}
}

// Persist the draft for the selected date
func saveDraft(ctx context.Context, sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		saved, err := sess.Save(ctx)
		if err != nil {
			return opResultMsg{state: sess.State(), err: fmt.Errorf("save: %w", err)}
		}
		return opResultMsg{state: sess.State(), status: fmt.Sprintf("Saved %s %s", saved.Date, saved.Mood.Glyph())}
	}
}

// Delete the entry for the selected date
func deleteCurrent(ctx context.Context, sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		d := sess.State().SelectedDate
		if err := sess.Delete(ctx); err != nil {
			return opResultMsg{state: sess.State(), err: fmt.Errorf("delete: %w", err)}
		}
		return opResultMsg{state: sess.State(), status: fmt.Sprintf("Deleted entry for %s", d)}
	}
}

// Re-read the selected date's entry
func reload(ctx context.Context, sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		err := sess.Reload(ctx)
		return opResultMsg{state: sess.State(), err: err}
	}
}

// shiftMonth moves d by n months, clamping the day to the target month.
func shiftMonth(d civil.Date, n int) civil.Date {
	first := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day
	if day > last {
		day = last
	}
	return civil.Date{Year: first.Year(), Month: first.Month(), Day: day}
}
