// Package tui is the interactive calendar and editor for the journal.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang-sql/civil"

	"github.com/unowned-ai/moodiary/pkg/moods"
	"github.com/unowned-ai/moodiary/pkg/session"
	"github.com/unowned-ai/moodiary/pkg/stats"
)

// Journal is what the UI needs from the entry service.
type Journal interface {
	session.Entries
	ObserveAll(ctx context.Context) <-chan moods.Snapshot
}

// Info describes where entries are stored, for the info panel.
type Info struct {
	Backend  string
	Location string
	Watching bool
}

type focus int

const (
	focusCalendar focus = iota
	focusEditor
)

type field int

const (
	fieldTitle field = iota
	fieldBody
	fieldMood
)

const (
	calendarWidth = 7 * 4
	recentCount   = 5
)

type model struct {
	ctx     context.Context
	journal Journal
	sess    *session.Session
	info    Info
	now     func() time.Time

	snapshots <-chan moods.Snapshot
	states    <-chan session.State

	state   session.State
	entries []moods.Entry
	loaded  bool

	// The date the user last moved to, while its selection is in flight.
	pendingDate   civil.Date
	pendingTicket session.Ticket

	focus focus
	field field

	titleInput textinput.Model
	bodyInput  textarea.Model

	confirmDelete bool
	status        string
	statusErr     bool

	width    int // Current terminal width (for layout)
	height   int // Current terminal height
	quitting bool

	// Animation state
	marqueeOffset int
	marqueeTimer  int
}

func newModel(ctx context.Context, j Journal, sess *session.Session, info Info, now func() time.Time) model {
	title := textinput.New()
	title.Placeholder = "Title (optional)"
	title.CharLimit = 256

	body := textarea.New()
	body.Placeholder = "How was the day?"
	body.ShowLineNumbers = false
	body.CharLimit = 0

	m := model{
		ctx:        ctx,
		journal:    j,
		sess:       sess,
		info:       info,
		now:        now,
		snapshots:  j.ObserveAll(ctx),
		states:     sess.Subscribe(ctx),
		titleInput: title,
		bodyInput:  body,
	}
	m.applyState(sess.State())
	return m
}

// Execute commands concurrently with no ordering guarantees during initialization
func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForSnapshot(m.snapshots),
		waitForState(m.states),
		tick(),
	)
}

// applyState takes a new session state. Inputs are only refilled when the
// draft was replaced from outside the editor, so keystrokes in flight are
// never lost to an older state.
func (m *model) applyState(s session.State) {
	if s.Seq < m.state.Seq {
		return
	}
	prev := m.state
	m.state = s
	if !s.Editing || !prev.Editing || s.SelectedDate != prev.SelectedDate {
		m.titleInput.SetValue(s.Draft.Title)
		m.bodyInput.SetValue(s.Draft.Body)
	}
	if !s.Editing && m.focus == focusEditor {
		m.focus = focusCalendar
		m.blurInputs()
	}
	if !s.HasEntry() {
		m.confirmDelete = false
	}
}

func (m *model) blurInputs() {
	m.titleInput.Blur()
	m.bodyInput.Blur()
}

func (m *model) focusField(f field) {
	m.field = f
	m.blurInputs()
	switch f {
	case fieldTitle:
		m.titleInput.Focus()
	case fieldBody:
		m.bodyInput.Focus()
	}
}

func (m *model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m model) today() civil.Date {
	return civil.DateOf(m.now())
}

// cursor is where navigation keys start from: the last date asked for,
// even when the session has not caught up with it yet.
func (m model) cursor() civil.Date {
	if m.pendingTicket != 0 {
		return m.pendingDate
	}
	return m.state.SelectedDate
}

// moveTo reserves the selection now, so keys pressed later always win over
// keys pressed earlier regardless of which command finishes first.
func (m model) moveTo(d civil.Date) (tea.Model, tea.Cmd) {
	t := m.sess.ReserveSelection()
	m.pendingDate, m.pendingTicket = d, t
	return m, selectDate(m.ctx, m.sess, t, d)
}

// Processes events like window resize, loaded data, and key presses
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case snapshotMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Loading entries failed: %v", msg.Err), true)
		} else {
			m.entries = msg.Entries
			m.loaded = true
		}
		return m, waitForSnapshot(m.snapshots)

	case stateMsg:
		m.applyState(session.State(msg))
		return m, waitForState(m.states)

	case opResultMsg:
		if msg.ticket != 0 && msg.ticket == m.pendingTicket {
			m.pendingTicket = 0
		}
		m.applyState(msg.state)
		switch {
		case msg.err != nil:
			m.setStatus(msg.err.Error(), true)
		case msg.status != "":
			m.setStatus(msg.status, false)
		}
		return m, nil

	case tickMsg:
		m.marqueeTimer++
		if m.marqueeTimer >= 10 {
			m.marqueeTimer = 0
			m.marqueeOffset++
		}
		return m, tick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.confirmDelete {
			return m.updateConfirm(msg)
		}
		if m.state.Editing && m.focus == focusEditor {
			return m.updateEditor(msg)
		}
		return m.updateCalendar(msg)
	}
	return m, nil
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	// Exit alt screen before quitting so the goodbye message displays
	return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.confirmDelete = false
		return m, deleteCurrent(m.ctx, m.sess)
	case "n", "N", "esc":
		m.confirmDelete = false
	}
	return m, nil
}

func (m model) updateCalendar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sel := m.cursor()
	switch msg.String() {
	case "q":
		return m.quit()
	case "left", "h":
		return m.moveTo(sel.AddDays(-1))
	case "right", "l":
		return m.moveTo(sel.AddDays(1))
	case "up", "k":
		return m.moveTo(sel.AddDays(-7))
	case "down", "j":
		return m.moveTo(sel.AddDays(7))
	case "[":
		return m.moveTo(shiftMonth(sel, -1))
	case "]":
		return m.moveTo(shiftMonth(sel, 1))
	case "t":
		return m.moveTo(m.today())
	case "r":
		return m, reload(m.ctx, m.sess)
	case "e", "enter":
		m.sess.StartEditing()
		m.applyState(m.sess.State())
		m.focus = focusEditor
		m.focusField(fieldTitle)
		m.setStatus("", false)
		return m, textinput.Blink
	case "tab":
		if m.state.Editing {
			m.focus = focusEditor
			m.focusField(m.field)
		}
	case "d":
		if m.state.HasEntry() {
			m.confirmDelete = true
		}
	}
	return m, nil
}

func (m model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.sess.CancelEditing()
		m.applyState(m.sess.State())
		m.setStatus("Edit cancelled", false)
		return m, nil
	case "ctrl+s":
		return m, saveDraft(m.ctx, m.sess)
	case "tab":
		if m.field == fieldMood {
			m.focus = focusCalendar
			m.blurInputs()
			return m, nil
		}
		m.focusField(m.field + 1)
		return m, nil
	case "shift+tab":
		if m.field > fieldTitle {
			m.focusField(m.field - 1)
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.field {
	case fieldTitle:
		m.titleInput, cmd = m.titleInput.Update(msg)
		m.sess.UpdateDraftTitle(m.titleInput.Value())
	case fieldBody:
		m.bodyInput, cmd = m.bodyInput.Update(msg)
		m.sess.UpdateDraftBody(m.bodyInput.Value())
	case fieldMood:
		m.updateMood(msg.String())
	}
	m.state = m.sess.State()
	return m, cmd
}

// updateMood picks a mood by ordinal (5 is very happy) or steps through
// them with the arrow keys.
func (m *model) updateMood(key string) {
	current := m.state.Draft.Mood
	next := current
	switch key {
	case "1", "2", "3", "4", "5":
		next = moodForOrdinal(int(key[0] - '0'))
	case "left", "h":
		if current > moods.VeryHappy {
			next = current - 1
		}
	case "right", "l":
		if current < moods.VerySad {
			next = current + 1
		}
	}
	if next != current {
		m.sess.UpdateDraftMood(next)
	}
}

func moodForOrdinal(v int) moods.Mood {
	for _, md := range moods.All {
		if md.Ordinal() == v {
			return md
		}
	}
	return moods.Neutral
}

// Assembles the UI string for each frame
func (m model) View() string {
	if m.quitting {
		return "Closing the diary. See you tomorrow.\n"
	}

	sel := m.state.SelectedDate
	titleBar := titleStyle.Width(m.width).Render(fmt.Sprintf("Moodiary - %s %d", sel.Month, sel.Year))

	leftWidth, rightWidth := m.columnWidths()
	panelHeight := m.height - 8
	if panelHeight < 0 {
		panelHeight = 0
	}

	leftPanel := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(lipgloss.Color(colorGray)).
		Padding(0, 2).
		Width(leftWidth).Height(panelHeight).
		Render(m.calendarView(leftWidth-bordersAndPaddingWidth-1) + "\n\n" + m.infoView())

	rightPanel := lipgloss.NewStyle().Padding(0, 2).
		Width(rightWidth).Height(panelHeight).
		Render(m.entryView(rightWidth - bordersAndPaddingWidth))

	columns := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)

	return titleBar + "\n\n" + columns + "\n" + m.statsView() + "\n" + m.footerView()
}

func (m model) calendarView(width int) string {
	var b strings.Builder
	sel := m.state.SelectedDate
	today := m.today()

	heading := "  Calendar"
	if m.focus == focusCalendar {
		heading = "> Calendar"
	}
	b.WriteString(subtitleStyle.Render(heading) + "\n\n")
	b.WriteString(labelStyle.Render(" Mo  Tu  We  Th  Fr  Sa  Su") + "\n")

	grid := stats.MonthGrid(sel.Year, sel.Month, m.entries)
	for _, week := range grid.Weeks {
		for _, cell := range week {
			b.WriteString(m.cellView(cell, sel, today))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + subtitleStyle.Render("  Recent") + "\n")
	if !m.loaded {
		b.WriteString(inactiveStyle.Render("  loading...") + "\n")
		return b.String()
	}
	if len(m.entries) == 0 {
		b.WriteString(inactiveStyle.Render("  No entries yet. Press e to write today's.") + "\n")
		return b.String()
	}
	for i, e := range m.entries {
		if i == recentCount {
			break
		}
		isSel := e.Date == sel
		pointer := generateLinePointer(isSel, 2)
		prefix := fmt.Sprintf("%s %s ", e.Date, e.Mood.Glyph())
		available := width - len(pointer) - lipgloss.Width(prefix)
		title := e.Title
		if title == "" {
			title = e.Mood.Label()
		}
		if isSel {
			b.WriteString(pointer + selectedStyle.Render(prefix+m.marqueeText(title, available)) + "\n")
		} else {
			b.WriteString(pointer + inactiveStyle.Render(prefix+truncate(title, available)) + "\n")
		}
	}
	return b.String()
}

func (m model) cellView(cell stats.Cell, sel, today civil.Date) string {
	if !cell.Date.IsValid() {
		return "    "
	}
	text := fmt.Sprintf(" %2d ", cell.Date.Day)
	if cell.HasEntry() {
		text = " " + cell.Mood.Glyph() + " "
	}
	switch {
	case cell.Date == sel:
		return selectedStyle.Render(text)
	case cell.HasEntry():
		return text
	case cell.Date == today:
		return todayStyle.Render(text)
	default:
		return dayStyle.Render(text)
	}
}

func (m model) infoView() string {
	watch := 0
	if m.info.Watching {
		watch = 1
	}
	location := m.info.Location
	if location == "" {
		location = "-"
	}
	return fmt.Sprintf("Backend: %s\nData: %s\nLive reload: %s\n",
		TextStatusColorize(m.info.Backend, 1),
		TextStatusColorize(location, 1),
		TextStatusColorize(fmt.Sprintf("%t", m.info.Watching), watch))
}

func (m model) entryView(width int) string {
	var b strings.Builder
	st := m.state

	heading := "Entry"
	switch {
	case m.confirmDelete:
		heading = "Delete Entry"
	case st.Editing && st.HasEntry():
		heading = "Edit Entry"
	case st.Editing:
		heading = "New Entry"
	}
	b.WriteString(subtitleStyle.Width(width).Render(fmt.Sprintf("%s - %s", heading, st.SelectedDate.In(time.Local).Format("Mon, Jan 2 2006"))))
	b.WriteString("\n\n")

	switch {
	case m.confirmDelete:
		b.WriteString("Title: " + textRedStyle.Render(st.Current.Title) + "\n")
		b.WriteString("Mood:  " + textRedStyle.Render(st.Current.Mood.Glyph()+" "+st.Current.Mood.Label()) + "\n\n")
		b.WriteString(dangerSelectedStyle.Render(" Delete this entry? ") + "\n\n")
		b.WriteString("(y to delete, n or esc to keep)")

	case st.Editing:
		m.titleInput.Width = width - 8
		m.bodyInput.SetWidth(width)
		m.bodyInput.SetHeight(6)
		b.WriteString(m.fieldLabel(fieldTitle, "Title: ") + m.titleInput.View() + "\n\n")
		b.WriteString(m.fieldLabel(fieldBody, "Body") + "\n" + m.bodyInput.View() + "\n\n")
		b.WriteString(m.fieldLabel(fieldMood, "Mood: ") + m.moodPicker() + "\n\n")
		if st.Dirty() {
			b.WriteString(TextStatusColorize("unsaved changes", 2))
		} else {
			b.WriteString(TextStatusColorize("no changes", 0))
		}

	case st.HasEntry():
		e := st.Current
		b.WriteString(labelStyle.Bold(true).Render("Title: ") + textStyle.Bold(true).Render(e.Title) + "\n\n")
		b.WriteString(labelStyle.Render("Mood: ") + styleFor(e.Mood).Render(e.Mood.Glyph()+" "+e.Mood.Label()) + "\n\n")
		b.WriteString(textStyle.Width(width).Render(e.Body) + "\n\n")
		b.WriteString(TextStatusColorize(fmt.Sprintf("updated %s", e.Updated().Format(time.DateTime)), 0))

	default:
		b.WriteString(inactiveStyle.Render("No entry for this day. Press e to write one."))
	}
	return b.String()
}

func (m model) fieldLabel(f field, text string) string {
	if m.focus == focusEditor && m.field == f {
		return labelStyle.Bold(true).Render(text)
	}
	return inactiveStyle.Render(text)
}

func (m model) moodPicker() string {
	parts := make([]string, 0, len(moods.All))
	for _, md := range moods.All {
		label := fmt.Sprintf(" %d %s ", md.Ordinal(), md.Glyph())
		if md == m.state.Draft.Mood {
			parts = append(parts, selectedStyle.Render(label))
		} else {
			parts = append(parts, styleFor(md).Render(label))
		}
	}
	return strings.Join(parts, " ") + "  " + styleFor(m.state.Draft.Mood).Render(m.state.Draft.Mood.Label())
}

var sparkLevels = []string{" ", "▁", "▃", "▅", "▆", "█"}

func (m model) statsView() string {
	summary := stats.Summarize(m.entries, m.today())
	if summary.Total == 0 {
		return footerStyle.Width(m.width).Render("  No statistics yet.")
	}

	var spark strings.Builder
	for _, pt := range summary.Trend {
		level := sparkLevels[0]
		if pt.Value > 0 && pt.Value < len(sparkLevels) {
			level = sparkLevels[pt.Value]
		}
		spark.WriteString(styleFor(moodForOrdinal(pt.Value)).Render(level))
	}

	return fmt.Sprintf("  %s %d  %s %s %s  %s %s  %s %s",
		labelStyle.Render("Entries"), summary.Total,
		labelStyle.Render("Score"), styleFor(summary.Band).Render(summary.Score.String()), summary.Band.Glyph(),
		labelStyle.Render("Most often"), styleFor(summary.MostFrequent).Render(summary.MostFrequent.Glyph()+" "+summary.MostFrequent.Label()),
		labelStyle.Render("Month"), spark.String())
}

func (m model) footerView() string {
	var status string
	if m.status != "" {
		s := 1
		if m.statusErr {
			s = 2
		}
		status = TextStatusColorize(m.status, s) + "\n"
	}

	help := "←↑↓→/hjkl move • [ ] month • t today • e edit • d delete • q quit"
	if m.state.Editing && m.focus == focusEditor {
		help = "tab next field • 1-5 mood • ctrl+s save • esc cancel"
	}
	return status + footerStyle.Width(m.width).Render(help)
}

// ShowTUI opens a session on today's date and runs the UI until the user
// quits or ctx is cancelled.
func ShowTUI(ctx context.Context, j Journal, info Info, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := session.New(ctx, j, session.WithLogger(log))
	if err != nil {
		return err
	}
	defer sess.Close()

	p := tea.NewProgram(newModel(ctx, j, sess, info, time.Now), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
