package ui

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/five82/teedee/internal/prefs"
	"github.com/five82/teedee/internal/state"
	"github.com/five82/teedee/internal/todoapi"
)

// Store is the slice of state.Store the UI drives.
type Store interface {
	Snapshot() state.Snapshot
	Subscribe(fn state.Listener) (unsubscribe func())
	Refresh(ctx context.Context)
	Add(ctx context.Context, draft todoapi.Todo)
	Modify(ctx context.Context, id int64, record todoapi.Todo)
	Remove(ctx context.Context, id int64)
	Toggle(ctx context.Context, id int64)
}

var _ Store = (*state.Store)(nil)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     Store
	Logger    *log.Logger
	BaseURL   string // shown in the header
	Prefs     prefs.Prefs
	PrefsPath string // empty uses the default prefs location
	LogPath   string // file shown by the log overlay; empty disables it
}

// mode selects which screen handles input.
type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirmDelete
	modeHelp
	modeLogs
)

// logOverlayLines is how many trailing log lines the overlay shows.
const logOverlayLines = 200

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	store     Store
	logger    *log.Logger
	keys      keyMap
	baseURL   string
	prefs     prefs.Prefs
	prefsPath string
	logPath   string

	feed        chan state.Snapshot
	unsubscribe func()

	theme   Theme
	spinner spinner.Model
	width   int
	height  int
	ready   bool

	snapshot state.Snapshot
	selected int
	mode     mode

	form          todoForm
	pendingDelete todoapi.Todo
	logLines      []string
	notice        string // transient UI-only message such as a failed prefs write
}

// New creates a Model subscribed to the store.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	p := opts.Prefs
	if p.Theme == "" {
		p = prefs.Default()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:       ctx,
		store:     opts.Store,
		logger:    logger,
		keys:      DefaultKeyMap(),
		baseURL:   opts.BaseURL,
		prefs:     p,
		prefsPath: prefsPath,
		logPath:   opts.LogPath,
		feed:      make(chan state.Snapshot, 1),
		theme:     GetTheme(p.Theme),
		spinner:   sp,
	}
	m.unsubscribe = opts.Store.Subscribe(m.deliver)
	m.snapshot = opts.Store.Snapshot()
	return m
}

// deliver forwards a snapshot to the program without blocking the store.
// Only the newest undelivered snapshot is kept.
func (m Model) deliver(snap state.Snapshot) {
	for {
		select {
		case m.feed <- snap:
			return
		default:
		}
		select {
		case <-m.feed:
		default:
		}
	}
}

// Close detaches the model from the store.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForSnapshot(m.feed),
		m.intent(m.store.Refresh),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.clampSelection()
		return m, waitForSnapshot(m.feed)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case logLinesMsg:
		m.logLines = msg.lines
		if msg.err != nil {
			m.notice = "Could not read log: " + msg.err.Error()
		}
		return m, nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.logger.Warn("save prefs failed", "err", msg.err)
			m.notice = "Could not save preferences"
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode == modeForm {
		var cmd tea.Cmd
		m.form, cmd = m.form.update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	switch m.mode {
	case modeHelp:
		return m.renderHelp()
	case modeLogs:
		return m.renderLogs()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case modeHelp:
		// Any key closes help
		m.mode = modeList
		return m, nil
	case modeLogs:
		return m.handleLogsKey(msg)
	case modeForm:
		return m.handleFormKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	visible := m.visibleTodos()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.mode = modeHelp
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		return m, savePrefsCmd(m.prefsPath, m.prefs)

	case key.Matches(msg, m.keys.HideDone):
		m.prefs.HideCompleted = !m.prefs.HideCompleted
		m.clampSelection()
		return m, savePrefsCmd(m.prefsPath, m.prefs)

	case key.Matches(msg, m.keys.Logs):
		if m.logPath == "" {
			m.notice = "File logging is disabled"
			return m, nil
		}
		m.mode = modeLogs
		return m, loadLogsCmd(m.logPath)

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(visible)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		if len(visible) > 0 {
			m.selected = len(visible) - 1
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, m.intent(m.store.Refresh)

	case key.Matches(msg, m.keys.Add):
		m.form = newForm(formAdd, todoapi.Todo{})
		m.mode = modeForm
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selectedTodo(); ok && !t.IsDraft() {
			m.form = newForm(formEdit, t)
			m.mode = modeForm
			return m, textinput.Blink
		}

	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.selectedTodo(); ok && !t.IsDraft() {
			id := t.IDValue()
			return m, m.intent(func(ctx context.Context) { m.store.Toggle(ctx, id) })
		}

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selectedTodo(); ok && !t.IsDraft() {
			m.pendingDelete = t
			m.mode = modeConfirmDelete
		}
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.mode = modeList
		return m, nil

	case key.Matches(msg, m.keys.NextField):
		return m, m.form.next()

	case key.Matches(msg, m.keys.PrevField):
		return m, m.form.prev()

	case key.Matches(msg, m.keys.Submit):
		record, err := m.form.record()
		if err != nil {
			m.form.err = formError(err)
			return m, nil
		}
		m.mode = modeList
		if m.form.mode == formEdit {
			id := record.IDValue()
			return m, m.intent(func(ctx context.Context) { m.store.Modify(ctx, id, record) })
		}
		return m, m.intent(func(ctx context.Context) { m.store.Add(ctx, record) })
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ConfirmYes):
		m.mode = modeList
		id := m.pendingDelete.IDValue()
		m.pendingDelete = todoapi.Todo{}
		return m, m.intent(func(ctx context.Context) { m.store.Remove(ctx, id) })
	case key.Matches(msg, m.keys.ConfirmNo):
		m.mode = modeList
		m.pendingDelete = todoapi.Todo{}
	}
	return m, nil
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m, loadLogsCmd(m.logPath)
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Logs), key.Matches(msg, m.keys.Quit):
		m.mode = modeList
	}
	return m, nil
}

// visibleTodos returns the todos shown in the list, honouring HideCompleted.
func (m Model) visibleTodos() []todoapi.Todo {
	if !m.prefs.HideCompleted {
		return m.snapshot.Todos
	}
	out := make([]todoapi.Todo, 0, len(m.snapshot.Todos))
	for _, t := range m.snapshot.Todos {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

func (m Model) selectedTodo() (todoapi.Todo, bool) {
	visible := m.visibleTodos()
	if m.selected < 0 || m.selected >= len(visible) {
		return todoapi.Todo{}, false
	}
	return visible[m.selected], true
}

func (m *Model) clampSelection() {
	n := len(m.visibleTodos())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// Messages

type snapshotMsg state.Snapshot

type intentDoneMsg struct{}

type logLinesMsg struct {
	lines []string
	err   error
}

type prefsSavedMsg struct{ err error }

// Commands

func waitForSnapshot(feed <-chan state.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-feed)
	}
}

// intent runs a store operation off the update loop. Its outcome arrives
// through the subscription, not the returned message.
func (m Model) intent(fn func(context.Context)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		fn(ctx)
		return intentDoneMsg{}
	}
}

func savePrefsCmd(path string, p prefs.Prefs) tea.Cmd {
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Save(path, p)}
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
