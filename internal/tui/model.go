package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"covergrid/internal/board"
	"covergrid/internal/catalog"
	"covergrid/internal/export"
	"covergrid/internal/guide"
	"covergrid/internal/history"
	"covergrid/internal/search"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Kind        catalog.Kind
	NewClient   func(catalog.Kind) catalog.Client
	Exporter    *export.Pipeline
	HistoryPath string
	Debounce    time.Duration
	MinChars    int
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	titleInput := textinput.New()
	titleInput.Placeholder = titlePlaceholder
	titleInput.CharLimit = 120
	titleInput.Width = 50

	m := &model{
		config:     config,
		stage:      stageBoard,
		board:      board.New(config.Kind),
		spinner:    spin,
		titleInput: titleInput,
		infoMessage: fmt.Sprintf(
			"Searching the %s catalog. Type in a slot to begin.", config.Kind),
	}
	m.buildSlots()
	m.recent = history.Recent(config.HistoryPath, recentShown)
	m.jobs = newJobBus()
	return m
}

type model struct {
	config Config
	stage  stage

	board       *board.Board
	client      catalog.Client
	inputs      [board.Slots]textinput.Model
	controllers [board.Slots]*search.Controller
	lastValues  [board.Slots]string
	active      int

	titleInput textinput.Model
	spinner    spinner.Model
	jobs       *jobBus

	exporting    bool
	helpVisible  bool
	recent       []history.Record
	infoMessage  string
	errorMessage string

	width  int
	height int
}

// buildSlots (re)creates the 9 inputs and controllers for the current kind.
// Called at startup and after a catalog switch.
func (m *model) buildSlots() {
	client := m.config.NewClient(m.board.Kind())
	m.client = client
	for i := 0; i < board.Slots; i++ {
		input := textinput.New()
		input.Placeholder = fmt.Sprintf("Slot %d", i+1)
		input.CharLimit = 120
		input.Width = inputWidth
		m.inputs[i] = input
		m.lastValues[i] = ""

		slot := i
		m.controllers[i] = search.New(search.Config{
			Slot:     slot,
			Client:   client,
			Debounce: m.config.Debounce,
			MinChars: m.config.MinChars,
			OnCommit: func(c catalog.Candidate) {
				m.board.Set(slot, c)
			},
		})
	}
	m.active = 0
	m.inputs[0].Focus()
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.exporting || m.anyLoading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case search.DebounceElapsedMsg:
		if msg.Slot < 0 || msg.Slot >= board.Slots {
			return m, nil
		}
		cmd := m.controllers[msg.Slot].DebounceElapsed(msg)
		if cmd == nil {
			return m, nil
		}
		return m, tea.Batch(cmd, m.spinner.Tick)

	case search.ResultMsg:
		if msg.Slot < 0 || msg.Slot >= board.Slots {
			return m, nil
		}
		m.controllers[msg.Slot].ApplyResult(msg)
		return m, nil

	case quickFillMsg:
		m.applyQuickFill(msg)
		return m, nil

	case jobSignalMsg:
		if msg.Snapshot.Kind == jobKindExport && msg.Snapshot.Status == jobStatusRunning {
			m.infoMessage = "Rendering collage…"
		}
		return m, nil

	case jobResultEnvelope:
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)

	case exportResultMsg:
		m.exporting = false
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
			m.infoMessage = "Export failed. The board is untouched; press Ctrl+E to retry."
			return m, nil
		}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Exported %s (%s).", msg.result.Path, msg.result.Format)
		m.recent = history.Recent(m.config.HistoryPath, recentShown)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageTitle:
		return m.handleTitleKey(key)
	default:
		return m.handleBoardKey(key)
	}
}

func (m *model) handleBoardKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.controllers[m.active]

	switch key.Type {
	case tea.KeyTab:
		m.focusSlot(m.active + 1)
		return m, nil
	case tea.KeyShiftTab:
		m.focusSlot(m.active - 1)
		return m, nil
	case tea.KeyUp:
		if ctrl.Open() {
			ctrl.MoveActive(-1)
			return m, nil
		}
		m.focusSlot(m.active - 3)
		return m, nil
	case tea.KeyDown:
		if ctrl.Open() {
			ctrl.MoveActive(1)
			return m, nil
		}
		m.focusSlot(m.active + 3)
		return m, nil
	case tea.KeyEnter:
		if ctrl.CommitActive() {
			m.syncCommittedInput(m.active)
			m.infoMessage = fmt.Sprintf("Slot %d set. %d of %d filled.", m.active+1, m.board.Filled(), board.Slots)
			return m, nil
		}
		return m, m.quickFill()
	case tea.KeyEsc:
		if ctrl.Open() {
			ctrl.Close()
			return m, nil
		}
		if m.helpVisible {
			m.helpVisible = false
			return m, nil
		}
		return m, nil
	case tea.KeyCtrlX:
		m.board.Clear(m.active)
		ctrl.Reset()
		m.inputs[m.active].SetValue("")
		m.lastValues[m.active] = ""
		m.infoMessage = fmt.Sprintf("Slot %d cleared.", m.active+1)
		return m, nil
	case tea.KeyCtrlT:
		m.cycleKind()
		return m, nil
	case tea.KeyCtrlE:
		return m, m.startExportEntry()
	case tea.KeyCtrlG:
		m.helpVisible = !m.helpVisible
		return m, nil
	}

	// Everything else edits the active slot's text.
	var cmd tea.Cmd
	m.inputs[m.active], cmd = m.inputs[m.active].Update(key)
	value := m.inputs[m.active].Value()
	if value != m.lastValues[m.active] {
		m.lastValues[m.active] = value
		m.board.Invalidate(m.active, value)
		if searchCmd := ctrl.TextChanged(value); searchCmd != nil {
			return m, tea.Batch(cmd, searchCmd)
		}
	}
	return m, cmd
}

func (m *model) handleTitleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.stage = stageBoard
		m.titleInput.Blur()
		m.infoMessage = "Export canceled."
		return m, nil
	case tea.KeyEnter:
		title := strings.TrimSpace(m.titleInput.Value())
		m.stage = stageBoard
		m.titleInput.Blur()
		return m, m.startExport(title)
	}
	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(key)
	return m, cmd
}

// quickFill resolves Enter on a closed panel: look up the single best match
// for the typed text and lock it without opening the candidate list. Only
// available when the catalog client supports single-result mode.
func (m *model) quickFill() tea.Cmd {
	ctrl := m.controllers[m.active]
	if ctrl.Open() || m.board.Get(m.active) != nil {
		return nil
	}
	looker, ok := m.client.(catalog.Looker)
	if !ok {
		return nil
	}
	query := strings.TrimSpace(m.inputs[m.active].Value())
	minChars := m.config.MinChars
	if minChars <= 0 {
		minChars = search.DefaultMinChars
	}
	if len([]rune(query)) < minChars {
		return nil
	}
	slot := m.active
	return tea.Batch(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		candidate, err := looker.Lookup(ctx, query)
		return quickFillMsg{slot: slot, query: query, candidate: candidate, err: err}
	}, m.spinner.Tick)
}

func (m *model) applyQuickFill(msg quickFillMsg) {
	if msg.slot < 0 || msg.slot >= board.Slots {
		return
	}
	// The lookup is only honored while the slot still shows the text it was
	// issued for and nothing else filled it meanwhile.
	if strings.TrimSpace(m.inputs[msg.slot].Value()) != msg.query || m.board.Get(msg.slot) != nil {
		return
	}
	if msg.err != nil || msg.candidate.Title == "" {
		m.infoMessage = fmt.Sprintf("No direct match for %q. Keep typing to pick from the list.", msg.query)
		return
	}
	m.controllers[msg.slot].Commit(msg.candidate)
	m.syncCommittedInput(msg.slot)
	m.infoMessage = fmt.Sprintf("Slot %d set. %d of %d filled.", msg.slot+1, m.board.Filled(), board.Slots)
}

// startExportEntry moves to the title prompt, refusing re-entrant exports
// and empty boards before any pipeline work begins.
func (m *model) startExportEntry() tea.Cmd {
	if m.exporting {
		m.infoMessage = "An export is already running."
		return nil
	}
	if m.board.Filled() == 0 {
		m.infoMessage = "Fill at least one slot before exporting."
		return nil
	}
	m.stage = stageTitle
	m.titleInput.SetValue("")
	m.titleInput.Focus()
	m.infoMessage = "Name the collage and press Enter."
	return textinput.Blink
}

func (m *model) startExport(title string) tea.Cmd {
	m.exporting = true
	m.errorMessage = ""
	req := export.Request{Tiles: boardTiles(m.board), Title: title}
	runner := exportJob(m.config.Exporter, req, m.config.HistoryPath, m.board.Kind(), m.board.Filled())
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindExport, runner))
}

// focusSlot moves keyboard focus, closing the departed slot's panel without
// touching its text.
func (m *model) focusSlot(slot int) {
	if slot < 0 || slot >= board.Slots || slot == m.active {
		return
	}
	m.controllers[m.active].Close()
	m.inputs[m.active].Blur()
	m.active = slot
	m.inputs[m.active].Focus()
}

// syncCommittedInput mirrors the committed title into the slot's input and
// delivers the synthetic change event the controller expects to suppress.
func (m *model) syncCommittedInput(slot int) {
	value := m.controllers[slot].RawText()
	m.inputs[slot].SetValue(value)
	m.inputs[slot].CursorEnd()
	m.lastValues[slot] = value
	m.controllers[slot].TextChanged(value)
}

func (m *model) cycleKind() {
	if m.exporting {
		m.infoMessage = "Wait for the running export before switching catalogs."
		return
	}
	current := m.board.Kind()
	next := catalog.Kinds[0]
	for i, kind := range catalog.Kinds {
		if kind == current {
			next = catalog.Kinds[(i+1)%len(catalog.Kinds)]
			break
		}
	}
	m.board.Reset(next)
	m.buildSlots()
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Switched to the %s catalog. Board cleared.", next)
}

func (m *model) anyLoading() bool {
	for _, ctrl := range m.controllers {
		if ctrl != nil && ctrl.Loading() {
			return true
		}
	}
	return false
}

func (m *model) guideSteps() []guide.Step {
	return guide.Build(m.board.Kind())
}
