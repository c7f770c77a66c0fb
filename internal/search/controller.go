// Package search owns the per-slot incremental search state machine: debounce,
// request cancellation, staleness detection, and keyboard-driven selection.
package search

import (
	"context"
	"regexp"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"covergrid/internal/catalog"
)

const (
	// DefaultDebounce is how long input must stay quiet before a lookup fires.
	DefaultDebounce = 250 * time.Millisecond

	// DefaultMinChars is the shortest trimmed query that triggers a lookup.
	DefaultMinChars = 2
)

// DebounceElapsedMsg is emitted when a slot's debounce timer fires. Seq ties
// the firing to the keystroke that scheduled it; a stale Seq means a newer
// keystroke replaced the timer and the firing must be ignored.
type DebounceElapsedMsg struct {
	Slot int
	Seq  int
}

// ResultMsg carries the outcome of one issued catalog lookup. Seq ties it to
// the request that produced it; only the latest issued request may touch
// controller state.
type ResultMsg struct {
	Slot       int
	Seq        int
	Candidates []catalog.Candidate
	Err        error
}

// Config wires a controller to its slot and collaborators.
type Config struct {
	Slot     int
	Client   catalog.Client
	OnCommit func(catalog.Candidate)
	Debounce time.Duration
	MinChars int
}

// Controller turns raw keystrokes for one slot into a race-free candidate
// list. It owns its state exclusively; the board is updated only through the
// OnCommit callback.
type Controller struct {
	slot     int
	client   catalog.Client
	onCommit func(catalog.Candidate)
	debounce time.Duration
	minChars int

	rawText       string
	debouncedText string
	open          bool
	loading       bool
	candidates    []catalog.Candidate
	activeIndex   int

	inputSeq     int
	requestSeq   int
	cancel       context.CancelFunc
	suppressOnce bool
}

// New returns a controller with unset config fields defaulted.
func New(config Config) *Controller {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if config.MinChars <= 0 {
		config.MinChars = DefaultMinChars
	}
	return &Controller{
		slot:        config.Slot,
		client:      config.Client,
		onCommit:    config.OnCommit,
		debounce:    config.Debounce,
		minChars:    config.MinChars,
		activeIndex: -1,
	}
}

// Slot reports which board slot this controller serves.
func (c *Controller) Slot() int { return c.slot }

// RawText is the slot's current input text as last reported to the controller.
func (c *Controller) RawText() string { return c.rawText }

// Open reports whether the candidate panel is showing.
func (c *Controller) Open() bool { return c.open }

// Loading reports whether a lookup is in flight.
func (c *Controller) Loading() bool { return c.loading }

// Candidates returns the current candidate list in upstream order.
func (c *Controller) Candidates() []catalog.Candidate { return c.candidates }

// ActiveIndex is the keyboard-focused row, or -1 when none.
func (c *Controller) ActiveIndex() int { return c.activeIndex }

// TextChanged records a new raw input value and schedules a fresh debounce
// timer, replacing any pending one. The text change immediately after a
// commit consumes the one-shot suppression token and schedules nothing, so a
// committed pick does not reopen the panel it just closed.
func (c *Controller) TextChanged(text string) tea.Cmd {
	if c.suppressOnce {
		// The first event after a commit is the synthetic one carrying the
		// committed title. A different value is a real edit and proceeds.
		c.suppressOnce = false
		if text == c.rawText {
			return nil
		}
	}
	if text == c.rawText {
		return nil
	}
	c.rawText = text
	c.inputSeq++
	seq := c.inputSeq
	slot := c.slot
	return tea.Tick(c.debounce, func(time.Time) tea.Msg {
		return DebounceElapsedMsg{Slot: slot, Seq: seq}
	})
}

// DebounceElapsed reacts to a timer firing. A stale sequence is a replaced
// timer and does nothing. A live firing publishes the debounced text and,
// when it is long enough, issues a lookup that supersedes any in-flight one.
func (c *Controller) DebounceElapsed(msg DebounceElapsedMsg) tea.Cmd {
	if msg.Seq != c.inputSeq {
		return nil
	}
	c.debouncedText = c.rawText

	query := strings.TrimSpace(c.debouncedText)
	if len([]rune(query)) < c.minChars {
		c.invalidateInflight()
		c.candidates = nil
		c.activeIndex = -1
		c.open = false
		c.loading = false
		return nil
	}

	c.invalidateInflight()
	c.requestSeq++
	seq := c.requestSeq
	slot := c.slot

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.loading = true

	client := c.client
	return func() tea.Msg {
		candidates, err := client.Search(ctx, query)
		return ResultMsg{Slot: slot, Seq: seq, Candidates: candidates, Err: err}
	}
}

// ApplyResult folds a lookup outcome into controller state. Responses whose
// sequence is not the latest issued are stale and discarded unapplied, which
// keeps a slow early response from overwriting a fast later one.
func (c *Controller) ApplyResult(msg ResultMsg) {
	if msg.Seq != c.requestSeq {
		return
	}
	c.loading = false
	c.open = true
	if msg.Err != nil {
		c.candidates = nil
		c.activeIndex = -1
		return
	}
	c.candidates = msg.Candidates
	if len(c.candidates) > 0 {
		c.activeIndex = 0
	} else {
		c.activeIndex = -1
	}
}

// MoveActive shifts the keyboard focus by delta rows, wrapping around in both
// directions. No-op when the panel is closed or empty.
func (c *Controller) MoveActive(delta int) {
	if !c.open || len(c.candidates) == 0 {
		return
	}
	count := len(c.candidates)
	if c.activeIndex < 0 {
		c.activeIndex = 0
		return
	}
	c.activeIndex = (c.activeIndex + delta) % count
	if c.activeIndex < 0 {
		c.activeIndex += count
	}
}

// CommitActive commits the keyboard-focused candidate. Returns false when the
// panel is closed or nothing is focused.
func (c *Controller) CommitActive() bool {
	if !c.open || c.activeIndex < 0 || c.activeIndex >= len(c.candidates) {
		return false
	}
	c.Commit(c.candidates[c.activeIndex])
	return true
}

// Commit reports the pick upward, replaces the input text with the title
// (trailing year suffix stripped for editing), closes the panel, and arms the
// suppression token consumed by the resulting text-change event.
func (c *Controller) Commit(candidate catalog.Candidate) {
	if c.onCommit != nil {
		c.onCommit(candidate)
	}
	c.rawText = stripYearSuffix(candidate.DisplayTitle())
	c.invalidateInflight()
	c.candidates = nil
	c.activeIndex = -1
	c.open = false
	c.loading = false
	c.suppressOnce = true
}

// Reset returns the controller to its initial state: empty text, closed
// panel, no candidates, pending timers and requests invalidated.
func (c *Controller) Reset() {
	c.rawText = ""
	c.debouncedText = ""
	c.candidates = nil
	c.activeIndex = -1
	c.open = false
	c.loading = false
	c.suppressOnce = false
	c.inputSeq++
	c.invalidateInflight()
}

// Close hides the panel without touching rawText. Used for Escape and for
// focus leaving the slot.
func (c *Controller) Close() {
	c.open = false
	c.loading = false
	c.invalidateInflight()
}

// invalidateInflight cancels the current request's context and bumps the
// request sequence so a response that already left the network layer is
// detected as stale.
func (c *Controller) invalidateInflight() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.requestSeq++
}

var yearSuffix = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)

func stripYearSuffix(title string) string {
	return yearSuffix.ReplaceAllString(title, "")
}
