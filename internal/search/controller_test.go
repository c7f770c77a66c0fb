package search

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"covergrid/internal/catalog"
)

type fakeClient struct {
	queries []string
	results map[string][]catalog.Candidate
	err     error
}

func (f *fakeClient) Search(ctx context.Context, query string) ([]catalog.Candidate, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func newTestController(t *testing.T, client catalog.Client, onCommit func(catalog.Candidate)) *Controller {
	t.Helper()
	return New(Config{
		Slot:     0,
		Client:   client,
		OnCommit: onCommit,
		Debounce: time.Millisecond,
		MinChars: 2,
	})
}

// runCmd executes a command synchronously; fine for both the tick commands
// (millisecond debounce) and the search closures backed by the fake client.
func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	return cmd()
}

func threeCandidates() []catalog.Candidate {
	return []catalog.Candidate{
		{ID: "1", Title: "Inception", Year: 2010, ImageURL: "https://img.example/1.jpg"},
		{ID: "2", Title: "Inception: The Cobol Job", Year: 2010},
		{ID: "3", Title: "Inception of Lies"},
	}
}

func TestRapidTypingIssuesOneRequest(t *testing.T) {
	t.Parallel()

	client := &fakeClient{results: map[string][]catalog.Candidate{"Incep": threeCandidates()}}
	ctrl := newTestController(t, client, nil)

	tick1 := ctrl.TextChanged("I")
	tick2 := ctrl.TextChanged("In")
	tick3 := ctrl.TextChanged("Incep")

	// All three timers fire; only the last scheduled one is live.
	msg1 := runCmd(t, tick1).(DebounceElapsedMsg)
	msg2 := runCmd(t, tick2).(DebounceElapsedMsg)
	msg3 := runCmd(t, tick3).(DebounceElapsedMsg)

	if cmd := ctrl.DebounceElapsed(msg1); cmd != nil {
		t.Fatal("stale timer firing must not issue a request")
	}
	if cmd := ctrl.DebounceElapsed(msg2); cmd != nil {
		t.Fatal("stale timer firing must not issue a request")
	}
	searchCmd := ctrl.DebounceElapsed(msg3)
	if searchCmd == nil {
		t.Fatal("live timer firing must issue a request")
	}
	if !ctrl.Loading() {
		t.Fatal("controller should be loading while the request is in flight")
	}
	ctrl.ApplyResult(runCmd(t, searchCmd).(ResultMsg))

	if len(client.queries) != 1 || client.queries[0] != "Incep" {
		t.Fatalf("expected exactly one request for the final text, got %#v", client.queries)
	}
}

func TestShortQueryClearsWithoutRequest(t *testing.T) {
	t.Parallel()

	client := &fakeClient{results: map[string][]catalog.Candidate{"In": threeCandidates()}}
	ctrl := newTestController(t, client, nil)

	// Open a panel first so the short query demonstrably clears it.
	msg := runCmd(t, ctrl.TextChanged("In")).(DebounceElapsedMsg)
	ctrl.ApplyResult(runCmd(t, ctrl.DebounceElapsed(msg)).(ResultMsg))
	if !ctrl.Open() {
		t.Fatal("panel should open after results")
	}

	msg = runCmd(t, ctrl.TextChanged("I")).(DebounceElapsedMsg)
	if cmd := ctrl.DebounceElapsed(msg); cmd != nil {
		t.Fatal("sub-minimum query must not issue a request")
	}
	if ctrl.Open() || len(ctrl.Candidates()) != 0 {
		t.Fatal("sub-minimum query must clear candidates and close the panel")
	}
	if len(client.queries) != 1 {
		t.Fatalf("expected no second request, got %#v", client.queries)
	}
}

func TestStaleResponseNeverOverwritesNewer(t *testing.T) {
	t.Parallel()

	client := &fakeClient{results: map[string][]catalog.Candidate{
		"Incep":     {{ID: "old", Title: "Stale Result"}},
		"Inception": threeCandidates(),
	}}
	ctrl := newTestController(t, client, nil)

	msg := runCmd(t, ctrl.TextChanged("Incep")).(DebounceElapsedMsg)
	earlyCmd := ctrl.DebounceElapsed(msg)

	msg = runCmd(t, ctrl.TextChanged("Inception")).(DebounceElapsedMsg)
	lateCmd := ctrl.DebounceElapsed(msg)

	earlyResult := runCmd(t, earlyCmd).(ResultMsg)
	lateResult := runCmd(t, lateCmd).(ResultMsg)

	// The later-issued response lands first; the earlier one arrives after.
	ctrl.ApplyResult(lateResult)
	ctrl.ApplyResult(earlyResult)

	if len(ctrl.Candidates()) != 3 {
		t.Fatalf("stale response overwrote state: %#v", ctrl.Candidates())
	}
	if ctrl.Candidates()[0].ID != "1" {
		t.Fatalf("expected newest results applied, got %#v", ctrl.Candidates()[0])
	}
	if ctrl.ActiveIndex() != 0 {
		t.Fatalf("activeIndex = %d, want 0", ctrl.ActiveIndex())
	}
}

func TestLookupFailureShowsEmptyResults(t *testing.T) {
	t.Parallel()

	client := &fakeClient{err: errors.New("connection refused")}
	ctrl := newTestController(t, client, nil)

	msg := runCmd(t, ctrl.TextChanged("Inception")).(DebounceElapsedMsg)
	ctrl.ApplyResult(runCmd(t, ctrl.DebounceElapsed(msg)).(ResultMsg))

	if !ctrl.Open() {
		t.Fatal("failure must surface as an open no-results panel")
	}
	if ctrl.Loading() {
		t.Fatal("loading must clear on failure")
	}
	if len(ctrl.Candidates()) != 0 || ctrl.ActiveIndex() != -1 {
		t.Fatalf("expected empty state, got %d candidates active=%d", len(ctrl.Candidates()), ctrl.ActiveIndex())
	}
}

func TestMoveActiveWrapsBothDirections(t *testing.T) {
	t.Parallel()

	client := &fakeClient{results: map[string][]catalog.Candidate{"Incep": threeCandidates()}}
	ctrl := newTestController(t, client, nil)
	msg := runCmd(t, ctrl.TextChanged("Incep")).(DebounceElapsedMsg)
	ctrl.ApplyResult(runCmd(t, ctrl.DebounceElapsed(msg)).(ResultMsg))

	ctrl.MoveActive(-1)
	if ctrl.ActiveIndex() != 2 {
		t.Fatalf("up from 0 should wrap to last, got %d", ctrl.ActiveIndex())
	}
	ctrl.MoveActive(1)
	if ctrl.ActiveIndex() != 0 {
		t.Fatalf("down from last should wrap to 0, got %d", ctrl.ActiveIndex())
	}
}

func TestMoveActiveNoOpWhenClosedOrEmpty(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, &fakeClient{}, nil)
	ctrl.MoveActive(1)
	if ctrl.ActiveIndex() != -1 {
		t.Fatalf("move on closed panel changed index to %d", ctrl.ActiveIndex())
	}
}

func TestCommitStripsYearAndSuppressesReopen(t *testing.T) {
	t.Parallel()

	var committed []catalog.Candidate
	client := &fakeClient{results: map[string][]catalog.Candidate{"Incep": threeCandidates()}}
	ctrl := newTestController(t, client, func(c catalog.Candidate) {
		committed = append(committed, c)
	})

	msg := runCmd(t, ctrl.TextChanged("Incep")).(DebounceElapsedMsg)
	ctrl.ApplyResult(runCmd(t, ctrl.DebounceElapsed(msg)).(ResultMsg))

	if !ctrl.CommitActive() {
		t.Fatal("commit of active candidate should succeed")
	}
	if len(committed) != 1 || committed[0].ID != "1" {
		t.Fatalf("commit callback got %#v", committed)
	}
	if ctrl.RawText() != "Inception" {
		t.Fatalf("trailing year not stripped, rawText = %q", ctrl.RawText())
	}
	if ctrl.Open() || len(ctrl.Candidates()) != 0 {
		t.Fatal("commit must close and clear the panel")
	}

	// The synthetic change event carrying the committed title must not
	// schedule a new lookup.
	if cmd := ctrl.TextChanged("Inception"); cmd != nil {
		t.Fatal("post-commit synthetic change must be suppressed")
	}
	// A real edit afterwards searches normally again.
	if cmd := ctrl.TextChanged("Inceptio"); cmd == nil {
		t.Fatal("real edit after commit must schedule a debounce")
	}
}

func TestRealEditConsumesSuppressionToken(t *testing.T) {
	t.Parallel()

	client := &fakeClient{results: map[string][]catalog.Candidate{"Incep": threeCandidates()}}
	ctrl := newTestController(t, client, nil)
	msg := runCmd(t, ctrl.TextChanged("Incep")).(DebounceElapsedMsg)
	ctrl.ApplyResult(runCmd(t, ctrl.DebounceElapsed(msg)).(ResultMsg))
	ctrl.CommitActive()

	// No synthetic event was delivered; the user's first edit still works.
	if cmd := ctrl.TextChanged("Something else"); cmd == nil {
		t.Fatal("edit straight after commit must schedule a debounce")
	}
}

func TestCloseKeepsRawText(t *testing.T) {
	t.Parallel()

	client := &fakeClient{results: map[string][]catalog.Candidate{"Incep": threeCandidates()}}
	ctrl := newTestController(t, client, nil)
	msg := runCmd(t, ctrl.TextChanged("Incep")).(DebounceElapsedMsg)
	ctrl.ApplyResult(runCmd(t, ctrl.DebounceElapsed(msg)).(ResultMsg))

	ctrl.Close()
	if ctrl.Open() {
		t.Fatal("panel should close")
	}
	if ctrl.RawText() != "Incep" {
		t.Fatalf("close must not alter rawText, got %q", ctrl.RawText())
	}
}

func TestCloseInvalidatesInflightRequest(t *testing.T) {
	t.Parallel()

	client := &fakeClient{results: map[string][]catalog.Candidate{"Incep": threeCandidates()}}
	ctrl := newTestController(t, client, nil)
	msg := runCmd(t, ctrl.TextChanged("Incep")).(DebounceElapsedMsg)
	searchCmd := ctrl.DebounceElapsed(msg)

	ctrl.Close()
	ctrl.ApplyResult(runCmd(t, searchCmd).(ResultMsg))

	if ctrl.Open() || len(ctrl.Candidates()) != 0 {
		t.Fatal("response arriving after Close must be discarded")
	}
}

func TestKeyboardSelectionEndToEnd(t *testing.T) {
	t.Parallel()

	var committed []catalog.Candidate
	client := &fakeClient{results: map[string][]catalog.Candidate{"Incep": threeCandidates()}}
	ctrl := newTestController(t, client, func(c catalog.Candidate) {
		committed = append(committed, c)
	})

	msg := runCmd(t, ctrl.TextChanged("Incep")).(DebounceElapsedMsg)
	searchCmd := ctrl.DebounceElapsed(msg)
	if len(client.queries) != 0 {
		t.Fatal("request must not fire before the command runs")
	}
	ctrl.ApplyResult(runCmd(t, searchCmd).(ResultMsg))

	if !ctrl.Open() || ctrl.ActiveIndex() != 0 {
		t.Fatalf("panel should open at index 0, open=%v active=%d", ctrl.Open(), ctrl.ActiveIndex())
	}

	ctrl.MoveActive(1)
	if ctrl.ActiveIndex() != 1 {
		t.Fatalf("ArrowDown should land on 1, got %d", ctrl.ActiveIndex())
	}
	if !ctrl.CommitActive() {
		t.Fatal("Enter should commit the active candidate")
	}
	if len(committed) != 1 || committed[0].ID != "2" {
		t.Fatalf("expected candidate[1] committed, got %#v", committed)
	}
	if ctrl.Open() {
		t.Fatal("panel should close after commit")
	}
	if ctrl.RawText() != "Inception: The Cobol Job" {
		t.Fatalf("input text should become the committed title, got %q", ctrl.RawText())
	}
}

func TestStripYearSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Inception (2010)", "Inception"},
		{"Inception", "Inception"},
		{"1984 (1949)", "1984"},
		{"2001: A Space Odyssey (1968) ", "2001: A Space Odyssey"},
		{"Blink-182 (album)", "Blink-182 (album)"},
	}
	for _, tt := range tests {
		if got := stripYearSuffix(tt.in); got != tt.want {
			t.Fatalf("stripYearSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
