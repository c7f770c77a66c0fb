package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
)

func (m *model) View() string {
	switch m.stage {
	case stageTitle:
		return m.viewTitle()
	default:
		return m.viewBoard()
	}
}

func (m *model) viewBoard() string {
	parts := []string{m.heroView(), m.gridView()}
	if panel := m.dropdownView(); panel != "" {
		parts = append(parts, panel)
	}
	parts = append(parts, m.statusMeterView())
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.exporting {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if recent := m.recentView(); recent != "" {
		parts = append(parts, recent)
	}
	if m.helpVisible {
		parts = append(parts, m.helpView())
	}
	return joinNonEmpty(parts)
}

func (m *model) viewTitle() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Name Your Collage"))
	b.WriteRune('\n')
	b.WriteString(m.titleInput.View())
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("The name becomes the banner and the file name. Enter to export, Esc to cancel."))
	return joinNonEmpty([]string{m.heroView(), b.String(), m.statusMeterView()})
}

func (m *model) heroView() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		renderLogo(),
		taglineStyle.Render(heroTagline),
	)
}

func (m *model) gridView() string {
	rows := make([]string, 0, 3)
	for row := 0; row < 3; row++ {
		cells := make([]string, 0, 3)
		for col := 0; col < 3; col++ {
			cells = append(cells, m.cellView(row*3+col))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *model) cellView(slot int) string {
	header := fmt.Sprintf("Slot %d", slot+1)
	selection := m.board.Get(slot)
	if selection != nil {
		header += " ●"
	}

	var body string
	if slot == m.active {
		body = m.inputs[slot].View()
	} else if value := m.inputs[slot].Value(); value != "" {
		body = runewidth.Truncate(value, cellWidth-4, "…")
	} else {
		body = helperStyle.Render("empty")
	}

	var footer string
	switch {
	case selection != nil:
		footer = lockedStyle.Render(runewidth.Truncate(selection.DisplayTitle(), cellWidth-4, "…"))
	case m.inputs[slot].Value() != "":
		footer = helperStyle.Render("unconfirmed")
	default:
		footer = " "
	}

	content := strings.Join([]string{cellHeaderStyle.Render(header), body, footer}, "\n")
	if slot == m.active {
		return activeCellStyle.Width(cellWidth).Render(content)
	}
	return cellStyle.Width(cellWidth).Render(content)
}

// dropdownView renders the active slot's candidate panel, windowed so the
// focused row stays visible when the list outgrows maxDropdownRows.
func (m *model) dropdownView() string {
	ctrl := m.controllers[m.active]
	if ctrl.Loading() {
		return helperStyle.Render(fmt.Sprintf("%s Searching the %s catalog…", m.spinner.View(), m.board.Kind()))
	}
	if !ctrl.Open() {
		return ""
	}

	candidates := ctrl.Candidates()
	if len(candidates) == 0 {
		return dropdownBoxStyle.Render(helperStyle.Render("No matches. Keep typing or try another title."))
	}

	active := ctrl.ActiveIndex()
	top := 0
	if active >= maxDropdownRows {
		top = active - maxDropdownRows + 1
	}
	end := top + maxDropdownRows
	if end > len(candidates) {
		end = len(candidates)
	}

	lines := make([]string, 0, end-top+1)
	lines = append(lines, sectionHeaderStyle.Render(fmt.Sprintf("Matches for slot %d", m.active+1)))
	for i := top; i < end; i++ {
		label := runewidth.Truncate(candidates[i].DisplayTitle(), 60, "…")
		if i == active {
			lines = append(lines, currentLineStyle.Render("▸ "+label))
		} else {
			lines = append(lines, "  "+label)
		}
	}
	if end < len(candidates) {
		lines = append(lines, helperStyle.Render(fmt.Sprintf("  …%d more below", len(candidates)-end)))
	}
	return dropdownBoxStyle.Render(strings.Join(lines, "\n"))
}

func (m *model) statusMeterView() string {
	stats := []string{
		fmt.Sprintf("Catalog %s", m.board.Kind()),
		fmt.Sprintf("Filled %d/9", m.board.Filled()),
		fmt.Sprintf("Slot %d", m.active+1),
	}
	if m.exporting {
		stats = append(stats, "Exporting…")
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) recentView() string {
	if len(m.recent) == 0 {
		return ""
	}
	lines := []string{sectionHeaderStyle.Render("Recent Exports")}
	for _, record := range m.recent {
		title := record.Title
		if title == "" {
			title = "(untitled)"
		}
		lines = append(lines, helperStyle.Render(fmt.Sprintf("  %s → %s", runewidth.Truncate(title, 32, "…"), record.Path)))
	}
	return strings.Join(lines, "\n")
}

func (m *model) helpView() string {
	lines := []string{sectionHeaderStyle.Render("Getting Started")}
	for _, step := range m.guideSteps() {
		lines = append(lines, keyStyle.Render(step.Title))
		lines = append(lines, helperStyle.Render(wordwrap.String(step.Description, 68)))
	}
	lines = append(lines, "")
	lines = append(lines, helperStyle.Render("Ctrl+E export • Ctrl+T switch catalog • Ctrl+X clear slot • Ctrl+G close help • Ctrl+C quit"))
	return helpBoxStyle.Render(strings.Join(lines, "\n"))
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

// renderLogo draws the wordmark with a one-cell drop shadow: each row shows
// its own glyphs in the face style, and the previous row's glyphs shifted one
// column right fill the gaps in the shadow style.
func renderLogo() string {
	if len(logoArtLines) == 0 {
		return ""
	}
	rows := make([]string, 0, len(logoArtLines)+1)
	above := ""
	for y := 0; y <= len(logoArtLines); y++ {
		line := ""
		if y < len(logoArtLines) {
			line = logoArtLines[y]
		}
		rows = append(rows, shadowedRow(line, above))
		above = line
	}
	return logoContainerStyle.Render(strings.Join(rows, "\n"))
}

func shadowedRow(face, above string) string {
	faceRunes := []rune(face)
	shadowRunes := []rune(above)
	width := len(faceRunes)
	if len(shadowRunes)+1 > width {
		width = len(shadowRunes) + 1
	}
	var b strings.Builder
	for x := 0; x < width; x++ {
		f, s := ' ', ' '
		if x < len(faceRunes) {
			f = faceRunes[x]
		}
		if x >= 1 && x-1 < len(shadowRunes) {
			s = shadowRunes[x-1]
		}
		switch {
		case f != ' ':
			b.WriteString(logoFaceStyle.Render(string(f)))
		case s != ' ':
			b.WriteString(logoShadowStyle.Render(string(s)))
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	lockedStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3be8c"))
	cellHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147"))

	heroAccentColor        = lipgloss.Color("#7f5af0")
	heroInkColor           = lipgloss.Color("#16141f")
	heroTextColor          = lipgloss.Color("#e0def4")
	heroSecondaryTextColor = lipgloss.Color("#9a86fd")

	taglineStyle       = lipgloss.NewStyle().Foreground(heroSecondaryTextColor).Italic(true)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	currentLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	cellStyle          = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
	activeCellStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(heroAccentColor).Padding(0, 1)
	dropdownBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(heroAccentColor).Padding(0, 1)
	helpBoxStyle       = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(heroAccentColor).Padding(1, 2)
	logoFaceStyle      = lipgloss.NewStyle().Bold(true).Foreground(heroTextColor).Background(heroInkColor)
	logoShadowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#0a0812"))
	logoContainerStyle = lipgloss.NewStyle().Padding(0, 1)
	logoArtLines       = []string{
		" ██████╗   ██████╗   ██╗   ██╗  ███████╗  ██████╗    ██████╗   ██████╗   ██╗  ██████╗ ",
		"██╔════╝  ██╔═══██╗  ██║   ██║  ██╔════╝  ██╔══██╗  ██╔════╝   ██╔══██╗  ██║  ██╔══██╗",
		"██║       ██║   ██║  ██║   ██║  █████╗    ██████╔╝  ██║  ███╗  ██████╔╝  ██║  ██║  ██║",
		"██║       ██║   ██║  ╚██╗ ██╔╝  ██╔══╝    ██╔══██╗  ██║   ██║  ██╔══██╗  ██║  ██║  ██║",
		"╚██████╗  ╚██████╔╝   ╚████╔╝   ███████╗  ██║  ██║  ╚██████╔╝  ██║  ██║  ██║  ██████╔╝",
		" ╚═════╝   ╚═════╝     ╚═══╝    ╚══════╝  ╚═╝  ╚═╝   ╚═════╝   ╚═╝  ╚═╝  ╚═╝  ╚═════╝ ",
	}
)
