package review

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
)

// Lines per posting in the list view (title + subtitle + blank separator).
const rowItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	rowTitleStyle = lipgloss.NewStyle().
			Bold(true)

	rowSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedRowTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedRowSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	descDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	descHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	descBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type reviewModel struct {
	allRows       []model.JobRecord
	scoredRows    []model.JobRecord
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=left, 1=right
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	sortByDate    bool // scored pane order: false=by score, true=by date
	ready         bool

	// Detail view state
	view            viewState
	detailRecord    model.JobRecord
	detailViewport  viewport.Model
	showDescription bool
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "s":
		m.sortByDate = !m.sortByDate
		if m.sortByDate {
			sortRowsByDate(m.scoredRows)
		} else {
			sortRowsByScore(m.scoredRows)
		}
		m.rightCursor = 0
		m.rightViewport.SetYOffset(0)
		m.recalcContent()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detailRecord.URL)
		return m, nil
	case "r":
		if m.detailRecord.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *reviewModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.allRows)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.scoredRows)-1, 0))
	}
}

func (m *reviewModel) ensureCursorVisible() {
	var vp *viewport.Model
	var cursor int
	if m.activePane == 0 {
		vp = &m.leftViewport
		cursor = m.leftCursor
	} else {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	cursorTop := cursor * rowItemHeight
	cursorBottom := cursorTop + rowItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	rows := m.activeRows()
	cursor := m.activeCursor()
	if len(rows) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detailRecord = rows[cursor]
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.leftViewport.SetContent(renderRows(m.allRows, m.leftCursor, m.activePane == 0, false))
	m.rightViewport.SetContent(renderRows(m.scoredRows, m.rightCursor, m.activePane == 1, true))
}

func (m reviewModel) activeRows() []model.JobRecord {
	if m.activePane == 0 {
		return m.allRows
	}
	return m.scoredRows
}

func (m reviewModel) activeCursor() int {
	if m.activePane == 0 {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.view == viewDetail {
		return m.viewDetail()
	}

	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.leftViewport.Width

	// Headers.
	sortLabel := "by score"
	if m.sortByDate {
		sortLabel = "by date"
	}
	leftHeader := fmt.Sprintf(" All Postings (%d)", len(m.allRows))
	rightHeader := fmt.Sprintf(" Scored (%d) · %s", len(m.scoredRows), sortLabel)

	var leftHeaderRendered, rightHeaderRendered string
	var leftBorder, rightBorder lipgloss.Style

	if m.activePane == 0 {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		rightHeaderRendered = inactiveHeaderStyle.Render(rightHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
		rightBorder = inactiveBorderStyle.Width(paneWidth)
	} else {
		leftHeaderRendered = inactiveHeaderStyle.Render(leftHeader)
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		leftBorder = inactiveBorderStyle.Width(paneWidth)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	// Panes with borders.
	leftPane := leftBorder.Render(m.leftViewport.View())
	rightPane := rightBorder.Render(m.rightViewport.View())

	// Headers side by side.
	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)

	// Panes side by side.
	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, " ", rightPane)

	// Status bar.
	unscoredCount := len(m.allRows) - len(m.scoredRows)
	statusText := fmt.Sprintf(" %d total | %d scored | %d unscored    ←/→/Tab switch  ↑/↓ cursor  Enter detail  s sort  q quit",
		len(m.allRows), len(m.scoredRows), unscoredCount)
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Posting Details")

	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " o open URL  esc/backspace back  ↑/↓ scroll  q quit"
	if m.detailRecord.Description != "" {
		statusText = " o open URL  r desc  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	r := m.detailRecord
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Title", r.Title)
	addField("Company", r.Company)
	addField("Location", r.Location)
	addField("Posting ID", r.ID)
	addField("Source", r.Source)

	b.WriteByte('\n')

	if r.PostedAt != nil {
		addField("Posted At", r.PostedAt.Local().Format("2006-01-02 15:04 MST"))
	}

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return descDividerStyle.Render(label + fill)
	}

	if r.Scored() {
		addField("Score", fmt.Sprintf("%.0f / 100", *r.Score))
		if r.ScoreReason != "" {
			for _, line := range strings.Split(wordWrap(r.ScoreReason, wrapWidth-2), "\n") {
				b.WriteString(descBodyStyle.Render("  "+line) + "\n")
			}
		}
	} else {
		b.WriteString(descHintStyle.Render("  not scored yet · run: web3jobs score") + "\n")
	}

	b.WriteByte('\n')
	addField("URL", r.URL)

	if r.Description != "" {
		b.WriteByte('\n')
		if m.showDescription {
			b.WriteString(divider("── Description ") + "\n\n")
			b.WriteString(descBodyStyle.Render(wordWrap(r.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString(descHintStyle.Render("  press r to read the posting description") + "\n")
		}
	}

	return b.String()
}

func renderRows(rows []model.JobRecord, cursor int, isActive, showScore bool) string {
	if len(rows) == 0 {
		return "  (no postings)"
	}

	var b strings.Builder
	for i, rec := range rows {
		isSelected := isActive && i == cursor

		titleSt := rowTitleStyle
		subtitleSt := rowSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedRowTitleStyle
			subtitleSt = selectedRowSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(rec.Title))
		b.WriteByte('\n')

		posted := "n/a"
		if rec.PostedAt != nil {
			posted = rec.PostedAt.Format("2006-01-02")
		}
		subtitle := fmt.Sprintf("%s · %s", rec.Company, posted)
		if showScore && rec.Score != nil {
			subtitle = fmt.Sprintf("%.0f · %s", *rec.Score, subtitle)
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(subtitle))
		b.WriteByte('\n')

		if i < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sortRowsByDate(rows []model.JobRecord) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PostedAt == nil && rows[j].PostedAt == nil {
			return false
		}
		if rows[i].PostedAt == nil {
			return false
		}
		if rows[j].PostedAt == nil {
			return true
		}
		return rows[i].PostedAt.After(*rows[j].PostedAt)
	})
}

func sortRowsByScore(rows []model.JobRecord) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score == nil {
			return false
		}
		if rows[j].Score == nil {
			return true
		}
		return *rows[i].Score > *rows[j].Score
	})
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the interactive split-pane review TUI over the given records.
// The left pane lists every posting newest first; the right pane lists scored
// postings, highest score first (s toggles date order).
func Run(records []model.JobRecord) error {
	all := make([]model.JobRecord, len(records))
	copy(all, records)

	var scored []model.JobRecord
	for _, rec := range all {
		if rec.Scored() {
			scored = append(scored, rec)
		}
	}

	sortRowsByDate(all)
	sortRowsByScore(scored)

	m := reviewModel{
		allRows:    all,
		scoredRows: scored,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
