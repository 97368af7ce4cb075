package cli

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/algoviz/pkg/controller"
	"github.com/matzehuels/algoviz/pkg/layout"
	"github.com/matzehuels/algoviz/pkg/scenario"
	"github.com/matzehuels/algoviz/pkg/state"
)

const (
	refreshInterval = 100 * time.Millisecond
	logTail         = 8
	minSpeed        = 0.125
	maxSpeed        = 16
	defaultWidth    = 80
)

var (
	opActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	opNormalStyle = lipgloss.NewStyle().Foreground(colorWhite)
	opDoneStyle   = lipgloss.NewStyle().Foreground(colorDim)
	treeStyle     = lipgloss.NewStyle().Foreground(colorWhite)
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// =============================================================================
// Messages
// =============================================================================

type tickMsg time.Time

type snapshotMsg struct {
	snap state.Snapshot
	err  error
}

type commandMsg struct {
	cmd controller.Command
	err error
}

type speedMsg struct {
	speed float64
	err   error
}

// =============================================================================
// PlayerModel - Interactive scenario playback
// =============================================================================

// PlayerModel is the bubbletea model of the terminal player. It only talks
// to the cells and reads the tree; the controller runs elsewhere.
type PlayerModel struct {
	ctx    context.Context
	cells  state.Cells
	player *scenario.Player

	snap        state.Snapshot
	lastCmd     controller.Command
	err         error
	width       int
	startOnInit bool
}

// NewPlayerModel creates a player model over cells and player.
func NewPlayerModel(ctx context.Context, cells state.Cells, player *scenario.Player) PlayerModel {
	return PlayerModel{
		ctx:    ctx,
		cells:  cells,
		player: player,
		snap:   state.Snapshot{Status: state.StatusIdle, Speed: state.DefaultSpeed},
		width:  defaultWidth,
	}
}

func (m PlayerModel) Init() tea.Cmd {
	if m.startOnInit {
		return tea.Batch(m.send(controller.CommandStart, controller.Begin), tick())
	}
	return tea.Batch(m.refresh(), tick())
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "enter", "p":
			return m, m.toggle()
		case "r":
			return m, m.send(controller.CommandRestart, controller.Restart)
		case "+", "=":
			return m, m.setSpeed(m.snap.Speed * 2)
		case "-", "_":
			return m, m.setSpeed(m.snap.Speed / 2)
		}
	case tea.WindowSizeMsg:
		m.width = max(msg.Width-4, 20)
	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())
	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.snap = msg.snap
	case commandMsg:
		m.err = msg.err
		if msg.err == nil {
			m.lastCmd = msg.cmd
		}
		return m, m.refresh()
	case speedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snap.Speed = msg.speed
		}
	}
	return m, nil
}

func (m PlayerModel) View() string {
	var b strings.Builder

	sc := m.player.Scenario()
	b.WriteString(StyleTitle.Render(sc.Name))
	b.WriteString("  ")
	b.WriteString(statusStyle(m.snap.Status).Render(strings.ToUpper(string(m.snap.Status))))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  step %d · speed %sx",
		m.snap.StepCount, strconv.FormatFloat(m.snap.Speed, 'g', -1, 64))))
	b.WriteString("\n")
	if sc.Description != "" {
		b.WriteString(StyleDim.Render(sc.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(renderOps(sc.Ops, m.snap.ActiveLine))
	b.WriteString("\n")

	tree := renderTreeText(m.player.Layout(layout.DefaultOptions()), m.width-4)
	if tree == "" {
		tree = StyleDim.Render("(empty tree)")
	}
	b.WriteString(panelStyle.Render(treeStyle.Render(tree)))
	b.WriteString("\n\n")

	lines := m.snap.Log
	if len(lines) > logTail {
		lines = lines[len(lines)-logTail:]
	}
	for _, line := range lines {
		b.WriteString(formatTraceLine(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(StyleError.Render(iconError + " " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(StyleDim.Render(m.help()))
	return b.String()
}

// help names what the play/pause key does in the current status.
func (m PlayerModel) help() string {
	action := "start"
	switch m.snap.Status {
	case state.StatusRunning:
		action = "pause"
	case state.StatusPaused:
		action = "resume"
	case state.StatusFinished:
		action = "restart"
	}
	help := "space " + action + " · r restart · +/- speed · q quit"
	if m.lastCmd != "" {
		help = "sent " + string(m.lastCmd) + " · " + help
	}
	return help
}

// =============================================================================
// Commands
// =============================================================================

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m PlayerModel) refresh() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.cells.Snapshot(m.ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m PlayerModel) toggle() tea.Cmd {
	return func() tea.Msg {
		cmd, err := controller.Toggle(m.ctx, m.cells)
		return commandMsg{cmd: cmd, err: err}
	}
}

func (m PlayerModel) send(cmd controller.Command, fn func(context.Context, state.Cells) error) tea.Cmd {
	return func() tea.Msg {
		return commandMsg{cmd: cmd, err: fn(m.ctx, m.cells)}
	}
}

func (m PlayerModel) setSpeed(speed float64) tea.Cmd {
	speed = math.Min(math.Max(speed, minSpeed), maxSpeed)
	return func() tea.Msg {
		return speedMsg{speed: speed, err: m.cells.SetSpeed(m.ctx, speed)}
	}
}

// =============================================================================
// Rendering
// =============================================================================

// renderOps lists the scenario operations, marking the 1-based active line.
func renderOps(ops []scenario.Op, active int) string {
	var b strings.Builder
	for i, op := range ops {
		line := fmt.Sprintf("%s %s", op.Kind, joinInts(op.Values))
		switch {
		case i+1 == active:
			b.WriteString(opActiveStyle.Render("▸ " + line))
		case i+1 < active:
			b.WriteString(opDoneStyle.Render("  " + line))
		default:
			b.WriteString(opNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// renderTreeText draws a layout on a character grid of the given width.
// Each tree level takes two rows: the keys and the branches below them.
func renderTreeText(l layout.Layout[int], width int) string {
	if len(l.Nodes) == 0 {
		return ""
	}
	width = max(width, 8)

	levelHeight := float64(layout.DefaultLevelHeight)
	col := func(x float64) int {
		if l.Width == 0 {
			return width / 2
		}
		return int(math.Round((x - l.MinX) / l.Width * float64(width-4)))
	}

	type cell struct{ row, col int }
	pos := make(map[int]cell, len(l.Nodes))
	depth := 0
	for _, n := range l.Nodes {
		d := int(math.Round(n.Y / levelHeight))
		depth = max(depth, d)
		pos[n.Value] = cell{row: 2 * d, col: col(n.X)}
	}

	grid := make([][]rune, 2*depth+1)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width+8))
	}
	put := func(row, c int, s string) {
		for i, r := range s {
			if c+i >= 0 && c+i < len(grid[row]) {
				grid[row][c+i] = r
			}
		}
	}

	for _, e := range l.Edges {
		from, to := pos[e.From], pos[e.To]
		branch := "/"
		if to.col > from.col {
			branch = "\\"
		}
		put(from.row+1, (from.col+to.col)/2+1, branch)
	}
	for _, n := range l.Nodes {
		p := pos[n.Value]
		label := strconv.Itoa(n.Value)
		put(p.row, p.col-len(label)/2+1, label)
	}

	rows := make([]string, len(grid))
	for i, r := range grid {
		rows[i] = strings.TrimRight(string(r), " ")
	}
	return strings.Join(rows, "\n")
}
