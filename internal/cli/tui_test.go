package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/algoviz/pkg/controller"
	apperrors "github.com/matzehuels/algoviz/pkg/errors"
	"github.com/matzehuels/algoviz/pkg/layout"
	"github.com/matzehuels/algoviz/pkg/scenario"
	"github.com/matzehuels/algoviz/pkg/state"
)

func TestRenderTreeText(t *testing.T) {
	p := scenario.NewPlayer(scenario.New("t", scenario.Insert(1, 2, 3)))
	if got := renderTreeText(p.Layout(layout.DefaultOptions()), 24); got != "" {
		t.Errorf("empty tree rendered as %q", got)
	}

	l := layout.Layout[int]{
		Nodes: []layout.VisualNode[int]{{Value: 2, X: 500}, {Value: 1, X: 400, Y: 100}, {Value: 3, X: 600, Y: 100}},
		Edges: []layout.Edge[int]{{From: 2, To: 1}, {From: 2, To: 3}},
		MinX:  400,
		Width: 200,
	}
	want := strings.Join([]string{
		strings.Repeat(" ", 11) + "2",
		strings.Repeat(" ", 6) + "/" + strings.Repeat(" ", 9) + "\\",
		" 1" + strings.Repeat(" ", 19) + "3",
	}, "\n")
	if got := renderTreeText(l, 24); got != want {
		t.Errorf("renderTreeText() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderOps(t *testing.T) {
	ops := []scenario.Op{scenario.Insert(10, 20), scenario.Delete(20), scenario.Search(7)}
	out := renderOps(ops, 2)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "insert 10, 20") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "▸ delete 20") {
		t.Errorf("active line not marked: %q", lines[1])
	}
}

// press feeds a key to m and runs the command it returns, feeding the
// resulting message back.
func press(t *testing.T, m PlayerModel, key tea.KeyMsg) (PlayerModel, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(PlayerModel)
	if cmd == nil {
		return m, nil
	}
	msg := cmd()
	next, _ = m.Update(msg)
	return next.(PlayerModel), msg
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPlayerModelCommands(t *testing.T) {
	ctx := context.Background()
	cells := state.NewMemory()
	m := NewPlayerModel(ctx, cells, scenario.NewPlayer(scenario.New("Keys", scenario.Insert(1))))

	m, msg := press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if cm, ok := msg.(commandMsg); !ok || cm.cmd != controller.CommandStart || cm.err != nil {
		t.Fatalf("space from idle sent %+v", msg)
	}
	if st, _ := cells.Status(ctx); st != state.StatusRunning {
		t.Fatalf("status = %s, want running", st)
	}

	m, msg = press(t, m, runes("r"))
	cm := msg.(commandMsg)
	if !apperrors.Is(cm.err, apperrors.ErrCodeInvalidTransition) {
		t.Errorf("restart while running: err = %v", cm.err)
	}
	if !strings.Contains(m.View(), "cannot restart while running") {
		t.Error("rejected command should be shown")
	}

	m, _ = press(t, m, runes("+"))
	if speed, _ := cells.Speed(ctx); speed != 2 {
		t.Errorf("speed = %v after +, want 2", speed)
	}
	for range 10 {
		m, _ = press(t, m, runes("+"))
	}
	if speed, _ := cells.Speed(ctx); speed != maxSpeed {
		t.Errorf("speed = %v, want clamped to %v", speed, maxSpeed)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if st, _ := cells.Status(ctx); st != state.StatusPaused {
		t.Fatalf("status = %s, want paused", st)
	}

	next, _ := m.Update(snapshotMsg{snap: state.Snapshot{Status: state.StatusPaused, Speed: maxSpeed, Log: []string{"insert 1"}}})
	m = next.(PlayerModel)
	view := m.View()
	for _, want := range []string{"Keys", "PAUSED", "space resume", "insert 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}
