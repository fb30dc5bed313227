// Package tui is an interactive terminal editor for a configuration's
// forest. Every keystroke is translated into one tree operation; the editor
// holds the current forest and replaces it with each result.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mcncl/treedit/internal/formatter"
	"github.com/mcncl/treedit/internal/models"
	"github.com/mcncl/treedit/internal/tree"
)

// SaveFunc persists the forest. It runs synchronously on ctrl+s.
type SaveFunc func(forest tree.Forest) error

// Editor is the bubbletea model.
type Editor struct {
	title     string
	forest    tree.Forest
	cursor    int
	offset    int
	editing   string // path of the node being edited, or ""
	input     textinput.Model
	keys      KeyMap
	formatter *formatter.Formatter
	save      SaveFunc
	dirty     bool
	status    string
	err       error
	height    int
	indent    int

	cursorStyle lipgloss.Style
	titleStyle  lipgloss.Style
	helpStyle   lipgloss.Style
	errStyle    lipgloss.Style
}

// NewEditor returns an editor over forest. A node left in edit mode by an
// earlier session is resumed; any others are cancelled.
func NewEditor(title string, forest tree.Forest, save SaveFunc, opts formatter.Options) Editor {
	input := textinput.New()
	input.Prompt = ""
	if opts.Indent <= 0 {
		opts.Indent = 2
	}

	e := Editor{
		title:       title,
		forest:      forest,
		input:       input,
		keys:        DefaultKeyMap,
		formatter:   formatter.NewFormatter(opts),
		save:        save,
		indent:      opts.Indent,
		cursorStyle: lipgloss.NewStyle().Reverse(true),
		titleStyle:  lipgloss.NewStyle().Bold(true).Underline(true),
		helpStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		errStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}

	if editing := tree.Editing(forest); len(editing) > 0 {
		n := editing[0]
		e.forest = tree.CancelOtherEdits(forest, n.Path)
		e.editing = n.Path
		e.input.SetValue(n.Value.Text())
		e.input.CursorEnd()
		e.input.Focus()
		e.moveTo(n.Path)
	}
	return e
}

// Forest returns the current forest.
func (e Editor) Forest() tree.Forest { return e.forest }

// Dirty reports whether the forest changed since the last save.
func (e Editor) Dirty() bool { return e.dirty }

// EditingPath returns the path of the node being edited, or "".
func (e Editor) EditingPath() string { return e.editing }

// Cursor returns the row index under the cursor.
func (e Editor) Cursor() int { return e.cursor }

// Err returns the last error shown in the status line.
func (e Editor) Err() error { return e.err }

func (e Editor) Init() tea.Cmd {
	if e.editing != "" {
		return textinput.Blink
	}
	return nil
}

func (e Editor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.height = msg.Height
		e.input.Width = msg.Width / 2
		e.scroll()
		return e, nil
	case tea.KeyMsg:
		if e.editing != "" {
			return e.updateEditing(msg)
		}
		return e.updateBrowsing(msg)
	}

	if e.editing != "" {
		var cmd tea.Cmd
		e.input, cmd = e.input.Update(msg)
		return e, cmd
	}
	return e, nil
}

func (e Editor) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e.status = ""
	e.err = nil
	rows := tree.Visible(e.forest)

	switch {
	case key.Matches(msg, e.keys.Quit):
		return e, tea.Quit
	case key.Matches(msg, e.keys.Up):
		if e.cursor > 0 {
			e.cursor--
		}
	case key.Matches(msg, e.keys.Down):
		if e.cursor < len(rows)-1 {
			e.cursor++
		}
	case key.Matches(msg, e.keys.Save):
		e.runSave()
	}

	if len(rows) == 0 {
		return e, nil
	}
	e.cursor = min(e.cursor, len(rows)-1)
	n := rows[e.cursor].Node

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, e.keys.Toggle):
		if n.HasChildren() {
			e.apply(n.Path, tree.ToggleExpand())
		}
	case key.Matches(msg, e.keys.Select):
		e.apply(n.Path, tree.ToggleSelect())
	case key.Matches(msg, e.keys.Edit):
		cmd = e.beginEdit(n)
	}

	e.clampCursor()
	e.scroll()
	return e, cmd
}

func (e Editor) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, e.keys.Commit):
		e.commitEdit()
		return e, nil
	case key.Matches(msg, e.keys.Cancel):
		e.apply(e.editing, tree.CancelEdit())
		e.endEdit()
		e.err = nil
		return e, nil
	case msg.Type == tea.KeyCtrlC:
		return e, tea.Quit
	}

	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	return e, cmd
}

func (e *Editor) beginEdit(n *tree.Node) tea.Cmd {
	if !n.Kind.IsScalar() {
		e.status = "only scalar values can be edited"
		return nil
	}
	if n.Kind == models.KindNull {
		e.status = "null values cannot be edited"
		return nil
	}
	e.forest = tree.CancelOtherEdits(e.forest, n.Path)
	if !n.Editing {
		e.apply(n.Path, tree.ToggleEdit())
	}
	e.editing = n.Path
	e.input.SetValue(n.Value.Text())
	e.input.CursorEnd()
	return e.input.Focus()
}

// commitEdit parses the input as the node's kind. Invalid text keeps the
// node in edit mode and shows the error.
func (e *Editor) commitEdit() {
	n, ok := tree.Find(e.forest, e.editing)
	if !ok {
		e.endEdit()
		return
	}
	value, err := models.ParseScalar(n.Kind, e.input.Value())
	if err != nil {
		e.err = err
		return
	}
	e.apply(n.Path, tree.SetValue(value))
	e.apply(n.Path, tree.CommitEdit())
	e.err = nil
	e.endEdit()
}

func (e *Editor) endEdit() {
	e.editing = ""
	e.input.Blur()
	e.input.SetValue("")
}

func (e *Editor) apply(path string, op tree.Op) {
	next, err := tree.ApplyChecked(e.forest, path, op)
	if err != nil {
		e.err = err
		return
	}
	e.forest = next
	e.dirty = true
}

func (e *Editor) runSave() {
	if e.save == nil {
		e.status = "nothing to save to"
		return
	}
	if err := e.save(e.forest); err != nil {
		e.err = err
		return
	}
	e.dirty = false
	e.status = "saved"
}

func (e *Editor) moveTo(path string) {
	for i, row := range tree.Visible(e.forest) {
		if row.Node.Path == path {
			e.cursor = i
			return
		}
	}
}

func (e *Editor) clampCursor() {
	rows := len(tree.Visible(e.forest))
	if e.cursor >= rows {
		e.cursor = rows - 1
	}
	if e.cursor < 0 {
		e.cursor = 0
	}
}

// scroll keeps the cursor inside the visible window.
func (e *Editor) scroll() {
	window := e.window()
	if window <= 0 {
		e.offset = 0
		return
	}
	if e.cursor < e.offset {
		e.offset = e.cursor
	}
	if e.cursor >= e.offset+window {
		e.offset = e.cursor - window + 1
	}
}

// window is the number of tree rows that fit between header and footer.
func (e Editor) window() int {
	if e.height == 0 {
		return 0
	}
	return max(e.height-4, 1)
}

func (e Editor) View() string {
	var b strings.Builder
	title := e.title
	if e.dirty {
		title += " (modified)"
	}
	b.WriteString(e.titleStyle.Render(title))
	b.WriteString("\n\n")

	rows := tree.Visible(e.forest)
	if len(rows) == 0 {
		b.WriteString("  (empty document)\n")
	}
	end := len(rows)
	if w := e.window(); w > 0 && e.offset+w < end {
		end = e.offset + w
	}
	for i := e.offset; i < end; i++ {
		line := e.renderRow(rows[i])
		if i == e.cursor {
			line = e.cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	switch {
	case e.err != nil:
		b.WriteString(e.errStyle.Render(e.err.Error()))
	case e.status != "":
		b.WriteString(e.status)
	default:
		b.WriteString(e.helpStyle.Render(e.help()))
	}
	return b.String()
}

func (e Editor) renderRow(row tree.Row) string {
	if row.Node.Path != e.editing {
		return e.formatter.Row(row)
	}
	indent := strings.Repeat(" ", row.Depth*e.indent)
	return fmt.Sprintf(" %s  %s: %s", indent, row.Node.Key, e.input.View())
}

func (e Editor) help() string {
	bindings := e.keys.browseHelp()
	if e.editing != "" {
		bindings = e.keys.editHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Run starts the editor on the terminal and returns the final forest.
func Run(editor Editor, opts ...tea.ProgramOption) (tree.Forest, error) {
	final, err := tea.NewProgram(editor, opts...).Run()
	if err != nil {
		return editor.Forest(), fmt.Errorf("editor: %w", err)
	}
	return final.(Editor).Forest(), nil
}
