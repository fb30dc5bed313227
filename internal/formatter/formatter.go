package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mcncl/treedit/internal/models"
	"github.com/mcncl/treedit/internal/tree"
)

// Options controls how a forest is rendered
type Options struct {
	Color     bool
	ShowTypes bool
	Indent    int
}

// Row markers
const (
	MarkerExpanded  = "-"
	MarkerCollapsed = "+"
	MarkerSelected  = "*"
)

// Formatter renders forests as indented text
type Formatter struct {
	opts   Options
	styles Styles
}

// Styles holds the lipgloss styles used for each part of a row. The editor
// shares them so both views look alike.
type Styles struct {
	Key      lipgloss.Style
	Marker   lipgloss.Style
	Selected lipgloss.Style
	Editing  lipgloss.Style
	Badge    lipgloss.Style
	Kinds    map[models.Kind]lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Key:      lipgloss.NewStyle().Bold(true),
		Marker:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		Editing:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Italic(true),
		Badge:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Kinds: map[models.Kind]lipgloss.Style{
			models.KindString:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
			models.KindNumber:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
			models.KindBoolean: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
			models.KindNull:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
			models.KindObject:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
			models.KindArray:   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		},
	}
}

// PlainStyles returns styles that leave text untouched.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	kinds := make(map[models.Kind]lipgloss.Style)
	for _, k := range []models.Kind{models.KindString, models.KindNumber, models.KindBoolean, models.KindNull, models.KindObject, models.KindArray} {
		kinds[k] = plain
	}
	return Styles{Key: plain, Marker: plain, Selected: plain, Editing: plain, Badge: plain, Kinds: kinds}
}

// NewFormatter creates a new Formatter instance
func NewFormatter(opts Options) *Formatter {
	if opts.Indent <= 0 {
		opts.Indent = 2
	}
	styles := PlainStyles()
	if opts.Color {
		styles = DefaultStyles()
	}
	return &Formatter{opts: opts, styles: styles}
}

// Format renders the visible rows of forest, one per line. Children of
// collapsed nodes are skipped.
func (f *Formatter) Format(forest tree.Forest) string {
	var b strings.Builder
	for _, row := range tree.Visible(forest) {
		b.WriteString(f.Row(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Row renders a single row without a trailing newline.
func (f *Formatter) Row(row tree.Row) string {
	n := row.Node
	var b strings.Builder

	if n.Selected {
		b.WriteString(f.styles.Selected.Render(MarkerSelected))
	} else {
		b.WriteByte(' ')
	}
	b.WriteString(strings.Repeat(" ", row.Depth*f.opts.Indent))

	switch {
	case n.HasChildren() && n.Expanded:
		b.WriteString(f.styles.Marker.Render(MarkerExpanded))
	case n.HasChildren():
		b.WriteString(f.styles.Marker.Render(MarkerCollapsed))
	default:
		b.WriteByte(' ')
	}
	b.WriteByte(' ')

	b.WriteString(f.styles.Key.Render(n.Key))
	if n.HasChildren() {
		b.WriteByte(' ')
		b.WriteString(f.styles.Kinds[n.Kind].Render(Summary(n)))
	} else {
		b.WriteString(": ")
		b.WriteString(f.styles.Kinds[n.Kind].Render(n.Value.String()))
	}

	if f.opts.ShowTypes {
		b.WriteByte(' ')
		b.WriteString(f.styles.Badge.Render("(" + string(n.Kind) + ")"))
	}
	if n.Editing {
		b.WriteByte(' ')
		b.WriteString(f.styles.Editing.Render(EditingNote(n)))
	}
	return b.String()
}

// Summary describes a container by its size: {n} for objects, [n] for
// arrays.
func Summary(n *tree.Node) string {
	if n.Kind == models.KindArray {
		return fmt.Sprintf("[%d]", len(n.Children))
	}
	return fmt.Sprintf("{%d}", len(n.Children))
}

// EditingNote marks a node in edit mode, with its original value when the
// current one differs.
func EditingNote(n *tree.Node) string {
	if n.Value.Equal(n.OriginalValue) {
		return "[editing]"
	}
	return "[editing, was " + n.OriginalValue.String() + "]"
}

// FormatJSON returns the document a forest represents as indented JSON,
// reflecting every uncommitted edit. root is the kind of the document root.
func FormatJSON(root models.Kind, forest tree.Forest, indent int) (string, error) {
	compact, err := json.Marshal(tree.Flatten(root, forest))
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	if indent <= 0 {
		indent = 2
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", strings.Repeat(" ", indent)); err != nil {
		return "", fmt.Errorf("failed to indent document: %w", err)
	}
	out.WriteByte('\n')
	return out.String(), nil
}
