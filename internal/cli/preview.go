package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilelayout/pkg/assign"
	"github.com/matzehuels/tilelayout/pkg/diff"
	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

const (
	previewStep   = 2 // cells moved per key press
	previewChrome = 3 // header and footer lines around the canvas
)

// Preview styles
var (
	tileStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	emptyStyle   = lipgloss.NewStyle().Foreground(colorFaint)
	previewHelp  = "tab focus  arrows move right/bottom edge  shift+arrows move left/top edge  +/- windows  r reset  q quit"
	canvasBorder = [6]rune{'┌', '┐', '└', '┘', '─', '│'}
)

// previewCommand creates the preview command, an interactive terminal
// view of a tree file.
func (c *CLI) previewCommand() *cobra.Command {
	windows := -1

	cmd := &cobra.Command{
		Use:               "preview <tree.json>",
		Short:             "Interactively resize the tiles of a layout tree",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTreeFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTree(args[0])
			if err != nil {
				return err
			}
			if windows < 0 {
				windows = t.Root.LeafCount()
			}
			m := newPreviewModel(t.Root, windows)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().IntVarP(&windows, "windows", "n", windows, "number of windows (default: one per tile)")
	return cmd
}

// =============================================================================
// previewModel
// =============================================================================

// previewModel lays a tree out on a character canvas, one cell per pixel.
type previewModel struct {
	initial tree.Node
	root    tree.Node
	windows int
	focus   int
	width   int
	height  int

	resolved *geometry.Resolved
	slots    []tree.Path
	status   string
}

func newPreviewModel(root tree.Node, windows int) previewModel {
	m := previewModel{
		initial: root.Clone(),
		root:    root.Clone(),
		windows: windows,
		width:   80,
		height:  20,
	}
	return m.relayout()
}

// relayout resolves the tree for the current canvas and window count.
func (m previewModel) relayout() previewModel {
	m.resolved = geometry.Resolve(&m.root, geometry.NewRect(0, 0, m.width, m.height))
	m.slots = assign.Assign(&m.root, m.windows)
	if m.focus >= len(m.slots) {
		m.focus = max(len(m.slots)-1, 0)
	}
	return m
}

func (m previewModel) Init() tea.Cmd {
	return nil
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.status = ""
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			if len(m.slots) > 0 {
				m.focus = (m.focus + 1) % len(m.slots)
			}
		case "shift+tab":
			if len(m.slots) > 0 {
				m.focus = (m.focus + len(m.slots) - 1) % len(m.slots)
			}
		case "+", "=":
			m.windows++
			return m.relayout(), nil
		case "-":
			if m.windows > 0 {
				m.windows--
			}
			return m.relayout(), nil
		case "r":
			m.root = m.initial.Clone()
			return m.relayout(), nil
		case "right", "l":
			return m.resize(diff.Edges{Right: previewStep}), nil
		case "left", "h":
			return m.resize(diff.Edges{Right: -previewStep}), nil
		case "down", "j":
			return m.resize(diff.Edges{Bottom: previewStep}), nil
		case "up", "k":
			return m.resize(diff.Edges{Bottom: -previewStep}), nil
		case "shift+left", "H":
			return m.resize(diff.Edges{Left: previewStep}), nil
		case "shift+right", "L":
			return m.resize(diff.Edges{Left: -previewStep}), nil
		case "shift+up", "K":
			return m.resize(diff.Edges{Top: previewStep}), nil
		case "shift+down", "J":
			return m.resize(diff.Edges{Top: -previewStep}), nil
		}
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 10)
		m.height = max(msg.Height-previewChrome, 5)
		return m.relayout(), nil
	}
	return m, nil
}

// resize moves the edges of the focused tile.
func (m previewModel) resize(d diff.Edges) previewModel {
	if len(m.slots) == 0 {
		m.status = "no tile to resize"
		return m
	}
	root, err := diff.ResizeTile(&m.root, m.resolved, m.slots[m.focus], d, diff.DefaultMinProportion)
	if err != nil {
		m.status = tlerrors.UserMessage(err)
		return m
	}
	m.root = root
	return m.relayout()
}

func (m previewModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("%d windows on %d tiles", m.windows, m.root.LeafCount())
	if len(m.slots) > 0 {
		r, _ := m.resolved.LeafRect(m.slots[m.focus])
		title += fmt.Sprintf("  focus %d %s", m.focus, r)
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(drawCanvas(m.resolved, m.slots, m.focus, m.width, m.height))
	b.WriteString("\n")

	footer := previewHelp
	if unplaced := m.windows - len(m.slots); unplaced > 0 {
		footer = fmt.Sprintf("%d windows without a tile  ", unplaced) + footer
	}
	if m.status != "" {
		footer = m.status + "  " + footer
	}
	b.WriteString(StyleDim.Render(footer))
	return b.String()
}

// =============================================================================
// Canvas
// =============================================================================

type cellKind uint8

const (
	cellBlank cellKind = iota
	cellEmpty          // tile without a window
	cellTile
	cellFocus
)

// drawCanvas draws every leaf of resolved as a box. Leaves holding a
// window are labelled with its index.
func drawCanvas(resolved *geometry.Resolved, slots []tree.Path, focus, width, height int) string {
	runes := make([][]rune, height)
	kinds := make([][]cellKind, height)
	for y := range runes {
		runes[y] = []rune(strings.Repeat(" ", width))
		kinds[y] = make([]cellKind, width)
	}

	window := make(map[string]int, len(slots))
	for i, p := range slots {
		window[p.Key()] = i
	}

	set := func(x, y int, r rune, k cellKind) {
		if x >= 0 && y >= 0 && x < width && y < height {
			runes[y][x] = r
			kinds[y][x] = k
		}
	}

	for _, leaf := range resolved.Leaves {
		r := leaf.Rect()
		if r.Width < 2 || r.Height < 2 {
			continue
		}
		k := cellEmpty
		label := "·"
		if i, ok := window[leaf.Path.Key()]; ok {
			k = cellTile
			if i == focus {
				k = cellFocus
			}
			label = strconv.Itoa(i)
		}

		x1, y1 := r.Right()-1, r.Bottom()-1
		for x := r.X + 1; x < x1; x++ {
			set(x, r.Y, canvasBorder[4], k)
			set(x, y1, canvasBorder[4], k)
		}
		for y := r.Y + 1; y < y1; y++ {
			set(r.X, y, canvasBorder[5], k)
			set(x1, y, canvasBorder[5], k)
		}
		set(r.X, r.Y, canvasBorder[0], k)
		set(x1, r.Y, canvasBorder[1], k)
		set(r.X, y1, canvasBorder[2], k)
		set(x1, y1, canvasBorder[3], k)

		if r.Width > 2 && r.Height > 2 {
			for j, ch := range []rune(label) {
				if r.X+1+j >= x1 {
					break
				}
				set(r.X+1+j, r.Y+1, ch, k)
			}
		}
	}

	lines := make([]string, height)
	for y := range runes {
		lines[y] = styleRow(runes[y], kinds[y])
	}
	return strings.Join(lines, "\n")
}

// styleRow renders runs of equally styled cells.
func styleRow(row []rune, kinds []cellKind) string {
	var b strings.Builder
	start := 0
	for x := 1; x <= len(row); x++ {
		if x < len(row) && kinds[x] == kinds[start] {
			continue
		}
		run := string(row[start:x])
		switch kinds[start] {
		case cellFocus:
			b.WriteString(focusStyle.Render(run))
		case cellTile:
			b.WriteString(tileStyle.Render(run))
		case cellEmpty:
			b.WriteString(emptyStyle.Render(run))
		default:
			b.WriteString(run)
		}
		start = x
	}
	return b.String()
}
