package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilelayout/pkg/assign"
	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

// resolveOpts holds the command-line flags for the resolve command.
type resolveOpts struct {
	area    areaFlags
	windows int  // number of windows to place; -1 fills every tile
	json    bool // print JSON instead of a table
}

// tile is one placed window in resolve output.
type tile struct {
	Window int           `json:"window"`
	Path   string        `json:"path"`
	Label  string        `json:"label,omitempty"`
	Rect   geometry.Rect `json:"rect"`
}

// resolveResult is the JSON output of the resolve command.
type resolveResult struct {
	Area       geometry.Rect `json:"area"`
	Tiles      []tile        `json:"tiles"`
	Unplaced   int           `json:"unplaced"`
	Degenerate []string      `json:"degenerate,omitempty"`
}

// resolveCommand creates the resolve command, which places windows on a
// tree file offline.
func (c *CLI) resolveCommand() *cobra.Command {
	opts := resolveOpts{windows: -1}

	cmd := &cobra.Command{
		Use:               "resolve <tree.json>",
		Short:             "Resolve a layout tree to window rectangles",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTreeFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTree(args[0])
			if err != nil {
				return err
			}
			area, err := opts.area.rect()
			if err != nil {
				return err
			}
			res := resolveTree(&t.Root, area, opts.windows)
			for _, p := range res.Degenerate {
				c.Logger.Warn("node has no usable proportions, using equal shares", "path", p)
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printTiles(cmd.OutOrStdout(), res)
			return nil
		},
	}

	opts.area.register(cmd)
	cmd.Flags().IntVarP(&opts.windows, "windows", "n", opts.windows, "number of windows to place (default: one per tile)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON")

	return cmd
}

// resolveTree places windows windows on root. A negative count places
// one window per leaf.
func resolveTree(root *tree.Node, area geometry.Rect, windows int) resolveResult {
	if windows < 0 {
		windows = root.LeafCount()
	}
	resolved := geometry.Resolve(root, area)
	slots := assign.Assign(root, windows)

	res := resolveResult{
		Area:     area,
		Tiles:    make([]tile, 0, len(slots)),
		Unplaced: windows - len(slots),
	}
	for i, p := range slots {
		n, _ := root.At(p)
		r, _ := resolved.LeafRect(p)
		res.Tiles = append(res.Tiles, tile{Window: i, Path: p.String(), Label: n.Label, Rect: r})
	}
	for _, p := range resolved.Degenerate {
		res.Degenerate = append(res.Degenerate, p.String())
	}
	return res
}

func printTiles(w io.Writer, res resolveResult) {
	rows := make([][]string, 0, len(res.Tiles))
	for _, t := range res.Tiles {
		r := t.Rect
		rows = append(rows, []string{
			strconv.Itoa(t.Window), t.Path, t.Label,
			strconv.Itoa(r.X), strconv.Itoa(r.Y), strconv.Itoa(r.Width), strconv.Itoa(r.Height),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorFaint)).
		Headers("Window", "Tile", "Label", "X", "Y", "Width", "Height").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return StyleNumber
			case col == 2:
				return StyleHighlight
			}
			return StyleValue
		})

	fmt.Fprintln(w, StyleTitle.Render("Area "+res.Area.String()))
	fmt.Fprintln(w, tbl.Render())
	if res.Unplaced > 0 {
		fmt.Fprintln(w, StyleWarning.Render(fmt.Sprintf("%d windows without a tile", res.Unplaced)))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
