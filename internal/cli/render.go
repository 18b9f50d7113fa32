package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilelayout/pkg/assign"
	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/render"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file path; "-" writes to stdout
	format   string // dot, svg or png
	area     areaFlags
	windows  int  // windows to place; -1 fills every tile
	detailed bool // show gaps, content boxes and traversal order
}

// renderCommand creates the render command for drawing a tree file.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: string(render.FormatSVG), windows: -1}

	cmd := &cobra.Command{
		Use:               "render <tree.json>",
		Short:             "Render a layout tree to DOT, SVG or PNG",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTreeFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), statusOf(cmd), args[0], format, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input name with the format extension, - for stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg, png, dot")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormat)
	opts.area.register(cmd)
	cmd.Flags().IntVarP(&opts.windows, "windows", "n", opts.windows, "number of windows to place (default: one per tile)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show gaps, content boxes and traversal order")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, st status, input string, format render.Format, opts *renderOpts) error {
	prog := newProgress(c.Logger)

	t, err := readTree(input)
	if err != nil {
		return err
	}
	area, err := opts.area.rect()
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded tree", "nodes", t.Root.NodeCount(), "leaves", t.Root.LeafCount(), "depth", t.Root.Depth())

	dot := treeDOT(&t.Root, area, opts.windows, render.Options{
		Title:    filepath.Base(input),
		Detailed: opts.detailed,
	})

	var data []byte
	if format == render.FormatDOT {
		data = []byte(dot)
	} else {
		sp := startSpinner(ctx, "Rendering "+string(format)+"...")
		data, err = render.Render(ctx, dot, format)
		if err != nil {
			sp.Fail(st, "Rendering failed")
			return err
		}
		sp.Stop()
	}

	path := outputPath(opts.output, input, format)
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.Write(data); err != nil {
		return err
	}

	if path != "" {
		prog.done("Rendered " + path)
	}
	return nil
}

// treeDOT resolves root in area, places windows and returns its DOT source.
func treeDOT(root *tree.Node, area geometry.Rect, windows int, opts render.Options) string {
	if windows < 0 {
		windows = root.LeafCount()
	}
	resolved := geometry.Resolve(root, area)
	slots := assign.Assign(root, windows)
	placed := make([]render.Window, len(slots))
	for i, p := range slots {
		placed[i] = render.Window{ID: uint64(i), Leaf: p}
	}
	return render.ToDOT(root, resolved, placed, opts)
}

// outputPath derives the output file from the --output flag. An empty
// result means stdout.
func outputPath(output, input string, format render.Format) string {
	switch output {
	case "-":
		return ""
	case "":
		return strings.TrimSuffix(input, filepath.Ext(input)) + "." + string(format)
	}
	return output
}

// nopCloser wraps a writer that must not be closed, such as stdout.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput opens path for writing, or stdout when path is empty.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}
