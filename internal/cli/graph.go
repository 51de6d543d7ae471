package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rednhax/varman/pkg/depgraph"
	verrors "github.com/rednhax/varman/pkg/errors"
	"github.com/rednhax/varman/pkg/local"
	"github.com/rednhax/varman/pkg/pkgid"
)

// Graph output formats.
const (
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

// graphCommand creates the graph command for building dependency graphs.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		mode   string
		depth  int
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "graph <package>",
		Short: "Build the dependency graph of a local package",
		Long: `Build the dependency graph of a local package.

The package argument accepts any identifier form: "Creator.Name.3",
"Creator.Name.latest", or a filename like "Creator.Name.3.var".
Dependencies declared by packages not present in the library appear as
missing leaves.

Modes:
  deps        packages this package needs (default)
  dependents  packages that need this package
  both        one level in each direction`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], mode, depth, format, output)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "deps", "traversal mode: deps, dependents, both")
	cmd.Flags().IntVarP(&depth, "depth", "d", 3, "maximum traversal depth")
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json, dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, pkg, mode string, depth int, format, output string) error {
	builderMode, err := parseMode(mode)
	if err != nil {
		return err
	}
	if depth < 1 {
		return verrors.New(verrors.ErrCodeInvalidInput, "depth must be >= 1")
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	pkgs, _, err := c.scanLibrary(cfg)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Reading package manifests...")
	spinner.Start()
	meta := local.BuildMetadata(pkgs, c.Logger)
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	root := pkgid.Normalize(pkg)
	rootDeps, known := meta.DeclaredDeps(root)
	if !known {
		printWarning("%s is not in the library; showing what references it", root.Canonical())
	}

	builder := depgraph.Builder{
		Mode:       builderMode,
		MaxDepth:   depth,
		Metadata:   meta.DeclaredDeps,
		Dependents: meta.Dependents,
	}
	g := builder.Build(root, rootDeps)

	if err := c.writeGraph(ctx, g, format, output); err != nil {
		return err
	}
	if output != "" {
		printSuccess("Graph written")
		printFile(output)
	}
	printStats(g.VertexCount(), g.EdgeCount())
	return nil
}

func parseMode(mode string) (depgraph.Mode, error) {
	switch mode {
	case "deps", "dependencies":
		return depgraph.ModeDependencies, nil
	case "dependents":
		return depgraph.ModeDependents, nil
	case "both":
		return depgraph.ModeBoth, nil
	default:
		return 0, verrors.New(verrors.ErrCodeInvalidInput, "unknown mode %q", mode)
	}
}

func (c *CLI) writeGraph(ctx context.Context, g *depgraph.Graph, format, output string) error {
	var data []byte
	switch format {
	case formatJSON:
		b, err := depgraph.MarshalGraph(g)
		if err != nil {
			return err
		}
		data = b
	case formatDOT:
		data = []byte(depgraph.ToDOT(g))
	case formatSVG:
		svg, err := depgraph.RenderSVG(ctx, depgraph.ToDOT(g))
		if err != nil {
			return fmt.Errorf("render SVG: %w", err)
		}
		data = svg
	default:
		return verrors.New(verrors.ErrCodeInvalidInput, "unknown format %q", format)
	}

	if output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(output, data, 0o644)
}
