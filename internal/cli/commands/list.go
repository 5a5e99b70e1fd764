package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/querybinder/internal/cli/config"
	"github.com/leapstack-labs/querybinder/pkg/manifest"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [files...]",
		Short: "List all annotated queries",
		Long: `List every annotated query with its signature and location.

Files that fail to parse are reported on stderr and skipped.
Use --output to choose between text, json and yaml.`,
		Example: `  # List all queries
  querybinder list

  # List queries as JSON
  querybinder list --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args)
		},
	}
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)

	results, err := cmdCtx.Load(cmd.Context(), args)
	if err != nil {
		return err
	}
	cmdCtx.reportFailures(results)

	manifests := make([]*manifest.Manifest, 0, len(results))
	for _, res := range results {
		if m := res.Manifest(); m != nil {
			manifests = append(manifests, m)
		}
	}

	switch cmdCtx.Cfg.Output {
	case config.OutputJSON:
		return listJSON(cmdCtx, manifests)
	case config.OutputYAML:
		return listYAML(cmdCtx, manifests)
	default:
		return listText(cmdCtx, manifests)
	}
}

// listText outputs queries as a table.
func listText(cmdCtx *CommandContext, manifests []*manifest.Manifest) error {
	r := cmdCtx.Renderer
	styles := r.Styles()

	total := 0
	for _, m := range manifests {
		total += len(m.Queries)
	}
	r.Header(1, fmt.Sprintf("Queries (%d total)", total))
	if total == 0 {
		r.Muted("No annotated queries found.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Query", "Parameters", "Result", "Location"})

	for _, m := range manifests {
		for _, q := range m.Queries {
			params := make([]string, len(q.Parameters))
			for i, p := range q.Parameters {
				params[i] = p.Name + ": " + p.Type
			}
			if len(params) == 0 {
				params = []string{"-"}
			}
			t.AppendRow(table.Row{
				styles.QueryName.Render(q.Name),
				strings.Join(params, ", "),
				styles.TypeName.Render(q.ResultType),
				fmt.Sprintf("%s:%d", relativePath(cmdCtx.Cfg.ProjectRoot, m.File), q.Line),
			})
		}
	}

	t.Render()
	return nil
}

// listJSON outputs the manifests as a JSON array.
func listJSON(cmdCtx *CommandContext, manifests []*manifest.Manifest) error {
	enc := json.NewEncoder(cmdCtx.Renderer.Out())
	enc.SetIndent("", "  ")
	return enc.Encode(manifests)
}

// listYAML outputs the manifests as a YAML sequence.
func listYAML(cmdCtx *CommandContext, manifests []*manifest.Manifest) error {
	enc := yaml.NewEncoder(cmdCtx.Renderer.Out())
	enc.SetIndent(2)
	if err := enc.Encode(manifests); err != nil {
		return err
	}
	return enc.Close()
}

// relativePath shortens path relative to root when possible.
func relativePath(root, path string) string {
	if root == "" {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
