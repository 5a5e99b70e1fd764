package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querybinder/internal/cli/config"
	"github.com/leapstack-labs/querybinder/pkg/target"
)

// NewManifestCommand creates the manifest command.
func NewManifestCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "manifest [files...]",
		Short: "Export the declared queries as JSON or YAML",
		Long: `Export the name, parameters, result type and SQL of every annotated
query, one manifest document per file.

The format defaults to yaml when --output yaml is set, and to json otherwise.`,
		Example: `  # Export all queries as JSON
  querybinder manifest

  # Export one file as YAML
  querybinder manifest queries/users.sql --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			if format == "" {
				format = config.OutputJSON
				if cmdCtx.Cfg.Output == config.OutputYAML {
					format = config.OutputYAML
				}
			}
			return runManifest(cmd, cmdCtx, format, args)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Manifest format (json|yaml)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runManifest(cmd *cobra.Command, cmdCtx *CommandContext, format string, args []string) error {
	if format != config.OutputJSON && format != config.OutputYAML {
		return fmt.Errorf("invalid format %q, must be one of: json, yaml", format)
	}
	t, err := target.New(format, target.Options{})
	if err != nil {
		return err
	}

	results, err := cmdCtx.Load(cmd.Context(), args)
	if err != nil {
		return err
	}
	if failed := cmdCtx.reportFailures(results); failed > 0 {
		return &ErrCheckFailed{Failed: failed, Total: len(results)}
	}

	out := cmdCtx.Renderer.Out()
	for i, res := range results {
		if i > 0 && format == config.OutputYAML {
			if _, err := io.WriteString(out, "---\n"); err != nil {
				return err
			}
		}
		if err := t.Generate(out, res.File, res.Input, res.Document); err != nil {
			return fmt.Errorf("failed to write manifest for %s: %w", res.File, err)
		}
	}
	return nil
}
