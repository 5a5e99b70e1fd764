package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querybinder/internal/loader"
	"github.com/leapstack-labs/querybinder/pkg/target"
)

// NewDebugCommand creates the debug command.
func NewDebugCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug <file>",
		Short: "Print a file as the parser understood it",
		Long: `Parse a file and print it back. Verbatim SQL is written unchanged and
each annotated query is re-emitted from its parsed parts, colored when
writing to a terminal.`,
		Example: `  # Show how the annotations in a file were parsed
  querybinder debug queries/users.sql

  # Force colors when piping into a pager
  querybinder debug queries/users.sql --color always | less -R`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebug(NewCommandContext(cmd), args[0])
		},
	}
	return cmd
}

func runDebug(cmdCtx *CommandContext, file string) error {
	res, err := loader.ParseFile(file)
	if err != nil {
		return err
	}
	if !res.OK() {
		_ = res.Report(cmdCtx.Renderer.ErrOut())
		return &ErrCheckFailed{Failed: 1, Total: 1}
	}

	t, err := target.New("debug", target.Options{Color: cmdCtx.Renderer.Color()})
	if err != nil {
		return err
	}
	if err := t.Generate(cmdCtx.Renderer.Out(), res.File, res.Input, res.Document); err != nil {
		return fmt.Errorf("failed to print %s: %w", file, err)
	}
	return nil
}
