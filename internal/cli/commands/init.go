package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querybinder/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new querybinder project",
		Long: `Initialize a new querybinder project.

This creates:
  - querybinder.yaml configuration file
  - queries/ directory with an annotated example file
  - .gitignore excluding the local catalog`,
		Example: `  # Initialize in current directory
  querybinder init

  # Initialize in a new directory
  querybinder init my-project

  # Overwrite existing files
  querybinder init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Color)
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "querybinder.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("querybinder.yaml already exists. Use --force to overwrite")
	}

	if err := copyTemplate(dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, err := listTemplateFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		r.Success(f)
	}

	r.Println("")
	r.Success("querybinder project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  querybinder check      Parse every query file")
	r.Println("  querybinder list       Show the declared queries")
	r.Println("  querybinder manifest   Export the queries as JSON or YAML")

	return nil
}
