package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querybinder/pkg/manifest"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Record and inspect query snapshots",
		Long: `The catalog is a SQLite database holding one snapshot of all declared
queries per save. Other tools can read it without parsing SQL files.`,
	}

	cmd.AddCommand(newCatalogSaveCommand())
	cmd.AddCommand(newCatalogShowCommand())
	return cmd
}

func newCatalogSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save [files...]",
		Short: "Parse all files and save their queries as a new snapshot",
		Example: `  # Snapshot the queries directory
  querybinder catalog save

  # Use a different catalog file
  querybinder catalog save --catalog build/catalog.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)

			results, err := cmdCtx.Load(cmd.Context(), args)
			if err != nil {
				return err
			}
			if failed := cmdCtx.reportFailures(results); failed > 0 {
				return &ErrCheckFailed{Failed: failed, Total: len(results)}
			}

			manifests := make([]*manifest.Manifest, 0, len(results))
			for _, res := range results {
				manifests = append(manifests, res.Manifest())
			}

			store, err := cmdCtx.OpenCatalog()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snap, err := store.SaveManifests(cmd.Context(), manifests)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			r.Success(fmt.Sprintf("Saved snapshot %s: %d file(s), %d queries", snap.ID, snap.FileCount, snap.QueryCount))
			r.Muted(fmt.Sprintf("Catalog: %s", cmdCtx.Cfg.CatalogPath))
			return nil
		},
	}
}

func newCatalogShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the queries of the latest snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)

			store, err := cmdCtx.OpenCatalog()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			r := cmdCtx.Renderer
			snap, err := store.LatestSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			if snap == nil {
				r.Warning("No snapshots found. Run 'querybinder catalog save' first.")
				return nil
			}

			queries, err := store.ListQueries(cmd.Context(), snap.ID)
			if err != nil {
				return err
			}

			version, err := store.MigrationVersion()
			if err != nil {
				return err
			}

			r.Header(1, fmt.Sprintf("Snapshot %s", snap.ID))
			r.Muted(fmt.Sprintf("Created %s, %d file(s), %d queries, schema v%d",
				snap.CreatedAt.Local().Format("2006-01-02 15:04:05"), snap.FileCount, snap.QueryCount, version))

			t := table.NewWriter()
			t.SetOutputMirror(r.Out())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Signature", "Location"})
			for _, q := range queries {
				t.AppendRow(table.Row{
					q.Signature(),
					fmt.Sprintf("%s:%d", relativePath(cmdCtx.Cfg.ProjectRoot, q.File), q.Line),
				})
			}
			t.Render()
			return nil
		},
	}
}
