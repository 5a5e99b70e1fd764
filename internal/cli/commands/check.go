package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/querybinder/internal/cli/config"
	"github.com/leapstack-labs/querybinder/internal/loader"
	"github.com/leapstack-labs/querybinder/pkg/token"
)

// ErrCheckFailed is returned when at least one file fails to parse.
type ErrCheckFailed struct {
	Failed int
	Total  int
}

func (e *ErrCheckFailed) Error() string {
	return fmt.Sprintf("%d of %d file(s) failed to parse", e.Failed, e.Total)
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Parse query files and report errors",
		Long: `Parse annotated SQL files and report the first error of each file.

Without arguments every .sql file under the queries directory is checked.
Errors are printed to stderr with the offending source line highlighted.`,
		Example: `  # Check all files in the queries directory
  querybinder check

  # Check specific files
  querybinder check queries/users.sql queries/orders.sql

  # Re-check whenever a file changes
  querybinder check --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			if watch {
				return runCheckWatch(cmd.Context(), cmdCtx, args)
			}
			return runCheck(cmd.Context(), cmdCtx, args)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-check files when they change")
	return cmd
}

// checkReport is the machine-readable result of a check.
type checkReport struct {
	File    string      `json:"file" yaml:"file"`
	OK      bool        `json:"ok" yaml:"ok"`
	Queries int         `json:"queries" yaml:"queries"`
	Error   *checkError `json:"error,omitempty" yaml:"error,omitempty"`
}

type checkError struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column" yaml:"column"`
	Hint    string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

func runCheck(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	start := time.Now()
	results, err := cmdCtx.Load(ctx, args)
	if err != nil {
		return err
	}

	switch cmdCtx.Cfg.Output {
	case config.OutputJSON, config.OutputYAML:
		if err := writeCheckReport(cmdCtx, results); err != nil {
			return err
		}
		if failed := countFailed(results); failed > 0 {
			return &ErrCheckFailed{Failed: failed, Total: len(results)}
		}
		return nil
	}

	failed := cmdCtx.reportFailures(results)
	r := cmdCtx.Renderer
	queries := 0
	for _, res := range results {
		if res.OK() {
			queries += len(res.Document.Queries())
		}
	}

	cmdCtx.Logger.Debug("check finished", "files", len(results), "failed", failed, "duration", time.Since(start))

	if failed > 0 {
		r.Error(fmt.Sprintf("%d of %d file(s) failed to parse", failed, len(results)))
		return &ErrCheckFailed{Failed: failed, Total: len(results)}
	}
	r.Success(fmt.Sprintf("Checked %d file(s), %d queries", len(results), queries))
	return nil
}

// IsCheckFailure reports whether err means some files failed to parse.
// Their diagnostics have already been printed.
func IsCheckFailure(err error) bool {
	var failed *ErrCheckFailed
	return errors.As(err, &failed)
}

func countFailed(results []*loader.Result) int {
	n := 0
	for _, res := range results {
		if !res.OK() {
			n++
		}
	}
	return n
}

func writeCheckReport(cmdCtx *CommandContext, results []*loader.Result) error {
	reports := make([]checkReport, 0, len(results))
	for _, res := range results {
		rep := checkReport{File: res.File, OK: res.OK()}
		if res.OK() {
			rep.Queries = len(res.Document.Queries())
		} else {
			pos := token.PositionOf(res.Input, res.Err.Span.Clamp(len(res.Input)).Start)
			rep.Error = &checkError{
				Kind:    res.Err.Kind.String(),
				Message: res.Err.Message,
				Line:    pos.Line,
				Column:  pos.Column,
				Hint:    res.Err.Hint,
			}
		}
		reports = append(reports, rep)
	}

	out := cmdCtx.Renderer.Out()
	if cmdCtx.Cfg.Output == config.OutputYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// runCheckWatch checks once, then again after every change to a .sql
// file under the queries directory, until ctx is cancelled.
func runCheckWatch(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	if err := runCheck(ctx, cmdCtx, args); err != nil {
		if !IsCheckFailure(err) {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dirs := watchDirs(cmdCtx.Cfg.QueriesDir, args)
	for _, dir := range dirs {
		if err := watchDir(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %d director(ies) for changes...", len(dirs)))

	changes := make(chan string, 1)
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".sql" {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(100*time.Millisecond, func() {
				select {
				case changes <- name:
				default:
				}
			})

		case name := <-changes:
			cmdCtx.Logger.Info("change detected", "file", name)
			if err := runCheck(ctx, cmdCtx, args); err != nil {
				if !IsCheckFailure(err) {
					cmdCtx.Renderer.Error(err.Error())
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watcher error", "error", err)
		}
	}
}

// watchDirs returns the directories to watch: the parents of the named
// files, or the queries directory.
func watchDirs(queriesDir string, files []string) []string {
	if len(files) == 0 {
		return []string{queriesDir}
	}
	seen := make(map[string]bool)
	var dirs []string
	for _, f := range files {
		dir := filepath.Dir(f)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && len(info.Name()) > 0 && info.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
