// Package loader finds annotated SQL files on disk and parses them.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/querybinder/pkg/ast"
	"github.com/leapstack-labs/querybinder/pkg/diagnostic"
	"github.com/leapstack-labs/querybinder/pkg/manifest"
	"github.com/leapstack-labs/querybinder/pkg/parser"
	"github.com/leapstack-labs/querybinder/pkg/token"
)

// DefaultConcurrency is the number of files parsed at once when none is configured.
const DefaultConcurrency = 4

// Result is the outcome of parsing one file. Exactly one of Document and
// Err is set.
type Result struct {
	File     string
	Input    []byte
	Document *ast.Document
	Err      *diagnostic.ParseError
}

// OK returns true if the file parsed without errors.
func (r *Result) OK() bool {
	return r.Err == nil
}

// Manifest resolves the parsed document. It returns nil for failed parses.
func (r *Result) Manifest() *manifest.Manifest {
	if r.Document == nil {
		return nil
	}
	return manifest.FromDocument(r.File, r.Input, r.Document)
}

// Report writes the diagnostic for a failed parse to w.
func (r *Result) Report(w io.Writer) error {
	if r.Err == nil {
		return nil
	}
	return diagnostic.Print(w, r.File, r.Input, r.Err)
}

// Loader reads and parses files. Documents are independent, so files are
// parsed concurrently.
type Loader struct {
	logger      *slog.Logger
	concurrency int
}

// New creates a loader. A nil logger discards output; a concurrency below
// one uses DefaultConcurrency.
func New(logger *slog.Logger, concurrency int) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Loader{logger: logger, concurrency: concurrency}
}

// Discover recursively lists the .sql files under dir, skipping hidden
// files and directories. Paths are returned sorted.
func Discover(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".sql") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ParseFile reads and parses one file. Read errors are returned as error;
// parse errors are reported in the Result.
func ParseFile(file string) (*Result, error) {
	input, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseBytes(file, input), nil
}

// ParseBytes parses input that was read from file.
func ParseBytes(file string, input []byte) *Result {
	res := &Result{File: file, Input: input}
	doc, err := parser.Parse(input)
	if err != nil {
		var perr *diagnostic.ParseError
		if !errors.As(err, &perr) {
			perr = diagnostic.New(diagnostic.StructuralError, token.Span{}, err.Error())
		}
		res.Err = perr
		return res
	}
	res.Document = doc
	return res
}

// LoadFiles parses files concurrently. Results are in the order of files.
// The first read error cancels the remaining work.
func (l *Loader) LoadFiles(ctx context.Context, files []string) ([]*Result, error) {
	results := make([]*Result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := ParseFile(file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if res.OK() {
				l.logger.Debug("parsed file", "file", file, "sections", len(res.Document.Sections))
			} else {
				l.logger.Debug("parse failed", "file", file, "error", res.Err.Message)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
