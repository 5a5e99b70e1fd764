package target

import (
	"fmt"
	"io"

	"github.com/leapstack-labs/querybinder/pkg/ast"
)

func init() {
	Register("debug", func(opts Options) Target { return &Debug{Color: opts.Color} })
}

// Debug pretty-prints the parsed file, for debugging purposes. Verbatim
// sections are written as-is; queries are re-emitted from their parsed
// parts, so the output shows how the annotation was understood.
type Debug struct {
	Color bool
}

// Name implements Target.
func (d *Debug) Name() string { return "debug" }

// Generate implements Target.
func (d *Debug) Generate(w io.Writer, _ string, input []byte, doc *ast.Document) error {
	red, green, yellow, blue, reset := "\x1b[31m", "\x1b[32m", "\x1b[33m", "\x1b[34m", "\x1b[0m"
	if !d.Color {
		red, green, yellow, blue, reset = "", "", "", "", ""
	}

	for _, section := range doc.Sections {
		switch s := section.(type) {
		case ast.Verbatim:
			if _, err := io.WriteString(w, s.Span.Resolve(input)); err != nil {
				return err
			}

		case *ast.Query:
			ann := s.Annotation

			if _, err := io.WriteString(w, blue); err != nil {
				return err
			}
			for _, line := range s.Docs {
				if _, err := fmt.Fprintf(w, "%s--%s\n", red, line.Resolve(input)); err != nil {
					return err
				}
			}

			if _, err := fmt.Fprintf(w, "%s-- %s@query%s %s\n", reset, green, reset, ann.Name.Resolve(input)); err != nil {
				return err
			}
			for _, p := range ann.Parameters {
				if _, err := fmt.Fprintf(w, "%s-- %s: %s%q\n", reset, p.Ident.Resolve(input), yellow, p.Type.Resolve(input)); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s-- -> %s%q%s\n", reset, yellow, ann.ResultType.Resolve(input), reset); err != nil {
				return err
			}
			if _, err := io.WriteString(w, s.Body.Resolve(input)); err != nil {
				return err
			}
		}
	}

	return nil
}
