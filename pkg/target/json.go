package target

import (
	"encoding/json"
	"io"

	"github.com/leapstack-labs/querybinder/pkg/ast"
	"github.com/leapstack-labs/querybinder/pkg/manifest"
)

func init() {
	Register("json", func(Options) Target { return &JSON{} })
}

// JSON writes the query manifest of a document as indented JSON.
type JSON struct{}

// Name implements Target.
func (*JSON) Name() string { return "json" }

// Generate implements Target.
func (*JSON) Generate(w io.Writer, file string, input []byte, doc *ast.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest.FromDocument(file, input, doc))
}
