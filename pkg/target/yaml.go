package target

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/querybinder/pkg/ast"
	"github.com/leapstack-labs/querybinder/pkg/manifest"
)

func init() {
	Register("yaml", func(Options) Target { return &YAML{} })
}

// YAML writes the query manifest of a document as a YAML document.
type YAML struct{}

// Name implements Target.
func (*YAML) Name() string { return "yaml" }

// Generate implements Target.
func (*YAML) Generate(w io.Writer, file string, input []byte, doc *ast.Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(manifest.FromDocument(file, input, doc)); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return enc.Close()
}
