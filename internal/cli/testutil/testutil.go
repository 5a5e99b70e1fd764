// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/querybinder/internal/cli/output"
)

// UsersSQL declares two queries, one with a doc comment.
const UsersSQL = `-- Queries for the users table.

-- Look up one user.
-- @query get_user
-- id: Int
-- -> User
SELECT * FROM users WHERE id = :id;

-- @query list_users
-- -> User
SELECT * FROM users;
`

// OrdersSQL declares one query with two parameters on one line.
const OrdersSQL = `-- @query orders_for_user
-- user_id: Int, limit: Int
-- -> Order
SELECT * FROM orders
WHERE user_id = :user_id
LIMIT :limit;
`

// BrokenSQL has a parameter without a colon.
const BrokenSQL = `-- @query broken
-- id Int
-- -> User
SELECT 1;
`

// SetupTestProject creates a temporary project with a config file and
// the given files under its queries directory. It returns the project
// root and the config file path.
func SetupTestProject(t *testing.T, files map[string]string) (string, string) {
	t.Helper()

	tmpDir := t.TempDir()
	queriesDir := filepath.Join(tmpDir, "queries")
	if err := os.MkdirAll(queriesDir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", queriesDir, err)
	}

	for name, content := range files {
		path := filepath.Join(queriesDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	cfgPath := filepath.Join(tmpDir, "querybinder.yaml")
	cfg := "queries_dir: queries\ncatalog_path: .querybinder/catalog.db\ncolor: never\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to create querybinder.yaml: %v", err)
	}

	return tmpDir, cfgPath
}

// DefaultProject creates a project with the users and orders files.
func DefaultProject(t *testing.T) (string, string) {
	t.Helper()
	return SetupTestProject(t, map[string]string{
		"users.sql":  UsersSQL,
		"orders.sql": OrdersSQL,
	})
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a renderer writing to buffers.
func NewTestRenderer(colorMode string) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, colorMode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// StripANSI removes ANSI escape codes from s.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
