package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		flags     []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name: "init empty directory",
			wantFiles: []string{
				"querybinder.yaml",
				".gitignore",
				"queries",
				"queries/users.sql",
			},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "querybinder.yaml"), []byte("existing"), 0600))
			},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "querybinder.yaml"), []byte("existing"), 0600))
			},
			flags:     []string{"--force"},
			wantFiles: []string{"querybinder.yaml", "queries/users.sql"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "project")
			require.NoError(t, os.MkdirAll(dir, 0750))
			if tt.setupDir != nil {
				tt.setupDir(t, dir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(append([]string{dir}, tt.flags...))

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "querybinder project initialized!")

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(dir, f))
				assert.NoError(t, err, "expected %q to exist", f)
			}
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("force"), "--force flag should exist")
}

func TestInitKeepsExistingQueries(t *testing.T) {
	dir := t.TempDir()
	queries := filepath.Join(dir, "queries", "users.sql")
	require.NoError(t, os.MkdirAll(filepath.Dir(queries), 0750))
	require.NoError(t, os.WriteFile(queries, []byte("SELECT 1;\n"), 0600))

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile(queries)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;\n", string(content))
}

func TestInitProjectChecks(t *testing.T) {
	dir := t.TempDir()

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile(filepath.Join(dir, "querybinder.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "queries_dir: queries")
	assert.Contains(t, string(content), "catalog_path: .querybinder/catalog.db")

	stdout, _, err := runCommand(t, filepath.Join(dir, "querybinder.yaml"), NewCheckCommand())
	require.NoError(t, err)
	assert.Equal(t, "✓ Checked 1 file(s), 2 queries\n", stdout)
}
