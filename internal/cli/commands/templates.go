package commands

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed all:templates
var templateFS embed.FS

const projectTemplate = "templates/project"

// copyTemplate copies the embedded project template to targetDir.
// Existing files are kept unless force is set.
func copyTemplate(targetDir string, force bool) error {
	return fs.WalkDir(templateFS, projectTemplate, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(projectTemplate, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(targetDir, renameSpecialFiles(rel))
		if d.IsDir() {
			return os.MkdirAll(target, 0750)
		}
		if !force {
			if _, err := os.Stat(target); err == nil {
				return nil
			}
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, content, 0600)
	})
}

// renameSpecialFiles maps template names to dotfiles, which embed would skip.
func renameSpecialFiles(p string) string {
	if filepath.Base(p) == "gitignore" {
		return filepath.Join(filepath.Dir(p), ".gitignore")
	}
	return p
}

// listTemplateFiles returns the files created by copyTemplate, relative
// to the target directory.
func listTemplateFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(templateFS, projectTemplate, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, renameSpecialFiles(p[len(projectTemplate)+1:]))
		}
		return nil
	})
	return files, err
}
