// Package scaffold writes the starter files created by 'encmusic init'.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/encoding-music/internal/config"
	"github.com/dyluth/encoding-music/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// EnvExample is the starter file listing the supported environment variables.
const EnvExample = ".env.example"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes encmusic.yml and .env.example into dir.
// If force is true, existing files are replaced.
func Initialize(dir string, force bool) error {
	if force {
		if err := handleForce(dir); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := writeFiles(dir, files); err != nil {
		return err
	}

	return validateCreatedFiles(dir)
}

// handleForce removes existing starter files if --force was specified
func handleForce(dir string) error {
	for _, name := range []string{config.DefaultPath, EnvExample} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		printer.Warning("Removing existing %s...\n", name)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// getTemplateFiles reads all embedded templates
func getTemplateFiles() ([]FileInfo, error) {
	templates := []struct {
		src, dst string
	}{
		{"templates/encmusic.yml.tmpl", config.DefaultPath},
		{"templates/env.example.tmpl", EnvExample},
	}

	files := make([]FileInfo, 0, len(templates))
	for _, t := range templates {
		content, err := templatesFS.ReadFile(t.src)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s template: %w", t.dst, err)
		}
		files = append(files, FileInfo{Path: t.dst, Content: content, Permissions: 0644})
	}
	return files, nil
}

// writeFiles writes all template files to disk, refusing to overwrite
func writeFiles(dir string, files []FileInfo) error {
	for _, file := range files {
		path := filepath.Join(dir, file.Path)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, file.Permissions)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		if _, err := f.Write(file.Content); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles loads the written config through the normal path
func validateCreatedFiles(dir string) error {
	if _, err := config.Load(filepath.Join(dir, config.DefaultPath)); err != nil {
		return fmt.Errorf("created %s is not valid: %w", config.DefaultPath, err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	printer.Println()
	printer.Success("Initialized encmusic project\n")
	printer.Println("\nCreated:")
	printer.Printf("  ✓ %s\n", config.DefaultPath)
	printer.Printf("  ✓ %s\n", EnvExample)
	printer.Println("\nNext steps:")
	printer.Println("  1. Run 'encmusic cache up' for a local Redis cache (optional)")
	printer.Println("  2. Export SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET for playlist analysis")
	printer.Println("  3. Run 'encmusic serve' and open http://127.0.0.1:8501")
}
