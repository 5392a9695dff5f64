package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nbyapp/nbyapp/internal/app"
)

// DiskExporter writes files to <BaseDir>/<appID>/<name>
type DiskExporter struct {
	BaseDir string
}

// NewDiskExporter creates a disk exporter rooted at baseDir
func NewDiskExporter(baseDir string) *DiskExporter {
	return &DiskExporter{BaseDir: baseDir}
}

// Name returns the exporter name
func (d *DiskExporter) Name() string {
	return "disk"
}

// Export writes every file with content into the app directory
func (d *DiskExporter) Export(ctx context.Context, appID string, files []app.File) (string, error) {
	if err := checkSegment(appID); err != nil {
		return "", err
	}
	appDir := filepath.Join(d.BaseDir, appID)
	if err := WriteFilesToDirectory(appDir, files); err != nil {
		return "", err
	}
	return appDir, nil
}

// WriteFilesToDirectory writes files below baseDir, refusing names that escape it
func WriteFilesToDirectory(baseDir string, files []app.File) error {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", baseDir, err)
	}

	for _, file := range files {
		if file.Name == "" || file.Content == "" {
			continue
		}
		fullPath := filepath.Join(baseDir, filepath.FromSlash(file.Name))
		rel, err := filepath.Rel(baseDir, fullPath)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("invalid file name %q", file.Name)
		}

		// Create directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", file.Name, err)
		}

		if err := os.WriteFile(fullPath, []byte(file.Content), 0644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", fullPath, err)
		}
	}

	return nil
}

func checkSegment(appID string) error {
	if appID == "" || appID != filepath.Base(appID) || appID == "." || appID == ".." {
		return fmt.Errorf("invalid app id %q", appID)
	}
	return nil
}
