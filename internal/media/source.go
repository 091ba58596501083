// Package media retrieves uploaded audio artifacts for processing.
package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"recap/internal/services"
)

// Source fetches the raw audio bytes for a job.
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FileSource reads audio artifacts from a directory on local disk. Relative
// job paths resolve under the configured audio directory; absolute paths are
// used as-is.
type FileSource struct {
	root string
}

// NewFileSource returns a Source rooted at the given audio directory.
func NewFileSource(root string) *FileSource {
	return &FileSource{root: root}
}

func (f *FileSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrDownload, "download", "fetch", "fetch canceled", err)
	}
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrDownload, "download", "fetch", "empty audio path", nil)
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(f.root, resolved)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrDownload, "download", "fetch",
				fmt.Sprintf("audio file not found: %s", resolved), err)
		}
		return nil, services.Wrap(services.ErrDownload, "download", "fetch", "read audio file", err)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrDownload, "download", "fetch",
			fmt.Sprintf("audio file is empty: %s", resolved), nil)
	}
	return data, nil
}
