package archive

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mfenderov/pic-harvest/internal/destination"
	"github.com/mfenderov/pic-harvest/internal/downloader"
	"github.com/mfenderov/pic-harvest/internal/failure"
	"github.com/mfenderov/pic-harvest/internal/storage"
	"github.com/spf13/afero"
)

// Source reads a mirrored harvest run.
type Source interface {
	GetManifest(ctx context.Context, prefix string) (*storage.Manifest, error)
	ListImages(ctx context.Context, prefix string) ([]string, error)
	GetImage(ctx context.Context, prefix, filename string) ([]byte, error)
}

// RestoreResult holds the outcome of a restore.
type RestoreResult struct {
	PageURL  string
	Dir      string
	Restored []string // local paths, in listing order
	Missing  []string // manifest entries with no mirrored object
}

// Restore copies the images mirrored under prefix back into the local site
// folder of the harvested page. Existing files with the same name are
// overwritten.
func Restore(ctx context.Context, src Source, fs afero.Fs, deriver *destination.Deriver, prefix string) (*RestoreResult, error) {
	manifest, err := src.GetManifest(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	dest, err := deriver.Derive(manifest.PageURL)
	if err != nil {
		return nil, err
	}

	names, err := src.ListImages(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	result := &RestoreResult{PageURL: manifest.PageURL, Dir: dest.Dir}

	listed := make(map[string]bool, len(names))
	for _, name := range names {
		listed[name] = true
	}
	for _, entry := range manifest.Images {
		if !listed[entry.Filename] {
			result.Missing = append(result.Missing, entry.Filename)
		}
	}

	if len(names) == 0 {
		return result, nil
	}
	if err := deriver.Ensure(dest.Dir); err != nil {
		return nil, err
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		data, err := src.GetImage(ctx, prefix, name)
		if err != nil {
			return result, fmt.Errorf("failed to get %s: %w", name, err)
		}

		path := filepath.Join(dest.Dir, downloader.LocalName(name))
		if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
			return result, failure.New(failure.KindFilesystem, "restore image", path, err)
		}
		slog.Debug("restored image", "prefix", prefix, "path", path)
		result.Restored = append(result.Restored, path)
	}

	return result, nil
}
