package archive

import (
	"context"
	"log/slog"
	"time"

	"github.com/mfenderov/pic-harvest/internal/events"
	"github.com/mfenderov/pic-harvest/internal/storage"
	"github.com/mfenderov/pic-harvest/pkg/models"
)

// Mirror stores image copies outside the local filesystem.
type Mirror interface {
	PutImage(ctx context.Context, prefix, filename string, data []byte, contentType string) error
	PutManifest(ctx context.Context, prefix string, manifest storage.Manifest) error
}

// Catalog indexes image records for search.
type Catalog interface {
	IndexImage(ctx context.Context, img models.Image) error
}

// Result holds archive execution results.
type Result struct {
	Prefix   string
	Mirrored int
	Indexed  int
	Errors   []string
}

// Engine mirrors and catalogs images as the harvester saves them. Sink
// failures are collected as warnings and never fail the harvest.
type Engine struct {
	mirror  Mirror  // nil if mirroring disabled
	catalog Catalog // nil if catalog disabled
	now     func() time.Time

	prefix  string
	entries []storage.ManifestEntry
	result  Result
}

// New creates a new archive engine. Either sink may be nil.
func New(mirror Mirror, catalog Catalog) *Engine {
	return &Engine{
		mirror:  mirror,
		catalog: catalog,
		now:     time.Now,
	}
}

// Enabled reports whether any sink is configured.
func (e *Engine) Enabled() bool {
	return e.mirror != nil || e.catalog != nil
}

// Consume processes events until in is closed.
func (e *Engine) Consume(ctx context.Context, in <-chan events.ImageSavedEvent) {
	for event := range in {
		if ctx.Err() != nil {
			e.result.Errors = append(e.result.Errors, "context cancelled")
			continue
		}
		e.handle(ctx, event)
	}
}

func (e *Engine) handle(ctx context.Context, event events.ImageSavedEvent) {
	img := event.Image

	if e.mirror != nil {
		prefix := e.prefixFor(img.Site, img.PageURL)
		if err := e.mirror.PutImage(ctx, prefix, img.Filename, event.Data, img.ContentType); err != nil {
			slog.Warn("failed to mirror image", "path", img.Path, "error", err)
			e.result.Errors = append(e.result.Errors, err.Error())
		} else {
			e.result.Mirrored++
			e.entries = append(e.entries, storage.ManifestEntry{
				Filename: img.Filename,
				URL:      img.URL,
				Size:     img.Size,
			})
			slog.Debug("mirrored image", "prefix", prefix, "filename", img.Filename)
		}
	}

	if e.catalog != nil {
		if err := e.catalog.IndexImage(ctx, img); err != nil {
			slog.Warn("failed to catalog image", "path", img.Path, "error", err)
			e.result.Errors = append(e.result.Errors, err.Error())
		} else {
			e.result.Indexed++
		}
	}
}

// Finish writes the run manifest to the mirror and returns the results.
func (e *Engine) Finish(ctx context.Context, done events.HarvestCompleteEvent) *Result {
	if e.mirror != nil && done.Site != "" {
		prefix := e.prefixFor(done.Site, done.PageURL)
		manifest := storage.Manifest{
			PageURL:    done.PageURL,
			Site:       done.Site,
			Timestamp:  done.Timestamp.UTC().Format(time.RFC3339),
			ImageCount: len(e.entries),
			Failed:     done.Failed,
			Images:     e.entries,
		}
		if err := e.mirror.PutManifest(ctx, prefix, manifest); err != nil {
			slog.Warn("failed to write manifest", "prefix", prefix, "error", err)
			e.result.Errors = append(e.result.Errors, err.Error())
		}
	}

	result := e.result
	result.Prefix = e.prefix
	return &result
}

// prefixFor returns the mirror prefix of the run, created on first use.
func (e *Engine) prefixFor(site, pageURL string) string {
	if e.prefix == "" {
		e.prefix = storage.NewPrefix(site, pageURL, e.now())
	}
	return e.prefix
}
