package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mfenderov/pic-harvest/internal/archive"
	"github.com/mfenderov/pic-harvest/internal/config"
	"github.com/mfenderov/pic-harvest/internal/destination"
	"github.com/mfenderov/pic-harvest/internal/downloader"
	"github.com/mfenderov/pic-harvest/internal/elasticsearch"
	"github.com/mfenderov/pic-harvest/internal/events"
	"github.com/mfenderov/pic-harvest/internal/fetcher"
	"github.com/mfenderov/pic-harvest/internal/harvest"
	"github.com/mfenderov/pic-harvest/internal/resolve"
	"github.com/mfenderov/pic-harvest/internal/storage"
	"github.com/spf13/afero"
)

// runner builds a harvester per run and wires the optional archive sinks
// around it.
type runner struct {
	cfg     config.Config
	out     io.Writer
	fs      afero.Fs
	mirror  *storage.Client       // nil if mirroring disabled
	catalog *elasticsearch.Client // nil if catalog disabled
}

func newRunner(ctx context.Context, cfg config.Config, out io.Writer) (*runner, error) {
	r := &runner{
		cfg: cfg,
		out: out,
		fs:  afero.NewOsFs(),
	}

	if cfg.Storage.Enabled {
		storageClient, err := storage.New(storage.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Bucket:          cfg.Storage.Bucket,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UseSSL:          cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		if err := storageClient.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket: %w", err)
		}
		r.mirror = storageClient
	}

	if cfg.Elasticsearch.Enabled {
		esClient, err := newCatalog(cfg)
		if err != nil {
			return nil, err
		}
		if !esClient.Ping(ctx) {
			return nil, fmt.Errorf("elasticsearch is not reachable at %v", cfg.Elasticsearch.Addresses)
		}
		if err := esClient.CreateIndex(ctx); err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
		r.catalog = esClient
	}

	return r, nil
}

func newCatalog(cfg config.Config) (*elasticsearch.Client, error) {
	esClient, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}
	return esClient, nil
}

// newEngine returns the archive engine for one run.
func (r *runner) newEngine() *archive.Engine {
	var mirror archive.Mirror
	if r.mirror != nil {
		mirror = r.mirror
	}
	var catalog archive.Catalog
	if r.catalog != nil {
		catalog = r.catalog
	}
	return archive.New(mirror, catalog)
}

func (r *runner) newHarvester(sink chan<- events.ImageSavedEvent) (*harvest.Harvester, error) {
	h := r.cfg.Harvest

	resolver, err := resolve.New(resolve.Mode(h.ResolveMode))
	if err != nil {
		return nil, err
	}

	deriver, err := destination.New(r.fs, destination.Config{
		DocumentsDir: h.DocumentsDir,
		RootFolder:   h.RootFolder,
		SiteName:     destination.SiteNameMode(h.SiteName),
	})
	if err != nil {
		return nil, err
	}

	pageFetcher := fetcher.New(fetcher.Config{
		UserAgent: h.UserAgent,
		Timeout:   h.Timeout,
	})
	imageDownloader := downloader.New(r.fs, downloader.Config{
		UserAgent: h.UserAgent,
		Timeout:   h.Timeout,
	})

	return harvest.New(harvest.Config{
		Policy:      harvest.Policy(h.Policy),
		Concurrency: h.Concurrency,
		Out:         r.out,
		Sink:        sink,
	}, pageFetcher, resolver, deriver, imageDownloader)
}

// Run harvests pageURL. When a sink is enabled, saved images are mirrored
// and cataloged by a consumer goroutine while the harvest runs.
func (r *runner) Run(ctx context.Context, pageURL string) (*harvest.Report, error) {
	engine := r.newEngine()
	if !engine.Enabled() {
		h, err := r.newHarvester(nil)
		if err != nil {
			return nil, err
		}
		return h.Run(ctx, pageURL)
	}

	imageEvents := make(chan events.ImageSavedEvent)
	h, err := r.newHarvester(imageEvents)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Consume(ctx, imageEvents)
	}()

	report, runErr := h.Run(ctx, pageURL)

	close(imageEvents)
	<-done

	result := engine.Finish(ctx, report.Complete())
	slog.Info("archive finished",
		"prefix", result.Prefix,
		"mirrored", result.Mirrored,
		"indexed", result.Indexed,
		"errors", len(result.Errors))

	if result.Prefix != "" {
		fmt.Fprintf(r.out, "Mirrored %d images to %s/%s\n", result.Mirrored, r.mirror.Bucket(), result.Prefix)
	}
	if r.catalog != nil {
		fmt.Fprintf(r.out, "Cataloged %d images\n", result.Indexed)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(r.out, "  Warning: %s\n", e)
	}

	return report, runErr
}
