package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mfenderov/pic-harvest/internal/destination"
	"github.com/mfenderov/pic-harvest/internal/downloader"
	"github.com/mfenderov/pic-harvest/internal/events"
	"github.com/mfenderov/pic-harvest/internal/extract"
	"github.com/mfenderov/pic-harvest/internal/failure"
	"github.com/mfenderov/pic-harvest/internal/fetcher"
	"github.com/mfenderov/pic-harvest/internal/resolve"
	"github.com/mfenderov/pic-harvest/pkg/models"
	"github.com/sourcegraph/conc/pool"
)

// Policy decides what happens to a run when an image fails.
type Policy string

const (
	// FailFast aborts the run on the first image failure.
	FailFast Policy = "fail-fast"
	// Continue records image failures and keeps going.
	Continue Policy = "continue"
)

// ErrPartial is returned by Run under the Continue policy when at least one
// image failed.
var ErrPartial = errors.New("some images could not be harvested")

// PageFetcher fetches the page to harvest.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*fetcher.Page, error)
}

// ImageDownloader downloads a single image to disk.
type ImageDownloader interface {
	Download(ctx context.Context, t downloader.Target) (*models.Image, []byte, error)
}

// Config holds harvester configuration.
type Config struct {
	Policy      Policy
	Concurrency int
	Out         io.Writer                    // progress messages, nil discards
	Sink        chan<- events.ImageSavedEvent // nil disables events
}

// Harvester downloads every image referenced by a page.
type Harvester struct {
	config     Config
	fetcher    PageFetcher
	resolver   *resolve.Resolver
	deriver    *destination.Deriver
	downloader ImageDownloader

	outMu sync.Mutex
}

// New creates a new Harvester.
func New(
	config Config,
	pageFetcher PageFetcher,
	resolver *resolve.Resolver,
	deriver *destination.Deriver,
	imageDownloader ImageDownloader,
) (*Harvester, error) {
	switch config.Policy {
	case "":
		config.Policy = FailFast
	case FailFast, Continue:
	default:
		return nil, fmt.Errorf("unknown failure policy %q", config.Policy)
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Out == nil {
		config.Out = io.Discard
	}

	return &Harvester{
		config:     config,
		fetcher:    pageFetcher,
		resolver:   resolver,
		deriver:    deriver,
		downloader: imageDownloader,
	}, nil
}

// ImageResult is the outcome of one image reference.
type ImageResult struct {
	Index     int // position of the reference in the document
	Reference string
	URL       string
	Image     *models.Image // nil on failure
	Err       error
}

// Report holds the results of one harvest run.
type Report struct {
	PageURL  string
	Title    string
	Site     string
	Dir      string
	Images   []ImageResult // attempted images, in document order
	Saved    int
	Failed   int
	Duration time.Duration
}

// Failures returns the failed image results.
func (r *Report) Failures() []ImageResult {
	var failed []ImageResult
	for _, img := range r.Images {
		if img.Err != nil {
			failed = append(failed, img)
		}
	}
	return failed
}

// Complete returns the completion event for the report.
func (r *Report) Complete() events.HarvestCompleteEvent {
	return events.HarvestCompleteEvent{
		PageURL:   r.PageURL,
		Site:      r.Site,
		Dir:       r.Dir,
		Saved:     r.Saved,
		Failed:    r.Failed,
		Duration:  r.Duration,
		Timestamp: time.Now(),
	}
}

// Run harvests pageURL. The returned report is never nil and lists every image
// attempted before the run ended, so files already written can be accounted
// for even when an error is returned.
func (h *Harvester) Run(ctx context.Context, pageURL string) (*Report, error) {
	start := time.Now()
	report := &Report{PageURL: pageURL}
	defer func() { report.Duration = time.Since(start) }()

	dest, err := h.deriver.Derive(pageURL)
	if err != nil {
		return report, err
	}
	report.Site = dest.Site
	report.Dir = dest.Dir

	h.printf("\nDomain Name: %s\n", dest.Host)
	h.printf("Destination: %s\n", dest.Dir)

	page, err := h.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return report, err
	}

	refs, err := extract.References(page.Body)
	if err != nil {
		return report, failure.New(failure.KindParse, "extract image references", pageURL, err)
	}
	report.Title = extract.Title(page.Body)

	slog.Info("found image references", "url", pageURL, "count", len(refs))
	if len(refs) == 0 {
		return report, nil
	}

	if err := h.deriver.Ensure(dest.Dir); err != nil {
		return report, err
	}

	var results []*ImageResult
	if h.config.Concurrency > 1 {
		results, err = h.runPool(ctx, pageURL, dest, refs)
	} else {
		results, err = h.runSequential(ctx, pageURL, dest, refs)
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		report.Images = append(report.Images, *res)
		if res.Err != nil {
			report.Failed++
		} else {
			report.Saved++
		}
	}

	if err != nil {
		return report, err
	}
	if report.Failed > 0 {
		return report, fmt.Errorf("%w: %d of %d failed", ErrPartial, report.Failed, len(refs))
	}
	return report, nil
}

// runSequential processes references one at a time in document order.
func (h *Harvester) runSequential(ctx context.Context, pageURL string, dest *destination.Destination, refs []string) ([]*ImageResult, error) {
	results := make([]*ImageResult, len(refs))
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := h.harvestOne(ctx, ctx, pageURL, dest, i, ref)
		results[i] = res

		if res.Err != nil && h.config.Policy == FailFast {
			return results, res.Err
		}
	}
	return results, nil
}

// runPool downloads through a bounded worker pool. References sharing a local
// file name run in document order inside one task, so the last one wins just
// like in a sequential run.
func (h *Harvester) runPool(ctx context.Context, pageURL string, dest *destination.Destination, refs []string) ([]*ImageResult, error) {
	results := make([]*ImageResult, len(refs))

	runCtx := ctx
	p := pool.New().WithContext(ctx).WithMaxGoroutines(h.config.Concurrency)
	if h.config.Policy == FailFast {
		p = p.WithCancelOnError().WithFirstError()
	}

	for _, group := range groupByLocalName(refs) {
		p.Go(func(ctx context.Context) error {
			for _, i := range group {
				if err := ctx.Err(); err != nil {
					return err
				}

				res := h.harvestOne(ctx, runCtx, pageURL, dest, i, refs[i])
				results[i] = res

				if res.Err != nil && h.config.Policy == FailFast {
					return res.Err
				}
			}
			return nil
		})
	}

	return results, p.Wait()
}

// harvestOne resolves, downloads and saves a single reference. The saved
// event is sent under runCtx, which outlives the pool context, so a file
// already on disk is always reported to the sink.
func (h *Harvester) harvestOne(ctx, runCtx context.Context, pageURL string, dest *destination.Destination, index int, ref string) *ImageResult {
	res := &ImageResult{Index: index, Reference: ref}

	imageURL, err := h.resolver.Resolve(pageURL, ref)
	if err != nil {
		res.Err = failure.New(failure.KindParse, "resolve image url", ref, err)
		slog.Warn("failed to resolve image", "ref", ref, "error", err)
		return res
	}
	res.URL = imageURL

	img, data, err := h.downloader.Download(ctx, downloader.Target{
		PageURL:   pageURL,
		Reference: ref,
		URL:       imageURL,
		Site:      dest.Site,
		Dir:       dest.Dir,
	})
	if err != nil {
		res.Err = err
		slog.Warn("failed to harvest image", "url", imageURL, "error", err)
		return res
	}
	res.Image = img

	h.printf("image_path: %s\n", img.Path)

	if h.config.Sink != nil {
		select {
		case h.config.Sink <- events.ImageSavedEvent{Image: *img, Data: data}:
		case <-runCtx.Done():
		}
	}

	return res
}

func (h *Harvester) printf(format string, args ...any) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	fmt.Fprintf(h.config.Out, format, args...)
}

// groupByLocalName groups reference indexes by the file they are saved as,
// ordered by first appearance.
func groupByLocalName(refs []string) [][]int {
	var groups [][]int
	byName := make(map[string]int)

	for i, ref := range refs {
		name := downloader.LocalName(ref)
		g, ok := byName[name]
		if !ok {
			g = len(groups)
			byName[name] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
