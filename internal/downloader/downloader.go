package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/mfenderov/pic-harvest/internal/failure"
	"github.com/mfenderov/pic-harvest/pkg/models"
	"github.com/spf13/afero"
)

// Config holds image downloader configuration.
type Config struct {
	UserAgent string        // empty keeps the net/http default
	Timeout   time.Duration // zero means no client timeout
	Transport http.RoundTripper
}

// Downloader fetches images and writes them into a destination folder.
type Downloader struct {
	config     Config
	fs         afero.Fs
	httpClient *http.Client
}

// New creates a new Downloader writing to fs.
func New(fs afero.Fs, config Config) *Downloader {
	return &Downloader{
		config: config,
		fs:     fs,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
	}
}

// Target names where a single image comes from and where it goes.
type Target struct {
	PageURL   string
	Reference string // raw src attribute value
	URL       string // resolved image URL
	Site      string
	Dir       string
}

// Path returns the file the image referenced by t is written to.
func (t Target) Path() string {
	return filepath.Join(t.Dir, LocalName(t.Reference))
}

// Download fetches t.URL and writes the whole body to t.Path(), truncating
// any existing file. It returns the saved image record and its bytes.
func (d *Downloader) Download(ctx context.Context, t Target) (*models.Image, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return nil, nil, failure.New(failure.KindParse, "build image request", t.URL, err)
	}
	if d.config.UserAgent != "" {
		req.Header.Set("User-Agent", d.config.UserAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, nil, failure.New(failure.KindNetwork, "fetch image", t.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, failure.New(failure.KindNetwork, "fetch image", t.URL, fmt.Errorf("invalid status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, failure.New(failure.KindDecode, "read image body", t.URL, err)
	}

	path := t.Path()
	if err := afero.WriteFile(d.fs, path, data, 0o644); err != nil {
		return nil, nil, failure.New(failure.KindFilesystem, "write image", path, err)
	}

	slog.Debug("saved image", "url", t.URL, "path", path, "size", len(data))

	return &models.Image{
		ID:          models.GenerateImageID(t.PageURL, t.URL),
		PageURL:     t.PageURL,
		Reference:   t.Reference,
		URL:         t.URL,
		Site:        t.Site,
		Filename:    filepath.Base(path),
		Path:        path,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		HarvestedAt: time.Now(),
	}, data, nil
}
