package destination

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/mfenderov/pic-harvest/internal/failure"
	"github.com/spf13/afero"
	"golang.org/x/net/publicsuffix"
)

// SiteNameMode selects which host label names the site folder.
type SiteNameMode string

const (
	// FirstLabel uses the first dot-delimited label of the host.
	FirstLabel SiteNameMode = "first-label"
	// Registrable uses the first label of the registrable domain (eTLD+1).
	Registrable SiteNameMode = "registrable"
)

// ErrNoDocumentsDir is returned when the user documents directory is unknown.
var ErrNoDocumentsDir = errors.New("user documents directory could not be determined")

// Config holds destination path configuration.
type Config struct {
	DocumentsDir string // empty means platform lookup
	RootFolder   string // "PicHarvest"
	SiteName     SiteNameMode
}

// Destination is the per-run folder all images of a page are written to.
type Destination struct {
	Host string
	Site string
	Dir  string
}

// Deriver computes and creates destination folders.
type Deriver struct {
	fs     afero.Fs
	config Config
}

// New creates a Deriver writing to fs. The documents directory is looked up
// once here when the config does not carry one.
func New(fs afero.Fs, config Config) (*Deriver, error) {
	if config.RootFolder == "" {
		config.RootFolder = "PicHarvest"
	}
	switch config.SiteName {
	case "":
		config.SiteName = FirstLabel
	case FirstLabel, Registrable:
	default:
		return nil, fmt.Errorf("unknown site name mode %q", config.SiteName)
	}

	if config.DocumentsDir == "" {
		dir, err := DocumentsDir()
		if err != nil {
			return nil, err
		}
		config.DocumentsDir = dir
	}

	return &Deriver{fs: fs, config: config}, nil
}

// DocumentsDir returns the platform user documents directory.
func DocumentsDir() (string, error) {
	dir := xdg.UserDirs.Documents
	if dir == "" {
		return "", ErrNoDocumentsDir
	}
	return dir, nil
}

// Root returns <documents>/<root folder>.
func (d *Deriver) Root() string {
	return filepath.Join(d.config.DocumentsDir, d.config.RootFolder)
}

// Derive computes the destination for the page at rawURL.
func (d *Deriver) Derive(rawURL string) (*Destination, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, failure.New(failure.KindParse, "parse page url", rawURL, err)
	}

	host := u.Hostname()
	if host == "" {
		return nil, failure.New(failure.KindParse, "parse page url", rawURL, errors.New("URL does not have a host"))
	}

	site := d.SiteName(host)
	if site == "" {
		return nil, failure.New(failure.KindParse, "derive site name", rawURL, fmt.Errorf("host %q has an empty first label", host))
	}

	slog.Debug("derived destination", "host", host, "site", site)

	return &Destination{
		Host: host,
		Site: site,
		Dir:  filepath.Join(d.Root(), site),
	}, nil
}

// SiteName returns the folder name for host.
func (d *Deriver) SiteName(host string) string {
	if d.config.SiteName == Registrable && net.ParseIP(host) == nil {
		if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			return firstLabel(domain)
		}
		// single-label hosts have no registrable domain
	}
	return firstLabel(host)
}

// Ensure creates dir and its parents. Existing folders and their files are
// left untouched.
func (d *Deriver) Ensure(dir string) error {
	if err := d.fs.MkdirAll(dir, 0o755); err != nil {
		return failure.New(failure.KindFilesystem, "create destination folder", dir, err)
	}
	return nil
}

func firstLabel(host string) string {
	label, _, _ := strings.Cut(host, ".")
	return label
}
