package downloader

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mfenderov/pic-harvest/internal/failure"
	"github.com/spf13/afero"
)

func TestDownloader_SavesImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("PNGDATA"))
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	d := New(fs, Config{})

	target := Target{
		PageURL:   server.URL,
		Reference: "img/a b.png",
		URL:       server.URL + "/img/a b.png",
		Site:      "127",
		Dir:       "/docs/PicHarvest/127",
	}
	if err := fs.MkdirAll(target.Dir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	img, data, err := d.Download(t.Context(), target)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	wantPath := filepath.Join(target.Dir, "a_b.png")
	if img.Path != wantPath {
		t.Errorf("Path = %q, want %q", img.Path, wantPath)
	}
	if img.Filename != "a_b.png" {
		t.Errorf("Filename = %q, want %q", img.Filename, "a_b.png")
	}
	if img.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", img.ContentType)
	}
	if img.Size != 7 || string(data) != "PNGDATA" {
		t.Errorf("Size = %d, data = %q", img.Size, data)
	}
	if img.ID == "" {
		t.Error("ID should not be empty")
	}

	saved, err := afero.ReadFile(fs, wantPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(saved) != "PNGDATA" {
		t.Errorf("saved content = %q, want %q", saved, "PNGDATA")
	}
}

func TestDownloader_OverwritesExistingFile(t *testing.T) {
	body := "first"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	fs.MkdirAll("/out", 0o755)
	d := New(fs, Config{})

	target := Target{Reference: "cat.png", URL: server.URL + "/cat.png", Dir: "/out"}
	if _, _, err := d.Download(t.Context(), target); err != nil {
		t.Fatalf("first Download() error = %v", err)
	}

	body = "2nd"
	if _, _, err := d.Download(t.Context(), target); err != nil {
		t.Fatalf("second Download() error = %v", err)
	}

	saved, _ := afero.ReadFile(fs, "/out/cat.png")
	if string(saved) != "2nd" {
		t.Errorf("saved content = %q, want the second body truncated in place", saved)
	}
}

func TestDownloader_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("data"))
	}))
	defer server.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name     string
		fs       afero.Fs
		url      string
		wantKind failure.Kind
	}{
		{"not found status", afero.NewMemMapFs(), server.URL + "/missing.png", failure.KindNetwork},
		{"unreachable host", afero.NewMemMapFs(), closedURL + "/x.png", failure.KindNetwork},
		{"invalid url", afero.NewMemMapFs(), "http://[::1/x.png", failure.KindParse},
		{"read only filesystem", afero.NewReadOnlyFs(afero.NewMemMapFs()), server.URL + "/ok.png", failure.KindFilesystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.fs, Config{})
			_, _, err := d.Download(t.Context(), Target{Reference: "x.png", URL: tt.url, Dir: "/out"})
			if err == nil {
				t.Fatal("Download() should fail")
			}
			if got := failure.KindOf(err); got != tt.wantKind {
				t.Errorf("error kind = %q, want %q (err: %v)", got, tt.wantKind, err)
			}
		})
	}
}

func TestDownloader_SetsUserAgent(t *testing.T) {
	var receivedUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		w.Write([]byte("x"))
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	fs.MkdirAll("/out", 0o755)

	d := New(fs, Config{UserAgent: "pic-harvest/1.0"})
	if _, _, err := d.Download(t.Context(), Target{Reference: "x.png", URL: server.URL, Dir: "/out"}); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if receivedUA != "pic-harvest/1.0" {
		t.Errorf("User-Agent = %q, want %q", receivedUA, "pic-harvest/1.0")
	}
}
