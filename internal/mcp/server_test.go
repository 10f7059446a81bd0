package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mfenderov/pic-harvest/internal/harvest"
	"github.com/mfenderov/pic-harvest/pkg/models"
)

type fakeHarvester struct {
	report *harvest.Report
	err    error
	gotURL string
}

func (f *fakeHarvester) Run(_ context.Context, pageURL string) (*harvest.Report, error) {
	f.gotURL = pageURL
	return f.report, f.err
}

type fakeCatalog struct {
	images   map[string]models.Image
	gotQuery string
	gotSite  string
	gotLimit int
}

func (f *fakeCatalog) Search(_ context.Context, query, site string, limit int) ([]models.Image, error) {
	f.gotQuery, f.gotSite, f.gotLimit = query, site, limit
	var out []models.Image
	for _, img := range f.images {
		if strings.Contains(img.Filename, query) {
			out = append(out, img)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetImage(_ context.Context, id string) (*models.Image, error) {
	img, ok := f.images[id]
	if !ok {
		return nil, nil
	}
	return &img, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", res.Content[0])
	}
	return text.Text
}

func TestServer_Creation(t *testing.T) {
	s, err := NewServer(Config{Name: "test", Version: "1.0.0"}, &fakeHarvester{}, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if s.mcpServer == nil {
		t.Error("mcpServer is nil")
	}
}

func TestServer_RequiresHarvester(t *testing.T) {
	if _, err := NewServer(Config{Name: "test"}, nil, nil); err == nil {
		t.Error("NewServer() with nil harvester should return error")
	}
}

func TestHarvestHandler(t *testing.T) {
	h := &fakeHarvester{report: &harvest.Report{
		PageURL: "https://www.example.com",
		Site:    "www",
		Dir:     "/docs/PicHarvest/www",
		Saved:   1,
		Images: []harvest.ImageResult{{
			Reference: "a.png",
			URL:       "https://www.example.com/a.png",
			Image:     &models.Image{Path: "/docs/PicHarvest/www/a.png"},
		}},
	}}
	s, err := NewServer(Config{Name: "test"}, h, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	res, err := s.harvestHandler(t.Context(), callRequest(map[string]any{"url": "https://www.example.com"}))
	if err != nil {
		t.Fatalf("harvestHandler() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("harvestHandler() returned tool error: %s", resultText(t, res))
	}
	if h.gotURL != "https://www.example.com" {
		t.Errorf("harvester got url %q", h.gotURL)
	}

	var out harvestReport
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if out.Saved != 1 || len(out.Images) != 1 {
		t.Fatalf("report = %+v, want 1 saved image", out)
	}
	if out.Images[0].Path != "/docs/PicHarvest/www/a.png" {
		t.Errorf("image path = %q", out.Images[0].Path)
	}
}

func TestHarvestHandler_Failure(t *testing.T) {
	h := &fakeHarvester{
		report: &harvest.Report{PageURL: "https://www.example.com", Failed: 1},
		err:    errors.New("boom"),
	}
	s, _ := NewServer(Config{Name: "test"}, h, nil)

	res, err := s.harvestHandler(t.Context(), callRequest(map[string]any{"url": "https://www.example.com"}))
	if err != nil {
		t.Fatalf("harvestHandler() error = %v", err)
	}
	if !res.IsError {
		t.Fatal("harvestHandler() should return a tool error")
	}
	if !strings.Contains(resultText(t, res), "boom") {
		t.Errorf("error result = %q, want it to mention the cause", resultText(t, res))
	}
}

func TestHarvestHandler_MissingURL(t *testing.T) {
	s, _ := NewServer(Config{Name: "test"}, &fakeHarvester{}, nil)

	res, err := s.harvestHandler(t.Context(), callRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("harvestHandler() error = %v", err)
	}
	if !res.IsError {
		t.Error("harvestHandler() without url should return a tool error")
	}
}

func TestSearchHandler(t *testing.T) {
	catalog := &fakeCatalog{images: map[string]models.Image{
		"a": {ID: "a", Filename: "cat.png", Site: "www"},
		"b": {ID: "b", Filename: "dog.png", Site: "www"},
	}}
	s, _ := NewServer(Config{Name: "test"}, &fakeHarvester{}, catalog)

	res, err := s.searchHandler(t.Context(), callRequest(map[string]any{
		"query": "cat",
		"site":  "www",
		"limit": 5,
	}))
	if err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("searchHandler() returned tool error: %s", resultText(t, res))
	}
	if catalog.gotSite != "www" || catalog.gotLimit != 5 {
		t.Errorf("catalog got site=%q limit=%d", catalog.gotSite, catalog.gotLimit)
	}

	var images []models.Image
	if err := json.Unmarshal([]byte(resultText(t, res)), &images); err != nil {
		t.Fatalf("unmarshal results: %v", err)
	}
	if len(images) != 1 || images[0].ID != "a" {
		t.Errorf("results = %+v, want image a", images)
	}
}

func TestSearchHandler_DefaultLimit(t *testing.T) {
	catalog := &fakeCatalog{}
	s, _ := NewServer(Config{Name: "test"}, &fakeHarvester{}, catalog)

	if _, err := s.searchHandler(t.Context(), callRequest(map[string]any{"query": "x"})); err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}
	if catalog.gotLimit != 10 {
		t.Errorf("limit = %d, want 10", catalog.gotLimit)
	}
}

func TestGetImageHandler(t *testing.T) {
	catalog := &fakeCatalog{images: map[string]models.Image{
		"a": {ID: "a", Filename: "cat.png"},
	}}
	s, _ := NewServer(Config{Name: "test"}, &fakeHarvester{}, catalog)

	res, err := s.getImageHandler(t.Context(), callRequest(map[string]any{"id": "a"}))
	if err != nil {
		t.Fatalf("getImageHandler() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("getImageHandler() returned tool error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), `"filename":"cat.png"`) {
		t.Errorf("result = %q", resultText(t, res))
	}

	res, err = s.getImageHandler(t.Context(), callRequest(map[string]any{"id": "missing"}))
	if err != nil {
		t.Fatalf("getImageHandler() error = %v", err)
	}
	if !res.IsError {
		t.Error("getImageHandler() for unknown id should return a tool error")
	}
}
