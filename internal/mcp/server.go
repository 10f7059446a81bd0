package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mfenderov/pic-harvest/internal/harvest"
	"github.com/mfenderov/pic-harvest/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Harvester runs a harvest for a page.
type Harvester interface {
	Run(ctx context.Context, pageURL string) (*harvest.Report, error)
}

// ImageCatalog looks up harvested images.
type ImageCatalog interface {
	Search(ctx context.Context, query, site string, limit int) ([]models.Image, error)
	GetImage(ctx context.Context, id string) (*models.Image, error)
}

// Server wraps the MCP server with harvest and catalog tools.
type Server struct {
	mcpServer *server.MCPServer
	harvester Harvester
	catalog   ImageCatalog // nil if catalog disabled
}

// NewServer creates a new MCP server. Catalog tools are only registered when
// catalog is not nil.
func NewServer(config Config, harvester Harvester, catalog ImageCatalog) (*Server, error) {
	if harvester == nil {
		return nil, fmt.Errorf("harvester is required")
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		harvester: harvester,
		catalog:   catalog,
	}

	harvestTool := mcp.NewTool("harvest_page",
		mcp.WithDescription("Download every <img> of a web page into the local PicHarvest folder. Returns a JSON report of saved and failed images."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute URL of the page to harvest"),
		),
	)
	mcpServer.AddTool(harvestTool, s.harvestHandler)

	if catalog == nil {
		return s, nil
	}

	searchTool := mcp.NewTool("search_images",
		mcp.WithDescription("Search harvested images by file name or reference."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithString("site",
			mcp.Description("Restrict results to one site folder"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	getImageTool := mcp.NewTool("get_image",
		mcp.WithDescription("Get a harvested image record by ID"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Image ID to retrieve"),
		),
	)
	mcpServer.AddTool(getImageTool, s.getImageHandler)

	return s, nil
}

// harvestReport is the JSON shape returned by harvest_page.
type harvestReport struct {
	PageURL string         `json:"page_url"`
	Site    string         `json:"site"`
	Dir     string         `json:"dir"`
	Saved   int            `json:"saved"`
	Failed  int            `json:"failed"`
	Images  []harvestImage `json:"images"`
	Error   string         `json:"error,omitempty"`
}

type harvestImage struct {
	Reference string `json:"reference"`
	URL       string `json:"url,omitempty"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

// harvestHandler handles the harvest_page tool call.
func (s *Server) harvestHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	report, runErr := s.harvester.Run(ctx, pageURL)
	out := newHarvestReport(report, runErr)

	result, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal report: %v", err)), nil
	}

	if runErr != nil {
		return mcp.NewToolResultError(string(result)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

func newHarvestReport(report *harvest.Report, runErr error) harvestReport {
	out := harvestReport{Images: []harvestImage{}}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	if report == nil {
		return out
	}

	out.PageURL = report.PageURL
	out.Site = report.Site
	out.Dir = report.Dir
	out.Saved = report.Saved
	out.Failed = report.Failed
	for _, img := range report.Images {
		entry := harvestImage{Reference: img.Reference, URL: img.URL}
		if img.Image != nil {
			entry.Path = img.Image.Path
		}
		if img.Err != nil {
			entry.Error = img.Err.Error()
		}
		out.Images = append(out.Images, entry)
	}
	return out
}

// searchHandler handles the search_images tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	site := req.GetString("site", "")
	limit := req.GetInt("limit", 10)

	images, err := s.handleSearch(ctx, query, site, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	result, err := json.Marshal(images)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// getImageHandler handles the get_image tool call.
func (s *Server) getImageHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	img, err := s.catalog.GetImage(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get image failed: %v", err)), nil
	}

	if img == nil {
		return mcp.NewToolResultError(fmt.Sprintf("image not found: %s", id)), nil
	}

	result, err := json.Marshal(img)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal image: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// handleSearch searches for images matching the query.
func (s *Server) handleSearch(ctx context.Context, query, site string, limit int) ([]models.Image, error) {
	return s.catalog.Search(ctx, query, site, limit)
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
