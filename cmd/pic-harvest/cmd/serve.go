package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/pic-harvest/internal/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server for harvesting and image lookup.

The server communicates via stdio and provides these tools:
  - harvest_page: Download every image of a page
  - search_images: Search cataloged images (catalog enabled only)
  - get_image: Get a cataloged image by ID (catalog enabled only)

Example:
  pic-harvest serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	cmd.SilenceUsage = true

	// Stdout carries the protocol, progress goes to stderr
	r, err := newRunner(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var imageCatalog mcp.ImageCatalog
	if r.catalog != nil {
		imageCatalog = r.catalog
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, r, imageCatalog)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
