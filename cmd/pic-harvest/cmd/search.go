package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	searchLimit  int
	searchSite   string
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search harvested images",
	Long: `Search the image catalog by file name or reference.

Examples:
  # Basic search
  pic-harvest search logo

  # Restrict to one site folder
  pic-harvest search banner --site www --limit 5

  # JSON output for scripting
  pic-harvest search logo --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchSite, "site", "", "Only return images of this site folder")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]
	cfg := GetConfig()
	out := cmd.OutOrStdout()

	if searchFormat != "text" && searchFormat != "json" {
		return fmt.Errorf("unknown format %q", searchFormat)
	}
	cmd.SilenceUsage = true

	esClient, err := newCatalog(cfg)
	if err != nil {
		return err
	}
	if !esClient.Ping(ctx) {
		return fmt.Errorf("elasticsearch is not reachable at %v", cfg.Elasticsearch.Addresses)
	}

	images, err := esClient.Search(ctx, query, searchSite, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(images) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(images, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(images))
	for i, img := range images {
		fmt.Fprintf(out, "─── Result %d ───\n", i+1)
		fmt.Fprintf(out, "File:    %s\n", img.Filename)
		fmt.Fprintf(out, "Site:    %s\n", img.Site)
		fmt.Fprintf(out, "URL:     %s\n", img.URL)
		fmt.Fprintf(out, "Path:    %s\n", img.Path)
		fmt.Fprintf(out, "ID:      %s\n\n", img.ID)
	}

	return nil
}
