package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/pic-harvest/internal/archive"
	"github.com/mfenderov/pic-harvest/internal/destination"
	"github.com/mfenderov/pic-harvest/internal/storage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <prefix>",
	Short: "Restore a mirrored harvest into the local folder",
	Long: `Download the images of a mirrored harvest run from S3 back into
<documents>/PicHarvest/<site>/.

The prefix is printed after a harvest with --mirror.

Example:
  pic-harvest restore harvests/www/2024-12-04T17-30-00-abc12345`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().StringVar(&destDir, "dest", "", "Documents directory (default is the user documents folder)")
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prefix := args[0]
	cfg := GetConfig()
	if cmd.Flags().Changed("dest") {
		cfg.Harvest.DocumentsDir = destDir
	}
	cmd.SilenceUsage = true
	out := cmd.OutOrStdout()

	storageClient, err := storage.New(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	fs := afero.NewOsFs()
	deriver, err := destination.New(fs, destination.Config{
		DocumentsDir: cfg.Harvest.DocumentsDir,
		RootFolder:   cfg.Harvest.RootFolder,
		SiteName:     destination.SiteNameMode(cfg.Harvest.SiteName),
	})
	if err != nil {
		return err
	}

	slog.Debug("restore command starting", "bucket", storageClient.Bucket(), "prefix", prefix)
	fmt.Fprintf(out, "Restoring %s/%s\n", storageClient.Bucket(), prefix)

	result, err := archive.Restore(ctx, storageClient, fs, deriver, prefix)
	if result != nil {
		for _, path := range result.Restored {
			fmt.Fprintf(out, "image_path: %s\n", path)
		}
		for _, name := range result.Missing {
			fmt.Fprintf(out, "  Warning: %s is listed in the manifest but not mirrored\n", name)
		}
		fmt.Fprintf(out, "\nTotal: %d images restored from %s into %s\n", len(result.Restored), result.PageURL, result.Dir)
	}
	return err
}
