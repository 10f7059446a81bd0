package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mfenderov/pic-harvest/internal/config"
	"github.com/mfenderov/pic-harvest/internal/failure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfgFile   string
	verbose   bool
	cfg       config.Config
	configErr error

	policy      string
	concurrency int
	resolveMode string
	siteName    string
	destDir     string
	mirror      bool
	catalog     bool
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "pic-harvest <url>",
	Short: "Pic Harvest: download every image of a web page",
	Long: `Pic Harvest fetches one web page, finds every <img> element and downloads
the referenced images into <documents>/PicHarvest/<site>/.

Examples:
  # Harvest a page
  pic-harvest https://www.example.com

  # Keep going when an image fails, four downloads at a time
  pic-harvest https://www.example.com --policy continue --concurrency 4

  # Mirror to S3 and catalog in Elasticsearch as well
  pic-harvest https://www.example.com --mirror --catalog

Commands:
  search  Search harvested images in the catalog
  serve   Start the MCP server`,
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: checkConfig,
	RunE:              runHarvest,
	SilenceErrors:     true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.Flags().StringVar(&policy, "policy", config.PolicyFailFast, "Image failure policy: fail-fast or continue")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of concurrent image downloads")
	rootCmd.Flags().StringVar(&resolveMode, "resolve", "literal", "Image URL resolution: literal or standard")
	rootCmd.Flags().StringVar(&siteName, "site-name", "first-label", "Site folder naming: first-label or registrable")
	rootCmd.Flags().StringVar(&destDir, "dest", "", "Documents directory (default is the user documents folder)")
	rootCmd.Flags().BoolVar(&mirror, "mirror", false, "Mirror saved images to S3 storage")
	rootCmd.Flags().BoolVar(&catalog, "catalog", false, "Catalog saved images in Elasticsearch")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if cfg.Log.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		})
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/pic-harvest")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// PICHARVEST_HARVEST_POLICY -> harvest.policy
	viper.SetEnvPrefix("PICHARVEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("harvest.documents_dir", "PICHARVEST_HARVEST_DOCUMENTS_DIR")
	viper.BindEnv("harvest.timeout", "PICHARVEST_HARVEST_TIMEOUT")
	viper.BindEnv("harvest.user_agent", "PICHARVEST_HARVEST_USER_AGENT")
	viper.BindEnv("harvest.policy", "PICHARVEST_HARVEST_POLICY")
	viper.BindEnv("harvest.concurrency", "PICHARVEST_HARVEST_CONCURRENCY")
	viper.BindEnv("harvest.resolve_mode", "PICHARVEST_HARVEST_RESOLVE_MODE")
	viper.BindEnv("harvest.site_name", "PICHARVEST_HARVEST_SITE_NAME")
	viper.BindEnv("log.file", "PICHARVEST_LOG_FILE")
	viper.BindEnv("storage.enabled", "PICHARVEST_STORAGE_ENABLED")
	viper.BindEnv("storage.endpoint", "PICHARVEST_STORAGE_ENDPOINT")
	viper.BindEnv("storage.bucket", "PICHARVEST_STORAGE_BUCKET")
	viper.BindEnv("storage.access_key_id", "PICHARVEST_STORAGE_ACCESS_KEY_ID")
	viper.BindEnv("storage.secret_access_key", "PICHARVEST_STORAGE_SECRET_ACCESS_KEY")
	viper.BindEnv("elasticsearch.enabled", "PICHARVEST_ELASTICSEARCH_ENABLED")
	viper.BindEnv("elasticsearch.addresses", "PICHARVEST_ELASTICSEARCH_ADDRESSES")
	viper.BindEnv("elasticsearch.index", "PICHARVEST_ELASTICSEARCH_INDEX")
	viper.BindEnv("elasticsearch.username", "PICHARVEST_ELASTICSEARCH_USERNAME")
	viper.BindEnv("elasticsearch.password", "PICHARVEST_ELASTICSEARCH_PASSWORD")
	viper.BindEnv("mcp.name", "PICHARVEST_MCP_NAME")
	viper.BindEnv("mcp.version", "PICHARVEST_MCP_VERSION")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("PICHARVEST_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}

	configErr = cfg.Validate()
}

func checkConfig(cmd *cobra.Command, args []string) error {
	if configErr != nil {
		return failure.New(failure.KindUsage, "load configuration", cfgFile, configErr)
	}
	return nil
}

// applyFlags overrides the loaded configuration with flags set on the
// command line.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("policy") {
		c.Harvest.Policy = policy
	}
	if flags.Changed("concurrency") {
		c.Harvest.Concurrency = concurrency
	}
	if flags.Changed("resolve") {
		c.Harvest.ResolveMode = resolveMode
	}
	if flags.Changed("site-name") {
		c.Harvest.SiteName = siteName
	}
	if flags.Changed("dest") {
		c.Harvest.DocumentsDir = destDir
	}
	if flags.Changed("mirror") {
		c.Storage.Enabled = mirror
	}
	if flags.Changed("catalog") {
		c.Elasticsearch.Enabled = catalog
	}
}

func runHarvest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pageURL := args[0]
	cfg := GetConfig()
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return failure.New(failure.KindUsage, "apply flags", "", err)
	}

	// Arguments are valid past this point
	cmd.SilenceUsage = true

	out := cmd.OutOrStdout()
	slog.Debug("harvest command starting", "url", pageURL, "policy", cfg.Harvest.Policy, "concurrency", cfg.Harvest.Concurrency)

	fmt.Fprintln(out, "Starting Pic Harvest...")
	fmt.Fprintf(out, "Harvesting %s\n", pageURL)

	r, err := newRunner(ctx, cfg, out)
	if err != nil {
		return err
	}

	report, err := r.Run(ctx, pageURL)
	if report != nil {
		fmt.Fprintf(out, "\nTotal: %d images saved, %d failed in %v\n",
			report.Saved, report.Failed, report.Duration)
		for _, f := range report.Failures() {
			fmt.Fprintf(out, "  Failed: %s: %v\n", f.Reference, f.Err)
		}
	}
	return err
}
