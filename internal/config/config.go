package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Failure policies for image downloads.
const (
	PolicyFailFast = "fail-fast"
	PolicyContinue = "continue"
)

// Config holds all application configuration.
type Config struct {
	Harvest       Harvest       `mapstructure:"harvest"`
	Log           Log           `mapstructure:"log"`
	Storage       Storage       `mapstructure:"storage"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Harvest holds page fetching and image download configuration.
type Harvest struct {
	// DocumentsDir overrides the platform documents directory lookup.
	DocumentsDir string        `mapstructure:"documents_dir"`
	RootFolder   string        `mapstructure:"root_folder" validate:"required,excludesall=/\\"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gte=0"`
	UserAgent    string        `mapstructure:"user_agent"`
	Policy       string        `mapstructure:"policy" validate:"oneof=fail-fast continue"`
	Concurrency  int           `mapstructure:"concurrency" validate:"gte=1,lte=64"`
	ResolveMode  string        `mapstructure:"resolve_mode" validate:"oneof=literal standard"`
	SiteName     string        `mapstructure:"site_name" validate:"oneof=first-label registrable"`
}

// Log holds logging configuration.
type Log struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
}

// Storage holds S3/MinIO mirror configuration.
type Storage struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Bucket          string `mapstructure:"bucket" validate:"required_if=Enabled true"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Elasticsearch holds image catalog connection configuration.
type Elasticsearch struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses" validate:"required_if=Enabled true"`
	Index     string   `mapstructure:"index" validate:"required"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Harvest: Harvest{
			DocumentsDir: "", // Resolved from the platform user dirs
			RootFolder:   "PicHarvest",
			Timeout:      0, // HTTP client default
			UserAgent:    "",
			Policy:       PolicyFailFast,
			Concurrency:  1,
			ResolveMode:  "literal",
			SiteName:     "first-label",
		},
		Log: Log{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Storage: Storage{
			Enabled:         false, // Mirror is opt-in
			Endpoint:        "localhost:9000",
			Bucket:          "pic-harvest",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Elasticsearch: Elasticsearch{
			Enabled:   false, // Catalog is opt-in
			Addresses: []string{"http://localhost:9200"},
			Index:     "pic-harvest-images",
		},
		MCP: MCP{
			Name:    "pic-harvest",
			Version: "1.0.0",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for values the harvester cannot run with.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
