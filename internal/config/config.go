// Package config holds the immutable per-run options. All query dimensions
// are explicit optional fields, validated once at construction — never an
// untyped bag.
package config

import (
	"fmt"
	"os"
	"time"
)

// DefaultOutputDir is where artifacts land unless overridden.
const DefaultOutputDir = "Output/UnifiedAuditLog"

// Options is everything one extraction run needs. Populated from CLI flags
// with environment fallbacks, then treated as read-only.
type Options struct {
	SearchName string

	// Time window, as given; resolved by the window package.
	StartDate string
	EndDate   string

	// Query dimensions. Empty means no restriction.
	Keyword            string
	Service            string
	RecordTypes        []string
	Operations         []string
	UserPrincipalNames []string
	IPAddresses        []string
	ObjectIDs          []string

	// Output artifact.
	OutputDir string
	Format    string
	Encoding  string
	Gzip      bool

	// Poll tuning.
	SettleInterval time.Duration
	PollInterval   time.Duration
	MaxWait        time.Duration

	// Ambient.
	RunLogPath string
	LogLevel   string
	LogJSON    bool
	Endpoint   string
	Token      string
}

// Load returns Options pre-populated from the environment. Flag values are
// bound on top of these by the CLI.
func Load() Options {
	return Options{
		OutputDir:  getenv("M365_OUTPUT_DIR", DefaultOutputDir),
		Format:     getenv("M365_OUTPUT_FORMAT", "json"),
		Encoding:   getenv("M365_OUTPUT_ENCODING", "utf-8"),
		RunLogPath: os.Getenv("M365_RUN_LOG"),
		LogLevel:   getenv("M365_LOG_LEVEL", "info"),
		Endpoint:   os.Getenv("M365_GRAPH_ENDPOINT"),
		Token:      os.Getenv("M365_ACCESS_TOKEN"),
	}
}

// Validate checks the constraints that don't need parsing to detect.
func (o Options) Validate() error {
	if o.SearchName == "" {
		return fmt.Errorf("search name is required")
	}
	if o.Token == "" {
		return fmt.Errorf("no access token: set M365_ACCESS_TOKEN or --token")
	}
	if o.SettleInterval < 0 || o.PollInterval < 0 || o.MaxWait < 0 {
		return fmt.Errorf("poll intervals must not be negative")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
