package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tunogya/motif/pkg/data"
	"github.com/tunogya/motif/pkg/metric"
	"github.com/tunogya/motif/pkg/rerank"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds search configuration
type Config struct {
	// Input roots
	SampleDir string `yaml:"sample_dir"`
	DataDir   string `yaml:"data_dir"`
	Extension string `yaml:"extension"`

	// Matching
	Metric  metric.Config `yaml:"metric"`
	TopK    int           `yaml:"top_k"`
	Workers int           `yaml:"workers"`

	// Forward statistics after each match; no horizons disables them
	Outcome OutcomeConfig `yaml:"outcome"`

	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// OutputConfig selects reporting sinks. Empty values disable a sink.
type OutputConfig struct {
	Text     bool         `yaml:"text"`      // human-readable report on stdout
	EigenDir string       `yaml:"eigen_dir"` // per-match eigenvalue files
	DuckDB   string       `yaml:"duckdb"`    // flat dump of runs and matches
	Milvus   MilvusConfig `yaml:"milvus"`
	NATS     NATSConfig   `yaml:"nats"`
}

// MilvusConfig holds descriptor sink settings
type MilvusConfig struct {
	Address          string `yaml:"address"`
	CollectionPrefix string `yaml:"collection_prefix"`
}

// DefaultReportMaxAge is how long the report stream keeps messages
const DefaultReportMaxAge = 7 * 24 * time.Hour

// NATSConfig holds report publisher settings
type NATSConfig struct {
	URL        string        `yaml:"url"`
	Stream     string        `yaml:"stream"`
	Retention  string        `yaml:"retention"`   // limits|interest|workqueue
	MaxAge     time.Duration `yaml:"max_age"`     // e.g. "168h"
	MaxDeliver int           `yaml:"max_deliver"` // writer redeliveries before giving up
}

// OutcomeConfig holds forward horizons, in observations
type OutcomeConfig struct {
	Horizons []int `yaml:"horizons"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // console|json
}

// MetricsConfig holds Prometheus endpoint settings
type MetricsConfig struct {
	Addr string `yaml:"addr"` // e.g. ":9090"; empty disables the endpoint
}

// Default returns a Config with sensible defaults
func Default() Config {
	return Config{
		SampleDir: "data/sample",
		DataDir:   "data/close",
		Extension: data.DefaultExtension,
		Metric:    metric.DefaultConfig(),
		TopK:      rerank.DefaultTopK,
		Workers:   4,
		Output: OutputConfig{
			Text: true,
			Milvus: MilvusConfig{
				CollectionPrefix: "motif_descriptors",
			},
			NATS: NATSConfig{
				Stream:     "motif",
				Retention:  "limits",
				MaxAge:     DefaultReportMaxAge,
				MaxDeliver: 3,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration. The returned error wraps ErrInvalid
// and every underlying problem, including named metric errors.
func (c Config) Validate() error {
	var problems []error

	if c.SampleDir == "" {
		problems = append(problems, errors.New("sample_dir is required"))
	}
	if c.DataDir == "" {
		problems = append(problems, errors.New("data_dir is required"))
	}
	if c.TopK < 0 {
		problems = append(problems, fmt.Errorf("top_k must be >= 0, got %d", c.TopK))
	}
	if c.Workers < 1 {
		problems = append(problems, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	for _, h := range c.Outcome.Horizons {
		if h <= 0 {
			problems = append(problems, fmt.Errorf("outcome horizons must be > 0, got %d", h))
			break
		}
	}
	if err := c.Metric.Validate(); err != nil {
		problems = append(problems, fmt.Errorf("metric: %w", err))
	}
	switch strings.ToLower(c.Output.NATS.Retention) {
	case "", "limits", "interest", "workqueue":
	default:
		problems = append(problems, fmt.Errorf("output.nats.retention must be limits, interest or workqueue, got %q", c.Output.NATS.Retention))
	}
	if c.Output.NATS.MaxAge < 0 || c.Output.NATS.MaxDeliver < 0 {
		problems = append(problems, errors.New("output.nats max_age and max_deliver must be >= 0"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, problemList(problems))
	}
	return nil
}

// problemList reports several validation failures on one line
type problemList []error

func (p problemList) Error() string {
	msgs := make([]string, len(p))
	for i, err := range p {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (p problemList) Unwrap() []error {
	return p
}
