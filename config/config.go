package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loggate/loggate/core"
)

// Duration wraps time.Duration so YAML values can be written in the
// familiar "500ms" / "2s" form.
type Duration time.Duration

// Std returns the value as a plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("%w: duration must be a string like \"2s\"", core.ErrInvalidArgument)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: invalid duration %q", core.ErrInvalidArgument, s)
	}
	*d = Duration(parsed)
	return nil
}

// CategoryConfig overrides the level and template of one category. Empty
// fields leave the corresponding default in place.
type CategoryConfig struct {
	Level    string `yaml:"level,omitempty"`
	Template string `yaml:"template,omitempty"`
}

// BatchConfig carries the settings shared by every batching network sink.
type BatchConfig struct {
	BatchSize     int      `yaml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval"`
	MinLevel      string   `yaml:"min_level,omitempty"`
}

// ConsoleConfig configures the console sink.
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format,omitempty"` // "text" or "json"
}

// FileConfig configures the file sink.
type FileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
	Format  string `yaml:"format,omitempty"`
}

// HTTPConfig configures the generic HTTP sink.
type HTTPConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url,omitempty"`
	Token       string `yaml:"token,omitempty"`
	Gzip        bool   `yaml:"gzip,omitempty"`
	BatchConfig `yaml:",inline"`
}

// SeqConfig configures the Seq sink.
type SeqConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServerURL   string `yaml:"server_url,omitempty"`
	APIKey      string `yaml:"api_key,omitempty"`
	BatchConfig `yaml:",inline"`
}

// ElasticConfig configures the Elasticsearch sink.
type ElasticConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServerURL   string `yaml:"server_url,omitempty"`
	APIKey      string `yaml:"api_key,omitempty"`
	Index       string `yaml:"index,omitempty"`
	BatchConfig `yaml:",inline"`
}

// SentryConfig configures the Sentry sink.
type SentryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServerURL   string `yaml:"server_url,omitempty"`
	ProjectID   string `yaml:"project_id,omitempty"`
	Key         string `yaml:"key,omitempty"`
	BatchConfig `yaml:",inline"`
}

// Config is one immutable snapshot of the logging configuration. Load
// produces it and callers must not mutate a snapshot they received.
type Config struct {
	Version         int                       `yaml:"version"`
	DefaultLevel    string                    `yaml:"default_level"`
	DefaultTemplate string                    `yaml:"default_template,omitempty"`
	Categories      map[string]CategoryConfig `yaml:"categories,omitempty"`

	Console ConsoleConfig `yaml:"console"`
	File    FileConfig    `yaml:"file"`
	HTTP    HTTPConfig    `yaml:"http"`
	Seq     SeqConfig     `yaml:"seq"`
	Elastic ElasticConfig `yaml:"elastic"`
	Sentry  SentryConfig  `yaml:"sentry"`
}

// DefaultConfig returns the configuration used when a field is absent
// from the file: everything off except a text console at Info.
func DefaultConfig() *Config {
	return &Config{
		Version:      1,
		DefaultLevel: core.InfoLevel.String(),
		Console: ConsoleConfig{
			Enabled: true,
			Format:  "text",
		},
		HTTP:    HTTPConfig{BatchConfig: BatchConfig{BatchSize: 100, FlushInterval: Duration(2 * time.Second)}},
		Seq:     SeqConfig{BatchConfig: BatchConfig{BatchSize: 100, FlushInterval: Duration(2 * time.Second)}},
		Elastic: ElasticConfig{BatchConfig: BatchConfig{BatchSize: 100, FlushInterval: Duration(2 * time.Second)}},
		Sentry:  SentryConfig{BatchConfig: BatchConfig{BatchSize: 20, FlushInterval: Duration(5 * time.Second)}},
	}
}

// Parse decodes YAML on top of DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidArgument, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the snapshot and fails fast on the first problem.
func (c *Config) Validate() error {
	if _, err := core.ParseLevel(c.DefaultLevel); err != nil {
		return fmt.Errorf("default_level: %w", err)
	}
	for name, cat := range c.Categories {
		if name == "" {
			return fmt.Errorf("%w: empty category name", core.ErrInvalidArgument)
		}
		if cat.Level != "" {
			if _, err := core.ParseLevel(cat.Level); err != nil {
				return fmt.Errorf("categories[%s].level: %w", name, err)
			}
		}
	}
	if err := validFormat(c.Console.Format); err != nil {
		return fmt.Errorf("console.format: %w", err)
	}
	if c.File.Enabled {
		if c.File.Path == "" {
			return fmt.Errorf("%w: file.path is required", core.ErrInvalidArgument)
		}
		if err := validFormat(c.File.Format); err != nil {
			return fmt.Errorf("file.format: %w", err)
		}
	}
	if c.HTTP.Enabled {
		if c.HTTP.URL == "" {
			return fmt.Errorf("%w: http.url is required", core.ErrInvalidArgument)
		}
		if err := c.HTTP.BatchConfig.validate("http"); err != nil {
			return err
		}
	}
	if c.Seq.Enabled {
		if c.Seq.ServerURL == "" {
			return fmt.Errorf("%w: seq.server_url is required", core.ErrInvalidArgument)
		}
		if err := c.Seq.BatchConfig.validate("seq"); err != nil {
			return err
		}
	}
	if c.Elastic.Enabled {
		if c.Elastic.ServerURL == "" {
			return fmt.Errorf("%w: elastic.server_url is required", core.ErrInvalidArgument)
		}
		if err := c.Elastic.BatchConfig.validate("elastic"); err != nil {
			return err
		}
	}
	if c.Sentry.Enabled {
		if c.Sentry.ServerURL == "" || c.Sentry.ProjectID == "" {
			return fmt.Errorf("%w: sentry.server_url and sentry.project_id are required", core.ErrInvalidArgument)
		}
		if err := c.Sentry.BatchConfig.validate("sentry"); err != nil {
			return err
		}
	}
	return nil
}

func (b BatchConfig) validate(section string) error {
	if b.BatchSize <= 0 {
		return fmt.Errorf("%w: %s.batch_size must be positive", core.ErrInvalidArgument, section)
	}
	if b.FlushInterval <= 0 {
		return fmt.Errorf("%w: %s.flush_interval must be positive", core.ErrInvalidArgument, section)
	}
	if b.MinLevel != "" {
		if _, err := core.ParseLevel(b.MinLevel); err != nil {
			return fmt.Errorf("%s.min_level: %w", section, err)
		}
	}
	return nil
}

func validFormat(f string) error {
	switch f {
	case "", "text", "json":
		return nil
	}
	return fmt.Errorf("%w: format must be \"text\" or \"json\"", core.ErrInvalidArgument)
}
