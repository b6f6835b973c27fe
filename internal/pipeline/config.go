package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"marrowmap/internal/geometry"
)

// StorySpec configures one incorporation pass: which annotation story to
// load, the label its synthetic cells receive, and the centroid policy.
type StorySpec struct {
	Story  string `yaml:"story"`
	Label  string `yaml:"label"`
	Policy string `yaml:"policy"`
}

// PushSpec configures the metadata column pushed after incorporation.
type PushSpec struct {
	Column      string `yaml:"column"`
	DType       string `yaml:"dtype"`
	CellIDField string `yaml:"cell_id_field"`
	Description string `yaml:"description"`
}

// Config is the YAML run configuration for one pipeline execution.
type Config struct {
	Dataset          string            `yaml:"dataset"`
	AnnotationColumn string            `yaml:"annotation_column"`
	Workers          int               `yaml:"workers"`
	Stories          []StorySpec       `yaml:"stories"`
	Relabel          map[string]string `yaml:"relabel"`
	Push             PushSpec          `yaml:"push"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates YAML configuration bytes, applying
// defaults for optional fields.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Dataset == "" {
		return Config{}, fmt.Errorf("config: dataset required")
	}
	if cfg.AnnotationColumn == "" {
		cfg.AnnotationColumn = "cell_type"
	}
	if cfg.Workers < 0 {
		return Config{}, fmt.Errorf("config: workers must be non-negative")
	}
	if len(cfg.Stories) == 0 {
		return Config{}, fmt.Errorf("config: at least one story required")
	}
	for i, s := range cfg.Stories {
		if s.Story == "" {
			return Config{}, fmt.Errorf("config: story %d: name required", i)
		}
		if s.Label == "" {
			return Config{}, fmt.Errorf("config: story %q: label required", s.Story)
		}
		if _, err := geometry.ParsePolicy(s.Policy); err != nil {
			return Config{}, fmt.Errorf("config: story %q: %w", s.Story, err)
		}
	}
	if cfg.Push.Column == "" {
		cfg.Push.Column = cfg.AnnotationColumn
	}
	if cfg.Push.DType == "" {
		cfg.Push.DType = "categorical"
	}
	if cfg.Push.CellIDField == "" {
		cfg.Push.CellIDField = "cell_id"
	}
	return cfg, nil
}
