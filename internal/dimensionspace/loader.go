package dimensionspace

import (
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/contentgraph/internal/log"
)

// Config is the declarative dimension configuration. Dimensions are listed
// in priority order.
type Config struct {
	Dimensions []DimensionConfig `yaml:"dimensions" mapstructure:"dimensions"`
}

// ParseConfig decodes a YAML dimension configuration.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse dimension config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads and decodes a YAML dimension configuration from fsys.
func LoadConfig(fsys fs.FS, name string) (Config, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Config{}, fmt.Errorf("read dimension config %s: %w", name, err)
	}
	return ParseConfig(data)
}

// Build validates the configuration and constructs the variation graph.
func (c Config) Build() (*VariationGraph, error) {
	dims := make([]*Dimension, 0, len(c.Dimensions))
	for _, dc := range c.Dimensions {
		d, err := NewDimension(dc)
		if err != nil {
			log.ErrorErr(log.CatDimension, "invalid dimension", err, "dimension", dc.Name)
			return nil, err
		}
		dims = append(dims, d)
	}
	g, err := NewVariationGraph(dims...)
	if err != nil {
		log.ErrorErr(log.CatDimension, "invalid variation graph", err)
		return nil, err
	}
	log.Debug(log.CatDimension, "variation graph built",
		"dimensions", len(dims),
		"points", g.Points().Len(),
	)
	return g, nil
}
