// Package fixtures loads staged source batches from YAML for local runs.
package fixtures

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Fixtures holds one crawl batch and one registry batch
type Fixtures struct {
	Crawl    []models.CrawlRecord    `yaml:"crawl"`
	Registry []models.RegistryRecord `yaml:"registry"`
}

// Load reads a fixtures file
func Load(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return Parse(data)
}

// Parse decodes fixtures and rejects records without an id
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	for i, rec := range f.Crawl {
		if rec.ID == "" {
			return nil, fmt.Errorf("crawl[%d]: id is required", i)
		}
	}
	for i, rec := range f.Registry {
		if rec.ID == "" {
			return nil, fmt.Errorf("registry[%d]: id is required", i)
		}
	}
	return &f, nil
}
