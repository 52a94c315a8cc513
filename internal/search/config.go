package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Mode selects how a logical index is queried.
type Mode string

const (
	ModeFullText Mode = "fulltext"
	ModeVector   Mode = "vector"
	ModeHybrid   Mode = "hybrid"
)

// Descriptor is one logical index's configuration, the Go analog of an
// entry in the original's search_configuration.json.
type Descriptor struct {
	// IndexNameSetting names an environment variable holding the backend's
	// real index/collection/table identifier, indirected the way the
	// original resolves its Azure Cognitive Search index names.
	IndexNameSetting string   `yaml:"index_name_setting"`
	SearchType       Mode     `yaml:"search_type"`
	SearchFields     []string `yaml:"search_fields"`
	SelectFields     []string `yaml:"select_fields"`
	VectorField      string   `yaml:"vector_field"`
	K                int      `yaml:"k_nearest_neighbors"`
	Top              int      `yaml:"top"`
	Threshold        float64  `yaml:"threshold"`
	VectorDimension  int      `yaml:"vector_dimension"`
}

// DescriptorFile is the on-disk shape: logical index name -> Descriptor.
type DescriptorFile map[string]Descriptor

// LoadDescriptors reads and parses the YAML index-descriptor file named by
// path. An empty path is not an error; callers fall back to hardcoded
// defaults for the well-known logical indexes.
func LoadDescriptors(path string) (DescriptorFile, error) {
	if path == "" {
		return DescriptorFile{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read search config %s: %w", path, err)
	}
	var df DescriptorFile
	if err := yaml.Unmarshal(b, &df); err != nil {
		return nil, fmt.Errorf("parse search config %s: %w", path, err)
	}
	for name, d := range df {
		if d.Top <= 0 {
			d.Top = 5
		}
		if d.K <= 0 {
			d.K = d.Top
		}
		if d.SearchType == "" {
			d.SearchType = ModeFullText
		}
		df[name] = d
	}
	return df, nil
}
