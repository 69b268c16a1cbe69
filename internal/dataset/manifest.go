package dataset

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest lists the inputs for a dataset build.
type Manifest struct {
	Shapefiles []string      `yaml:"shapefiles"`
	Stats      []StatsSource `yaml:"stats"`
}

// LoadManifest reads and validates a YAML manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse manifest %s", path)
	}

	if len(m.Shapefiles) == 0 {
		return nil, eris.New("dataset: manifest lists no shapefiles")
	}
	for _, s := range m.Stats {
		if s.KeyColumn == "" || s.ValueColumn == "" {
			return nil, eris.Errorf("dataset: stats source %s needs key_column and value_column", s.Path)
		}
	}

	return &m, nil
}
