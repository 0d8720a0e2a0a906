package category

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// fileCategory is the YAML shape of one category in a category file.
type fileCategory struct {
	Name     string   `yaml:"name"`
	Weight   float64  `yaml:"weight"`
	MinCount int      `yaml:"min_count"`
	Tags     []string `yaml:"tags"`
}

type categoryFile struct {
	Categories []fileCategory `yaml:"categories"`
}

// LoadFile reads category configs from a YAML file. Tag rules are parsed
// here; a malformed rule fails the whole load.
func LoadFile(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "category: read %s", path)
	}

	var f categoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "category: parse %s", path)
	}
	if len(f.Categories) == 0 {
		return nil, eris.Errorf("category: %s defines no categories", path)
	}

	configs := make([]Config, 0, len(f.Categories))
	for _, fc := range f.Categories {
		rules := make([]TagRule, 0, len(fc.Tags))
		for _, tag := range fc.Tags {
			rule, err := ParseTagRule(tag)
			if err != nil {
				return nil, eris.Wrapf(err, "category: %s", fc.Name)
			}
			rules = append(rules, rule)
		}
		cfg := Config{
			Name:     fc.Name,
			Weight:   fc.Weight,
			MinCount: fc.MinCount,
			Rules:    rules,
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
