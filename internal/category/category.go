// Package category holds the service-category registry: per-category
// weights, adequacy thresholds, and the OSM tag rules used to classify
// raw map elements.
package category

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Wildcard matches any value for a rule's key.
const Wildcard = "*"

// ErrUnknownCategory is returned by Registry.Lookup for names that are
// not registered. Callers treat it as "no contribution", not a failure.
var ErrUnknownCategory = eris.New("category: unknown category")

// TagRule is a single key=value predicate against an element's tag set.
// A Value of "*" matches any value as long as the key is present.
type TagRule struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ParseTagRule parses a "key=value" rule string. Parsing happens once at
// registry load so per-element matching never splits strings.
func ParseTagRule(s string) (TagRule, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return TagRule{}, eris.Errorf("category: tag rule %q has no '='", s)
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return TagRule{}, eris.Errorf("category: tag rule %q has empty key", s)
	}
	if value == "" {
		return TagRule{}, eris.Errorf("category: tag rule %q has empty value", s)
	}
	return TagRule{Key: key, Value: value}, nil
}

// Matches reports whether the rule holds for the given tag set.
func (r TagRule) Matches(tags map[string]string) bool {
	v, ok := tags[r.Key]
	if !ok {
		return false
	}
	return r.Value == Wildcard || v == r.Value
}

// String renders the rule back to its key=value form.
func (r TagRule) String() string {
	return r.Key + "=" + r.Value
}

// Config describes one service category.
type Config struct {
	// Name is the unique category key (e.g. "grocery").
	Name string `json:"name"`
	// Weight is the category's share of the composite score. Weights are
	// expected to sum to ~1.0 across the active set but that is not
	// enforced; the composite divides by the actual weight sum.
	Weight float64 `json:"weight"`
	// MinCount is the count considered adequate coverage. Must be > 0.
	MinCount int `json:"min_count"`
	// Rules are tested in declared order against element tags.
	Rules []TagRule `json:"rules"`
}

// Validate checks a single category config. Violations are configuration
// errors and fail at load time, never per analysis.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return eris.New("category: empty name")
	}
	if c.Weight < 0 {
		return eris.Errorf("category: %s has negative weight %v", c.Name, c.Weight)
	}
	if c.MinCount <= 0 {
		return eris.Errorf("category: %s has non-positive min_count %d", c.Name, c.MinCount)
	}
	if len(c.Rules) == 0 {
		return eris.Errorf("category: %s has no tag rules", c.Name)
	}
	return nil
}

// Registry is the read-only set of configured categories.
type Registry struct {
	byName map[string]Config
	order  []string
}

// NewRegistry builds a registry from the given configs, validating each.
// Duplicate names are a configuration error.
func NewRegistry(configs []Config) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Config, len(configs)),
		order:  make([]string, 0, len(configs)),
	}
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, eris.Errorf("category: duplicate category %s", c.Name)
		}
		r.byName[c.Name] = c
		r.order = append(r.order, c.Name)
	}
	return r, nil
}

// Lookup returns the config for name, or ErrUnknownCategory.
func (r *Registry) Lookup(name string) (Config, error) {
	c, ok := r.byName[name]
	if !ok {
		return Config{}, eris.Wrapf(ErrUnknownCategory, "category: %s", name)
	}
	return c, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names returns all registered category names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered categories.
func (r *Registry) Len() int { return len(r.order) }

// mustRules parses rule strings for the built-in defaults.
func mustRules(rules ...string) []TagRule {
	out := make([]TagRule, 0, len(rules))
	for _, s := range rules {
		r, err := ParseTagRule(s)
		if err != nil {
			panic(err)
		}
		out = append(out, r)
	}
	return out
}

// Defaults returns the built-in six-category configuration. Weights sum
// to 1.0.
func Defaults() []Config {
	return []Config{
		{Name: "grocery", Weight: 0.25, MinCount: 1, Rules: mustRules(
			"shop=supermarket", "shop=convenience", "shop=grocery",
		)},
		{Name: "pharmacy", Weight: 0.20, MinCount: 1, Rules: mustRules(
			"amenity=pharmacy",
		)},
		{Name: "doctor", Weight: 0.20, MinCount: 1, Rules: mustRules(
			"amenity=doctors", "amenity=clinic", "amenity=hospital", "healthcare=doctor",
		)},
		{Name: "school", Weight: 0.15, MinCount: 1, Rules: mustRules(
			"amenity=school", "amenity=kindergarten",
		)},
		{Name: "restaurant", Weight: 0.10, MinCount: 2, Rules: mustRules(
			"amenity=restaurant", "amenity=fast_food", "amenity=cafe",
		)},
		{Name: "bank", Weight: 0.10, MinCount: 1, Rules: mustRules(
			"amenity=bank", "amenity=atm",
		)},
	}
}

// Extended returns optional categories that can be appended to the
// defaults for a wider analysis.
func Extended() []Config {
	return []Config{
		{Name: "transit", Weight: 0.15, MinCount: 2, Rules: mustRules(
			"highway=bus_stop", "railway=station", "public_transport=platform",
		)},
		{Name: "playground", Weight: 0.05, MinCount: 1, Rules: mustRules(
			"leisure=playground",
		)},
		{Name: "park", Weight: 0.05, MinCount: 1, Rules: mustRules(
			"leisure=park",
		)},
		{Name: "bakery", Weight: 0.05, MinCount: 1, Rules: mustRules(
			"shop=bakery",
		)},
		{Name: "post", Weight: 0.05, MinCount: 1, Rules: mustRules(
			"amenity=post_office",
		)},
		{Name: "fuel", Weight: 0.05, MinCount: 1, Rules: mustRules(
			"amenity=fuel",
		)},
	}
}

// DefaultNames returns the names of the built-in six categories in
// declaration order.
func DefaultNames() []string {
	defaults := Defaults()
	names := make([]string, len(defaults))
	for i, c := range defaults {
		names[i] = c.Name
	}
	return names
}
