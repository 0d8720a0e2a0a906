// Package classify assigns a raw map element to a single service
// category based on its tag set.
package classify

import (
	"github.com/urbanmetric/walkability-cli/internal/category"
)

// Match is the outcome of classifying a tag set.
type Match struct {
	// Category is the name of the winning category.
	Category string
	// Rule is the tag rule that matched.
	Rule category.TagRule
	// Tag is the concrete key=value pair observed on the element (the
	// rule key with the element's actual value, which may differ from
	// the rule value for wildcard rules).
	Tag string
}

// First returns the first category, in the caller-supplied order, for
// which any of its rules matches the tag set. An element that satisfies
// several categories (a combined pharmacy and clinic, say) is
// attributed to exactly one so that per-category counts stay
// non-overlapping and additive; the caller controls the tie-break by
// ordering the slice.
func First(tags map[string]string, ordered []category.Config) (Match, bool) {
	if len(tags) == 0 {
		return Match{}, false
	}
	for _, cat := range ordered {
		for _, rule := range cat.Rules {
			if rule.Matches(tags) {
				return Match{
					Category: cat.Name,
					Rule:     rule,
					Tag:      rule.Key + "=" + tags[rule.Key],
				}, true
			}
		}
	}
	return Match{}, false
}
