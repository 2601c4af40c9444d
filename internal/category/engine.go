// Package category classifies transaction descriptions against a merged,
// priority-ordered rule set assembled from three sources: persisted
// per-user rules, user-customized keyword lists, and built-in defaults.
package category

import (
	"sort"
	"strings"

	"github.com/ledgerkit/statement-ingest/internal/models"
)

// RuleSource identifies where a rule in the merged set came from.
type RuleSource int

const (
	SourceUser    RuleSource = iota // persisted per-user rule, priority 1-99
	SourceCustom                    // user-customized keyword, band 200
	SourceDefault                   // unmodified built-in keyword, band 1000
)

// Priority bands per source. User rules keep their stored priority;
// the merge order is: user rules, then customized keywords, then defaults.
//
//	source   | band
//	---------+------
//	user     | 1-99 (as stored)
//	custom   | 200
//	default  | 1000
const (
	bandCustom  = 200
	bandDefault = 1000
)

// Rule is one entry in the merged rule set.
type Rule struct {
	Pattern  string
	Category string
	Priority int
	Source   RuleSource
	seq      int // original source order, breaks priority ties
}

// RuleSet is a read-only snapshot of the merged rules, taken at
// classification time. Classification over a snapshot is a pure function
// of the description, so re-classifying after a rule edit can change the
// result.
type RuleSet struct {
	rules []Rule
}

// Assemble merges the three rule sources into one priority-ordered set.
//
// userRules are persisted per-user rules; disabled rules are excluded and
// priorities are taken as stored. keywords is the persisted per-category
// keyword map; a keyword that differs from the built-in default list for
// its category is a customization and outranks every unmodified default.
func Assemble(userRules []models.CategoryRule, keywords map[string][]string) *RuleSet {
	var rules []Rule
	seq := 0

	add := func(pattern, cat string, priority int, source RuleSource) {
		pattern = strings.ToUpper(strings.TrimSpace(pattern))
		if pattern == "" {
			return
		}
		rules = append(rules, Rule{
			Pattern:  pattern,
			Category: cat,
			Priority: priority,
			Source:   source,
			seq:      seq,
		})
		seq++
	}

	for _, r := range userRules {
		if !r.Enabled {
			continue
		}
		add(r.Pattern, r.Category, r.Priority, SourceUser)
	}

	// Customized keywords: anything in the persisted map that the
	// built-in list for that category does not already contain.
	for _, cat := range keywordCategories(keywords) {
		defaults := defaultSet(cat)
		for _, kw := range keywords[cat] {
			if _, ok := defaults[strings.ToUpper(strings.TrimSpace(kw))]; ok {
				continue
			}
			add(kw, cat, bandCustom, SourceCustom)
		}
	}

	for _, cat := range defaultCategoryOrder {
		for _, kw := range DefaultKeywords[cat] {
			add(kw, cat, bandDefault, SourceDefault)
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].seq < rules[j].seq
	})

	return &RuleSet{rules: rules}
}

// Classify returns the category for a description: the first rule, in
// priority order, whose pattern is a substring of the upper-cased
// description. Always total — returns Fallback when nothing matches.
func (s *RuleSet) Classify(description string) string {
	upper := strings.ToUpper(description)
	for _, r := range s.rules {
		if strings.Contains(upper, r.Pattern) {
			return r.Category
		}
	}
	return Fallback
}

// Len reports the number of rules in the merged set.
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Rules returns the merged rules in classification order.
func (s *RuleSet) Rules() []Rule {
	return s.rules
}

func defaultSet(cat string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, kw := range DefaultKeywords[cat] {
		set[strings.ToUpper(kw)] = struct{}{}
	}
	return set
}

// keywordCategories returns the persisted keyword map's categories in a
// stable order.
func keywordCategories(keywords map[string][]string) []string {
	cats := make([]string, 0, len(keywords))
	for cat := range keywords {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}
