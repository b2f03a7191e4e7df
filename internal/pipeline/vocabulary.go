package pipeline

import (
	"sort"
	"strings"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// Vocabulary is the closed set of categories available to one ingest call.
// Build it once per batch and treat it as read-only.
type Vocabulary struct {
	byName   map[string]domain.Category
	labels   []string
	fallback *domain.Category
}

// NewVocabulary indexes categories by normalized name. When two categories
// normalize to the same name the first one wins. fallbackNames are tried in
// order to pick the catch-all category.
func NewVocabulary(categories []domain.Category, fallbackNames []string) *Vocabulary {
	v := &Vocabulary{byName: make(map[string]domain.Category, len(categories))}

	for _, c := range categories {
		key := normalizeCategory(c.Name)
		if key == "" {
			continue
		}
		if _, exists := v.byName[key]; exists {
			continue
		}
		v.byName[key] = c
		v.labels = append(v.labels, key)
	}
	sort.Strings(v.labels)

	for _, name := range fallbackNames {
		if c, ok := v.byName[normalizeCategory(name)]; ok {
			v.fallback = &c
			break
		}
	}

	return v
}

// Lookup finds a category by name, ignoring case and surrounding space.
func (v *Vocabulary) Lookup(name string) (domain.Category, bool) {
	c, ok := v.byName[normalizeCategory(name)]
	return c, ok
}

// Labels returns the sorted normalized category names.
func (v *Vocabulary) Labels() []string {
	return append([]string(nil), v.labels...)
}

// Fallback returns the catch-all category, if the vocabulary has one.
func (v *Vocabulary) Fallback() (domain.Category, bool) {
	if v.fallback == nil {
		return domain.Category{}, false
	}
	return *v.fallback, true
}

// Len is the number of distinct category names.
func (v *Vocabulary) Len() int {
	return len(v.byName)
}

func normalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
