package composer

import (
	"slices"
	"strings"
	"sync"

	"github.com/stemsi/qbank-composer/internal/model"
)

type ceilingKey struct {
	set   bool
	value float64
}

func keyOfCeiling(v *float64) ceilingKey {
	if v == nil || *v == 0 {
		return ceilingKey{}
	}
	return ceilingKey{set: true, value: *v}
}

// SectionKey identifies a section by its filterable configuration only.
// The section name and id are not part of the key, so renaming a section
// keeps its cached draw.
type SectionKey struct {
	Course string
	Tags   string // sorted, de-duplicated, NUL-joined
	Type   model.QuestionType
	Count  int // 0 means "all available"

	MaxPoints      ceilingKey
	MaxMCPoints    ceilingKey
	MaxTFPoints    ceilingKey
	MaxShortPoints ceilingKey
	MaxLongPoints  ceilingKey
}

// KeyOf derives the cache key of a rule.
func KeyOf(r model.SectionRule) SectionKey {
	tags := slices.Clone(r.Tags)
	slices.Sort(tags)
	tags = slices.Compact(tags)

	k := SectionKey{
		Course:         r.Course,
		Tags:           strings.Join(tags, "\x00"),
		Type:           r.Type,
		MaxPoints:      keyOfCeiling(r.MaxPoints),
		MaxMCPoints:    keyOfCeiling(r.MaxMCPoints),
		MaxTFPoints:    keyOfCeiling(r.MaxTFPoints),
		MaxShortPoints: keyOfCeiling(r.MaxShortPoints),
		MaxLongPoints:  keyOfCeiling(r.MaxLongPoints),
	}
	if r.Count != nil {
		k.Count = *r.Count
	}
	return k
}

// Cache memoizes section selections by SectionKey.
type Cache struct {
	mu      sync.RWMutex
	entries map[SectionKey]model.SelectedQuestions
}

func NewCache() *Cache {
	return &Cache{entries: make(map[SectionKey]model.SelectedQuestions)}
}

// Lookup returns the cached selection for r, tagged with r's current name.
func (c *Cache) Lookup(r model.SectionRule) (model.SelectedQuestions, bool) {
	c.mu.RLock()
	sel, ok := c.entries[KeyOf(r)]
	c.mu.RUnlock()
	if !ok {
		return model.SelectedQuestions{}, false
	}
	return retag(sel, r), true
}

// Store saves sel under r's key, replacing any previous entry.
func (c *Cache) Store(r model.SectionRule, sel model.SelectedQuestions) {
	c.mu.Lock()
	c.entries[KeyOf(r)] = sel.Clone()
	c.mu.Unlock()
}

// GetOrCompute returns the cached selection for r, or runs compute and
// caches its result. A compute error is returned as is and nothing is stored.
func (c *Cache) GetOrCompute(r model.SectionRule, compute func(model.SectionRule) (model.SelectedQuestions, error)) (model.SelectedQuestions, bool, error) {
	if sel, ok := c.Lookup(r); ok {
		return sel, true, nil
	}
	sel, err := compute(r)
	if err != nil {
		return model.SelectedQuestions{}, false, err
	}
	c.Store(r, sel)
	return retag(sel, r), false, nil
}

// Invalidate drops the entry for r's key.
func (c *Cache) Invalidate(r model.SectionRule) {
	c.mu.Lock()
	delete(c.entries, KeyOf(r))
	c.mu.Unlock()
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// MergeMissing copies entries of other whose keys are absent here.
func (c *Cache) MergeMissing(other *Cache) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, sel := range other.entries {
		if _, ok := c.entries[k]; !ok {
			c.entries[k] = sel.Clone()
		}
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func retag(sel model.SelectedQuestions, r model.SectionRule) model.SelectedQuestions {
	out := sel.Clone()
	for i := range out.Questions {
		out.Questions[i].SectionID = r.ID
		out.Questions[i].Section = r.Name
	}
	return out
}
