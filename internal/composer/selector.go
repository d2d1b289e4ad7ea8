package composer

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/qbank-composer/internal/model"
)

// Selector draws a section's questions from its candidate pool.
// It owns the random source; callers share one Selector safely.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a Selector seeded from the runtime's random source.
func NewSelector() *Selector {
	return NewSeededSelector(rand.Uint64(), rand.Uint64())
}

// NewSeededSelector returns a Selector with a reproducible sequence.
func NewSeededSelector(seed1, seed2 uint64) *Selector {
	return &Selector{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Shuffle permutes s in place.
func Shuffle[T any](sel *Selector, s []T) {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	sel.rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// SelectForSection shuffles the pool and keeps either the questions that fit
// the rule's ceilings (single greedy pass) or the first Count of them.
// Duplicate ids in the pool are collapsed, so a question is picked at most once.
func (s *Selector) SelectForSection(rule model.SectionRule, pool []model.Question) model.SelectedQuestions {
	candidates := uniqueQuestions(pool)
	Shuffle(s, candidates)

	var picked []model.Question
	switch {
	case rule.Ceilings.Any():
		var t tally
		for _, q := range candidates {
			if t.admit(q, rule.Ceilings) {
				picked = append(picked, q)
			}
		}
	case rule.Count != nil && *rule.Count < len(candidates):
		picked = candidates[:*rule.Count]
	default:
		picked = candidates
	}

	out := model.SelectedQuestions{
		Questions: make([]model.SelectedQuestion, 0, len(picked)),
		IDs:       make(map[uuid.UUID]bool, len(picked)),
	}
	for _, q := range picked {
		out.Questions = append(out.Questions, model.SelectedQuestion{
			Question:  q,
			SectionID: rule.ID,
			Section:   rule.Name,
		})
		out.IDs[q.ID] = true
	}
	return out
}

func uniqueQuestions(pool []model.Question) []model.Question {
	seen := make(map[uuid.UUID]bool, len(pool))
	out := make([]model.Question, 0, len(pool))
	for _, q := range pool {
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out
}
