package composer

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/config"
	"github.com/stemsi/qbank-composer/internal/model"
	"golang.org/x/sync/errgroup"
)

// VariantFetcher loads every variant of a block.
type VariantFetcher interface {
	GetBlockVariants(ctx context.Context, blockID uuid.UUID) ([]model.Question, error)
}

type PartitionOptions struct {
	// Shuffle reorders each version's questions independently.
	Shuffle bool
}

// Partitioner turns one composition into N parallel versions.
type Partitioner struct {
	fetcher     VariantFetcher
	selector    *Selector
	concurrency int
	log         zerolog.Logger
}

func NewPartitioner(fetcher VariantFetcher, selector *Selector, concurrency int, log zerolog.Logger) *Partitioner {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Partitioner{
		fetcher:     fetcher,
		selector:    selector,
		concurrency: concurrency,
		log:         log.With().Str("component", "partitioner").Logger(),
	}
}

// slot is one position of the composition. Fixed slots hold the same
// question in every version, block slots hold one variant per version.
type slot struct {
	index    int
	question model.SelectedQuestion
	block    bool
	variants []model.Question
	assigned []model.Question
}

func (s *slot) spread() float64 {
	if len(s.variants) == 0 {
		return 0
	}
	lo, hi := s.variants[0].Points, s.variants[0].Points
	for _, v := range s.variants[1:] {
		lo = math.Min(lo, v.Points)
		hi = math.Max(hi, v.Points)
	}
	return hi - lo
}

// Partition builds n versions labeled A, B, C... from questions.
// n <= 1 yields the composition unchanged as version A.
func (p *Partitioner) Partition(ctx context.Context, questions []model.SelectedQuestion, n int, opts PartitionOptions) (model.VersionSet, error) {
	if n > config.MaxVersionLabels {
		return model.VersionSet{}, fmt.Errorf("%d versions: %w", n, ErrInvalidVersionCount)
	}
	if n <= 1 {
		v := buildVersion(0, questions)
		return model.VersionSet{Versions: []model.Version{v}, PointsEqual: true}, nil
	}

	var (
		slots     []*slot
		blocks    []*slot
		collapsed []uuid.UUID
		seen      = make(map[uuid.UUID]bool)
	)
	for i, q := range questions {
		s := &slot{index: i, question: q}
		if q.InBlock() {
			if seen[*q.BlockID] {
				collapsed = append(collapsed, q.ID)
				continue
			}
			seen[*q.BlockID] = true
			s.block = true
			blocks = append(blocks, s)
		}
		slots = append(slots, s)
	}

	fallbacks, err := p.loadVariants(ctx, blocks)
	if err != nil {
		return model.VersionSet{}, err
	}

	assignVariants(blocks, n, fixedPoints(slots))

	set := model.VersionSet{Fallbacks: fallbacks, Collapsed: collapsed}
	for i := range n {
		qs := make([]model.SelectedQuestion, 0, len(slots))
		for _, s := range slots {
			if !s.block {
				qs = append(qs, s.question)
				continue
			}
			qs = append(qs, model.SelectedQuestion{
				Question:  s.assigned[i],
				SectionID: s.question.SectionID,
				Section:   s.question.Section,
			})
		}
		if opts.Shuffle {
			Shuffle(p.selector, qs)
		}
		set.Versions = append(set.Versions, buildVersion(i, qs))
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range set.Versions {
		lo = math.Min(lo, v.TotalPoints)
		hi = math.Max(hi, v.TotalPoints)
	}
	set.PointSpread = hi - lo
	set.PointsEqual = set.PointSpread <= epsilon
	return set, nil
}

// loadVariants fetches block variants in parallel. A failed or empty fetch
// degrades the block to its selected variant and is reported as a fallback.
func (p *Partitioner) loadVariants(ctx context.Context, blocks []*slot) ([]model.BlockFallback, error) {
	var (
		mu        sync.Mutex
		fallbacks []model.BlockFallback
	)
	fallback := func(s *slot, reason string) {
		s.variants = []model.Question{s.question.Question}
		mu.Lock()
		fallbacks = append(fallbacks, model.BlockFallback{
			BlockID:    *s.question.BlockID,
			QuestionID: s.question.ID,
			Reason:     reason,
		})
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, s := range blocks {
		g.Go(func() error {
			variants, err := p.fetcher.GetBlockVariants(ctx, *s.question.BlockID)
			if err != nil {
				p.log.Warn().Err(err).Str("block_id", s.question.BlockID.String()).Msg("block variants unavailable, repeating selected variant")
				fallback(s, "variant fetch failed: "+err.Error())
				return nil
			}
			s.variants = usableVariants(s.question.Question, variants)
			if len(s.variants) == 1 && len(variants) == 0 {
				fallback(s, "block returned no variants")
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(fallbacks, func(a, b model.BlockFallback) int {
		return cmp.Compare(a.QuestionID.String(), b.QuestionID.String())
	})
	return fallbacks, nil
}

// usableVariants drops deleted and duplicate variants, guarantees the
// selected one is present and orders them by variant number.
func usableVariants(selected model.Question, variants []model.Question) []model.Question {
	out := []model.Question{selected}
	seen := map[uuid.UUID]bool{selected.ID: true}
	for _, v := range variants {
		if v.DeletedAt != nil || seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}
	slices.SortStableFunc(out, func(a, b model.Question) int {
		if c := cmp.Compare(a.VariantNumber, b.VariantNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

func fixedPoints(slots []*slot) float64 {
	var sum float64
	for _, s := range slots {
		if !s.block {
			sum += s.question.Points
		}
	}
	return sum
}

// assignVariants spreads each block's variants across versions by rotation.
// Blocks with the widest point spread are placed first; every block takes
// the rotation offset that keeps the running version totals closest, the
// lowest offset winning ties.
func assignVariants(blocks []*slot, n int, base float64) {
	order := slices.Clone(blocks)
	slices.SortStableFunc(order, func(a, b *slot) int {
		if c := cmp.Compare(b.spread(), a.spread()); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	totals := make([]float64, n)
	for i := range totals {
		totals[i] = base
	}

	for _, s := range order {
		k := len(s.variants)
		best, bestSpread := 0, math.Inf(1)
		for offset := range k {
			lo, hi := math.Inf(1), math.Inf(-1)
			for i := range n {
				t := totals[i] + s.variants[(i+offset)%k].Points
				lo = math.Min(lo, t)
				hi = math.Max(hi, t)
			}
			if hi-lo < bestSpread-epsilon {
				best, bestSpread = offset, hi-lo
			}
		}

		s.assigned = make([]model.Question, n)
		for i := range n {
			s.assigned[i] = s.variants[(i+best)%k]
			totals[i] += s.assigned[i].Points
		}
	}
}

func buildVersion(i int, qs []model.SelectedQuestion) model.Version {
	res := BuildResult(qs, model.SourceComputed)
	return model.Version{
		Label:        VersionLabel(i),
		Questions:    res.Questions,
		TotalPoints:  res.TotalPoints,
		PointsByType: res.PointsByType,
	}
}

// VersionLabel maps 0, 1, 2... to A, B, C...
func VersionLabel(i int) string {
	return string(rune('A' + i))
}
