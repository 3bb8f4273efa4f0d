package match

import (
	"sort"
	"strings"

	"github.com/zencounsel/counsel-api/internal/config"
	"github.com/zencounsel/counsel-api/internal/model"
)

type Weights struct {
	Primary       float64
	SubTag        float64
	Language      float64
	ExperienceCap float64
}

// Query is a seeker's stated need. Category is required; Tags and
// Languages may be empty.
type Query struct {
	Category  string
	Tags      []string
	Languages []string
}

type Scored struct {
	Counsellor *model.Counsellor
	Score      float64
}

// Ranker scores counsellors against a query. It holds no mutable state and
// is safe for concurrent use.
type Ranker struct {
	weights          Weights
	stems            map[string][]string
	subTagCategories map[string]struct{}
	topK             int
}

func NewRanker(cfg config.MatchConfig) *Ranker {
	stems := make(map[string][]string, len(cfg.Stems))
	for category, list := range cfg.Stems {
		stems[normalize(category)] = normalizeAll(list)
	}

	var subTag map[string]struct{}
	if len(cfg.SubTagCategories) > 0 {
		subTag = make(map[string]struct{}, len(cfg.SubTagCategories))
		for _, c := range cfg.SubTagCategories {
			subTag[normalize(c)] = struct{}{}
		}
	}

	return &Ranker{
		weights: Weights{
			Primary:       cfg.PrimaryWeight,
			SubTag:        cfg.SubTagWeight,
			Language:      cfg.LanguageWeight,
			ExperienceCap: cfg.ExperienceCap,
		},
		stems:            stems,
		subTagCategories: subTag,
		topK:             cfg.TopK,
	}
}

// Rank returns at most topK active candidates by descending score. Equal
// scores keep their pool order. Zero-score candidates are still returned.
func (r *Ranker) Rank(q Query, pool []*model.Counsellor) []Scored {
	q = r.prepare(q)

	scored := make([]Scored, 0, len(pool))
	for _, c := range pool {
		if c == nil || !c.Active {
			continue
		}
		scored = append(scored, Scored{Counsellor: c, Score: r.score(q, c)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if r.topK > 0 && len(scored) > r.topK {
		scored = scored[:r.topK]
	}
	return scored
}

// Score is the additive score of one candidate.
func (r *Ranker) Score(q Query, c *model.Counsellor) float64 {
	return r.score(r.prepare(q), c)
}

// prepare lower-cases the query and drops the tags when the category does
// not take part in the sub-attribute bonus.
func (r *Ranker) prepare(q Query) Query {
	q.Category = normalize(q.Category)
	q.Tags = normalizeAll(q.Tags)
	q.Languages = normalizeAll(q.Languages)
	if r.subTagCategories != nil {
		if _, ok := r.subTagCategories[q.Category]; !ok {
			q.Tags = nil
		}
	}
	return q
}

func (r *Ranker) stemsFor(category string) []string {
	if s, ok := r.stems[category]; ok && len(s) > 0 {
		return s
	}
	if category == "" {
		return nil
	}
	return []string{category}
}

func (r *Ranker) score(q Query, c *model.Counsellor) float64 {
	var score float64

	spec := normalize(c.Specialization)
	for _, stem := range r.stemsFor(q.Category) {
		if strings.Contains(spec, stem) {
			score += r.weights.Primary
			break
		}
	}

	if len(q.Tags) > 0 && anyContains(normalizeAll(c.SubSpecializations), q.Tags) {
		score += r.weights.SubTag
	}

	if len(q.Languages) > 0 && intersects(normalizeAll(c.Languages), q.Languages) {
		score += r.weights.Language
	}

	exp := c.ExperienceYears
	if exp < 0 {
		exp = 0
	}
	if exp > r.weights.ExperienceCap {
		exp = r.weights.ExperienceCap
	}
	score += exp

	return score
}

func anyContains(haystacks, needles []string) bool {
	for _, h := range haystacks {
		for _, n := range needles {
			if strings.Contains(h, n) {
				return true
			}
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeAll lower-cases and trims, dropping empty entries.
func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
