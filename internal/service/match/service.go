package match

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
	"github.com/zencounsel/counsel-api/pkg/errors"
	"github.com/zencounsel/counsel-api/pkg/logger"
	"github.com/zencounsel/counsel-api/pkg/metrics"
)

const poolCacheKey = "active-pool"

// Match is the caller-facing shape of one ranked counsellor.
type Match struct {
	ID                 string   `json:"id"`
	CounsellorID       string   `json:"counsellorId"`
	Name               string   `json:"name"`
	Email              string   `json:"email,omitempty"`
	Phone              string   `json:"phone,omitempty"`
	Specialization     string   `json:"specialization"`
	SubSpecializations []string `json:"subSpecializations"`
	ExperienceYears    float64  `json:"experienceYears"`
	Languages          []string `json:"languages"`
	FeePerSessionINR   float64  `json:"feePerSessionINR"`
	PhotoURL           string   `json:"photoUrl,omitempty"`
	Bio                string   `json:"bio,omitempty"`
	Active             bool     `json:"active"`
	Score              float64  `json:"score"`
}

type Service struct {
	repo    repository.CounsellorRepository
	ranker  *Ranker
	cache   *gocache.Cache
	logger  *logger.Logger
	metrics *metrics.Metrics

	// gen counts invalidations; a pool read that straddles one is not cached.
	mu  sync.Mutex
	gen uint64
}

// NewService caches the active pool for poolTTL. A zero TTL disables caching.
func NewService(repo repository.CounsellorRepository, ranker *Ranker, poolTTL time.Duration, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	var cache *gocache.Cache
	if poolTTL > 0 {
		cache = gocache.New(poolTTL, 2*poolTTL)
	}
	return &Service{
		repo:    repo,
		ranker:  ranker,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

// Recommend ranks the active counsellor pool for q.
func (s *Service) Recommend(ctx context.Context, q Query) ([]Match, error) {
	if strings.TrimSpace(q.Category) == "" {
		return nil, errors.NewMissingFields("category")
	}

	pool, err := s.activePool(ctx)
	if err != nil {
		s.logger.WithContext(ctx).Error(err, "failed to load counsellor pool")
		return nil, errors.Internal(fmt.Errorf("failed to load counsellors: %w", err))
	}

	ranked := s.ranker.Rank(q, pool)

	s.metrics.MatchRequests.Inc()
	s.metrics.MatchPoolSize.Observe(float64(len(pool)))
	if len(ranked) > 0 {
		s.metrics.MatchTopScore.Observe(ranked[0].Score)
	}

	out := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, toMatch(r))
	}
	return out, nil
}

// Invalidate drops the cached pool so the next request re-reads the store.
func (s *Service) Invalidate() {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.gen++
	s.cache.Delete(poolCacheKey)
	s.mu.Unlock()
}

func (s *Service) activePool(ctx context.Context) ([]*model.Counsellor, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(poolCacheKey); ok {
			s.metrics.MatchPoolCache.WithLabelValues("hit").Inc()
			return cached.([]*model.Counsellor), nil
		}
		s.metrics.MatchPoolCache.WithLabelValues("miss").Inc()
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	pool, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.cache.SetDefault(poolCacheKey, pool)
		}
		s.mu.Unlock()
	}
	return pool, nil
}

func toMatch(r Scored) Match {
	c := r.Counsellor
	return Match{
		ID:                 c.ID,
		CounsellorID:       c.ID,
		Name:               c.Name,
		Email:              c.Email,
		Phone:              c.Phone,
		Specialization:     c.Specialization,
		SubSpecializations: nonNil(c.SubSpecializations),
		ExperienceYears:    c.ExperienceYears,
		Languages:          nonNil(c.Languages),
		FeePerSessionINR:   c.FeePerSessionINR,
		PhotoURL:           c.PhotoURL,
		Bio:                c.Bio,
		Active:             c.Active,
		Score:              r.Score,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
