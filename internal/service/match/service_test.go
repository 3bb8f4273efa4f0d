package match

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/pkg/errors"
	"github.com/zencounsel/counsel-api/pkg/logger"
	"github.com/zencounsel/counsel-api/pkg/metrics"
)

type poolRepo struct {
	pool   []*model.Counsellor
	calls  int
	err    error
	onList func()
}

func (r *poolRepo) Create(ctx context.Context, c *model.Counsellor) error {
	return nil
}
func (r *poolRepo) Upsert(ctx context.Context, c *model.Counsellor) error {
	return nil
}
func (r *poolRepo) Get(ctx context.Context, id string) (*model.Counsellor, error) {
	return nil, nil
}
func (r *poolRepo) Update(ctx context.Context, c *model.Counsellor) error {
	return nil
}
func (r *poolRepo) Delete(ctx context.Context, id string) error {
	return nil
}
func (r *poolRepo) List(ctx context.Context, f model.CounsellorFilters) ([]*model.Counsellor, int, error) {
	return nil, 0, nil
}
func (r *poolRepo) GetMany(ctx context.Context, ids []string) (map[string]*model.Counsellor, error) {
	return nil, nil
}
func (r *poolRepo) Count(ctx context.Context) (int, error) {
	return len(r.pool), nil
}

func (r *poolRepo) ListActive(ctx context.Context) ([]*model.Counsellor, error) {
	r.calls++
	pool := r.pool
	if r.onList != nil {
		r.onList()
	}
	if r.err != nil {
		return nil, r.err
	}
	return pool, nil
}

func newMatchService(t *testing.T, repo *poolRepo, ttl time.Duration) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	return NewService(repo, NewRanker(defaultMatchConfig()), ttl, logger.Nop(), m), m
}

func TestRecommendRequiresCategory(t *testing.T) {
	svc, _ := newMatchService(t, &poolRepo{}, time.Minute)

	_, err := svc.Recommend(context.Background(), Query{Category: "  "})
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, []string{"category"}, appErr.Fields)
}

func TestRecommendShapesOutput(t *testing.T) {
	c := counsellor("c1", "Anxiety", 4)
	repo := &poolRepo{pool: []*model.Counsellor{c}}
	svc, m := newMatchService(t, repo, time.Minute)

	got, err := svc.Recommend(context.Background(), Query{Category: "Anxiety"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "c1", got[0].CounsellorID)
	assert.Equal(t, 64.0, got[0].Score)
	assert.NotNil(t, got[0].SubSpecializations)
	assert.NotNil(t, got[0].Languages)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MatchRequests))
}

func TestRecommendCachesPool(t *testing.T) {
	repo := &poolRepo{pool: []*model.Counsellor{counsellor("c1", "Anxiety", 1)}}
	svc, m := newMatchService(t, repo, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Recommend(ctx, Query{Category: "anxiety"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MatchPoolCache.WithLabelValues("hit")))

	svc.Invalidate()
	_, err := svc.Recommend(ctx, Query{Category: "anxiety"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestRecommendSkipsCachingPoolReadDuringInvalidate(t *testing.T) {
	repo := &poolRepo{pool: []*model.Counsellor{counsellor("c1", "Anxiety", 1)}}
	svc, _ := newMatchService(t, repo, time.Minute)
	ctx := context.Background()

	// An admin write lands while the first request is reading the pool.
	repo.onList = func() {
		repo.onList = nil
		repo.pool = []*model.Counsellor{counsellor("c2", "Anxiety", 3)}
		svc.Invalidate()
	}
	stale, err := svc.Recommend(ctx, Query{Category: "anxiety"})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "c1", stale[0].ID)

	got, err := svc.Recommend(ctx, Query{Category: "anxiety"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)

	_, err = svc.Recommend(ctx, Query{Category: "anxiety"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestRecommendWithoutCache(t *testing.T) {
	repo := &poolRepo{}
	svc, _ := newMatchService(t, repo, 0)

	for i := 0; i < 2; i++ {
		got, err := svc.Recommend(context.Background(), Query{Category: "anxiety"})
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, 2, repo.calls)
	svc.Invalidate()
}

func TestRecommendStoreFailure(t *testing.T) {
	svc, _ := newMatchService(t, &poolRepo{err: stderrors.New("timeout")}, time.Minute)

	_, err := svc.Recommend(context.Background(), Query{Category: "anxiety"})
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(err))
}
