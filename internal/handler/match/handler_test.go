package match

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/internal/config"
	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository/memory"
	"github.com/zencounsel/counsel-api/internal/service/match"
	"github.com/zencounsel/counsel-api/pkg/logger"
	"github.com/zencounsel/counsel-api/pkg/metrics"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := memory.NewStore()
	for _, c := range []*model.Counsellor{
		{ID: "gen", Name: "Generalist", Specialization: "Anxiety", Languages: []string{"English"}, ExperienceYears: 5, Active: true},
		{ID: "add", Name: "Addiction Lead", Specialization: "Substance Abuse", SubSpecializations: []string{"Alcohol"},
			Languages: []string{"Hindi", "English"}, ExperienceYears: 10, Active: true},
	} {
		require.NoError(t, store.Counsellors().Create(ctx, c))
	}

	ranker := match.NewRanker(config.MatchConfig{
		PrimaryWeight:    60,
		SubTagWeight:     20,
		LanguageWeight:   10,
		ExperienceCap:    10,
		TopK:             10,
		SubTagCategories: []string{"addiction"},
		Stems: map[string][]string{
			"addiction": {"addiction", "substance", "alcohol", "drug", "de-addiction", "rehab"},
		},
	})
	svc := match.NewService(store.Counsellors(), ranker, 0, logger.Nop(),
		metrics.NewMetrics("test", prometheus.NewRegistry()))

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMatch_RanksAddictionScenario(t *testing.T) {
	r := setupRouter(t)

	w := post(r, `{"category":"addiction","addictionTypes":["alcohol"],"preferredLanguages":"hindi"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Matches []struct {
				ID    string  `json:"id"`
				Score float64 `json:"score"`
			} `json:"matches"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Matches, 2)
	assert.Equal(t, "add", body.Data.Matches[0].ID)
	assert.Equal(t, 100.0, body.Data.Matches[0].Score)
	assert.Equal(t, "gen", body.Data.Matches[1].ID)
	assert.Equal(t, 5.0, body.Data.Matches[1].Score)
}

func TestMatch_MissingCategory(t *testing.T) {
	r := setupRouter(t)

	w := post(r, `{"languages":["English"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"category"}, body.Fields)
}
