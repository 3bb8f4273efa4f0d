package assessment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/internal/repository/memory"
	"github.com/zencounsel/counsel-api/internal/service/assessment"
	"github.com/zencounsel/counsel-api/internal/service/event"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Fields  []string        `json:"fields"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := assessment.NewService(memory.NewStore().Assessments(), event.Nop{}, logger.Nop())
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func call(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestSubmitAndList(t *testing.T) {
	r := setupRouter()

	w, env := call(r, http.MethodPost, "/api/v1/assessments", `{"userId":"u1","mood":3,"sleep":"poor"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		AssessmentID string `json:"assessmentId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.AssessmentID)

	w, _ = call(r, http.MethodPost, "/api/v1/assessments", `{"userId":"u1","answers":{"mood":5}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = call(r, http.MethodGet, "/api/v1/assessments?userId=u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Assessments []struct {
			ID      string          `json:"assessmentId"`
			Answers json.RawMessage `json:"answers"`
		} `json:"assessments"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Assessments, 2)
	assert.JSONEq(t, `{"mood":5}`, string(list.Assessments[0].Answers), "newest first")
	assert.JSONEq(t, `{"mood":3,"sleep":"poor"}`, string(list.Assessments[1].Answers))
}

func TestSubmit_Rejections(t *testing.T) {
	r := setupRouter()

	w, env := call(r, http.MethodPost, "/api/v1/assessments", `{"mood":3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"userId"}, env.Fields)

	w, env = call(r, http.MethodPost, "/api/v1/assessments", `{"userId":7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"userId"}, env.Fields)

	w, env = call(r, http.MethodPost, "/api/v1/assessments", `{"userId":"u1","answers":"yes"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"answers"}, env.Fields)

	w, _ = call(r, http.MethodGet, "/api/v1/assessments", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
