package counsellor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/internal/middleware"
	"github.com/zencounsel/counsel-api/internal/repository/memory"
	"github.com/zencounsel/counsel-api/internal/service/counsellor"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

type invalidations struct{ n int }

func (i *invalidations) Invalidate() { i.n++ }

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Fields  []string        `json:"fields"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) (*gin.Engine, *invalidations) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()

	inv := &invalidations{}
	h := NewHandler(counsellor.NewService(memory.NewStore().Counsellors(), inv, logger.Nop()))

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	h.RegisterAdminRoutes(api.Group("/admin"))
	return r, inv
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

func TestAdminCRUD(t *testing.T) {
	r, inv := setupRouter(t)

	w, env := call(r, http.MethodPost, "/api/v1/admin/counsellors",
		`{"id":"c1","name":"Dr. Rao","email":"rao@example.com","specialization":"Addiction","subSpecializations":"AA 12-Step","experienceYears":8}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID                 string   `json:"id"`
		SubSpecializations []string `json:"subSpecializations"`
		Active             bool     `json:"active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "c1", created.ID)
	assert.Equal(t, []string{"AA 12-Step"}, created.SubSpecializations)
	assert.True(t, created.Active)

	w, _ = call(r, http.MethodPost, "/api/v1/admin/counsellors", `{"id":"c1","name":"Again"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = call(r, http.MethodPut, "/api/v1/admin/counsellors/c1", `{"bio":"Twenty years of practice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Twenty years of practice")

	w, _ = call(r, http.MethodPut, "/api/v1/admin/counsellors/c1", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = call(r, http.MethodGet, "/api/v1/admin/counsellors?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	w, _ = call(r, http.MethodDelete, "/api/v1/admin/counsellors/c1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = call(r, http.MethodGet, "/api/v1/counsellors/c1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 3, inv.n)
}

func TestCreateCounsellor_Validation(t *testing.T) {
	r, _ := setupRouter(t)

	w, env := call(r, http.MethodPost, "/api/v1/admin/counsellors", `{"email":"rao@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"name"}, env.Fields)

	w, env = call(r, http.MethodPost, "/api/v1/admin/counsellors", `{"name":"Rao","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"email"}, env.Fields)
}

func TestListPublic_ProgramSplit(t *testing.T) {
	r, _ := setupRouter(t)
	call(r, http.MethodPost, "/api/v1/admin/counsellors", `{"id":"aa","name":"A","subSpecializations":["AA 12-Step"]}`)
	call(r, http.MethodPost, "/api/v1/admin/counsellors", `{"id":"gen","name":"B","specialization":"Anxiety"}`)
	call(r, http.MethodPost, "/api/v1/admin/counsellors", `{"id":"off","name":"C","active":false}`)

	ids := func(path string) []string {
		_, env := call(r, http.MethodGet, path, "")
		var data struct {
			Counsellors []struct {
				ID string `json:"id"`
			} `json:"counsellors"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		out := []string{}
		for _, c := range data.Counsellors {
			out = append(out, c.ID)
		}
		return out
	}

	assert.Equal(t, []string{"aa"}, ids("/api/v1/counsellors?category=Addiction"))
	assert.Equal(t, []string{"gen"}, ids("/api/v1/counsellors?category=anxiety"))
	assert.Equal(t, []string{"aa", "gen"}, ids("/api/v1/counsellors"))
}
