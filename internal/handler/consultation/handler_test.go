package consultation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/internal/config"
	"github.com/zencounsel/counsel-api/internal/repository/memory"
	"github.com/zencounsel/counsel-api/internal/service/consultation"
	"github.com/zencounsel/counsel-api/internal/service/event"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := consultation.NewService(memory.NewStore().Consultations(), config.BookingConfig{
		Timezone:                "Asia/Kolkata",
		ConsultationStart:       "09:00",
		ConsultationEnd:         "20:45",
		ConsultationStepMinutes: 15,
	}, event.Nop{}, logger.Nop())
	require.NoError(t, err)

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func request(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestRequestConsultation(t *testing.T) {
	r := setupRouter(t)
	body := `{"name":"Asha","phone":"+91 90000 00000","date":"2099-03-04","time":"10:15"}`

	w, out := request(r, http.MethodPost, "/api/v1/consultations", body)
	require.Equal(t, http.StatusCreated, w.Code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "10:30", data["endTime"])
	assert.Equal(t, "requested", data["status"])
	assert.NotContains(t, data, "phone")

	w, out = request(r, http.MethodPost, "/api/v1/consultations", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "This slot is already booked.", out["message"])
}

func TestRequestConsultation_Rejections(t *testing.T) {
	r := setupRouter(t)

	w, out := request(r, http.MethodPost, "/api/v1/consultations", `{"name":"Asha"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"phone", "date", "time"}, out["fields"])

	w, _ = request(r, http.MethodPost, "/api/v1/consultations",
		`{"name":"Asha","phone":"1","date":"2099-03-04","time":"10:10"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = request(r, http.MethodPost, "/api/v1/consultations",
		`{"name":"Asha","phone":"1","date":"2001-03-04","time":"10:15"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "This slot is in the past.", out["message"])
}

func TestConsultationAvailability(t *testing.T) {
	r := setupRouter(t)
	request(r, http.MethodPost, "/api/v1/consultations",
		`{"name":"Asha","phone":"1","date":"2099-03-04","time":"09:00"}`)

	w, out := request(r, http.MethodGet, "/api/v1/consultations/availability?date=2099-03-04", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"09:00"}, data["booked"])
	assert.Len(t, data["available"], 47)

	w, _ = request(r, http.MethodGet, "/api/v1/consultations/availability", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
