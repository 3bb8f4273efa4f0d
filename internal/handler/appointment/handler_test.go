package appointment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/internal/middleware"
	"github.com/zencounsel/counsel-api/internal/repository/memory"
	"github.com/zencounsel/counsel-api/internal/service/appointment"
	"github.com/zencounsel/counsel-api/internal/service/event"
	"github.com/zencounsel/counsel-api/pkg/logger"
	"github.com/zencounsel/counsel-api/pkg/metrics"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Fields  []string        `json:"fields"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()

	catalogue, err := appointment.NewCatalogue([]string{"09:00-13:00", "15:00-19:00"}, 30)
	require.NoError(t, err)

	store := memory.NewStore()
	svc := appointment.NewService(store.Appointments(), catalogue, event.Nop{}, logger.Nop(),
		metrics.NewMetrics("test", prometheus.NewRegistry()))

	h := NewHandler(svc)
	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	h.RegisterAdminRoutes(api.Group("/admin"))
	return r
}

func do(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestCreateAppointment_AdmitsThenConflicts(t *testing.T) {
	r := setupRouter(t)
	body := `{"seekerId":"u1","counsellorId":"c1","date":"2030-05-01","timeSlot":"09:00-09:30","fee":"1500"}`

	w, env := do(r, http.MethodPost, "/api/v1/appointments", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var data struct {
		Appointment struct {
			ID     string  `json:"id"`
			Status string  `json:"status"`
			Fee    float64 `json:"fee"`
			Source string  `json:"source"`
		} `json:"appointment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Appointment.ID)
	assert.Equal(t, "PENDING", data.Appointment.Status)
	assert.Equal(t, 1500.0, data.Appointment.Fee)
	assert.Equal(t, "website", data.Appointment.Source)

	w, env = do(r, http.MethodPost, "/api/v1/appointments",
		`{"userId":"u2","counselorId":"c1","date":"2030-05-01","slot":" 09:00 - 09:30 "}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "This time slot is already booked.", env.Message)
}

func TestCreateAppointment_MissingFields(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodPost, "/api/v1/appointments", `{"counsellorId":"c1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"seekerId", "date", "timeSlot"}, env.Fields)

	w, env = do(r, http.MethodPost, "/api/v1/appointments", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"seekerId", "counsellorId", "date", "timeSlot"}, env.Fields)
}

func TestCreateAppointment_MalformedBody(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodPost, "/api/v1/appointments", `{"seekerId":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", env.Status)
}

func TestCreateAppointment_NonNumericFeeIsZero(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodPost, "/api/v1/appointments",
		`{"seekerId":"u1","counsellorID":"c1","date":"2030-05-01","timeSlot":"15:00-15:30","fee":"free"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(env.Data), `"fee":0`)
}

func TestGetAvailability(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodGet, "/api/v1/appointments/availability?counsellorId=c1&date=2030-05-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	var empty struct {
		BookedSlots    []string `json:"bookedSlots"`
		AvailableSlots []string `json:"availableSlots"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &empty))
	assert.NotNil(t, empty.BookedSlots)
	assert.Empty(t, empty.BookedSlots)
	assert.Len(t, empty.AvailableSlots, 16)

	do(r, http.MethodPost, "/api/v1/appointments",
		`{"seekerId":"u1","counsellorId":"c1","date":"2030-05-01","timeSlot":"10:00-10:30"}`)

	_, env = do(r, http.MethodGet, "/api/v1/appointments/availability?counselorId=c1&date=2030-05-01", "")
	var after struct {
		BookedSlots    []string `json:"bookedSlots"`
		AvailableSlots []string `json:"availableSlots"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &after))
	assert.Equal(t, []string{"10:00-10:30"}, after.BookedSlots)
	assert.Len(t, after.AvailableSlots, 15)

	w, env = do(r, http.MethodGet, "/api/v1/appointments/availability?date=2030-05-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"counsellorId"}, env.Fields)
}

func TestUpdateStatus_CancelFreesSlot(t *testing.T) {
	r := setupRouter(t)
	body := `{"seekerId":"u1","counsellorId":"c1","date":"2030-05-01","timeSlot":"11:00-11:30"}`

	_, env := do(r, http.MethodPost, "/api/v1/appointments", body)
	var created struct {
		Appointment struct {
			ID string `json:"id"`
		} `json:"appointment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	path := "/api/v1/admin/appointments/" + created.Appointment.ID + "/status"

	w, _ := do(r, http.MethodPatch, path, `{"status":"cancelled"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(r, http.MethodPatch, path, `{"status":"CONFIRMED"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(r, http.MethodPatch, path, `{"status":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(r, http.MethodPatch, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"status"}, env.Fields)

	w, _ = do(r, http.MethodPost, "/api/v1/appointments", body)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGetAndListAppointments(t *testing.T) {
	r := setupRouter(t)
	do(r, http.MethodPost, "/api/v1/appointments",
		`{"seekerId":"u1","counsellorId":"c1","date":"2030-05-01","timeSlot":"12:00-12:30"}`)

	w, env := do(r, http.MethodGet, "/api/v1/appointments?userId=u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Appointments []struct {
			ID string `json:"id"`
		} `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Appointments, 1)

	w, _ = do(r, http.MethodGet, "/api/v1/appointments/"+list.Appointments[0].ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(r, http.MethodGet, "/api/v1/appointments/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(r, http.MethodGet, "/api/v1/appointments", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAppointments_CounsellorScopeIsAdminOnly(t *testing.T) {
	r := setupRouter(t)
	do(r, http.MethodPost, "/api/v1/appointments",
		`{"seekerId":"u1","seekerName":"Asha R","counsellorId":"c1","date":"2030-05-01","timeSlot":"09:00-09:30","notes":"private"}`)
	do(r, http.MethodPost, "/api/v1/appointments",
		`{"seekerId":"u2","counsellorId":"c1","date":"2030-05-01","timeSlot":"09:30-10:00"}`)

	w, env := do(r, http.MethodGet, "/api/v1/appointments?counsellorId=c1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"seekerId"}, env.Fields)
	assert.NotContains(t, w.Body.String(), "private")

	var list struct {
		Appointments []struct {
			SeekerID string `json:"seekerId"`
		} `json:"appointments"`
	}

	w, env = do(r, http.MethodGet, "/api/v1/appointments?seekerId=u2&counsellorId=c1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Appointments, 1)
	assert.Equal(t, "u2", list.Appointments[0].SeekerID)

	w, env = do(r, http.MethodGet, "/api/v1/admin/appointments?counsellorId=c1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Appointments, 2)

	w, _ = do(r, http.MethodGet, "/api/v1/admin/appointments?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAppointment_NonFiniteFeeIsZero(t *testing.T) {
	r := setupRouter(t)

	for i, fee := range []string{`"NaN"`, `"Infinity"`, `"-Inf"`} {
		slot := []string{"15:00-15:30", "15:30-16:00", "16:00-16:30"}[i]
		w, env := do(r, http.MethodPost, "/api/v1/appointments",
			`{"seekerId":"u1","counsellorId":"c1","date":"2030-05-01","timeSlot":"`+slot+`","fee":`+fee+`}`)
		require.Equal(t, http.StatusCreated, w.Code, fee)
		assert.Contains(t, string(env.Data), `"fee":0`, fee)
	}

	w, env := do(r, http.MethodGet, "/api/v1/appointments?seekerId=u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Appointments []struct {
			Fee float64 `json:"fee"`
		} `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Appointments, 3)
}
