package httputil

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(err error) (*httptest.ResponseRecorder, Response) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithError(c, err)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRespondWithErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", errors.NewMissingFields("timeSlot"), http.StatusBadRequest},
		{"conflict", fmt.Errorf("wrap: %w", errors.SlotTaken(nil)), http.StatusConflict},
		{"not found", errors.NewNotFound("appointment", nil), http.StatusNotFound},
		{"forbidden", errors.Forbidden("admin only"), http.StatusForbidden},
		{"plain", stderrors.New("pq: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := respond(tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "error", body.Status)
		})
	}
}

func TestRespondWithErrorListsFields(t *testing.T) {
	_, body := respond(errors.NewMissingFields("seekerId", "timeSlot"))

	assert.Equal(t, []string{"seekerId", "timeSlot"}, body.Fields)
	assert.Contains(t, body.Message, "timeSlot")
}

func TestRespondWithErrorHidesInfrastructureDetail(t *testing.T) {
	w, body := respond(stderrors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.GenericMessage, body.Message)
	assert.NotContains(t, w.Body.String(), "password")
}
