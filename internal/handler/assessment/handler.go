package assessment

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zencounsel/counsel-api/internal/handler"
	"github.com/zencounsel/counsel-api/internal/service/assessment"
	"github.com/zencounsel/counsel-api/pkg/errors"
	"github.com/zencounsel/counsel-api/pkg/httputil"
)

type Handler struct {
	service *assessment.Service
}

func NewHandler(service *assessment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	assessments := r.Group("/assessments")
	{
		assessments.POST("", h.Submit)
		assessments.GET("", h.List)
	}
}

// Submit stores every field except userId as the answers. Clients that
// already nest them under "answers" are accepted too.
func (h *Handler) Submit(c *gin.Context) {
	var body map[string]json.RawMessage
	if err := handler.BindJSON(c, &body); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var userID string
	if raw, ok := body["userId"]; ok {
		if err := json.Unmarshal(raw, &userID); err != nil {
			appErr := errors.NewValidation("userId must be a string")
			appErr.Fields = []string{"userId"}
			httputil.RespondWithError(c, appErr)
			return
		}
		delete(body, "userId")
	}

	answers, ok := body["answers"]
	if !ok || len(body) > 1 {
		if body == nil {
			body = map[string]json.RawMessage{}
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			httputil.RespondWithError(c, errors.Internal(err))
			return
		}
		answers = encoded
	}

	created, err := h.service.Submit(c.Request.Context(), userID, answers)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, gin.H{"assessmentId": created.ID})
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.service.ListByUser(c.Request.Context(), c.Query("userId"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"assessments": list})
}
