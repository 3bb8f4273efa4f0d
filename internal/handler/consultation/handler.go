package consultation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zencounsel/counsel-api/internal/handler"
	"github.com/zencounsel/counsel-api/internal/service/consultation"
	"github.com/zencounsel/counsel-api/pkg/httputil"
)

type Handler struct {
	service *consultation.Service
}

func NewHandler(service *consultation.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consultations := r.Group("/consultations")
	{
		consultations.GET("/availability", h.GetAvailability)
		consultations.POST("", h.RequestConsultation)
	}
}

type requestConsultationRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Email  string `json:"email"`
	Notes  string `json:"notes"`
	Topic  string `json:"topic"`
	Source string `json:"source"`
}

func (h *Handler) GetAvailability(c *gin.Context) {
	availability, err := h.service.Availability(c.Request.Context(), c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, availability)
}

// RequestConsultation echoes only the booking coordinates, not the contact
// details the caller just sent.
func (h *Handler) RequestConsultation(c *gin.Context) {
	var req requestConsultationRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	created, err := h.service.Request(c.Request.Context(), consultation.Request{
		Name:   req.Name,
		Phone:  req.Phone,
		Date:   req.Date,
		Time:   req.Time,
		Email:  req.Email,
		Notes:  req.Notes,
		Topic:  req.Topic,
		Source: req.Source,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, gin.H{
		"id":      created.ID,
		"date":    created.Date,
		"time":    created.Time,
		"endTime": created.EndTime,
		"tz":      created.Timezone,
		"status":  created.Status,
	})
}
