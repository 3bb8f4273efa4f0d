package appointment

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zencounsel/counsel-api/internal/handler"
	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/service/appointment"
	"github.com/zencounsel/counsel-api/pkg/errors"
	"github.com/zencounsel/counsel-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/availability", h.GetAvailability)
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
	}
}

// RegisterAdminRoutes expects r to be behind the admin gate.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/appointments", h.ListAllAppointments)
	r.PATCH("/appointments/:id/status", h.UpdateStatus)
}

// createAppointmentRequest accepts every field spelling clients have used.
// Aliases are folded together here and nowhere else.
type createAppointmentRequest struct {
	SeekerID       string          `json:"seekerId"`
	UserID         string          `json:"userId"`
	SeekerName     string          `json:"seekerName"`
	CounsellorID   string          `json:"counsellorId"`
	CounselorID    string          `json:"counselorId"`
	CounsellorIDUC string          `json:"counsellorID"`
	CounsellorName string          `json:"counsellorName"`
	SessionType    string          `json:"sessionType"`
	Date           string          `json:"date"`
	TimeSlot       string          `json:"timeSlot"`
	Slot           string          `json:"slot"`
	Fee            json.RawMessage `json:"fee"`
	Notes          string          `json:"notes"`
	Source         string          `json:"source"`
}

func (r *createAppointmentRequest) toInput() model.CreateAppointmentInput {
	return model.CreateAppointmentInput{
		SeekerID:       handler.FirstNonEmpty(r.SeekerID, r.UserID),
		SeekerName:     strings.TrimSpace(r.SeekerName),
		CounsellorID:   handler.FirstNonEmpty(r.CounsellorID, r.CounselorID, r.CounsellorIDUC),
		CounsellorName: strings.TrimSpace(r.CounsellorName),
		SessionType:    strings.TrimSpace(r.SessionType),
		Date:           strings.TrimSpace(r.Date),
		TimeSlot:       handler.FirstNonEmpty(r.TimeSlot, r.Slot),
		Fee:            parseFee(r.Fee),
		Notes:          strings.TrimSpace(r.Notes),
		Source:         strings.TrimSpace(r.Source),
	}
}

// parseFee accepts a JSON number or numeric string. Anything else,
// including "NaN" and "Infinity", is 0.
func parseFee(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		if n, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0
		}
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func counsellorParam(c *gin.Context) string {
	return handler.FirstNonEmpty(c.Query("counsellorId"), c.Query("counselorId"), c.Query("counsellorID"))
}

// GetAvailability answers which labels are taken for a counsellor on a date.
func (h *Handler) GetAvailability(c *gin.Context) {
	availability, err := h.service.QueryAvailability(c.Request.Context(), counsellorParam(c), c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, availability)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	apt, err := h.service.CreateAppointment(c.Request.Context(), req.toInput())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, gin.H{"appointment": apt})
}

func (h *Handler) GetAppointment(c *gin.Context) {
	apt, err := h.service.GetAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"appointment": apt})
}

// ListAppointments is the seeker's own view; a counsellor id only narrows it.
func (h *Handler) ListAppointments(c *gin.Context) {
	filters, err := listFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if filters.SeekerID == "" {
		httputil.RespondWithError(c, errors.NewMissingFields("seekerId"))
		return
	}
	h.list(c, filters)
}

// ListAllAppointments serves admins, who may filter by counsellor or not at all.
func (h *Handler) ListAllAppointments(c *gin.Context) {
	filters, err := listFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.list(c, filters)
}

func (h *Handler) list(c *gin.Context, filters model.AppointmentFilters) {
	appointments, err := h.service.ListAppointments(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"appointments": appointments})
}

func listFilters(c *gin.Context) (model.AppointmentFilters, error) {
	filters := model.AppointmentFilters{
		SeekerID:     handler.FirstNonEmpty(c.Query("seekerId"), c.Query("userId")),
		CounsellorID: counsellorParam(c),
		Date:         strings.TrimSpace(c.Query("date")),
		Limit:        handler.QueryInt(c, "limit", 0),
		Offset:       handler.QueryInt(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := model.ParseAppointmentStatus(raw)
		if !ok {
			appErr := errors.NewValidation("unknown status " + strconv.Quote(raw))
			appErr.Fields = []string{"status"}
			return filters, appErr
		}
		filters.Status = status
	}
	return filters, nil
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	status, ok := model.ParseAppointmentStatus(req.Status)
	if !ok {
		appErr := errors.NewValidation("unknown status " + strconv.Quote(req.Status))
		appErr.Fields = []string{"status"}
		httputil.RespondWithError(c, appErr)
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"appointment": apt})
}
