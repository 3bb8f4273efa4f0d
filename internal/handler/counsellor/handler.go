package counsellor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zencounsel/counsel-api/internal/handler"
	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/service/counsellor"
	"github.com/zencounsel/counsel-api/pkg/httputil"
)

type Handler struct {
	service counsellor.Service
}

func NewHandler(service counsellor.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	counsellors := r.Group("/counsellors")
	{
		counsellors.GET("", h.ListPublic)
		counsellors.GET("/:id", h.GetCounsellor)
	}
}

// RegisterAdminRoutes expects r to be behind the admin gate.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	counsellors := r.Group("/counsellors")
	{
		counsellors.GET("", h.ListCounsellors)
		counsellors.POST("", h.CreateCounsellor)
		counsellors.GET("/:id", h.GetCounsellor)
		counsellors.PUT("/:id", h.UpdateCounsellor)
		counsellors.DELETE("/:id", h.DeleteCounsellor)
	}
}

type createCounsellorRequest struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name" binding:"required"`
	Email              string             `json:"email" binding:"omitempty,email"`
	Phone              string             `json:"phone"`
	Specialization     string             `json:"specialization"`
	SubSpecializations handler.StringList `json:"subSpecializations"`
	Languages          handler.StringList `json:"languages"`
	ExperienceYears    float64            `json:"experienceYears" binding:"gte=0"`
	FeePerSessionINR   float64            `json:"feePerSessionINR" binding:"gte=0"`
	PhotoURL           string             `json:"photoUrl"`
	Bio                string             `json:"bio"`
	Active             *bool              `json:"active"`
}

func (r *createCounsellorRequest) toModel() *model.Counsellor {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &model.Counsellor{
		ID:                 r.ID,
		Name:               r.Name,
		Email:              r.Email,
		Phone:              r.Phone,
		Specialization:     r.Specialization,
		SubSpecializations: r.SubSpecializations,
		Languages:          r.Languages,
		ExperienceYears:    r.ExperienceYears,
		FeePerSessionINR:   r.FeePerSessionINR,
		PhotoURL:           r.PhotoURL,
		Bio:                r.Bio,
		Active:             active,
	}
}

type updateCounsellorRequest struct {
	Name               *string            `json:"name"`
	Email              *string            `json:"email"`
	Phone              *string            `json:"phone"`
	Specialization     *string            `json:"specialization"`
	SubSpecializations handler.StringList `json:"subSpecializations"`
	Languages          handler.StringList `json:"languages"`
	ExperienceYears    *float64           `json:"experienceYears"`
	FeePerSessionINR   *float64           `json:"feePerSessionINR"`
	PhotoURL           *string            `json:"photoUrl"`
	Bio                *string            `json:"bio"`
	Active             *bool              `json:"active"`
}

func (r *updateCounsellorRequest) toUpdate() *model.CounsellorUpdate {
	return &model.CounsellorUpdate{
		Name:               r.Name,
		Email:              r.Email,
		Phone:              r.Phone,
		Specialization:     r.Specialization,
		SubSpecializations: r.SubSpecializations,
		Languages:          r.Languages,
		ExperienceYears:    r.ExperienceYears,
		FeePerSessionINR:   r.FeePerSessionINR,
		PhotoURL:           r.PhotoURL,
		Bio:                r.Bio,
		Active:             r.Active,
	}
}

func (h *Handler) ListPublic(c *gin.Context) {
	list, err := h.service.ListPublic(c.Request.Context(), c.Query("category"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"counsellors": list})
}

func (h *Handler) ListCounsellors(c *gin.Context) {
	limit := handler.QueryInt(c, "limit", 20)
	offset := handler.QueryInt(c, "offset", 0)

	list, total, err := h.service.ListCounsellors(c.Request.Context(), limit, offset)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, list, limit, offset, total)
}

func (h *Handler) GetCounsellor(c *gin.Context) {
	found, err := h.service.GetCounsellor(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, found)
}

func (h *Handler) CreateCounsellor(c *gin.Context) {
	var req createCounsellorRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	created := req.toModel()
	if err := h.service.CreateCounsellor(c.Request.Context(), created); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) UpdateCounsellor(c *gin.Context) {
	var req updateCounsellorRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	updated, err := h.service.UpdateCounsellor(c.Request.Context(), c.Param("id"), req.toUpdate())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) DeleteCounsellor(c *gin.Context) {
	if err := h.service.DeleteCounsellor(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
