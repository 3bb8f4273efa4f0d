package match

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zencounsel/counsel-api/internal/handler"
	"github.com/zencounsel/counsel-api/internal/service/match"
	"github.com/zencounsel/counsel-api/pkg/httputil"
)

type Handler struct {
	service *match.Service
}

func NewHandler(service *match.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/match", h.Match)
}

// matchRequest carries the category plus the category-specific attributes
// the intake forms send.
type matchRequest struct {
	Category           string             `json:"category"`
	AddictionTypes     handler.StringList `json:"addictionTypes"`
	Concerns           handler.StringList `json:"concerns"`
	PreferredLanguages handler.StringList `json:"preferredLanguages"`
	Languages          handler.StringList `json:"languages"`
}

func (r *matchRequest) toQuery() match.Query {
	tags := append([]string{}, r.AddictionTypes...)
	tags = append(tags, r.Concerns...)

	languages := r.PreferredLanguages
	if len(languages) == 0 {
		languages = r.Languages
	}

	return match.Query{
		Category:  r.Category,
		Tags:      tags,
		Languages: languages,
	}
}

func (h *Handler) Match(c *gin.Context) {
	var req matchRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	matches, err := h.service.Recommend(c.Request.Context(), req.toQuery())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"matches": matches})
}
