package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zencounsel/counsel-api/internal/service/stats"
	"github.com/zencounsel/counsel-api/pkg/httputil"
)

type Handler struct {
	service *stats.Service
}

func NewHandler(service *stats.Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes expects r to be behind the admin gate.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.GetStats)
}

// GetStats always answers 200; partial failures are listed in warnings.
func (h *Handler) GetStats(c *gin.Context) {
	httputil.RespondWithSuccess(c, http.StatusOK, h.service.Collect(c.Request.Context()))
}
