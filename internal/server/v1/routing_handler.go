package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/services"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/server/validator"
	"github.com/JadeOpenClawAI/ai-chat-sub001/pkg/api"
)

type RoutingHandler struct {
	service *services.RoutingService
}

func NewRoutingHandler(service *services.RoutingService) *RoutingHandler {
	return &RoutingHandler{service: service}
}

// GET /api/routing
func (h *RoutingHandler) Get(c *gin.Context) {
	r, err := h.service.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.NewRoutingResponse(r))
}

// Set replaces the routing policy wholesale.
//
// POST /api/routing
func (h *RoutingHandler) Set(c *gin.Context) {
	var req api.RoutingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationProblem(validator.ParseValidationError(err)))
		return
	}

	r, err := h.service.Set(c.Request.Context(), req.ToDomain())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.NewRoutingResponse(r))
}
