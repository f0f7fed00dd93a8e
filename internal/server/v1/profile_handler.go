package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/services"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/server/validator"
	"github.com/JadeOpenClawAI/ai-chat-sub001/pkg/api"
)

type ProfileHandler struct {
	service *services.ProfileService
}

func NewProfileHandler(service *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// List returns every profile with secrets masked.
//
// GET /api/profiles
func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.service.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.NewProfileListResponse(profiles))
}

// Create adds a profile.
//
// POST /api/profiles
func (h *ProfileHandler) Create(c *gin.Context) {
	var req api.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationProblem(validator.ParseValidationError(err)))
		return
	}

	p, err := h.service.Create(c.Request.Context(), req.ToUpdate())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, api.NewProfileResponse(p))
}

// Update merges the body onto the stored profile.
//
// PUT /api/profiles/:id
func (h *ProfileHandler) Update(c *gin.Context) {
	var req api.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationProblem(validator.ParseValidationError(err)))
		return
	}

	p, err := h.service.Update(c.Request.Context(), c.Param("id"), req.ToUpdate())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.NewProfileResponse(p))
}

// Delete removes a profile and returns the repaired routing policy.
//
// DELETE /api/profiles/:id
func (h *ProfileHandler) Delete(c *gin.Context) {
	routing, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.DeleteProfileResponse{OK: true, Routing: routing})
}
