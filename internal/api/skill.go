package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/slotbook/internal/middleware"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/service"
	"go.uber.org/zap"
)

type SkillHandler struct {
	skills *service.SkillService
	logger *zap.Logger
}

func NewSkillHandler(skills *service.SkillService, logger *zap.Logger) *SkillHandler {
	return &SkillHandler{skills: skills, logger: logger}
}

type createSkillRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Category    *string `json:"category" binding:"omitempty,max=100"`
	Description *string `json:"description"`
}

type updateSkillRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Category    *string `json:"category" binding:"omitempty,max=100"`
	Description *string `json:"description"`
}

type listSkillsQuery struct {
	Search string `form:"search"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// Create handles POST /v1/skills
func (h *SkillHandler) Create(c *gin.Context) {
	var req createSkillRequest
	if !bindJSON(c, &req) {
		return
	}
	skill, err := h.skills.Create(c.Request.Context(), middleware.GetTenantID(c), req.Name, req.Category, req.Description)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, skill)
}

// List handles GET /v1/skills?search=&limit=&offset=
func (h *SkillHandler) List(c *gin.Context) {
	var q listSkillsQuery
	if !bindQuery(c, &q) {
		return
	}
	skills, err := h.skills.List(c.Request.Context(), middleware.GetTenantID(c), models.SkillFilter{
		Search: q.Search,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, skills)
}

// Get handles GET /v1/skills/:id
func (h *SkillHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	skill, err := h.skills.Get(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, skill)
}

// Update handles PUT /v1/skills/:id
func (h *SkillHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateSkillRequest
	if !bindJSON(c, &req) {
		return
	}
	skill, err := h.skills.Update(c.Request.Context(), middleware.GetTenantID(c), id, models.SkillUpdate{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, skill)
}

// Delete handles DELETE /v1/skills/:id
func (h *SkillHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.skills.Delete(c.Request.Context(), middleware.GetTenantID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
