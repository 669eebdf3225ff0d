package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seedlinghq/seedling-api/internal/models"
	"github.com/seedlinghq/seedling-api/internal/service"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
	"github.com/seedlinghq/seedling-api/pkg/response"
)

// SkillHandler exposes the skills catalogue and nested lessons.
type SkillHandler struct {
	skills *service.SkillService
}

// NewSkillHandler constructs handler.
func NewSkillHandler(skills *service.SkillService) *SkillHandler {
	return &SkillHandler{skills: skills}
}

// List godoc
// @Summary List skills
// @Tags Skills
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search name or description"
// @Param ageBand query string false "Filter by age band"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /skills [get]
func (h *SkillHandler) List(c *gin.Context) {
	filter := models.SkillFilter{
		Search:  c.Query("search"),
		AgeBand: c.Query("ageBand"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	skills, pagination, err := h.skills.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, skills, pagination)
}

// Get godoc
// @Summary Get skill by ID
// @Tags Skills
// @Produce json
// @Security BearerAuth
// @Param id path string true "Skill ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /skills/{id} [get]
func (h *SkillHandler) Get(c *gin.Context) {
	skill, err := h.skills.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, skill, nil)
}

// Create godoc
// @Summary Create skill
// @Tags Skills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpsertSkillRequest true "Skill payload"
// @Success 201 {object} response.Envelope
// @Router /skills [post]
func (h *SkillHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpsertSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	skill, err := h.skills.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, skill)
}

// Update godoc
// @Summary Update skill
// @Tags Skills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Skill ID"
// @Param payload body service.UpsertSkillRequest true "Skill payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /skills/{id} [put]
func (h *SkillHandler) Update(c *gin.Context) {
	var req service.UpsertSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	skill, err := h.skills.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, skill, nil)
}

// Delete godoc
// @Summary Delete skill
// @Tags Skills
// @Produce json
// @Security BearerAuth
// @Param id path string true "Skill ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /skills/{id} [delete]
func (h *SkillHandler) Delete(c *gin.Context) {
	if err := h.skills.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListLessons godoc
// @Summary List lessons under a skill
// @Tags Skills
// @Produce json
// @Security BearerAuth
// @Param id path string true "Skill ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /skills/{id}/lessons [get]
func (h *SkillHandler) ListLessons(c *gin.Context) {
	lessons, err := h.skills.ListLessons(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// CreateLesson godoc
// @Summary Add lesson to a skill
// @Tags Skills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Skill ID"
// @Param payload body service.UpsertLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /skills/{id}/lessons [post]
func (h *SkillHandler) CreateLesson(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpsertLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.skills.CreateLesson(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// UpdateLesson godoc
// @Summary Update lesson
// @Tags Skills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "Lesson ID"
// @Param payload body service.UpsertLessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{lessonId} [put]
func (h *SkillHandler) UpdateLesson(c *gin.Context) {
	var req service.UpsertLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.skills.UpdateLesson(c.Request.Context(), c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// DeleteLesson godoc
// @Summary Delete lesson
// @Tags Skills
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "Lesson ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /lessons/{lessonId} [delete]
func (h *SkillHandler) DeleteLesson(c *gin.Context) {
	if err := h.skills.DeleteLesson(c.Request.Context(), c.Param("lessonId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
