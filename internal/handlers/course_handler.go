package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	prerequisiteService services.PrerequisiteService
}

func NewCourseHandler(prerequisiteService services.PrerequisiteService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:         NewBaseHandler(logger),
		prerequisiteService: prerequisiteService,
	}
}

// CheckPrerequisites reports whether the caller may enroll in a course
// @Summary Check course prerequisites
// @Tags courses
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} services.PrerequisiteCheckResult
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/prerequisites/check [get]
func (h *CourseHandler) CheckPrerequisites(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	result, err := h.prerequisiteService.Validate(c.Request.Context(), userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Enroll enrolls the caller in a course after validating prerequisites
// @Summary Enroll in course
// @Tags courses
// @Produce json
// @Param id path uint true "Course ID"
// @Success 201
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /courses/{id}/enroll [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Enrolling in course", "course_id", id)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.prerequisiteService.Enroll(c.Request.Context(), userID, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}
