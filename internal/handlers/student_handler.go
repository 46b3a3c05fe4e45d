package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/schoolfees-api/internal/services"
)

type StudentHandler struct {
	studentService *services.StudentService
}

func NewStudentHandler(studentService *services.StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

// @Summary My Students
// @Description Students of the calling guardian
// @Tags Students
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /me/students [get]
func (h *StudentHandler) Mine(c *gin.Context) {
	students, err := h.studentService.ListForGuardian(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// @Summary Get Student
// @Tags Students
// @Produce json
// @Param student_id path int true "Student ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /students/{student_id} [get]
func (h *StudentHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "student_id")
	if !ok {
		return
	}
	student, err := h.studentService.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}
