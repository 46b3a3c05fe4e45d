package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/schoolfees-api/internal/feeplan"
	"github.com/sjperalta/schoolfees-api/internal/services"
)

// PlanHandler exposes the fee plan engine
type PlanHandler struct {
	planService *services.FeePlanService
}

func NewPlanHandler(planService *services.FeePlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// @Summary Quote Fee
// @Description Allowed payment options for a student's fee and the cost of the selected one
// @Tags Plans
// @Produce json
// @Param student_id path int true "Student ID"
// @Param fee_id path int true "Fee ID"
// @Param plan query string false "full or a plan id" default(full)
// @Success 200 {object} feeplan.Quote
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /students/{student_id}/fees/{fee_id}/quote [get]
func (h *PlanHandler) Quote(c *gin.Context) {
	studentID, ok := paramID(c, "student_id")
	if !ok {
		return
	}
	feeID, ok := paramID(c, "fee_id")
	if !ok {
		return
	}
	sel, err := feeplan.ParseSelection(c.Query("plan"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quote, err := h.planService.Quote(c.Request.Context(), actorFrom(c), studentID, feeID, sel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": quote})
}

// @Summary Fee Overview
// @Description Full-payment quotes for several fees of a student. Without fee_ids every fee of the student's school is quoted.
// @Tags Plans
// @Produce json
// @Param student_id path int true "Student ID"
// @Param fee_ids query string false "Comma separated fee ids"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /students/{student_id}/fees [get]
func (h *PlanHandler) Overview(c *gin.Context) {
	studentID, ok := paramID(c, "student_id")
	if !ok {
		return
	}
	feeIDs, err := parseIDList(c.Query("fee_ids"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quotes, err := h.planService.Overview(c.Request.Context(), actorFrom(c), studentID, feeIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}
