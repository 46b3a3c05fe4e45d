package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
	"github.com/sjperalta/schoolfees-api/internal/services"
)

type FeeHandler struct {
	feeService *services.FeeService
}

func NewFeeHandler(feeService *services.FeeService) *FeeHandler {
	return &FeeHandler{feeService: feeService}
}

// @Summary List Fees
// @Description Get a paginated list of the fees of a school
// @Tags Fees
// @Produce json
// @Param school_id query int true "School ID"
// @Param session query string false "Academic session"
// @Param term query string false "Term"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /fees [get]
func (h *FeeHandler) Index(c *gin.Context) {
	query := &repository.FeeQuery{
		ListQuery: repository.NewListQuery(),
		SchoolID:  queryUint(c, "school_id"),
		Session:   c.Query("session"),
		Term:      c.Query("term"),
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.SortBy = c.Query("sort_by")
	query.SortDir = c.Query("sort_dir")
	query.Normalize()

	fees, total, err := h.feeService.List(c.Request.Context(), actorFrom(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.FeeResponse, 0, len(fees))
	for i := range fees {
		responses = append(responses, fees[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"fees": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": query.TotalPages(total),
		},
	})
}

// @Summary Get Fee
// @Description Get a fee with its plans, services and class totals
// @Tags Fees
// @Produce json
// @Param fee_id path int true "Fee ID"
// @Success 200 {object} models.FeeResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /fees/{fee_id} [get]
func (h *FeeHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "fee_id")
	if !ok {
		return
	}
	fee, err := h.feeService.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee": fee.ToResponse()})
}

// @Summary Create Fee
// @Description Create a fee with its services and installment plans. Class totals are derived from the services.
// @Tags Fees
// @Accept json
// @Produce json
// @Param request body services.FeeInput true "Fee"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /fees [post]
func (h *FeeHandler) Create(c *gin.Context) {
	var input services.FeeInput
	if err := BindNestedOrFlat(c, "fee", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.feeService.Create(c.Request.Context(), actorFrom(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saveResponse(result))
}

// @Summary Update Fee
// @Description Replace a fee, its services and its plans
// @Tags Fees
// @Accept json
// @Produce json
// @Param fee_id path int true "Fee ID"
// @Param request body services.FeeInput true "Fee"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /fees/{fee_id} [put]
func (h *FeeHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "fee_id")
	if !ok {
		return
	}
	var input services.FeeInput
	if err := BindNestedOrFlat(c, "fee", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.feeService.Update(c.Request.Context(), actorFrom(c), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saveResponse(result))
}

// @Summary Delete Fee
// @Description Delete a fee that has no completed payments
// @Tags Fees
// @Produce json
// @Param fee_id path int true "Fee ID"
// @Success 200 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /fees/{fee_id} [delete]
func (h *FeeHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "fee_id")
	if !ok {
		return
	}
	if err := h.feeService.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fee deleted"})
}

func saveResponse(result *services.FeeSaveResult) gin.H {
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return gin.H{
		"fee":                 result.Fee.ToResponse(),
		"percentage_total":    result.PercentageTotal,
		"percentage_complete": result.PercentageComplete,
		"warnings":            warnings,
	}
}
