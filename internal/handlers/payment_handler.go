package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/schoolfees-api/internal/gateway"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
	"github.com/sjperalta/schoolfees-api/internal/services"
	"github.com/sjperalta/schoolfees-api/pkg/logger"
)

// maxCallbackBody bounds the gateway callback body
const maxCallbackBody = 1 << 20

type PaymentHandler struct {
	paymentService *services.PaymentService
	callbackSecret string
}

func NewPaymentHandler(paymentService *services.PaymentService, callbackSecret string) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		callbackSecret: callbackSecret,
	}
}

// @Summary List Payments
// @Description Get a paginated list of the fee payments of a school
// @Tags Payments
// @Produce json
// @Param school_id query int true "School ID"
// @Param student_id query int false "Student ID"
// @Param fee_id query int false "Fee ID"
// @Param status query string false "pending, paid or failed"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /payments [get]
func (h *PaymentHandler) Index(c *gin.Context) {
	query := &repository.PaymentQuery{
		ListQuery: repository.NewListQuery(),
		SchoolID:  queryUint(c, "school_id"),
		StudentID: queryUint(c, "student_id"),
		FeeID:     queryUint(c, "fee_id"),
		Status:    c.Query("status"),
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	for name, target := range map[string]**time.Time{"start_date": &query.StartDate, "end_date": &query.EndDate} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
			return
		}
		*target = &t
	}
	query.Normalize()

	payments, total, err := h.paymentService.List(c.Request.Context(), actorFrom(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.FeePaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": query.TotalPages(total),
		},
	})
}

// @Summary Get Payment
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} models.FeePaymentResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /payments/{payment_id} [get]
func (h *PaymentHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "payment_id")
	if !ok {
		return
	}
	payment, err := h.paymentService.FindByID(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse()})
}

// @Summary Student Payments
// @Description Payment history of a student across fees
// @Tags Payments
// @Produce json
// @Param student_id path int true "Student ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /students/{student_id}/payments [get]
func (h *PaymentHandler) StudentPayments(c *gin.Context) {
	studentID, ok := paramID(c, "student_id")
	if !ok {
		return
	}
	payments, err := h.paymentService.ListByStudent(c.Request.Context(), actorFrom(c), studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.FeePaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"payments": responses})
}

// @Summary Initiate Payment
// @Description Re-quotes the selection server side, stores a pending payment and returns the gateway checkout URL
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body services.InitiateInput true "Payment request"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Security BearerAuth
// @Router /payments/initiate [post]
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var input services.InitiateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.paymentService.Initiate(c.Request.Context(), actorFrom(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment":      result.Payment.ToResponse(),
		"redirect_url": result.RedirectURL,
		"quote":        result.Quote,
	})
}

// @Summary Gateway Callback
// @Description Called by the payment gateway with the outcome of a payment. The body must be signed with the shared secret.
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Callback-Signature header string true "Hex HMAC-SHA256 of the body"
// @Param request body services.CallbackInput true "Outcome"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /payments/callback [post]
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if !gateway.VerifySignature(h.callbackSecret, body, c.GetHeader(gateway.SignatureHeader)) {
		logger.Warn("Rejected payment callback with bad signature", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var input services.CallbackInput
	if err := json.Unmarshal(body, &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Reference == "" || input.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference and status are required"})
		return
	}
	input.Payload = body

	payment, err := h.paymentService.HandleCallback(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse()})
}
