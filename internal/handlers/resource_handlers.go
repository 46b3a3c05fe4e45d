package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/schoolfees-api/internal/middleware"
	"github.com/sjperalta/schoolfees-api/internal/models"
	"github.com/sjperalta/schoolfees-api/internal/repository"
	"github.com/sjperalta/schoolfees-api/internal/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// @Summary List Notifications
// @Description Get a paginated list of notifications for the current user
// @Tags Notifications
// @Produce json
// @Param status query string false "read or unread"
// @Param type query string false "Notification type"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) Index(c *gin.Context) {
	subject := middleware.GetSubject(c)
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Filters["status"] = c.Query("status")
	query.Filters["type"] = c.Query("type")
	query.Normalize()

	notifications, total, err := h.notificationService.FindByRecipient(c.Request.Context(), subject, query)
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.notificationService.CountUnread(c.Request.Context(), subject)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, notifications[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": responses,
		"unread":        unread,
		"pagination":    gin.H{"total": total, "page": query.Page, "per_page": query.PerPage},
	})
}

// @Summary Get Notification
// @Tags Notifications
// @Produce json
// @Param notification_id path int true "Notification ID"
// @Success 200 {object} models.NotificationResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /notifications/{notification_id} [get]
func (h *NotificationHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "notification_id")
	if !ok {
		return
	}
	notification, err := h.notificationService.FindByID(c.Request.Context(), id, middleware.GetSubject(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": notification.ToResponse()})
}

// @Summary Mark Notification Read
// @Tags Notifications
// @Produce json
// @Param notification_id path int true "Notification ID"
// @Success 200 {object} models.NotificationResponse
// @Security BearerAuth
// @Router /notifications/{notification_id}/mark_as_read [post]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, ok := paramID(c, "notification_id")
	if !ok {
		return
	}
	notification, err := h.notificationService.MarkAsRead(c.Request.Context(), id, middleware.GetSubject(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": notification.ToResponse()})
}

// @Summary Delete Notification
// @Tags Notifications
// @Produce json
// @Param notification_id path int true "Notification ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /notifications/{notification_id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "notification_id")
	if !ok {
		return
	}
	if err := h.notificationService.Delete(c.Request.Context(), id, middleware.GetSubject(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

// @Summary Mark All Notifications Read
// @Tags Notifications
// @Produce json
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /notifications/mark_all_as_read [post]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	if err := h.notificationService.MarkAllAsRead(c.Request.Context(), middleware.GetSubject(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// @Summary Student Statement PDF
// @Description Every fee payment of a student as a PDF statement
// @Tags Reports
// @Produce application/pdf
// @Param student_id path int true "Student ID"
// @Success 200 {file} file "statement.pdf"
// @Security BearerAuth
// @Router /reports/students/{student_id}/statement.pdf [get]
func (h *ReportHandler) StudentStatementPDF(c *gin.Context) {
	studentID, ok := paramID(c, "student_id")
	if !ok {
		return
	}
	data, filename, err := h.reportService.StudentStatementPDF(c.Request.Context(), actorFrom(c), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	sendAttachment(c, "application/pdf", filename, data)
}

// @Summary Fee Collection XLSX
// @Description Standing of every student a fee applies to, with the fee's payments on a second sheet
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param fee_id path int true "Fee ID"
// @Success 200 {file} file "collection.xlsx"
// @Security BearerAuth
// @Router /reports/fees/{fee_id}/collection.xlsx [get]
func (h *ReportHandler) FeeCollectionXLSX(c *gin.Context) {
	feeID, ok := paramID(c, "fee_id")
	if !ok {
		return
	}
	data, filename, err := h.reportService.FeeCollectionXLSX(c.Request.Context(), actorFrom(c), feeID)
	if err != nil {
		respondError(c, err)
		return
	}
	sendAttachment(c, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename, data)
}

// @Summary Fee Collection CSV
// @Tags Reports
// @Produce text/csv
// @Param fee_id path int true "Fee ID"
// @Success 200 {file} file "collection.csv"
// @Security BearerAuth
// @Router /reports/fees/{fee_id}/collection.csv [get]
func (h *ReportHandler) FeeCollectionCSV(c *gin.Context) {
	feeID, ok := paramID(c, "fee_id")
	if !ok {
		return
	}
	data, filename, err := h.reportService.FeeCollectionCSV(c.Request.Context(), actorFrom(c), feeID)
	if err != nil {
		respondError(c, err)
		return
	}
	sendAttachment(c, "text/csv", filename, data)
}

// @Summary Fee Collection Summary
// @Tags Reports
// @Produce json
// @Param fee_id path int true "Fee ID"
// @Success 200 {object} models.CollectionSummary
// @Security BearerAuth
// @Router /reports/fees/{fee_id}/summary [get]
func (h *ReportHandler) CollectionSummary(c *gin.Context) {
	feeID, ok := paramID(c, "fee_id")
	if !ok {
		return
	}
	summary, err := h.reportService.CollectionSummary(c.Request.Context(), actorFrom(c), feeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// @Summary Collection Trend
// @Description Amount collected per month for a school
// @Tags Reports
// @Produce json
// @Param school_id path int true "School ID"
// @Param year query int false "Year, defaults to the current one"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /reports/schools/{school_id}/trend [get]
func (h *ReportHandler) CollectionTrend(c *gin.Context) {
	schoolID, ok := paramID(c, "school_id")
	if !ok {
		return
	}
	year, _ := strconv.Atoi(c.Query("year"))

	points, err := h.reportService.CollectionTrend(c.Request.Context(), actorFrom(c), schoolID, year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trend": points})
}

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary List Audit Logs
// @Description Get a paginated list of the caller's audit trail
// @Tags Audit
// @Produce json
// @Param entity query string false "Entity name, e.g. Fee or FeePayment"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	offset := (page - 1) * perPage

	logs, total, err := h.auditService.List(c.Request.Context(), actorFrom(c), c.Query("entity"), perPage, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audits": logs, "pagination": gin.H{"total": total, "page": page, "per_page": perPage}})
}
