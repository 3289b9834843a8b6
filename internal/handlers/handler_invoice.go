package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// invoiceHandler handles HTTP requests related to invoices within a company.
type invoiceHandler struct {
	invoiceService        portssvc.InvoiceSvcFacade
	reconciliationService portssvc.CreditReconciliationSvc
}

// newInvoiceHandler creates a new invoiceHandler.
func newInvoiceHandler(is portssvc.InvoiceSvcFacade, rs portssvc.CreditReconciliationSvc) *invoiceHandler {
	return &invoiceHandler{
		invoiceService:        is,
		reconciliationService: rs,
	}
}

// registerInvoiceRoutes registers invoice routes nested under a company group.
func registerInvoiceRoutes(companyGroup *gin.RouterGroup, invoiceService portssvc.InvoiceSvcFacade, reconciliationService portssvc.CreditReconciliationSvc) {
	h := newInvoiceHandler(invoiceService, reconciliationService)

	invoices := companyGroup.Group("/invoices")
	{
		invoices.PUT("", h.upsertInvoice) // QuickBooks sync push, idempotent on quickBooksID
		invoices.GET("", h.listInvoices)
		invoices.GET("/:invoice_id", h.getInvoice)
		invoices.GET("/:invoice_id/lines", h.getInvoiceLines)
		invoices.GET("/:invoice_id/credit-summary", h.getCreditSummary)
		invoices.POST("/:invoice_id/validate-credit", h.validateCreditAmount)
	}
}

// upsertInvoice godoc
// @Summary Upsert an invoice
// @Description Creates or replaces an invoice pushed by the QuickBooks sync, matched on its QuickBooks id within the company. Line items are replaced wholesale on update.
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   invoice body dto.UpsertInvoiceRequest true "Invoice as synced from QuickBooks"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Company not found"
// @Failure 409 {object} map[string]string "Concurrent modification"
// @Failure 500 {object} map[string]string "Failed to upsert invoice"
// @Security BearerAuth
// @Router /companies/{company_id}/invoices [put]
func (h *invoiceHandler) upsertInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.UpsertInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpsertInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("quickbooks_id", req.QuickBooksID))
	logger.Info("Received invoice upsert", slog.String("document_number", req.DocumentNumber))

	invoice, err := h.invoiceService.UpsertInvoice(c.Request.Context(), companyID, req, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "upsert invoice")
		return
	}

	logger.Info("Invoice upserted successfully", slog.String("invoice_id", invoice.InvoiceID))
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// getInvoice godoc
// @Summary Get an invoice
// @Description Retrieves an invoice belonging to the company.
// @Tags invoices
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   invoice_id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 500 {object} map[string]string "Failed to retrieve invoice"
// @Security BearerAuth
// @Router /companies/{company_id}/invoices/{invoice_id} [get]
func (h *invoiceHandler) getInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	invoiceID := c.Param("invoice_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("invoice_id", invoiceID))

	invoice, err := h.invoiceService.GetInvoiceByID(c.Request.Context(), companyID, invoiceID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "get invoice")
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// getInvoiceLines godoc
// @Summary Get invoice line items
// @Description Retrieves the line items of an invoice in line number order.
// @Tags invoices
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   invoice_id path string true "Invoice ID"
// @Success 200 {array} dto.LineItemResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 500 {object} map[string]string "Failed to retrieve lines"
// @Security BearerAuth
// @Router /companies/{company_id}/invoices/{invoice_id}/lines [get]
func (h *invoiceHandler) getInvoiceLines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	invoiceID := c.Param("invoice_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("invoice_id", invoiceID))

	lines, err := h.invoiceService.GetInvoiceLines(c.Request.Context(), companyID, invoiceID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "get invoice lines")
		return
	}

	c.JSON(http.StatusOK, dto.ToLineItemResponses(lines))
}

// listInvoices godoc
// @Summary List invoices
// @Description Retrieves a paginated list of invoices for the company, newest first.
// @Tags invoices
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Pagination token from the previous page"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list invoices"
// @Security BearerAuth
// @Router /companies/{company_id}/invoices [get]
func (h *invoiceHandler) listInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListInvoicesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListInvoices", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID))

	resp, err := h.invoiceService.ListInvoices(c.Request.Context(), companyID, userID, params)
	if err != nil {
		respondCompanyError(c, logger, err, "list invoices")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getCreditSummary godoc
// @Summary Get the credit position of an invoice
// @Description Computes the invoice's linked credit total, available balance, fully-credited flag and utilization percentage from current data.
// @Tags invoices
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   invoice_id path string true "Invoice ID"
// @Success 200 {object} dto.CreditSummaryResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 500 {object} map[string]string "Failed to compute credit summary"
// @Security BearerAuth
// @Router /companies/{company_id}/invoices/{invoice_id}/credit-summary [get]
func (h *invoiceHandler) getCreditSummary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	invoiceID := c.Param("invoice_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("invoice_id", invoiceID))

	summary, err := h.reconciliationService.SummarizeCredits(c.Request.Context(), companyID, invoiceID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "compute credit summary")
		return
	}

	c.JSON(http.StatusOK, dto.ToCreditSummaryResponse(summary))
}

// validateCreditAmount godoc
// @Summary Validate a prospective credit amount
// @Description Checks whether the amount could currently be credited against the invoice. A rejection is returned as a normal response with ok=false, not as an HTTP error. Advisory only: linking revalidates under the invoice lock.
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   invoice_id path string true "Invoice ID"
// @Param   amount body dto.ValidateCreditAmountRequest true "Amount to validate"
// @Success 200 {object} dto.CreditValidationResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 500 {object} map[string]string "Failed to validate credit amount"
// @Security BearerAuth
// @Router /companies/{company_id}/invoices/{invoice_id}/validate-credit [post]
func (h *invoiceHandler) validateCreditAmount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	invoiceID := c.Param("invoice_id")

	var req dto.ValidateCreditAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ValidateCreditAmount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("invoice_id", invoiceID))

	validation, err := h.reconciliationService.ValidateCreditAmount(c.Request.Context(), companyID, invoiceID, req.Amount, req.ExcludeCreditNoteID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "validate credit amount")
		return
	}

	c.JSON(http.StatusOK, dto.ToCreditValidationResponse(validation))
}
