package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// creditNoteHandler handles HTTP requests related to credit notes within a company.
type creditNoteHandler struct {
	creditNoteService     portssvc.CreditNoteSvcFacade
	reconciliationService portssvc.CreditReconciliationSvc
}

// newCreditNoteHandler creates a new creditNoteHandler.
func newCreditNoteHandler(cns portssvc.CreditNoteSvcFacade, rs portssvc.CreditReconciliationSvc) *creditNoteHandler {
	return &creditNoteHandler{
		creditNoteService:     cns,
		reconciliationService: rs,
	}
}

// registerCreditNoteRoutes registers credit note routes nested under a company group.
func registerCreditNoteRoutes(companyGroup *gin.RouterGroup, creditNoteService portssvc.CreditNoteSvcFacade, reconciliationService portssvc.CreditReconciliationSvc) {
	h := newCreditNoteHandler(creditNoteService, reconciliationService)

	creditNotes := companyGroup.Group("/credit-notes")
	{
		creditNotes.PUT("", h.upsertCreditNote) // QuickBooks sync push, idempotent on quickBooksID
		creditNotes.GET("", h.listCreditNotes)
		creditNotes.GET("/:credit_note_id", h.getCreditNote)
		creditNotes.GET("/:credit_note_id/lines", h.getCreditNoteLines)
		creditNotes.POST("/:credit_note_id/link", h.linkCreditNote)
		creditNotes.DELETE("/:credit_note_id/link", h.unlinkCreditNote)
	}
}

// upsertCreditNote godoc
// @Summary Upsert a credit note
// @Description Creates or replaces a credit note pushed by the QuickBooks sync, matched on its QuickBooks id within the company. The invoice link is never touched by the upsert; only the reconciliation engine mutates it.
// @Tags credit-notes
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   creditNote body dto.UpsertCreditNoteRequest true "Credit note as synced from QuickBooks"
// @Success 200 {object} dto.CreditNoteResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Company not found"
// @Failure 409 {object} map[string]string "Concurrent modification"
// @Failure 500 {object} map[string]string "Failed to upsert credit note"
// @Security BearerAuth
// @Router /companies/{company_id}/credit-notes [put]
func (h *creditNoteHandler) upsertCreditNote(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.UpsertCreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpsertCreditNote", slog.String("error", err.Error()))
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
	logger.Info("Received credit note upsert", slog.String("document_number", req.DocumentNumber))

	creditNote, err := h.creditNoteService.UpsertCreditNote(c.Request.Context(), companyID, req, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "upsert credit note")
		return
	}

	logger.Info("Credit note upserted successfully", slog.String("credit_note_id", creditNote.CreditNoteID))
	c.JSON(http.StatusOK, dto.ToCreditNoteResponse(creditNote))
}

// getCreditNote godoc
// @Summary Get a credit note
// @Description Retrieves a credit note belonging to the company.
// @Tags credit-notes
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   credit_note_id path string true "Credit Note ID"
// @Success 200 {object} dto.CreditNoteResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Credit note not found"
// @Failure 500 {object} map[string]string "Failed to retrieve credit note"
// @Security BearerAuth
// @Router /companies/{company_id}/credit-notes/{credit_note_id} [get]
func (h *creditNoteHandler) getCreditNote(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	creditNoteID := c.Param("credit_note_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("credit_note_id", creditNoteID))

	creditNote, err := h.creditNoteService.GetCreditNoteByID(c.Request.Context(), companyID, creditNoteID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "get credit note")
		return
	}

	c.JSON(http.StatusOK, dto.ToCreditNoteResponse(creditNote))
}

// getCreditNoteLines godoc
// @Summary Get credit note line items
// @Description Retrieves the line items of a credit note in line number order.
// @Tags credit-notes
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   credit_note_id path string true "Credit Note ID"
// @Success 200 {array} dto.LineItemResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Credit note not found"
// @Failure 500 {object} map[string]string "Failed to retrieve lines"
// @Security BearerAuth
// @Router /companies/{company_id}/credit-notes/{credit_note_id}/lines [get]
func (h *creditNoteHandler) getCreditNoteLines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	creditNoteID := c.Param("credit_note_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("credit_note_id", creditNoteID))

	lines, err := h.creditNoteService.GetCreditNoteLines(c.Request.Context(), companyID, creditNoteID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "get credit note lines")
		return
	}

	c.JSON(http.StatusOK, dto.ToLineItemResponses(lines))
}

// listCreditNotes godoc
// @Summary List credit notes
// @Description Retrieves a paginated list of credit notes for the company, newest first.
// @Tags credit-notes
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Pagination token from the previous page"
// @Success 200 {object} dto.ListCreditNotesResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list credit notes"
// @Security BearerAuth
// @Router /companies/{company_id}/credit-notes [get]
func (h *creditNoteHandler) listCreditNotes(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListCreditNotesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListCreditNotes", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID))

	resp, err := h.creditNoteService.ListCreditNotes(c.Request.Context(), companyID, userID, params)
	if err != nil {
		respondCompanyError(c, logger, err, "list credit notes")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// linkCreditNote godoc
// @Summary Link a credit note to an invoice
// @Description Links the credit note to an invoice. Validation and commit happen atomically under an exclusive lock on the invoice row; a rejection comes back with HTTP 200 and ok=false in the validation.
// @Tags credit-notes
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   credit_note_id path string true "Credit Note ID"
// @Param   link body dto.LinkCreditNoteRequest true "Target invoice"
// @Success 200 {object} dto.CreditLinkResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Credit note or invoice not found"
// @Failure 500 {object} map[string]string "Failed to link credit note"
// @Security BearerAuth
// @Router /companies/{company_id}/credit-notes/{credit_note_id}/link [post]
func (h *creditNoteHandler) linkCreditNote(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	creditNoteID := c.Param("credit_note_id")

	var req dto.LinkCreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for LinkCreditNote", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(
		slog.String("user_id", userID),
		slog.String("company_id", companyID),
		slog.String("credit_note_id", creditNoteID),
		slog.String("invoice_id", req.InvoiceID),
	)
	logger.Info("Received request to link credit note to invoice")

	result, err := h.reconciliationService.LinkCreditNote(c.Request.Context(), companyID, creditNoteID, req.InvoiceID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "link credit note")
		return
	}

	if !result.Validation.OK {
		logger.Info("Credit note link rejected", slog.String("reason", string(result.Validation.Reason)))
	} else {
		logger.Info("Credit note linked successfully")
	}
	c.JSON(http.StatusOK, dto.ToCreditLinkResponse(result))
}

// unlinkCreditNote godoc
// @Summary Unlink a credit note from its invoice
// @Description Clears the invoice link of a credit note, restoring the invoice's available balance.
// @Tags credit-notes
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   credit_note_id path string true "Credit Note ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Credit note not found"
// @Failure 500 {object} map[string]string "Failed to unlink credit note"
// @Security BearerAuth
// @Router /companies/{company_id}/credit-notes/{credit_note_id}/link [delete]
func (h *creditNoteHandler) unlinkCreditNote(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	creditNoteID := c.Param("credit_note_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("credit_note_id", creditNoteID))
	logger.Info("Received request to unlink credit note")

	if err := h.reconciliationService.UnlinkCreditNote(c.Request.Context(), companyID, creditNoteID, userID); err != nil {
		respondCompanyError(c, logger, err, "unlink credit note")
		return
	}

	logger.Info("Credit note unlinked successfully")
	c.Status(http.StatusNoContent)
}
