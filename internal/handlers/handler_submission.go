package handlers

import (
	"log/slog"
	"net/http"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// submissionHandler handles HTTP requests related to tax authority submissions.
type submissionHandler struct {
	submissionService portssvc.SubmissionSvcFacade
}

// newSubmissionHandler creates a new submissionHandler.
func newSubmissionHandler(ss portssvc.SubmissionSvcFacade) *submissionHandler {
	return &submissionHandler{
		submissionService: ss,
	}
}

// registerSubmissionRoutes registers submission routes nested under a company group.
func registerSubmissionRoutes(companyGroup *gin.RouterGroup, submissionService portssvc.SubmissionSvcFacade) {
	h := newSubmissionHandler(submissionService)

	submissions := companyGroup.Group("/submissions")
	{
		submissions.POST("", h.submitDocument)
		submissions.GET("", h.listSubmissions)
		submissions.GET("/by-document", h.getSubmissionForDocument)
		submissions.GET("/:submission_id", h.getSubmission)
		submissions.POST("/:submission_id/sign", h.markSigned)
	}
}

// submitDocument godoc
// @Summary Submit a document to the tax authority
// @Description Submits an invoice or credit note to eTIMS. A first attempt allocates the next sequential number; a retry of a failed submission reuses the existing record and its number. Returns 409 when the document already succeeded or a submission is in flight.
// @Tags submissions
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   document body dto.SubmitDocumentRequest true "Document to submit"
// @Success 200 {object} dto.SubmissionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Document or company not found"
// @Failure 409 {object} map[string]string "Already submitted, in flight, or retry limit exceeded"
// @Failure 502 {object} map[string]string "Authority rejected or unreachable"
// @Security BearerAuth
// @Router /companies/{company_id}/submissions [post]
func (h *submissionHandler) submitDocument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.SubmitDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SubmitDocument", slog.String("error", err.Error()))
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
		slog.String("document_type", string(req.DocumentType)),
		slog.String("document_id", req.DocumentID),
	)
	logger.Info("Received request to submit document to tax authority")

	record, err := h.submissionService.SubmitDocument(c.Request.Context(), companyID, req.DocumentType, req.DocumentID, userID)
	if err != nil {
		// A failed authority call still produced a record worth returning.
		if record != nil {
			logger.Warn("Submission did not succeed", slog.String("error", err.Error()), slog.String("status", string(record.Status)))
			c.JSON(http.StatusBadGateway, gin.H{
				"error":      err.Error(),
				"submission": dto.ToSubmissionResponse(record),
			})
			return
		}
		respondCompanyError(c, logger, err, "submit document")
		return
	}

	logger.Info("Document submitted successfully",
		slog.String("submission_id", record.SubmissionID),
		slog.Int64("allocated_number", record.AllocatedNumber),
	)
	c.JSON(http.StatusOK, dto.ToSubmissionResponse(record))
}

// getSubmission godoc
// @Summary Get a submission record
// @Description Retrieves a submission record belonging to the company.
// @Tags submissions
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   submission_id path string true "Submission ID"
// @Success 200 {object} dto.SubmissionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Submission not found"
// @Failure 500 {object} map[string]string "Failed to retrieve submission"
// @Security BearerAuth
// @Router /companies/{company_id}/submissions/{submission_id} [get]
func (h *submissionHandler) getSubmission(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	submissionID := c.Param("submission_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("submission_id", submissionID))

	record, err := h.submissionService.GetSubmissionByID(c.Request.Context(), companyID, submissionID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "get submission")
		return
	}

	c.JSON(http.StatusOK, dto.ToSubmissionResponse(record))
}

// getSubmissionForDocument godoc
// @Summary Get the submission record of a document
// @Description Retrieves the submission record of an invoice or credit note, if one exists.
// @Tags submissions
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   documentType query string true "Document type" Enums(INVOICE, CREDIT_NOTE)
// @Param   documentID query string true "Document ID"
// @Success 200 {object} dto.SubmissionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "No submission for the document"
// @Failure 500 {object} map[string]string "Failed to retrieve submission"
// @Security BearerAuth
// @Router /companies/{company_id}/submissions/by-document [get]
func (h *submissionHandler) getSubmissionForDocument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	documentType := domain.DocumentType(c.Query("documentType"))
	documentID := c.Query("documentID")
	if (documentType != domain.DocumentTypeInvoice && documentType != domain.DocumentTypeCreditNote) || documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentType (INVOICE or CREDIT_NOTE) and documentID are required"})
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
		slog.String("document_type", string(documentType)),
		slog.String("document_id", documentID),
	)

	record, err := h.submissionService.GetSubmissionForDocument(c.Request.Context(), companyID, documentType, documentID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "get submission for document")
		return
	}

	c.JSON(http.StatusOK, dto.ToSubmissionResponse(record))
}

// listSubmissions godoc
// @Summary List submission records
// @Description Retrieves a paginated list of submission records for the company, newest first, optionally filtered by status.
// @Tags submissions
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Pagination token from the previous page"
// @Param   status query string false "Filter by status" Enums(PENDING, SUBMITTED, SUCCESS, FAILED, SIGNED)
// @Success 200 {object} dto.ListSubmissionsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list submissions"
// @Security BearerAuth
// @Router /companies/{company_id}/submissions [get]
func (h *submissionHandler) listSubmissions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListSubmissionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListSubmissions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID))

	resp, err := h.submissionService.ListSubmissions(c.Request.Context(), companyID, userID, params)
	if err != nil {
		respondCompanyError(c, logger, err, "list submissions")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// markSigned godoc
// @Summary Record external signing confirmation
// @Description Marks a successful submission as signed after out-of-band confirmation from the authority.
// @Tags submissions
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   submission_id path string true "Submission ID"
// @Success 200 {object} dto.SubmissionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Submission not found"
// @Failure 409 {object} map[string]string "Submission is not in the success state"
// @Failure 500 {object} map[string]string "Failed to mark submission signed"
// @Security BearerAuth
// @Router /companies/{company_id}/submissions/{submission_id}/sign [post]
func (h *submissionHandler) markSigned(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	submissionID := c.Param("submission_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("submission_id", submissionID))

	// Tenancy check first; the lifecycle transition itself is keyed by id only.
	if _, err := h.submissionService.GetSubmissionByID(c.Request.Context(), companyID, submissionID, userID); err != nil {
		respondCompanyError(c, logger, err, "mark submission signed")
		return
	}

	record, err := h.submissionService.MarkSigned(c.Request.Context(), submissionID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "mark submission signed")
		return
	}

	logger.Info("Submission marked signed")
	c.JSON(http.StatusOK, dto.ToSubmissionResponse(record))
}
