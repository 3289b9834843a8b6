package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// companyHandler handles HTTP requests related to companies and their members.
type companyHandler struct {
	companyService portssvc.CompanySvcFacade
}

// newCompanyHandler creates a new companyHandler.
func newCompanyHandler(cs portssvc.CompanySvcFacade) *companyHandler {
	return &companyHandler{
		companyService: cs,
	}
}

// registerCompanyRoutes registers routes related to companies and their members.
// It also registers INVOICE, CREDIT NOTE and SUBMISSION routes nested under a
// specific company, since every tax document belongs to exactly one company.
func registerCompanyRoutes(
	rg *gin.RouterGroup,
	companyService portssvc.CompanySvcFacade,
	invoiceService portssvc.InvoiceSvcFacade,
	creditNoteService portssvc.CreditNoteSvcFacade,
	reconciliationService portssvc.CreditReconciliationSvc,
	submissionService portssvc.SubmissionSvcFacade,
) {
	h := newCompanyHandler(companyService)

	// Routes for managing companies themselves
	companiesTopLevel := rg.Group("/companies")
	{
		companiesTopLevel.POST("", h.createCompany)
		companiesTopLevel.GET("", h.listUserCompanies) // List companies the calling user belongs to
	}

	// Routes specific to a single company (identified by company_id)
	companySpecific := rg.Group("/companies/:company_id")
	{
		companySpecific.GET("", h.getCompany)
		companySpecific.PUT("", h.updateCompany)
		companySpecific.POST("/deactivate", h.deactivateCompany)
		companySpecific.POST("/activate", h.activateCompany)

		// Manage users within a company
		companyUsers := companySpecific.Group("/users")
		{
			companyUsers.POST("", h.addUserToCompany)
			companyUsers.GET("", h.listCompanyUsers)
			companyUsers.PUT("/:user_id/role", h.updateUserCompanyRole)
			companyUsers.DELETE("/:user_id", h.removeUserFromCompany)
		}

		// -- NESTED DOCUMENT ROUTES --
		registerInvoiceRoutes(companySpecific, invoiceService, reconciliationService)
		registerCreditNoteRoutes(companySpecific, creditNoteService, reconciliationService)
		registerSubmissionRoutes(companySpecific, submissionService)
	}
}

// respondCompanyError maps service errors to HTTP responses for company routes.
func respondCompanyError(c *gin.Context, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn(action+" failed: not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn(action + " failed: forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn(action+" failed: validation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn(action+" failed: conflict", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Failed to "+action, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

// createCompany godoc
// @Summary Register a new company
// @Description Registers a new company with its KRA tax identity and assigns the creator as admin.
// @Tags companies
// @Accept  json
// @Produce  json
// @Param   company body dto.CreateCompanyRequest true "Company details"
// @Success 201 {object} dto.CompanyResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to create company"
// @Security BearerAuth
// @Router /companies [post]
func (h *companyHandler) createCompany(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateCompany", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("creator_user_id", creatorUserID))
	logger.Info("Received request to create company", slog.String("company_name", req.Name), slog.String("kra_pin", req.KraPin))

	newCompany, err := h.companyService.CreateCompany(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondCompanyError(c, logger, err, "create company")
		return
	}

	logger.Info("Company created successfully", slog.String("company_id", newCompany.CompanyID))
	c.JSON(http.StatusCreated, dto.ToCompanyResponse(newCompany))
}

// listUserCompanies godoc
// @Summary List companies for current user
// @Description Retrieves a list of companies the authenticated user belongs to.
// @Tags companies
// @Produce  json
// @Param   includeDisabled query bool false "Include deactivated companies" default(false)
// @Success 200 {object} dto.ListCompaniesResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list companies"
// @Security BearerAuth
// @Router /companies [get]
func (h *companyHandler) listUserCompanies(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	includeDisabled, _ := strconv.ParseBool(c.DefaultQuery("includeDisabled", "false"))

	logger = logger.With(slog.String("user_id", userID))
	logger.Info("Received request to list user's companies")

	companies, err := h.companyService.ListUserCompanies(c.Request.Context(), userID, includeDisabled)
	if err != nil {
		respondCompanyError(c, logger, err, "list companies")
		return
	}

	logger.Info("Companies listed successfully", slog.Int("count", len(companies)))
	c.JSON(http.StatusOK, dto.ToListCompaniesResponse(companies))
}

// getCompany godoc
// @Summary Get a company
// @Description Retrieves details of a company the caller is a member of. The device key is never returned.
// @Tags companies
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Success 200 {object} dto.CompanyResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Company not found"
// @Failure 500 {object} map[string]string "Failed to retrieve company"
// @Security BearerAuth
// @Router /companies/{company_id} [get]
func (h *companyHandler) getCompany(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID))

	// Membership check before exposing company details.
	if err := h.companyService.AuthorizeUserAction(c.Request.Context(), userID, companyID, domain.RoleReadOnly); err != nil {
		respondCompanyError(c, logger, err, "get company")
		return
	}

	company, err := h.companyService.FindCompanyByID(c.Request.Context(), companyID)
	if err != nil {
		respondCompanyError(c, logger, err, "get company")
		return
	}

	c.JSON(http.StatusOK, dto.ToCompanyResponse(company))
}

// updateCompany godoc
// @Summary Update a company
// @Description Updates the tax identity and receipt configuration of a company (admin only).
// @Tags companies
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   company body dto.UpdateCompanyRequest true "Fields to update"
// @Success 200 {object} dto.CompanyResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden (caller is not admin)"
// @Failure 404 {object} map[string]string "Company not found"
// @Failure 500 {object} map[string]string "Failed to update company"
// @Security BearerAuth
// @Router /companies/{company_id} [put]
func (h *companyHandler) updateCompany(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateCompany", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID))
	logger.Info("Received request to update company")

	updated, err := h.companyService.UpdateCompany(c.Request.Context(), companyID, req, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "update company")
		return
	}

	logger.Info("Company updated successfully")
	c.JSON(http.StatusOK, dto.ToCompanyResponse(updated))
}

// deactivateCompany godoc
// @Summary Deactivate a company
// @Description Marks a company inactive; it stops appearing in listings and cannot submit documents (admin only).
// @Tags companies
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden (caller is not admin)"
// @Failure 404 {object} map[string]string "Company not found"
// @Failure 500 {object} map[string]string "Failed to deactivate company"
// @Security BearerAuth
// @Router /companies/{company_id}/deactivate [post]
func (h *companyHandler) deactivateCompany(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID))

	if err := h.companyService.DeactivateCompany(c.Request.Context(), companyID, userID); err != nil {
		respondCompanyError(c, logger, err, "deactivate company")
		return
	}

	logger.Info("Company deactivated successfully")
	c.Status(http.StatusNoContent)
}

// activateCompany godoc
// @Summary Activate a company
// @Description Marks a previously deactivated company as active again (admin only).
// @Tags companies
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden (caller is not admin)"
// @Failure 404 {object} map[string]string "Company not found"
// @Failure 500 {object} map[string]string "Failed to activate company"
// @Security BearerAuth
// @Router /companies/{company_id}/activate [post]
func (h *companyHandler) activateCompany(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID))

	if err := h.companyService.ActivateCompany(c.Request.Context(), companyID, userID); err != nil {
		respondCompanyError(c, logger, err, "activate company")
		return
	}

	logger.Info("Company activated successfully")
	c.Status(http.StatusNoContent)
}

// addUserToCompany godoc
// @Summary Add a user to a company
// @Description Adds a specified user to a company with a given role (requires admin permission).
// @Tags companies
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   user_details body dto.AddUserToCompanyRequest true "User ID and Role"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden (caller is not admin)"
// @Failure 404 {object} map[string]string "Company or User not found"
// @Failure 500 {object} map[string]string "Failed to add user"
// @Security BearerAuth
// @Router /companies/{company_id}/users [post]
func (h *companyHandler) addUserToCompany(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.AddUserToCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddUserToCompany", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	addingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Adding user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("adding_user_id", addingUserID), slog.String("company_id", companyID), slog.String("target_user_id", req.UserID))
	logger.Info("Received request to add user to company", slog.String("role", string(req.Role)))

	err := h.companyService.AddUserToCompany(c.Request.Context(), addingUserID, req.UserID, companyID, req.Role)
	if err != nil {
		respondCompanyError(c, logger, err, "add user to company")
		return
	}

	logger.Info("User added to company successfully")
	c.Status(http.StatusNoContent)
}

// listCompanyUsers godoc
// @Summary List members of a company
// @Description Retrieves the users of a company with their roles (members only).
// @Tags companies
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Success 200 {object} dto.ListCompanyUsersResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Company not found"
// @Failure 500 {object} map[string]string "Failed to list company users"
// @Security BearerAuth
// @Router /companies/{company_id}/users [get]
func (h *companyHandler) listCompanyUsers(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", companyID))

	members, err := h.companyService.ListCompanyUsers(c.Request.Context(), companyID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "list company users")
		return
	}

	logger.Info("Company users listed successfully", slog.Int("count", len(members)))
	c.JSON(http.StatusOK, dto.ToListCompanyUsersResponse(members))
}

// updateUserCompanyRole godoc
// @Summary Change a member's role
// @Description Updates the role of a company member (requires admin permission).
// @Tags companies
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   user_id path string true "Target User ID"
// @Param   role body dto.UpdateUserCompanyRoleRequest true "New role"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden (caller is not admin)"
// @Failure 404 {object} map[string]string "Company or User not found"
// @Failure 500 {object} map[string]string "Failed to update role"
// @Security BearerAuth
// @Router /companies/{company_id}/users/{user_id}/role [put]
func (h *companyHandler) updateUserCompanyRole(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	targetUserID := c.Param("user_id")

	var req dto.UpdateUserCompanyRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateUserCompanyRole", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("requesting_user_id", requestingUserID), slog.String("company_id", companyID), slog.String("target_user_id", targetUserID))
	logger.Info("Received request to update member role", slog.String("new_role", string(req.Role)))

	err := h.companyService.UpdateUserCompanyRole(c.Request.Context(), requestingUserID, targetUserID, companyID, req.Role)
	if err != nil {
		respondCompanyError(c, logger, err, "update member role")
		return
	}

	logger.Info("Member role updated successfully")
	c.Status(http.StatusNoContent)
}

// removeUserFromCompany godoc
// @Summary Remove a user from a company
// @Description Removes a member from a company (requires admin permission).
// @Tags companies
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   user_id path string true "Target User ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden (caller is not admin)"
// @Failure 404 {object} map[string]string "Company or User not found"
// @Failure 500 {object} map[string]string "Failed to remove user"
// @Security BearerAuth
// @Router /companies/{company_id}/users/{user_id} [delete]
func (h *companyHandler) removeUserFromCompany(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	targetUserID := c.Param("user_id")

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("requesting_user_id", requestingUserID), slog.String("company_id", companyID), slog.String("target_user_id", targetUserID))
	logger.Info("Received request to remove user from company")

	err := h.companyService.RemoveUserFromCompany(c.Request.Context(), requestingUserID, targetUserID, companyID)
	if err != nil {
		respondCompanyError(c, logger, err, "remove user from company")
		return
	}

	logger.Info("User removed from company successfully")
	c.Status(http.StatusNoContent)
}
