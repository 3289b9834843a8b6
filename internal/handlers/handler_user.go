package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"

	"github.com/gin-gonic/gin"
)

// userHandler serves the calling user's own profile and the user directory
// of companies they belong to. Account creation lives on the auth routes and
// role management on the company membership routes, so nothing here reaches
// across company boundaries.
type userHandler struct {
	userService portssvc.UserSvcFacade
}

func newUserHandler(us portssvc.UserSvcFacade) *userHandler {
	return &userHandler{
		userService: us,
	}
}

// registerUserRoutes registers profile and directory routes.
func registerUserRoutes(rg *gin.RouterGroup, userService portssvc.UserSvcFacade) {
	h := newUserHandler(userService)

	users := rg.Group("/users")
	{
		users.GET("", h.listCompanyDirectory)
		users.GET("/me", h.getOwnProfile)
		users.PUT("/me", h.updateOwnProfile)
		users.DELETE("/me", h.deleteOwnAccount)
	}
}

// listCompanyDirectory godoc
// @Summary List the users of a company
// @Description Retrieves the profiles of a company's active members. The caller must belong to the company.
// @Tags users
// @Produce  json
// @Param   company_id query string true "Company ID"
// @Success 200 {object} dto.ListUsersResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the company"
// @Failure 500 {object} map[string]string "Failed to list users"
// @Security BearerAuth
// @Router /users [get]
func (h *userHandler) listCompanyDirectory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListUsersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for user directory", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("company_id", params.CompanyID))

	users, err := h.userService.ListUsersByCompany(c.Request.Context(), params.CompanyID, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "list company users")
		return
	}

	logger.Info("Company user directory listed", slog.Int("count", len(users)))
	c.JSON(http.StatusOK, dto.ToListUserResponse(users))
}

// getOwnProfile godoc
// @Summary Get the calling user's profile
// @Description Retrieves the profile of the authenticated user.
// @Tags users
// @Produce  json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 500 {object} map[string]string "Failed to retrieve user"
// @Security BearerAuth
// @Router /users/me [get]
func (h *userHandler) getOwnProfile(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID))

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondCompanyError(c, logger, err, "retrieve profile")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

// updateOwnProfile godoc
// @Summary Update the calling user's profile
// @Description Updates the authenticated user's profile. Only the display name is updatable; email and auth provider are fixed at registration.
// @Tags users
// @Accept  json
// @Produce  json
// @Param   user body dto.UpdateUserRequest true "Profile fields to update"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 500 {object} map[string]string "Failed to update user"
// @Security BearerAuth
// @Router /users/me [put]
func (h *userHandler) updateOwnProfile(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for profile update", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID))
	logger.Info("Received profile update")

	updatedUser, err := h.userService.UpdateUser(c.Request.Context(), userID, req, userID)
	if err != nil {
		respondCompanyError(c, logger, err, "update profile")
		return
	}

	logger.Info("Profile updated successfully")
	c.JSON(http.StatusOK, dto.ToUserResponse(updatedUser))
}

// deleteOwnAccount godoc
// @Summary Close the calling user's account
// @Description Soft-deletes the authenticated user's account. Company records and submitted documents the user touched are kept for audit.
// @Tags users
// @Produce  json
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 500 {object} map[string]string "Failed to close account"
// @Security BearerAuth
// @Router /users/me [delete]
func (h *userHandler) deleteOwnAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID))
	logger.Info("Received account closure request")

	if err := h.userService.DeleteUser(c.Request.Context(), userID, userID); err != nil {
		respondCompanyError(c, logger, err, "close account")
		return
	}

	logger.Info("Account closed")
	c.Status(http.StatusNoContent)
}
