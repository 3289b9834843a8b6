package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// apiTokenHandler manages the bearer tokens that machine clients, above all
// the QuickBooks sync worker, use to push documents without a browser login.
type apiTokenHandler struct {
	tokenSvc portssvc.APITokenSvc
}

func newAPITokenHandler(tokenSvc portssvc.APITokenSvc) *apiTokenHandler {
	return &apiTokenHandler{
		tokenSvc: tokenSvc,
	}
}

// registerAPITokenRoutes registers the API token management routes.
func registerAPITokenRoutes(rg *gin.RouterGroup, tokenSvc portssvc.APITokenSvc) {
	h := newAPITokenHandler(tokenSvc)

	tokens := rg.Group("/tokens")
	{
		tokens.POST("", h.createToken)
		tokens.GET("", h.listTokens)
		tokens.DELETE("/:id", h.revokeToken)
		tokens.DELETE("", h.revokeAllTokens)
	}
}

// createToken godoc
// @Summary Issue a new API token
// @Description Issues a bearer token for machine access, e.g. the QuickBooks sync worker. The plaintext token is returned exactly once; only its bcrypt hash is stored.
// @Tags tokens
// @Accept  json
// @Produce  json
// @Param   request body dto.CreateAPITokenRequest true "Token name and optional lifetime in seconds"
// @Success 201 {object} dto.CreateAPITokenResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to issue token"
// @Security BearerAuth
// @Router /tokens [post]
func (h *apiTokenHandler) createToken(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.CreateAPITokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateToken", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("user_id", userID))

	tokenStr, token, err := h.tokenSvc.CreateToken(c.Request.Context(), userID, req.Name, req.ExpiresIn)
	if err != nil {
		respondCompanyError(c, logger, err, "issue API token")
		return
	}

	logger.Info("API token issued", slog.String("token_id", token.ID), slog.String("token_name", token.Name))
	c.JSON(http.StatusCreated, dto.ToCreateAPITokenResponse(tokenStr, *token))
}

// listTokens godoc
// @Summary List the calling user's API tokens
// @Description Retrieves the metadata of the caller's tokens. Token values are not recoverable after creation.
// @Tags tokens
// @Produce  json
// @Success 200 {object} dto.ListAPITokensResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list tokens"
// @Security BearerAuth
// @Router /tokens [get]
func (h *apiTokenHandler) listTokens(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID))

	tokens, err := h.tokenSvc.ListTokens(c.Request.Context(), userID)
	if err != nil {
		respondCompanyError(c, logger, err, "list API tokens")
		return
	}

	c.JSON(http.StatusOK, dto.ToAPITokenResponseList(tokens))
}

// revokeToken godoc
// @Summary Revoke an API token
// @Description Revokes one of the caller's tokens by ID. A revoked token stops authenticating immediately; tokens of other users read as not found.
// @Tags tokens
// @Produce  json
// @Param   id path string true "Token ID" format(uuid)
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid token ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Token not found"
// @Failure 500 {object} map[string]string "Failed to revoke token"
// @Security BearerAuth
// @Router /tokens/{id} [delete]
func (h *apiTokenHandler) revokeToken(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	tokenID := c.Param("id")
	if _, err := uuid.Parse(tokenID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token ID"})
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.String("token_id", tokenID))

	if err := h.tokenSvc.RevokeToken(c.Request.Context(), userID, tokenID); err != nil {
		respondCompanyError(c, logger, err, "revoke API token")
		return
	}

	logger.Info("API token revoked")
	c.Status(http.StatusNoContent)
}

// revokeAllTokens godoc
// @Summary Revoke all API tokens
// @Description Revokes every token of the calling user. Machine clients such as the QuickBooks sync worker need a fresh token afterwards.
// @Tags tokens
// @Produce  json
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to revoke tokens"
// @Security BearerAuth
// @Router /tokens [delete]
func (h *apiTokenHandler) revokeAllTokens(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("user_id", userID))

	if err := h.tokenSvc.RevokeAllTokens(c.Request.Context(), userID); err != nil {
		respondCompanyError(c, logger, err, "revoke API tokens")
		return
	}

	logger.Info("All API tokens revoked")
	c.Status(http.StatusNoContent)
}
