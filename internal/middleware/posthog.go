package middleware

import (
	"net/http"
	"strings"

	"github.com/savannahbooks/etims_bridge_app/internal/utils"
	"github.com/gin-gonic/gin"
)

// pathsToSkip contains paths that should not be tracked by PostHog
var pathsToSkip = map[string]bool{
	"/health": true,
}

// businessEvents maps the routes that matter to the business onto named
// analytics events. Everything else falls back to a path-derived name.
var businessEvents = map[string]string{
	"PUT /api/v1/companies/:company_id/invoices":                                    "invoice_synced",
	"PUT /api/v1/companies/:company_id/credit-notes":                                "credit_note_synced",
	"POST /api/v1/companies/:company_id/credit-notes/:credit_note_id/link":          "credit_note_linked",
	"DELETE /api/v1/companies/:company_id/credit-notes/:credit_note_id/link":        "credit_note_unlinked",
	"POST /api/v1/companies/:company_id/invoices/:invoice_id/validate-credit":       "credit_amount_validated",
	"POST /api/v1/companies/:company_id/submissions":                                "document_submitted",
	"POST /api/v1/companies/:company_id/submissions/:submission_id/sign":            "submission_signed",
	"POST /api/v1/companies":                                                        "company_registered",
	"POST /api/v1/tokens":                                                           "api_token_issued",
}

// eventNameFor resolves the analytics event name for a completed request.
func eventNameFor(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		return ""
	}
	if name, ok := businessEvents[c.Request.Method+" "+route]; ok {
		return name
	}
	name := strings.TrimPrefix(route, "/")
	return strings.ReplaceAll(name, "/", "_")
}

// PosthogMiddleware creates a Gin middleware handler that tracks API events with PostHog
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip if PostHog is not initialized or path is in skip list
		if posthogClient == nil || !posthogClient.IsInitialized() || pathsToSkip[c.Request.URL.Path] {
			c.Next()
			return
		}

		c.Next()

		// Only successful requests count as events
		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		userID, exists := GetUserIDFromContext(c)
		if !exists {
			return
		}

		eventName := eventNameFor(c)
		if eventName == "" {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
		}

		// The company a document event belongs to is the dimension analysts
		// slice by, so surface it as a top-level property.
		if companyID := c.Param("company_id"); companyID != "" {
			props["company_id"] = companyID
		}

		posthogClient.Enqueue(userID, eventName, props)
	}
}

// PosthogEvent is a helper to manually send custom events from handlers when needed
func PosthogEvent(c *gin.Context, posthogClient *utils.PosthogClientWrapper, eventName string, properties map[string]any) {
	if posthogClient == nil || !posthogClient.IsInitialized() {
		return
	}

	userID, exists := GetUserIDFromContext(c)
	if !exists {
		return
	}

	if properties == nil {
		properties = make(map[string]any)
	}

	properties["method"] = c.Request.Method
	properties["path"] = c.Request.URL.Path

	posthogClient.Enqueue(userID, eventName, properties)
}
