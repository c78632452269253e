package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-results/internal/middleware"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
	"github.com/noah-isme/sma-exam-results/pkg/response"
)

// tenantFromContext returns the request tenant, writing TENANT_REQUIRED when it is missing.
func tenantFromContext(c *gin.Context) (string, bool) {
	tenantID := middleware.TenantID(c)
	if tenantID == "" {
		response.Error(c, appErrors.ErrTenantRequired)
		return "", false
	}
	return tenantID, true
}

// bindOptionalJSON decodes the body when one was sent. An empty body leaves dest untouched.
func bindOptionalJSON(c *gin.Context, dest interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return false
	}
	return true
}
