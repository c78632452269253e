package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
	"github.com/noah-isme/sma-exam-results/pkg/response"
)

const (
	// HeaderTenantID carries the tenant resolved by the upstream auth collaborator.
	HeaderTenantID = "X-Tenant-ID"
	// HeaderActorID optionally names the acting user for audit columns.
	HeaderActorID = "X-User-ID"

	ContextTenantKey = "tenant_id"
	ContextActorKey  = "actor_id"
)

// Tenant rejects requests without a tenant scope and stores it on the context.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader(HeaderTenantID))
		if tenantID == "" {
			response.Error(c, appErrors.ErrTenantRequired)
			c.Abort()
			return
		}
		c.Set(ContextTenantKey, tenantID)
		if actor := strings.TrimSpace(c.GetHeader(HeaderActorID)); actor != "" {
			c.Set(ContextActorKey, actor)
		}
		c.Next()
	}
}

// TenantID returns the tenant stored by Tenant.
func TenantID(c *gin.Context) string {
	return c.GetString(ContextTenantKey)
}

// ActorID returns the acting user, or nil when the caller did not identify one.
func ActorID(c *gin.Context) *string {
	actor := c.GetString(ContextActorKey)
	if actor == "" {
		return nil
	}
	return &actor
}
