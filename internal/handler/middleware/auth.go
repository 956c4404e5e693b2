package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"vendfleet/internal/domain/operator"
	"vendfleet/internal/pkg/jwt"
	"vendfleet/internal/usecase/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthMiddleware struct {
	tokens *jwt.Service
}

const (
	ctxOperatorIDKey   = "operator_id"
	ctxOperatorRoleKey = "operator_role"
)

var roleHierarchy = map[operator.Role]int{
	operator.RoleViewer:  1,
	operator.RoleManager: 2,
	operator.RoleAdmin:   3,
}

func NewAuthMiddleware(tokens *jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimSpace(authHeader[len("Bearer "):])
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
			})
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			slog.Warn("Token validation failed in auth middleware", "error", err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		role, err := operator.NewRole(claims.Role)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ctxOperatorIDKey, claims.OperatorID)
		c.Set(ctxOperatorRoleKey, role)
		c.Next()
	}
}

func hasMinimumRole(role, minRole operator.Role) bool {
	level, ok := roleHierarchy[role]
	minLevel, minOk := roleHierarchy[minRole]
	return ok && minOk && level >= minLevel
}

func (m *AuthMiddleware) RequireRoleAtLeast(minRole operator.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetOperatorRole(c)
		if !ok {
			// Unexpected: must run after RequireAuth()
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
			c.Abort()
			return
		}

		if !hasMinimumRole(role, minRole) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func GetOperatorID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ctxOperatorIDKey)
	if !exists {
		return uuid.Nil, false
	}

	id, ok := v.(uuid.UUID)
	return id, ok
}

func GetOperatorRole(c *gin.Context) (operator.Role, bool) {
	v, exists := c.Get(ctxOperatorRoleKey)
	if !exists {
		return "", false
	}

	role, ok := v.(operator.Role)
	return role, ok
}

// GetActor bundles the authenticated identity for the usecase layer.
func GetActor(c *gin.Context) (shared.Actor, bool) {
	id, ok := GetOperatorID(c)
	if !ok {
		return shared.Actor{}, false
	}
	role, ok := GetOperatorRole(c)
	if !ok {
		return shared.Actor{}, false
	}
	return shared.Actor{ID: id, Role: role}, true
}
