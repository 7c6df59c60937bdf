package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"consigna/internal/core/apperror"
	appctx "consigna/internal/core/context"
)

// TokenValidator validates an operator token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.Operator, error)
}

// Auth middleware validates operator tokens and populates the operator
// context used for audit stamps and role checks.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		operator, err := validator.ValidateToken(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		ctx := appctx.WithOperator(c.Request.Context(), operator)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", operator.UserID)

		c.Next()
	}
}

// RequireRole middleware checks if the operator has one of the roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := appctx.GetOperator(c.Request.Context())
		if operator == nil {
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		for _, required := range roles {
			for _, role := range operator.Roles {
				if role == required {
					c.Next()
					return
				}
			}
		}
		_ = c.Error(
			apperror.NewForbidden("insufficient permissions").
				WithDetail("required_roles", roles),
		)
		c.Abort()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
