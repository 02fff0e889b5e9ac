package middleware

import (
	"context"
	"net/http"
	"strings"

	"stampcard/internal/models"
	"stampcard/internal/utils"
	"stampcard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthRequired validates the bearer token and sets the caller's id and role
// on the context. Websocket upgrades may pass the token as ?access_token
// since browsers cannot set headers on them.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", utils.ErrInvalidToken)
			c.Abort()
			return
		}
		if claims.UserID.IsZero() {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid user ID in token")
			c.Abort()
			return
		}

		c.Set(utils.ContextUserID, claims.UserID)
		c.Set(utils.ContextUserRole, claims.Role)

		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, claims.UserID.Hex())
		ctx = context.WithValue(ctx, logger.UserRoleKey, claims.Role)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		return token, token != header && token != ""
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		token := c.Query("access_token")
		return token, token != ""
	}
	return "", false
}

// RoleRequired rejects callers whose token carries none of the given roles.
func RoleRequired(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.UserRole(c.GetString(utils.ContextUserRole))
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		utils.ForbiddenResponse(c)
		c.Abort()
	}
}

func CustomerRequired() gin.HandlerFunc {
	return RoleRequired(models.UserRoleCustomer)
}

func BusinessRequired() gin.HandlerFunc {
	return RoleRequired(models.UserRoleBusiness)
}

// UserID returns the authenticated caller set by AuthRequired.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get(utils.ContextUserID)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok
}
