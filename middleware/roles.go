package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/models"
)

const currentUserKey = "current_user"

// LoadUser resolves the employee record for the authenticated subject and
// stores it in the context. Requests from subjects without a profile stop here.
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Could not extract user information",
				},
			})
			c.Abort()
			return
		}

		var user models.User
		if err := config.GetDB().Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "USER_NOT_FOUND",
					"message": "User profile not found. Please create a profile first.",
				},
			})
			c.Abort()
			return
		}

		c.Set(currentUserKey, &user)
		c.Next()
	}
}

// CurrentUser returns the employee loaded by LoadUser
func CurrentUser(c *gin.Context) (*models.User, error) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_USER", Message: "User not loaded for this request"}
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "INVALID_USER", Message: "Loaded user has an unexpected type"}
	}
	return user, nil
}

// RequireRole aborts with 403 unless the loaded employee has one of roles.
// It must run after LoadUser.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := CurrentUser(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Could not determine the current user",
				},
			})
			c.Abort()
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Your role does not allow this action",
			},
		})
		c.Abort()
	}
}
