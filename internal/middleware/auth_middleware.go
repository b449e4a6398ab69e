package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wavevms/wave-backend/pkg/jwt"
)

// EmployeeContextKey is the key used to store employee information in Gin context
const EmployeeContextKey = "employee"

// EmployeeContext represents the authenticated employee's identity. The
// workflow engine holds no session state; this context is passed explicitly
// into every engine call.
type EmployeeContext struct {
	EmployeeID string `json:"employee_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

// AuthMiddleware creates a middleware that validates JWT tokens
func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
				"code":    "MISSING_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		// Check Bearer token format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
				"code":    "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Token cannot be empty",
				"code":    "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			if jwtService.IsTokenExpired(tokenString) {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "token_expired",
					"message": "Access token has expired. Please refresh your token.",
					"code":    "TOKEN_EXPIRED",
				})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "invalid_token",
					"message": "Invalid access token",
					"code":    "INVALID_TOKEN",
				})
			}
			c.Abort()
			return
		}

		c.Set(EmployeeContextKey, EmployeeContext{
			EmployeeID: claims.EmployeeID,
			Email:      claims.Email,
			Name:       claims.Name,
		})

		c.Next()
	}
}

// GetEmployeeContext retrieves the employee context from Gin context
func GetEmployeeContext(c *gin.Context) (EmployeeContext, bool) {
	value, exists := c.Get(EmployeeContextKey)
	if !exists {
		return EmployeeContext{}, false
	}

	empCtx, ok := value.(EmployeeContext)
	if !ok {
		return EmployeeContext{}, false
	}

	return empCtx, true
}
