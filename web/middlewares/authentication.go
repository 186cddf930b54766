package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"practitrack.com/practitrack/web/common"
)

const (
	CookieName = "practitrack.session"

	claimsKey    = "claims"
	studentIDKey = "studentId"
)

func parseJwt(tokenStr string, jwtSecret []byte) (*jwt.Token, error) {
	return jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	}, jwt.WithExpirationRequired())
}

// Authentication accepts a Bearer token or the session cookie and puts the
// student id from the nameid claim on the context.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie(CookieName)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing token"))
				return
			}
			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("malformed authorization header"))
				return
			}
			tokenStr = parts[1]
		}

		token, err := parseJwt(tokenStr, jwtSecret)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid token claims"))
			return
		}
		id, ok := claims["nameid"].(float64)
		if !ok || id <= 0 || id != float64(int32(id)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("token has no student id"))
			return
		}

		c.Set(claimsKey, claims)
		c.Set(studentIDKey, int32(id))
		c.Next()
	}
}

// StudentID returns the id set by Authentication.
func StudentID(c *gin.Context) (int32, bool) {
	v, ok := c.Get(studentIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int32)
	return id, ok
}
