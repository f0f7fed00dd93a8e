package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JadeOpenClawAI/ai-chat-sub001/pkg/api"
)

// AdminAuth checks for a configured static key in a Bearer Authorization
// header. With no keys configured every request passes.
func AdminAuth(keys []string) gin.HandlerFunc {
	digests := make([][32]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(c *gin.Context) {
		if len(digests) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "Invalid Authorization header format")
			return
		}

		// hashing first keeps the comparison length independent of the key
		got := sha256.Sum256([]byte(strings.TrimSpace(parts[1])))
		match := 0
		for _, want := range digests {
			match |= subtle.ConstantTimeCompare(got[:], want[:])
		}
		if match != 1 {
			abortUnauthorized(c, "Invalid API Key")
			return
		}

		c.Next()
	}
}

// HasAdminKeys reports whether AdminAuth would enforce anything for keys.
func HasAdminKeys(keys []string) bool {
	for _, k := range keys {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}

func abortUnauthorized(c *gin.Context, detail string) {
	problem := api.Unauthorized(detail)
	problem.Instance = GetRequestID(c)
	c.Header("WWW-Authenticate", `Bearer realm="admin"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, problem)
}
