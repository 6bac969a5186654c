package api

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"daily-tracker/internal/model"
	"daily-tracker/internal/service"
)

const userKey = "user"

// authenticate resolves the bearer token issued by the bot's /token command.
func (s *Server) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
		return
	}

	user, err := s.users.Authenticate(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, service.ErrUserNotFound) {
			log.Printf("authenticate: %v", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
		return
	}

	c.Set(userKey, user)
	c.Next()
}

func requireAdmin(c *gin.Context) {
	if user := currentUser(c); user == nil || !user.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin access only"})
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) *model.User {
	value, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := value.(*model.User)
	return user
}

// allowOrigins drops trailing slashes and anything that is not an http(s)
// origin, which gin-contrib/cors would reject at startup.
func allowOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			if origin != "" {
				log.Printf("[info] ignoring CORS origin %q", origin)
			}
			continue
		}
		out = append(out, origin)
	}
	return out
}

// corsMiddleware answers browsers from the allowed origins and rejects the
// rest with 403. Requests without an Origin header pass untouched.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := allowOrigins(origins)
	if len(allowed) == 0 {
		return nil
	}
	return cors.New(cors.Config{
		AllowOrigins:              allowed,
		AllowMethods:              []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:              []string{"Content-Type", "Authorization"},
		AllowCredentials:          true,
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusNoContent,
	})
}
