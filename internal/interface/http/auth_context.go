package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/meteo-burkina/internal/domain/auth"
)

const callerKey = "meteo.caller"

func setCaller(c *gin.Context, claims auth.Claims) {
	c.Set(callerKey, claims)
}

// callerID returns the authenticated user id, if any.
func callerID(c *gin.Context) (int64, bool) {
	value, ok := c.Get(callerKey)
	if !ok {
		return 0, false
	}
	claims, ok := value.(auth.Claims)
	if !ok || claims.UserID == 0 {
		return 0, false
	}
	return claims.UserID, true
}

// requireCaller aborts with 401 when no user is attached to the request.
func requireCaller(c *gin.Context, message string) (int64, bool) {
	id, ok := callerID(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", message, nil))
	}
	return id, ok
}
