package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	pkceCookieName   = "meteo_oauth"
	pkceCookieMaxAge = 5 * 60
)

// pkceState is what the login redirect remembers for the callback.
type pkceState struct {
	State    string
	Verifier string
}

// encode joins both values with a dot; they are base64url and never contain one.
func (p pkceState) encode() string {
	return p.State + "." + p.Verifier
}

func decodePKCEState(raw string) (pkceState, bool) {
	state, verifier, found := strings.Cut(raw, ".")
	if !found || state == "" || verifier == "" {
		return pkceState{}, false
	}
	return pkceState{State: state, Verifier: verifier}, true
}

func writePKCECookie(c *gin.Context, value string, maxAge int) {
	secure := c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(pkceCookieName, value, maxAge, "/", "", secure, true)
}

func rememberPKCE(c *gin.Context, p pkceState) {
	writePKCECookie(c, p.encode(), pkceCookieMaxAge)
}

// takePKCE reads and clears the cookie set by rememberPKCE.
func takePKCE(c *gin.Context) (pkceState, bool) {
	raw, err := c.Cookie(pkceCookieName)
	writePKCECookie(c, "", -1)
	if err != nil {
		return pkceState{}, false
	}
	return decodePKCEState(raw)
}
