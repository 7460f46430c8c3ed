package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/meteo-burkina/internal/domain/auth"
)

// Register creates an unverified account and mails the confirmation link.
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// VerifyEmail consumes the token from a verification link.
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req auth.VerifyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", errMessage(err), err))
		return
	}
	user, err := h.authSvc.VerifyEmail(c.Request.Context(), req)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "user": user})
}

// ResendVerification issues a new link. The response does not reveal whether
// the address is registered.
func (h *Handler) ResendVerification(c *gin.Context) {
	var req auth.ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", errMessage(err), err))
		return
	}
	if err := h.authSvc.ResendVerification(c.Request.Context(), req); err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Login exchanges credentials for tokens.
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh rotates the access token.
func (h *Handler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated profile.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := requireCaller(c, "missing token")
	if !ok {
		return
	}
	user, err := h.authSvc.Profile(c.Request.Context(), userID)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout revokes linked provider tokens.
func (h *Handler) Logout(c *gin.Context) {
	userID, ok := requireCaller(c, "missing token")
	if !ok {
		return
	}
	if err := h.authSvc.Logout(c.Request.Context(), userID); err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GoogleLogin redirects to the Google consent screen with a PKCE challenge.
func (h *Handler) GoogleLogin(c *gin.Context) {
	state, verifier, challenge, err := auth.NewOAuthState()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "internal_error", "failed to start sign-in", err))
		return
	}
	target, err := h.authSvc.GoogleAuthURL(c.Request.Context(), state, challenge)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	rememberPKCE(c, pkceState{State: state, Verifier: verifier})
	c.Redirect(http.StatusFound, target)
}

// GoogleCallback completes the OAuth flow. Tokens go to the frontend in the
// URL fragment when a post-login redirect is configured.
func (h *Handler) GoogleCallback(c *gin.Context) {
	stored, ok := takePKCE(c)
	if !ok || stored.State != c.Query("state") {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", "invalid oauth state", nil))
		return
	}
	if errParam := c.Query("error"); errParam != "" {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "google sign-in was denied", nil))
		return
	}
	resp, err := h.authSvc.GoogleCallback(c.Request.Context(), c.Query("code"), stored.Verifier)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	if h.postLoginRedirect == "" {
		c.JSON(http.StatusOK, resp)
		return
	}
	fragment := url.Values{}
	fragment.Set("token", resp.Token)
	fragment.Set("refreshToken", resp.RefreshToken)
	c.Redirect(http.StatusFound, h.postLoginRedirect+"#"+fragment.Encode())
}
