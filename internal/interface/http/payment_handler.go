package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type invoiceRequest struct {
	Plan string `json:"plan"`
}

type confirmRequest struct {
	Token string `json:"token"`
}

// CreateInvoice opens a checkout for the requested plan.
func (h *Handler) CreateInvoice(c *gin.Context) {
	userID, ok := requireCaller(c, "missing token")
	if !ok {
		return
	}
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", errMessage(err), err))
		return
	}
	origin := allowedOrigin(c.GetHeader("Origin"), h.allowedOrigins)
	checkout, err := h.paymentSvc.CreateInvoice(c.Request.Context(), userID, req.Plan, origin)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

// ConfirmPayment polls the gateway for an invoice the user opened.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	userID, ok := requireCaller(c, "missing token")
	if !ok {
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", errMessage(err), err))
		return
	}
	sub, err := h.paymentSvc.Confirm(c.Request.Context(), userID, req.Token)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// PaymentWebhook receives the gateway notification. Only the invoice token is
// read; the status is fetched again from the gateway.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	token := strings.TrimSpace(c.PostForm("data[invoice][token]"))
	if token == "" {
		token = strings.TrimSpace(c.PostForm("token"))
	}
	sub, err := h.paymentSvc.HandleCallback(c.Request.Context(), token)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": sub.Status})
}

// Subscription reports the caller's effective tier.
func (h *Handler) Subscription(c *gin.Context) {
	userID, ok := requireCaller(c, "missing token")
	if !ok {
		return
	}
	current, err := h.paymentSvc.Current(c.Request.Context(), userID)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}
