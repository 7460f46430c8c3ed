package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
	"github.com/yanqian/meteo-burkina/internal/domain/weather"
)

type adviceRequest struct {
	Weather *weather.Snapshot `json:"weather"`
	Plan    string            `json:"plan"`
}

// Advice generates plan-scoped recommendations for a weather snapshot. Paid
// tiers require an authenticated user with an active subscription.
func (h *Handler) Advice(c *gin.Context) {
	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", errMessage(err), err))
		return
	}
	if req.Weather == nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", "Les données météo sont requises", nil))
		return
	}

	tier := plan.TierFree
	if strings.TrimSpace(req.Plan) != "" {
		p, ok := plan.Resolve(req.Plan)
		if !ok {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", "Plan inconnu", nil))
			return
		}
		tier = p.Tier
	}

	if tier.Paid() {
		userID, ok := requireCaller(c, "Connectez-vous pour accéder à ce plan")
		if !ok {
			return
		}
		if err := h.paymentSvc.Authorize(c.Request.Context(), userID, tier); err != nil {
			abortWithDomainError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, h.adviceSvc.GetAdvice(c.Request.Context(), *req.Weather, tier))
}
