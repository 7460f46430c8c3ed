package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
)

// Cities lists the Burkina Faso cities matching the optional q filter.
func (h *Handler) Cities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cities": h.weatherSvc.Cities(c.Query("q"))})
}

// CurrentWeather returns the present conditions for ?city=.
func (h *Handler) CurrentWeather(c *gin.Context) {
	snap, err := h.weatherSvc.Current(c.Request.Context(), c.Query("city"))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// WeatherByCoords returns the present conditions for ?lat=&lon=.
func (h *Handler) WeatherByCoords(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(c.Query("lat")), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(c.Query("lon")), 64)
	if latErr != nil || lonErr != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", "Latitude et longitude requises", nil))
		return
	}
	snap, err := h.weatherSvc.CurrentByCoords(c.Request.Context(), lat, lon)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Forecast returns the five-day forecast for ?city=.
func (h *Handler) Forecast(c *gin.Context) {
	days, err := h.weatherSvc.Forecast(c.Request.Context(), c.Query("city"))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

// Dashboard returns current conditions and forecast in one call.
func (h *Handler) Dashboard(c *gin.Context) {
	board, err := h.weatherSvc.Dashboard(c.Request.Context(), c.Query("city"))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// Plans returns the subscription catalog.
func (h *Handler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": plan.All()})
}
