package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"mangrovewatch/backend/server/api"
	"mangrovewatch/geocode"
	"mangrovewatch/vegetation"
)

// CheckLocation resolves free text ("lat, lon" or a place name) and runs the
// enhanced vegetation analysis for the resolved point.
func CheckLocation(c *gin.Context) {
	var args api.CheckLocationArgs
	if err := c.BindJSON(&args); err != nil {
		log.Errorf("Failed to get the argument in /check_location call: %v", err)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "Invalid request body."})
		return
	}
	if strings.TrimSpace(args.Location) == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "location is required"})
		return
	}

	point, err := serverResolver.Resolve(c.Request.Context(), args.Location)
	if err != nil {
		switch {
		case errors.Is(err, geocode.ErrInvalidFormat):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "Invalid coordinate format."})
		case errors.Is(err, geocode.ErrNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Status: "error", Message: "Location not found."})
		default:
			log.Errorf("Geocoding failed for %q: %v", args.Location, err)
			c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{
				Status:  "error",
				Message: "Geocoding service is temporarily unavailable.",
			})
		}
		return
	}

	analysis, err := serverAnalyzer.EnhancedChange(c.Request.Context(), point.Latitude, point.Longitude)
	if err != nil && !errors.Is(err, vegetation.ErrNoImagery) {
		log.Errorf("Vegetation analysis failed for (%v, %v): %v", point.Latitude, point.Longitude, err)
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{
			Status:  "error",
			Message: "Satellite analysis is temporarily unavailable.",
		})
		return
	}
	if err != nil {
		// No usable scenes anywhere near this point: report the resolved
		// location with a null analysis instead of failing.
		log.Infof("No usable imagery around (%v, %v)", point.Latitude, point.Longitude)
		analysis = nil
	}

	c.JSON(http.StatusOK, api.CheckLocationResponse{
		Status:    "success",
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
		Analysis:  analysis,
	})
}
