package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"mangrovewatch/backend/server/api"
	"mangrovewatch/vegetation"
)

// unavailableAnalyzer stands in when no satellite archive credentials are
// configured. Every call reports unavailability instead of inventing data.
type unavailableAnalyzer struct{}

func (unavailableAnalyzer) SimpleChange(context.Context, float64, float64) (float64, error) {
	return 0, vegetation.ErrUnavailable
}

func (unavailableAnalyzer) EnhancedChange(context.Context, float64, float64) (*vegetation.EnhancedResult, error) {
	return nil, vegetation.ErrUnavailable
}

// SatelliteCheck runs the simple two-window vegetation comparison for a
// point. No imagery in either window yields a null percentage, not an error.
func SatelliteCheck(c *gin.Context) {
	var args api.SatelliteCheckArgs
	if err := c.BindJSON(&args); err != nil {
		log.Errorf("Failed to get the argument in /satellite-check call: %v", err)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "Invalid request body."})
		return
	}
	if args.Lat == nil || args.Lon == nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "lat and lon are required"})
		return
	}

	resp := api.SatelliteCheckResponse{
		Status:      "success",
		Coordinates: api.Coordinates{Lat: *args.Lat, Lon: *args.Lon},
	}

	change, err := serverAnalyzer.SimpleChange(c.Request.Context(), *args.Lat, *args.Lon)
	switch {
	case err == nil:
		resp.VegetationChangePercent = &change
	case errors.Is(err, vegetation.ErrNoImagery):
		log.Infof("No usable imagery around (%v, %v)", *args.Lat, *args.Lon)
	default:
		log.Errorf("Satellite check failed for (%v, %v): %v", *args.Lat, *args.Lon, err)
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{
			Status:  "error",
			Message: "Satellite analysis is temporarily unavailable.",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
