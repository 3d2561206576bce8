package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"mangrovewatch/backend/db"
	"mangrovewatch/backend/server/api"
)

func userIDParam(c *gin.Context) (int64, bool) {
	raw := c.Query("user_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "user_id query parameter is required"})
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "user_id must be an integer"})
		return 0, false
	}
	return id, true
}

func userDB(c *gin.Context) (*sql.DB, bool) {
	dbc, err := getServerDB()
	if err != nil {
		log.Errorf("Error connecting to DB: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Database unavailable."})
		return nil, false
	}
	return dbc, true
}

func GetUserPoints(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	dbc, ok := userDB(c)
	if !ok {
		return
	}

	points, err := db.GetUserPoints(dbc, userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Status: "error", Message: "User not found."})
			return
		}
		log.Errorf("Failed to read points for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to read user points."})
		return
	}

	c.JSON(http.StatusOK, api.PointsResponse{Status: "success", UserID: userID, Points: points})
}

func GetPointsHistory(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	dbc, ok := userDB(c)
	if !ok {
		return
	}

	history, err := db.GetPointsHistory(dbc, userID)
	if err != nil {
		log.Errorf("Failed to read points history for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to read points history."})
		return
	}

	c.JSON(http.StatusOK, api.PointsHistoryResponse{Status: "success", UserID: userID, History: history})
}

func GetUserReports(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	dbc, ok := userDB(c)
	if !ok {
		return
	}

	reports, err := db.GetUserReports(dbc, userID)
	if err != nil {
		log.Errorf("Failed to read reports for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to read user reports."})
		return
	}

	c.JSON(http.StatusOK, api.UserReportsResponse{Status: "success", UserID: userID, Reports: reports})
}

func GetUserStats(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	dbc, ok := userDB(c)
	if !ok {
		return
	}

	stats, err := db.GetUserStats(dbc, userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Status: "error", Message: "User not found."})
			return
		}
		log.Errorf("Failed to read stats for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to read user stats."})
		return
	}

	c.JSON(http.StatusOK, stats)
}
