package api

import (
	"time"

	"mangrovewatch/vegetation"
)

// PipelineArgs selects one of the three pipeline modes. Folder, ImagePath and
// Lat/Lon are mutually exclusive per mode.
type PipelineArgs struct {
	Mode        string   `json:"mode"` // folder | image | coordinates
	Folder      string   `json:"folder"`
	ImagePath   string   `json:"image_path"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	UserID      *int64   `json:"user_id"`
	Description string   `json:"description"`
}

type ValidateArgs struct {
	Mode       string `json:"mode"` // image | folder
	ImagePath  string `json:"image_path"`
	FolderPath string `json:"folder_path"`
}

type SatelliteCheckArgs struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type CheckLocationArgs struct {
	Location string `json:"location"`
}

type SignupArgs struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginArgs struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Status  string `json:"status"` // always "error"
	Message string `json:"message"`
}

type PipelineResponse struct {
	Status string      `json:"status"`
	Result interface{} `json:"result"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type SatelliteCheckResponse struct {
	Status                  string      `json:"status"`
	Coordinates             Coordinates `json:"coordinates"`
	VegetationChangePercent *float64    `json:"vegetation_change_percent"`
}

type CheckLocationResponse struct {
	Status    string                     `json:"status"`
	Latitude  float64                    `json:"latitude"`
	Longitude float64                    `json:"longitude"`
	Analysis  *vegetation.EnhancedResult `json:"analysis"`
}

type SignupResponse struct {
	Status   string `json:"status"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type LoginResponse struct {
	Status   string `json:"status"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

type PointsResponse struct {
	Status string `json:"status"`
	UserID int64  `json:"user_id"`
	Points int    `json:"points"`
}

// PointsHistoryRecord is one immutable award entry.
type PointsHistoryRecord struct {
	ID           int64     `json:"id"`
	PointsEarned int       `json:"points_earned"`
	PointsType   string    `json:"points_type"`
	Description  string    `json:"description"`
	ReportID     *int64    `json:"report_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type PointsHistoryResponse struct {
	Status  string                `json:"status"`
	UserID  int64                 `json:"user_id"`
	History []PointsHistoryRecord `json:"history"`
}

// ReportRecord is a persisted workflow result. Description annotates the
// award's points_history entry; it is not stored on the report row itself.
type ReportRecord struct {
	ID                        int64     `json:"id"`
	UserID                    *int64    `json:"user_id"`
	Confidence                float64   `json:"confidence"`
	Latitude                  *float64  `json:"latitude"`
	Longitude                 *float64  `json:"longitude"`
	Label                     string    `json:"label"`
	SatelliteVegetationChange *float64  `json:"satellite_vegetation_change"`
	Status                    string    `json:"status"`
	PointsEarned              int       `json:"points_earned"`
	Description               string    `json:"description,omitempty"`
	CreatedAt                 time.Time `json:"created_at"`
}

type UserReportsResponse struct {
	Status  string         `json:"status"`
	UserID  int64          `json:"user_id"`
	Reports []ReportRecord `json:"reports"`
}

type UserStatsResponse struct {
	Status       string `json:"status"`
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	Points       int    `json:"points"`
	TotalReports int    `json:"total_reports"`
}
