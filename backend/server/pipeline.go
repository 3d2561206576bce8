package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"mangrovewatch/backend/db"
	"mangrovewatch/backend/pipeline"
	"mangrovewatch/backend/rabbitmq"
	"mangrovewatch/backend/scoring"
	"mangrovewatch/backend/server/api"
	"mangrovewatch/metrics"
)

// RunPipeline executes one pipeline mode. JSON bodies select folder, image or
// coordinates mode; multipart bodies upload a photo and always run image mode.
func RunPipeline(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		runPipelineUpload(c)
		return
	}

	var args api.PipelineArgs
	if err := c.BindJSON(&args); err != nil {
		log.Errorf("Failed to get the argument in /run-pipeline call: %v", err)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "Invalid request body."})
		return
	}

	switch args.Mode {
	case "folder":
		folder := args.Folder
		if folder == "" {
			folder = "Data"
		}
		runPipelineFolder(c, folder, args.UserID, args.Description)
	case "image":
		if args.ImagePath == "" {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "image_path is required"})
			return
		}
		runPipelineImage(c, args.ImagePath, args.UserID, args.Description)
	case "coordinates":
		if args.Lat == nil || args.Lon == nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "lat and lon are required"})
			return
		}
		runPipelineCoordinates(c, *args.Lat, *args.Lon, args.UserID, args.Description)
	default:
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Status:  "error",
			Message: "Invalid mode. Use 'folder', 'image', or 'coordinates'",
		})
	}
}

func runPipelineUpload(c *gin.Context) {
	if mode := c.PostForm("mode"); mode != "image" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Status:  "error",
			Message: "Invalid mode for file upload. Use 'image'.",
		})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "image is required"})
		return
	}

	if err := os.MkdirAll(serverConfig.UploadFolder, 0o755); err != nil {
		log.Errorf("Failed to create upload folder: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to store the upload."})
		return
	}
	dest := filepath.Join(serverConfig.UploadFolder, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, dest); err != nil {
		log.Errorf("Failed to save upload %s: %v", file.Filename, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to store the upload."})
		return
	}

	var userID *int64
	if raw := c.PostForm("user_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			userID = &id
		}
	}

	runPipelineImage(c, dest, userID, c.PostForm("description"))
}

func runPipelineImage(c *gin.Context, imagePath string, userID *int64, description string) {
	start := time.Now()
	rec, err := serverPipeline.RunOnImage(c.Request.Context(), imagePath)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("image", "error").Inc()
		log.Errorf("Pipeline failed on %s: %v", imagePath, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: err.Error()})
		return
	}
	metrics.PipelineRunsTotal.WithLabelValues("image", "success").Inc()
	metrics.AnalysisDurationSeconds.WithLabelValues("image", "success").Observe(time.Since(start).Seconds())

	if !saveRecords(c, []pipeline.ImageRecord{*rec}, userID, description) {
		return
	}
	c.JSON(http.StatusOK, api.PipelineResponse{Status: "success", Result: rec})
}

func runPipelineFolder(c *gin.Context, folder string, userID *int64, description string) {
	start := time.Now()
	records, err := serverPipeline.RunOnFolder(c.Request.Context(), folder)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("folder", "error").Inc()
		log.Errorf("Pipeline failed on folder %s: %v", folder, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: err.Error()})
		return
	}
	metrics.PipelineRunsTotal.WithLabelValues("folder", "success").Inc()
	metrics.AnalysisDurationSeconds.WithLabelValues("folder", "success").Observe(time.Since(start).Seconds())

	if !saveRecords(c, records, userID, description) {
		return
	}
	c.JSON(http.StatusOK, api.PipelineResponse{Status: "success", Result: records})
}

func runPipelineCoordinates(c *gin.Context, lat, lon float64, userID *int64, description string) {
	start := time.Now()
	analysis, err := serverPipeline.RunOnCoordinates(c.Request.Context(), lat, lon)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("coordinates", "error").Inc()
		log.Errorf("Satellite analysis failed for (%v, %v): %v", lat, lon, err)
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{
			Status:  "error",
			Message: "Satellite analysis is temporarily unavailable.",
		})
		return
	}
	metrics.PipelineRunsTotal.WithLabelValues("coordinates", "success").Inc()
	metrics.AnalysisDurationSeconds.WithLabelValues("coordinates", "success").Observe(time.Since(start).Seconds())

	record := api.ReportRecord{
		UserID:                    userID,
		Latitude:                  &lat,
		Longitude:                 &lon,
		Label:                     "satellite_check",
		SatelliteVegetationChange: analysis.VegetationChange,
		Status:                    "completed",
		Description:               description,
	}
	if !saveReport(c, &record) {
		return
	}
	c.JSON(http.StatusOK, api.PipelineResponse{Status: "success", Result: analysis})
}

func saveRecords(c *gin.Context, records []pipeline.ImageRecord, userID *int64, description string) bool {
	for i := range records {
		rec := &records[i]
		report := api.ReportRecord{
			UserID:                    userID,
			Confidence:                rec.Confidence,
			Label:                     rec.Label,
			SatelliteVegetationChange: rec.SatelliteVegetationChange,
			Status:                    "completed",
			PointsEarned:              scoring.Points(rec.Label, rec.SatelliteVegetationChange),
			Description:               description,
		}
		if rec.Coordinates != nil {
			report.Latitude = &rec.Coordinates.Latitude
			report.Longitude = &rec.Coordinates.Longitude
		}
		if !saveReport(c, &report) {
			return false
		}
	}
	return true
}

func saveReport(c *gin.Context, report *api.ReportRecord) bool {
	dbc, err := getServerDB()
	if err != nil {
		log.Errorf("Error connecting to DB: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to save the report."})
		return false
	}

	reportID, err := db.SaveWorkflowResult(dbc, report)
	if err != nil {
		log.Errorf("Failed to write report with %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: "Failed to save the report."})
		return false
	}
	metrics.ReportsSavedTotal.Inc()

	publishReport(reportID, report)
	return true
}

// publishReport emits the saved report to the optional RabbitMQ feed.
func publishReport(reportID int64, report *api.ReportRecord) {
	if rabbitmqPublisher == nil {
		return
	}
	if !rabbitmqPublisher.IsConnected() {
		log.Warnf("Report feed connection lost, skipping report %d", reportID)
		return
	}

	event := rabbitmq.ReportEvent{
		ReportID:                  reportID,
		UserID:                    report.UserID,
		Label:                     report.Label,
		Confidence:                report.Confidence,
		Latitude:                  report.Latitude,
		Longitude:                 report.Longitude,
		SatelliteVegetationChange: report.SatelliteVegetationChange,
		PointsEarned:              report.PointsEarned,
	}
	if err := rabbitmqPublisher.PublishReport(&event); err != nil {
		log.Errorf("Failed to publish report %d to RabbitMQ: %v", reportID, err)
		return
	}
	log.Infof("Published report %d to the report feed", reportID)
}
