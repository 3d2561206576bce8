package server

import (
	"errors"
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"mangrovewatch/backend/server/api"
	"mangrovewatch/classifier"
)

// Validate runs the classifier only, without persistence or satellite checks.
func Validate(c *gin.Context) {
	var args api.ValidateArgs
	if err := c.BindJSON(&args); err != nil {
		log.Errorf("Failed to get the argument in /validate call: %v", err)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "Invalid request body."})
		return
	}

	mode := args.Mode
	if mode == "" {
		mode = "image"
	}

	switch mode {
	case "image":
		if args.ImagePath == "" {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Status: "error", Message: "image_path is required"})
			return
		}
		result, err := serverClassifier.AnalyzePhoto(c.Request.Context(), args.ImagePath)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, classifier.ErrDecode) {
				status = http.StatusBadRequest
			}
			log.Errorf("Validation failed on %s: %v", args.ImagePath, err)
			c.JSON(status, api.ErrorResponse{Status: "error", Message: err.Error()})
			return
		}
		c.JSON(http.StatusOK, api.PipelineResponse{Status: "success", Result: result})
	case "folder":
		folder := args.FolderPath
		if folder == "" {
			folder = "Data"
		}
		results, err := serverClassifier.AnalyzeFolder(c.Request.Context(), folder)
		if err != nil {
			log.Errorf("Validation failed on folder %s: %v", folder, err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Status: "error", Message: err.Error()})
			return
		}
		c.JSON(http.StatusOK, api.PipelineResponse{Status: "success", Result: results})
	default:
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Status:  "error",
			Message: "Invalid mode. Use 'image' or 'folder'",
		})
	}
}
