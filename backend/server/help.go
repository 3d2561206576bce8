package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Help(c *gin.Context) {
	c.String(http.StatusOK, `
	Mangrove Watch API:
	Community mangrove monitoring backend, version 1.0, 2026.
	`)
}
