package webserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/optcareerconnect/occ/internal/resume"
)

type analyzeRequest struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

func (s *Server) handleAnalyzeResume(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": "Could not parse analysis payload.",
		})
		return
	}

	cfg := s.settings.RuntimeConfig(c.Request.Context(), false)
	result, source, err := s.analyzer.Analyze(c.Request.Context(), cfg.AI, req.ResumeText, req.JobDescription)
	if err != nil {
		if errors.Is(err, resume.ErrProviderUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "Resume analysis is temporarily unavailable.",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"analysis":  result,
		"source":    source,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
