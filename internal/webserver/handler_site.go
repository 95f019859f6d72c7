package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleSiteMeta serves the public site metadata driven by the resolved
// site settings. Secrets never reach this endpoint.
func (s *Server) handleSiteMeta(c *gin.Context) {
	cfg := s.settings.RuntimeConfig(c.Request.Context(), false)

	resp := gin.H{
		"baseUrl": cfg.Site.BaseURL,
	}
	if cfg.Site.GoogleVerification != "" {
		resp["googleVerification"] = cfg.Site.GoogleVerification
	}
	if len(cfg.Site.SocialLinks) > 0 {
		resp["socialLinks"] = cfg.Site.SocialLinks
	}
	c.JSON(http.StatusOK, resp)
}
