package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/optcareerconnect/occ/internal/admin"
	"github.com/optcareerconnect/occ/internal/config"
)

const adminCookieName = admin.SessionCookie

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": "Could not parse request body.",
		})
		return
	}

	if !s.auth.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Admin authentication required.",
		})
		return
	}

	token, err := s.auth.NewSessionToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Session error",
			"message": "Could not create session.",
		})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(adminCookieName, token, int(admin.SessionDuration.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleAdminLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(adminCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleAdminConfigGet(c *gin.Context) {
	payload := s.settings.GetAdminPayload(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"storageAvailable": payload.StorageAvailable,
		"warnings":         payload.Warnings,
		"settings":         payload.Settings,
		"audit":            payload.Audit,
	})
}

type updateConfigRequest struct {
	Updates map[string]any `json:"updates"`
}

func (s *Server) handleAdminConfigPut(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": "Could not parse update payload.",
		})
		return
	}

	// JSON null marks an explicit clear; every other value is a set.
	updates := make(map[string]config.UpdateValue, len(req.Updates))
	for key, raw := range req.Updates {
		if raw == nil {
			updates[key] = config.ClearSecret()
		} else {
			updates[key] = config.SetTo(raw)
		}
	}

	result := s.settings.UpdateSettings(c.Request.Context(), updates, "admin_panel")
	if !result.StorageAvailable {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":          false,
			"error":            "Settings storage unavailable",
			"message":          "app_settings tables are missing or database is unreachable.",
			"storageAvailable": false,
		})
		return
	}
	if !result.Success {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":          false,
			"fieldErrors":      result.FieldErrors,
			"storageAvailable": result.StorageAvailable,
		})
		return
	}

	payload := s.settings.GetAdminPayload(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"updatedKeys":      result.UpdatedKeys,
		"storageAvailable": payload.StorageAvailable,
		"warnings":         payload.Warnings,
		"settings":         payload.Settings,
		"audit":            payload.Audit,
	})
}

type testConfigRequest struct {
	Overrides map[string]string `json:"overrides"`
}

func (s *Server) handleAdminConfigTest(c *gin.Context) {
	var req testConfigRequest
	// An empty body means "test the saved configuration".
	_ = c.ShouldBindJSON(&req)

	result := s.settings.TestGroqConnection(c.Request.Context(), req.Overrides)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"success": result.Success, "result": result})
}
