package handler

import (
	"net/http"
	"time"

	"github.com/edcadet10/tikes/internal/apierror"
	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/middleware"
	"github.com/edcadet10/tikes/internal/service"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	svc    service.SyncService
	alerts service.AlertService
}

func NewSyncHandler(svc service.SyncService, alerts service.AlertService) *SyncHandler {
	return &SyncHandler{svc: svc, alerts: alerts}
}

// Push applies a device's batch of locally created entities. The batch is
// scoped to the business on the JWT; per-entity failures come back in the
// response body, never as an HTTP error.
func (h *SyncHandler) Push(c *gin.Context) {
	var req dto.PushRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)

	resp, err := h.svc.ApplyPush(c.Request.Context(), claims.BusinessID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to apply push batch"))
		return
	}

	if h.alerts != nil && (len(resp.Errors) > 0 || len(resp.Warnings) > 0) {
		h.alerts.RecordPushIssues(c.Request.Context(), claims.BusinessID, resp.Errors, resp.Warnings)
	}

	c.JSON(http.StatusOK, resp)
}

// Pull returns every change since the device's watermark. A missing or
// zero `since` means a full bootstrap pull.
func (h *SyncHandler) Pull(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Invalid 'since' timestamp, expected RFC 3339"))
			return
		}
		since = parsed
	}
	claims := middleware.GetClaims(c)

	resp, err := h.svc.BuildPull(c.Request.Context(), claims.BusinessID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to build pull window"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
