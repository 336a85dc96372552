package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recommend-backend/internal/http/response"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/services"
)

const maxArchiveBytes = 16 << 20

type BackupHandler struct {
	log    *logger.Logger
	backup services.BackupService
}

func NewBackupHandler(log *logger.Logger, backup services.BackupService) *BackupHandler {
	return &BackupHandler{log: log.With("handler", "BackupHandler"), backup: backup}
}

// GET /api/activities/:id/export?userdata=1
func (h *BackupHandler) Export(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userdata := c.Query("userdata") == "1" || c.Query("userdata") == "true"
	archive, err := h.backup.Export(c.Request.Context(), actor, activityID, userdata)
	if err != nil {
		respondServiceError(c, h.log, "Export", err)
		return
	}
	c.Header("Content-Type", "application/yaml")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "recommend-"+activityID.String()+".yaml"))
	c.Status(http.StatusOK)
	if err := services.EncodeArchive(c.Writer, archive); err != nil {
		h.log.Error("Export encode failed", "activity_id", activityID, "error", err)
	}
}

// POST /api/courses/:courseId/import
func (h *BackupHandler) Import(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	archive, err := services.DecodeArchive(http.MaxBytesReader(c.Writer, c.Request.Body, maxArchiveBytes))
	if err != nil {
		respondServiceError(c, h.log, "Import", err)
		return
	}
	activity, err := h.backup.Import(c.Request.Context(), actor, archive, courseID)
	if err != nil {
		respondServiceError(c, h.log, "Import", err)
		return
	}
	response.RespondCreated(c, gin.H{"activity": activity})
}
