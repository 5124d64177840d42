package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tanyadoc/tanyadoc/internal/pkg/errcode"
	"github.com/tanyadoc/tanyadoc/internal/pkg/response"
	"github.com/tanyadoc/tanyadoc/internal/repo"
	"github.com/tanyadoc/tanyadoc/internal/session"
)

// OpsHandler serves the small operational surface: liveness and knowledge
// base statistics. User identity never comes from here; it is a read-only
// admin view.
type OpsHandler struct {
	chunks   *repo.ChunkRepo
	sessions *session.Manager
}

func NewOpsHandler(chunks *repo.ChunkRepo, sessions *session.Manager) *OpsHandler {
	return &OpsHandler{chunks: chunks, sessions: sessions}
}

func (h *OpsHandler) Healthz(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

func (h *OpsHandler) Stats(c *gin.Context) {
	if userID := c.Query("user_id"); userID != "" {
		h.userStats(c, userID)
		return
	}
	stats, err := h.chunks.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, errcode.ErrInternal, "query stats failed")
		return
	}
	response.Success(c, gin.H{
		"chunks":   stats.Chunks,
		"users":    stats.Users,
		"files":    stats.Files,
		"sessions": h.sessions.Len(),
	})
}

func (h *OpsHandler) userStats(c *gin.Context, userID string) {
	ctx := c.Request.Context()
	chunks, err := h.chunks.CountByUser(ctx, userID)
	if err != nil {
		response.Error(c, errcode.ErrInternal, "query stats failed")
		return
	}
	files, err := h.chunks.CountFiles(ctx, userID)
	if err != nil {
		response.Error(c, errcode.ErrInternal, "query stats failed")
		return
	}
	response.Success(c, gin.H{
		"user_id": userID,
		"chunks":  chunks,
		"files":   files,
	})
}
