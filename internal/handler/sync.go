package handler

import (
	"net/http"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/apierror"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/dto"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/service"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct{ queue *service.SyncQueue }

func NewSyncHandler(queue *service.SyncQueue) *SyncHandler { return &SyncHandler{queue: queue} }

// Status godoc
// @Summary Situação da fila de sincronização offline
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SyncStatusResponse
// @Router /v1/sync/pending [get]
func (h *SyncHandler) Status(c *gin.Context) {
	pending, err := h.queue.PendingCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.SyncStatusResponse{
		Pending:      pending,
		CircuitState: h.queue.CircuitState(),
	})
}

// Flush godoc
// @Summary Dispara imediatamente o reenvio das vendas pendentes
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Success 202 {object} dto.FlushResponse
// @Router /v1/sync/flush [post]
func (h *SyncHandler) Flush(c *gin.Context) {
	if err := h.queue.Flush(c.Request.Context(), true); err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
		return
	}
	pending, _ := h.queue.PendingCount(c.Request.Context())
	c.JSON(http.StatusAccepted, dto.FlushResponse{Triggered: true, Pending: pending})
}
