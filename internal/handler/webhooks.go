package handler

import (
	"net/http"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/apierror"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type WebhookHandler struct{ pix *infra.PixProvider }

func NewWebhookHandler(pix *infra.PixProvider) *WebhookHandler {
	return &WebhookHandler{pix: pix}
}

// PixConfirmation godoc
// @Summary Webhook do PSP confirmando pagamento PIX
// @Tags webhooks
// @Accept json
// @Produce json
// @Param body body infra.PixConfirmation true "Confirmação do PSP"
// @Success 204
// @Failure 400 {object} apierror.APIError
// @Router /v1/webhooks/pix [post]
func (h *WebhookHandler) PixConfirmation(c *gin.Context) {
	var conf infra.PixConfirmation
	if err := c.ShouldBindJSON(&conf); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON inválido: "+err.Error()))
		return
	}
	if conf.TransactionID == "" {
		c.JSON(http.StatusBadRequest, apierror.New("transaction_id obrigatório"))
		return
	}

	if err := h.pix.PublishConfirmation(c.Request.Context(), conf); err != nil {
		log.Error().Err(err).Str("txid", conf.TransactionID).Msg("webhook: failed to publish pix confirmation")
		c.JSON(http.StatusInternalServerError, apierror.New("Erro interno do servidor"))
		return
	}
	c.Status(http.StatusNoContent)
}
