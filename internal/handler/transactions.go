package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/apierror"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/dto"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransactionHandler struct{ svc *service.TransactionService }

func NewTransactionHandler(svc *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

// Begin godoc
// @Summary Inicia a finalização de uma venda (carrinho congelado)
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.BeginTransactionRequest true "Carrinho e pagamentos"
// @Success 202 {object} dto.TransactionResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/transactions [post]
func (h *TransactionHandler) Begin(c *gin.Context) {
	var req dto.BeginTransactionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id, err := h.svc.Begin(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
		return
	}
	snap, err := h.svc.Get(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusAccepted, txToResponse(snap))
}

// Get returns the current state of one transaction.
func (h *TransactionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	snap, err := h.svc.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("Transação não encontrada"))
		return
	}
	c.JSON(http.StatusOK, txToResponse(snap))
}

// Cancel godoc
// @Summary Cancela uma transação em andamento
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da transação"
// @Success 204
// @Failure 409 {object} apierror.APIError
// @Router /v1/transactions/{id} [delete]
func (h *TransactionHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	if err := h.svc.Cancel(id); err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("Transação não encontrada"))
			return
		}
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
		return
	}
	c.Status(http.StatusNoContent)
}

// Events streams state transitions of one transaction as Server-Sent
// Events until the transaction reaches a terminal state or the client
// disconnects. The UI drives its checkout screen from this stream.
func (h *TransactionHandler) Events(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}

	updates := make(chan service.TxSnapshot, 8)
	if err := h.svc.Subscribe(id, func(snap service.TxSnapshot) {
		select {
		case updates <- snap:
		default:
		}
	}); err != nil {
		c.JSON(http.StatusNotFound, apierror.New("Transação não encontrada"))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case snap := <-updates:
			c.SSEvent("state", txToResponse(snap))
			return !snap.State.Terminal()
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func txToResponse(snap service.TxSnapshot) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:    snap.ID.String(),
		State: string(snap.State),
	}
	if snap.Charge != nil {
		resp.Charge = &dto.ChargeResponse{
			TransactionID: snap.Charge.TransactionID,
			QRCodeData:    snap.Charge.QRCodeData,
			Amount:        snap.Charge.Amount,
		}
	}
	if snap.SaleID != nil {
		sid := snap.SaleID.String()
		resp.SaleID = &sid
	}
	if snap.Err != nil {
		msg := snap.Err.Error()
		resp.Error = &msg
	}
	return resp
}
