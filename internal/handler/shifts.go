package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/apierror"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/dto"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/middleware"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ShiftHandler struct{ ledger *service.Ledger }

func NewShiftHandler(ledger *service.Ledger) *ShiftHandler { return &ShiftHandler{ledger: ledger} }

// Open godoc
// @Summary Abre um novo turno de caixa
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenShiftRequest true "Fundo de troco"
// @Success 201 {object} dto.ShiftResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts/open [post]
func (h *ShiftHandler) Open(c *gin.Context) {
	var req dto.OpenShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	operatorID, _ := uuid.Parse(claims.OperatorID)

	shift, err := h.ledger.OpenShift(c.Request.Context(), operatorID, claims.OperatorName, req.OpeningFloat)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrShiftAlreadyOpen) {
			status = http.StatusConflict
		}
		c.JSON(status, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, shiftToResponse(shift, true))
}

// Movement godoc
// @Summary Registra uma entrada ou sangria de caixa
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovementRequest true "Movimento manual"
// @Success 200 {object} dto.ShiftResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts/movements [post]
func (h *ShiftHandler) Movement(c *gin.Context) {
	var req dto.MovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	operatorID, _ := uuid.Parse(claims.OperatorID)

	shift, err := h.ledger.RecordMovement(c.Request.Context(), req.Kind, req.Amount, req.Description, operatorID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrNoOpenShift) {
			status = http.StatusConflict
		}
		c.JSON(status, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, shiftToResponse(shift, false))
}

// Close godoc
// @Summary Fecha o turno com a contagem cega do caixa
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CloseShiftRequest true "Valor contado na gaveta"
// @Success 200 {object} dto.ShiftResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts/close [post]
func (h *ShiftHandler) Close(c *gin.Context) {
	var req dto.CloseShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	shift, err := h.ledger.CloseShift(c.Request.Context(), req.CountedCash)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrNoOpenShift) {
			status = http.StatusConflict
		}
		c.JSON(status, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, shiftToResponse(shift, true))
}

// Current returns the open shift of this register, 404 when none.
func (h *ShiftHandler) Current(c *gin.Context) {
	shift, err := h.ledger.CurrentShift()
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("Nenhum turno aberto"))
		return
	}
	c.JSON(http.StatusOK, shiftToResponse(shift, true))
}

// History returns recently closed shifts of this register.
func (h *ShiftHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	shifts, err := h.ledger.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
		return
	}
	resp := make([]dto.ShiftResponse, len(shifts))
	for i := range shifts {
		resp[i] = shiftToResponse(&shifts[i], false)
	}
	c.JSON(http.StatusOK, gin.H{"data": resp, "limit": limit})
}

func shiftToResponse(s *model.CashShift, withMovements bool) dto.ShiftResponse {
	resp := dto.ShiftResponse{
		ID:            s.ID.String(),
		RegisterID:    s.RegisterID,
		OperatorName:  s.OperatorName,
		Status:        s.Status,
		OpeningFloat:  s.OpeningFloat,
		TotalSales:    s.TotalSales,
		TotalInflows:  s.TotalInflows,
		TotalOutflows: s.TotalOutflows,
		CountedCash:   s.CountedCash,
		ExpectedCash:  s.ExpectedCash,
		CashVariance:  s.CashVariance,

		VarianceClassification: s.VarianceClassification,
		OpenedAt:               s.OpenedAt.Format(time.RFC3339),
	}
	if s.ClosedAt != nil {
		closed := s.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closed
	}
	for _, pt := range s.PaymentTotals {
		resp.PaymentTotals = append(resp.PaymentTotals, dto.PaymentTotalResponse{
			Method: string(pt.Method),
			Total:  pt.Amount,
		})
	}
	if withMovements {
		for _, m := range s.Movements {
			resp.Movements = append(resp.Movements, dto.MovementResponse{
				ID:          m.ID.String(),
				Kind:        m.Kind,
				Amount:      m.Amount,
				Description: m.Reason,
				CreatedAt:   m.CreatedAt.Format(time.RFC3339),
			})
		}
	}
	return resp
}
