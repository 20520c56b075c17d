package service

import "errors"

// Ledger errors — locally recoverable, the caller retries with corrected input.
var (
	ErrShiftAlreadyOpen = errors.New("já existe um turno aberto neste caixa")
	ErrNoOpenShift      = errors.New("nenhum turno aberto")
	ErrInvalidAmount    = errors.New("valor inválido")
)

// Orchestrator errors — terminal for the transaction, never silently retried.
var (
	ErrChargeCreationFailed = errors.New("falha ao criar cobrança PIX")
	ErrUserCancelled        = errors.New("transação cancelada pelo operador")
	ErrTransactionNotFound  = errors.New("transação não encontrada")
	ErrInvalidCart          = errors.New("carrinho inválido")
)
