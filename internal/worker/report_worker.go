package worker

// report_worker.go
// Processes close-of-shift reconciliation jobs from QueueReports.
// Renders the cash reconciliation PDF and, when the variance warrants
// review, enqueues an email job to the supervisor with the PDF attached.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/infra"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const maxReportAttempts = 3

// ShiftReportJobPayload is the job envelope sent to QueueReports.
type ShiftReportJobPayload struct {
	ShiftID string `json:"shift_id"`
}

// ReportWorker renders the reconciliation PDF for a closed shift.
type ReportWorker struct {
	shiftRepo       repository.ShiftRepository
	dispatcher      *Dispatcher
	rdb             *redis.Client
	storagePath     string
	supervisorEmail string
}

func NewReportWorker(
	shiftRepo repository.ShiftRepository,
	dispatcher *Dispatcher,
	rdb *redis.Client,
	storagePath string,
	supervisorEmail string,
) *ReportWorker {
	return &ReportWorker{
		shiftRepo:       shiftRepo,
		dispatcher:      dispatcher,
		rdb:             rdb,
		storagePath:     storagePath,
		supervisorEmail: supervisorEmail,
	}
}

// Process handles a single shift report job:
//  1. Parse ShiftReportJobPayload from the job envelope
//  2. Fetch the closed shift with movements, sales and payment totals
//  3. Render the reconciliation PDF with backoff (max 3 attempts)
//  4. If the variance is warning or critical, email the supervisor
//
// Exhausted jobs go to the DLQ for manual inspection.
func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ShiftReportJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return
	}

	shiftID, err := uuid.Parse(payload.ShiftID)
	if err != nil {
		log.Error().Str("shift_id", payload.ShiftID).Msg("report_worker: invalid shift_id")
		return
	}

	var shift *model.CashShift
	var pdfPath string
	renderErr := withRetry(ctx, maxReportAttempts, func(attempt int) error {
		s, err := w.shiftRepo.FindShiftByID(ctx, shiftID)
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("shift_id", payload.ShiftID).
				Msg("report_worker: shift fetch failed, retrying")
			return err
		}
		path, err := infra.GenerateShiftReportPDF(s, w.storagePath)
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("shift_id", payload.ShiftID).
				Msg("report_worker: PDF render failed, retrying")
			return err
		}
		shift = s
		pdfPath = path
		return nil
	})

	if renderErr != nil {
		log.Error().Err(renderErr).Str("shift_id", payload.ShiftID).Msg("report_worker: giving up after all retries")
		SendToDLQ(ctx, w.rdb, QueueReports, "shift_report", raw,
			fmt.Sprintf("report failed after %d attempts: %v", maxReportAttempts, renderErr),
			maxReportAttempts)
		return
	}

	log.Info().Str("pdf", pdfPath).Str("shift_id", payload.ShiftID).Msg("report_worker: reconciliation PDF generated")

	if w.supervisorEmail == "" || shift.VarianceClassification == nil {
		return
	}
	switch *shift.VarianceClassification {
	case model.VarianceWarning, model.VarianceCritical:
	default:
		return
	}

	variance := "0.00"
	if shift.CashVariance != nil {
		variance = shift.CashVariance.StringFixed(2)
	}
	emailJob := EmailJobPayload{
		ToEmail: w.supervisorEmail,
		Subject: fmt.Sprintf("Divergência de caixa (%s) — %s", *shift.VarianceClassification, shift.RegisterID),
		Body: fmt.Sprintf(
			"O fechamento do caixa %s apresentou divergência de R$ %s (%s).\nOperador: %s\nRelatório em anexo.",
			shift.RegisterID, variance, *shift.VarianceClassification, shift.OperatorName),
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		log.Warn().Err(err).Str("shift_id", payload.ShiftID).Msg("report_worker: failed to enqueue supervisor email")
		return
	}
	log.Info().
		Str("shift_id", payload.ShiftID).
		Str("classification", *shift.VarianceClassification).
		Msg("report_worker: supervisor email enqueued")
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
