package backfill

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
	"github.com/partnerly/backend/internal/services/commission"
	"github.com/partnerly/backend/internal/utils"
	"github.com/shopspring/decimal"
)

// DefaultChunkSize bounds one unit of backfill work. Each chunk commits
// independently, so an interrupted run can be resumed by rerunning.
const DefaultChunkSize = 100

// deltaEpsilon is the threshold below which a recomputed difference is
// considered noise and no adjustment is recorded.
const deltaEpsilon = 0.01

// adjustmentRuleSuffix tags adjustment rows so a rerun detects them.
const adjustmentRuleSuffix = "_ADJ"

// Action values recorded in the report's action_taken column.
const (
	ActionNone            = "none"
	ActionAdjusted        = "adjustment_created"
	ActionWouldAdjust     = "would_adjust"
	ActionSkippedExisting = "skipped_existing"
	ActionError           = "error"
)

// LineRecord is one historical commission joined with the data needed to
// re-price it.
type LineRecord struct {
	Commission     models.Commission
	Line           models.OrderLine
	Product        *models.Product // nil when the product was deleted
	AffiliateEmail string
}

// Store is the persistence surface of the backfill processor.
type Store interface {
	CommissionChunk(ctx context.Context, offset, limit int) ([]LineRecord, error)
	HasBackfillAdjustment(ctx context.Context, orderLineID uuid.UUID) (bool, error)
	CreateAdjustment(ctx context.Context, adjustment *models.Commission) error
}

// Result is what a backfill run returns to its caller.
type Result struct {
	Summary     Summary `json:"summary"`
	ReportPath  string  `json:"report_path"`
	SummaryPath string  `json:"summary_path"`
}

// Processor re-prices historical delivered orders against current rules and
// records non-destructive delta adjustments. Original commission rows are
// never mutated.
type Processor struct {
	store     Store
	audit     *utils.AuditLogger
	reportDir string
}

// NewProcessor creates a backfill processor writing reports into reportDir.
func NewProcessor(store Store, audit *utils.AuditLogger, reportDir string) *Processor {
	return &Processor{
		store:     store,
		audit:     audit,
		reportDir: reportDir,
	}
}

// Run processes all delivered-order commissions in chunks. In dry-run mode
// nothing is written; evaluation and reporting still happen. The run stops
// between chunks when the context is canceled; partial progress stays
// committed and a rerun skips already-adjusted lines.
func (p *Processor) Run(ctx context.Context, dryRun bool, chunkSize int) (*Result, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	batchID := utils.GenerateBatchID("BACKFILL")
	log.Printf("Starting backfill batch %s (dry_run=%v, chunk_size=%d)", batchID, dryRun, chunkSize)

	report, err := NewReportWriter(p.reportDir, batchID)
	if err != nil {
		return nil, err
	}
	defer report.Close()

	var metrics Metrics
	totalDelta := decimal.Zero

	for offset := 0; ; offset += chunkSize {
		if err := ctx.Err(); err != nil {
			log.Printf("Backfill batch %s interrupted after %d lines", batchID, metrics.Examined)
			break
		}

		records, err := p.store.CommissionChunk(ctx, offset, chunkSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load backfill chunk at offset %d: %w", offset, err)
		}
		if len(records) == 0 {
			break
		}

		for _, record := range records {
			delta := p.processLine(ctx, batchID, dryRun, record, report, &metrics)
			totalDelta = totalDelta.Add(decimal.NewFromFloat(delta))
		}
	}

	metrics.TotalDelta, _ = totalDelta.Round(2).Float64()

	summary := Summary{
		BatchID:      batchID,
		DryRun:       dryRun,
		Timestamp:    time.Now(),
		Metrics:      metrics,
		AccuracyRate: accuracyRate(metrics),
		AverageDelta: averageDelta(metrics),
		ReportPath:   report.Path(),
	}

	summaryPath, err := WriteSummary(p.reportDir, summary)
	if err != nil {
		return nil, err
	}

	if p.audit != nil {
		p.audit.LogEvent(ctx, utils.AuditEventBackfillRun, nil, "backfill", map[string]interface{}{
			"batch_id": batchID,
			"dry_run":  dryRun,
			"examined": metrics.Examined,
			"created":  metrics.AdjustmentsCreated,
		})
	}

	log.Printf("Backfill batch %s done: %d examined, %d adjustments needed, %d created, %d errors",
		batchID, metrics.Examined, metrics.AdjustmentsNeeded, metrics.AdjustmentsCreated, metrics.Errors)

	return &Result{
		Summary:     summary,
		ReportPath:  report.Path(),
		SummaryPath: summaryPath,
	}, nil
}

// processLine re-prices one line, records an adjustment when needed, and
// appends the report row. Returns the signed delta that was (or would be)
// adjusted.
func (p *Processor) processLine(ctx context.Context, batchID string, dryRun bool, record LineRecord, report *ReportWriter, metrics *Metrics) float64 {
	metrics.Examined++

	current := record.Commission
	row := ReportRow{
		AffiliateID:       current.AffiliateID.String(),
		AffiliateEmail:    record.AffiliateEmail,
		OrderID:           current.OrderID.String(),
		ArticleID:         current.OrderLineID.String(),
		ProductID:         record.Line.ProductID.String(),
		SalePrice:         record.Line.SalePrice,
		Quantity:          record.Line.Quantity,
		CurrentCommission: current.Amount,
		AlreadyPaid:       current.IsPaid(),
		ActionTaken:       ActionNone,
	}

	if record.Product == nil {
		log.Printf("Backfill %s: product %s for line %s missing, skipping", batchID, record.Line.ProductID, current.OrderLineID)
		metrics.Errors++
		row.RuleApplied = "PRODUCT_MISSING"
		row.ActionTaken = ActionError
		p.writeRow(report, row)
		return 0
	}

	row.ProductTitle = record.Product.Title
	row.CostPrice = record.Product.CostPrice
	row.RecommendedPrice = record.Product.RecommendedPrice
	row.FixedCommission = record.Product.FixedCommission

	eval := commission.Evaluate(commission.LineInput{
		SalePrice:        record.Line.SalePrice,
		Quantity:         record.Line.Quantity,
		CostPrice:        record.Product.CostPrice,
		RecommendedPrice: record.Product.RecommendedPrice,
		FixedCommission:  record.Product.FixedCommission,
	})

	delta := commission.Round2(eval.Amount - current.Amount)
	row.ExpectedCommission = eval.Amount
	row.Delta = delta
	row.RuleApplied = eval.RuleCode

	if math.Abs(delta) < deltaEpsilon {
		p.writeRow(report, row)
		return 0
	}

	row.NeedsAdjustment = true
	metrics.AdjustmentsNeeded++

	exists, err := p.store.HasBackfillAdjustment(ctx, current.OrderLineID)
	if err != nil {
		log.Printf("Backfill %s: failed to check existing adjustment for line %s: %v", batchID, current.OrderLineID, err)
		metrics.Errors++
		row.ActionTaken = ActionError
		p.writeRow(report, row)
		return delta
	}
	if exists {
		metrics.SkippedExisting++
		row.ActionTaken = ActionSkippedExisting
		p.writeRow(report, row)
		return delta
	}

	if dryRun {
		row.ActionTaken = ActionWouldAdjust
		p.writeRow(report, row)
		return delta
	}

	adjustment := &models.Commission{
		OrderID:     current.OrderID,
		OrderLineID: current.OrderLineID,
		AffiliateID: current.AffiliateID,
		Type:        models.CommissionTypeAdjustment,
		BaseAmount:  record.Line.SalePrice,
		Rate:        eval.Rate,
		Quantity:    record.Line.Quantity,
		Amount:      delta,
		Currency:    current.Currency,
		Status:      models.CommissionStatusCalculated,
		RuleCode:    eval.RuleCode + adjustmentRuleSuffix,
		Notes:       fmt.Sprintf("[backfill %s] expected %.2f, recorded %.2f", batchID, eval.Amount, current.Amount),
		MetaData: models.JSON{
			"batch_id":              batchID,
			"original_commission":   current.ID.String(),
			"original_already_paid": current.IsPaid(),
		},
	}
	if err := p.store.CreateAdjustment(ctx, adjustment); err != nil {
		log.Printf("Backfill %s: failed to create adjustment for line %s: %v", batchID, current.OrderLineID, err)
		metrics.Errors++
		row.ActionTaken = ActionError
		p.writeRow(report, row)
		return delta
	}

	metrics.AdjustmentsCreated++
	row.ActionTaken = ActionAdjusted
	p.writeRow(report, row)
	return delta
}

func (p *Processor) writeRow(report *ReportWriter, row ReportRow) {
	if err := report.WriteRow(row); err != nil {
		log.Printf("Failed to append report row for line %s: %v", row.ArticleID, err)
	}
}

func accuracyRate(m Metrics) float64 {
	if m.Examined == 0 {
		return 1
	}
	return commission.Round2(float64(m.Examined-m.AdjustmentsNeeded) / float64(m.Examined))
}

func averageDelta(m Metrics) float64 {
	if m.AdjustmentsNeeded == 0 {
		return 0
	}
	return commission.Round2(m.TotalDelta / float64(m.AdjustmentsNeeded))
}
