package backfill

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// reportColumns is the fixed column set of the backfill report artifact.
var reportColumns = []string{
	"affiliate_id",
	"affiliate_email",
	"order_id",
	"article_id",
	"product_id",
	"product_title",
	"cost_price",
	"recommended_price",
	"fixed_commission",
	"sale_price",
	"quantity",
	"current_commission",
	"expected_commission",
	"delta",
	"rule_applied",
	"needs_adjustment",
	"already_paid",
	"action_taken",
}

// ReportRow is one processed line of the reconciliation report. Every
// examined line is reported regardless of outcome.
type ReportRow struct {
	AffiliateID        string
	AffiliateEmail     string
	OrderID            string
	ArticleID          string
	ProductID          string
	ProductTitle       string
	CostPrice          float64
	RecommendedPrice   float64
	FixedCommission    *float64
	SalePrice          float64
	Quantity           int
	CurrentCommission  float64
	ExpectedCommission float64
	Delta              float64
	RuleApplied        string
	NeedsAdjustment    bool
	AlreadyPaid        bool
	ActionTaken        string
}

// Metrics accumulates counters across a backfill run.
type Metrics struct {
	Examined           int     `json:"examined"`
	AdjustmentsNeeded  int     `json:"adjustments_needed"`
	AdjustmentsCreated int     `json:"adjustments_created"`
	SkippedExisting    int     `json:"skipped_existing"`
	Errors             int     `json:"errors"`
	TotalDelta         float64 `json:"total_delta"`
}

// Summary is the JSON artifact written next to the CSV report.
type Summary struct {
	BatchID      string    `json:"batch_id"`
	DryRun       bool      `json:"dry_run"`
	Timestamp    time.Time `json:"timestamp"`
	Metrics      Metrics   `json:"metrics"`
	AccuracyRate float64   `json:"accuracy_rate"`
	AverageDelta float64   `json:"average_delta"`
	ReportPath   string    `json:"report_path"`
}

// ReportWriter appends rows to the CSV report of one backfill batch.
type ReportWriter struct {
	file   *os.File
	writer *csv.Writer
	path   string
}

// NewReportWriter creates the report file for a batch and writes the header.
func NewReportWriter(dir, batchID string) (*ReportWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("backfill_%s.csv", batchID))
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(reportColumns); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}

	return &ReportWriter{file: file, writer: writer, path: path}, nil
}

// Path returns the location of the report file.
func (w *ReportWriter) Path() string {
	return w.path
}

// WriteRow appends one processed line to the report.
func (w *ReportWriter) WriteRow(row ReportRow) error {
	fixed := ""
	if row.FixedCommission != nil {
		fixed = formatAmount(*row.FixedCommission)
	}
	return w.writer.Write([]string{
		row.AffiliateID,
		row.AffiliateEmail,
		row.OrderID,
		row.ArticleID,
		row.ProductID,
		row.ProductTitle,
		formatAmount(row.CostPrice),
		formatAmount(row.RecommendedPrice),
		fixed,
		formatAmount(row.SalePrice),
		strconv.Itoa(row.Quantity),
		formatAmount(row.CurrentCommission),
		formatAmount(row.ExpectedCommission),
		formatAmount(row.Delta),
		row.RuleApplied,
		yesNo(row.NeedsAdjustment),
		yesNo(row.AlreadyPaid),
		row.ActionTaken,
	})
}

// Close flushes and closes the report file.
func (w *ReportWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// WriteSummary writes the JSON summary artifact for a batch and returns its
// path.
func WriteSummary(dir string, summary Summary) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("backfill_%s_summary.json", summary.BatchID))
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}
	return path, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
