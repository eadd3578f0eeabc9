package counter

import (
	"context"
	"fmt"

	"github.com/consortial/counterharvest/internal/domain"
)

// UsageStore is the slice of the tenant store the processor writes
// through.
type UsageStore interface {
	ReplaceUsage(ctx context.Context, reportType string, providerID, institutionID uint, yearMonth string) error
	InsertUsage(ctx context.Context, records []domain.UsageRecord) error
}

// ProcessInput carries a validated report and the identity of the harvest
// it belongs to.
type ProcessInput struct {
	ReportName    string
	Report        *Report
	ProviderID    uint
	InstitutionID uint
	YearMonth     string
	ReplaceData   bool
}

// itemMapper fills the report-type specific columns of a usage row from
// one report item.
type itemMapper func(item *ReportItem, rec *domain.UsageRecord)

// strategies maps each report-type tag to its normalization strategy.
// Dispatch is by variant, never by reflective name lookup.
var strategies = map[string]itemMapper{
	domain.ReportTR: func(item *ReportItem, rec *domain.UsageRecord) {
		rec.Title = item.Title
		rec.SectionType = item.SectionType
		rec.AccessType = item.AccessType
		rec.YOP = item.YOP.String()
	},
	domain.ReportDR: func(item *ReportItem, rec *domain.UsageRecord) {
		rec.Title = item.Database
		rec.AccessMethod = item.AccessMethod
	},
	domain.ReportPR: func(item *ReportItem, rec *domain.UsageRecord) {
		rec.AccessMethod = item.AccessMethod
	},
	domain.ReportIR: func(item *ReportItem, rec *domain.UsageRecord) {
		rec.Title = item.Item
		rec.AccessType = item.AccessType
		rec.YOP = item.YOP.String()
	},
}

// Processor ingests validated reports into normalized usage rows. It is
// tenant-agnostic; the worker passes the store of whichever tenant the
// current harvest belongs to.
type Processor struct{}

// NewProcessor creates a processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process normalizes the report's items and persists them through store,
// honoring ReplaceData by deleting the period's existing rows first. The
// delete only ever happens here, after the replacement report has already
// been received and validated.
//
// The returned status is the ingest's new terminal state; a non-nil error
// signals a storage failure the worker accounts as a failed attempt.
func (p *Processor) Process(ctx context.Context, store UsageStore, in ProcessInput) (domain.IngestStatus, error) {
	mapper, ok := strategies[in.ReportName]
	if !ok {
		return "", fmt.Errorf("no processing strategy for report %q", in.ReportName)
	}

	records := make([]domain.UsageRecord, 0, len(in.Report.Items))
	for i := range in.Report.Items {
		item := &in.Report.Items[i]

		rec := domain.UsageRecord{
			ReportType:    in.ReportName,
			ProviderID:    in.ProviderID,
			InstitutionID: in.InstitutionID,
			YearMonth:     in.YearMonth,
			Publisher:     item.Publisher,
			Platform:      item.Platform,
			DataType:      item.DataType,
		}
		mapper(item, &rec)

		for _, perf := range item.Performance {
			for _, inst := range perf.Instance {
				rec.AddMetric(inst.MetricType, inst.Count)
			}
		}
		records = append(records, rec)
	}

	if in.ReplaceData {
		if err := store.ReplaceUsage(ctx, in.ReportName, in.ProviderID, in.InstitutionID, in.YearMonth); err != nil {
			return "", fmt.Errorf("failed to clear replaced usage: %w", err)
		}
	}
	if err := store.InsertUsage(ctx, records); err != nil {
		return "", fmt.Errorf("failed to insert usage: %w", err)
	}

	return domain.IngestSuccess, nil
}
