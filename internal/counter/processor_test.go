package counter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/consortial/counterharvest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUsageStore records writes and optionally injects failures.
type fakeUsageStore struct {
	inserted  []domain.UsageRecord
	replaced  []string
	insertErr error
	replaceErr error
}

func (f *fakeUsageStore) ReplaceUsage(_ context.Context, reportType string, _, _ uint, yearMonth string) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaced = append(f.replaced, reportType+"/"+yearMonth)
	return nil
}

func (f *fakeUsageStore) InsertUsage(_ context.Context, records []domain.UsageRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, records...)
	return nil
}

func titleItem() ReportItem {
	return ReportItem{
		Title:       "Journal of Testing",
		Publisher:   "Test Press",
		Platform:    "TestPlatform",
		DataType:    "Journal",
		SectionType: "Article",
		AccessType:  "Controlled",
		YOP:         json.Number("2021"),
		Performance: []Performance{{
			Period: Period{BeginDate: "2024-02-01", EndDate: "2024-02-29"},
			Instance: []Instance{
				{MetricType: "Total_Item_Requests", Count: 5},
				{MetricType: "Unique_Item_Requests", Count: 4},
				{MetricType: "Total_Item_Requests", Count: 2},
			},
		}},
	}
}

func input(reportName string, items ...ReportItem) ProcessInput {
	return ProcessInput{
		ReportName:    reportName,
		Report:        &Report{Items: items},
		ProviderID:    7,
		InstitutionID: 3,
		YearMonth:     "2024-02",
	}
}

func TestProcessTitleReport(t *testing.T) {
	store := &fakeUsageStore{}
	status, err := NewProcessor().Process(context.Background(), store, input(domain.ReportTR, titleItem()))
	require.NoError(t, err)
	assert.Equal(t, domain.IngestSuccess, status)

	require.Len(t, store.inserted, 1)
	rec := store.inserted[0]
	assert.Equal(t, domain.ReportTR, rec.ReportType)
	assert.EqualValues(t, 7, rec.ProviderID)
	assert.EqualValues(t, 3, rec.InstitutionID)
	assert.Equal(t, "2024-02", rec.YearMonth)
	assert.Equal(t, "Journal of Testing", rec.Title)
	assert.Equal(t, "Test Press", rec.Publisher)
	assert.Equal(t, "Article", rec.SectionType)
	assert.Equal(t, "Controlled", rec.AccessType)
	assert.Equal(t, "2021", rec.YOP)
	assert.EqualValues(t, 7, rec.TotalItemRequests, "repeated metrics accumulate")
	assert.EqualValues(t, 4, rec.UniqueItemRequests)
	assert.Empty(t, store.replaced)
}

func TestProcessDatabaseReportUsesDatabaseName(t *testing.T) {
	item := ReportItem{
		Database:     "Big Index",
		Platform:     "TestPlatform",
		AccessMethod: "Regular",
		Performance: []Performance{{
			Instance: []Instance{{MetricType: "Total_Item_Investigations", Count: 9}},
		}},
	}
	store := &fakeUsageStore{}
	_, err := NewProcessor().Process(context.Background(), store, input(domain.ReportDR, item))
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Big Index", store.inserted[0].Title)
	assert.Equal(t, "Regular", store.inserted[0].AccessMethod)
	assert.EqualValues(t, 9, store.inserted[0].TotalItemInvestigations)
}

func TestProcessItemReportUsesItemName(t *testing.T) {
	item := ReportItem{
		Item:       "Chapter 4",
		AccessType: "OA_Gold",
		YOP:        json.Number("1999"),
		Performance: []Performance{{
			Instance: []Instance{{MetricType: "Total_Item_Requests", Count: 1}},
		}},
	}
	store := &fakeUsageStore{}
	_, err := NewProcessor().Process(context.Background(), store, input(domain.ReportIR, item))
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Chapter 4", store.inserted[0].Title)
	assert.Equal(t, "1999", store.inserted[0].YOP)
}

func TestProcessUnknownMetricIgnored(t *testing.T) {
	item := ReportItem{
		Title: "Journal",
		Performance: []Performance{{
			Instance: []Instance{
				{MetricType: "Searches_Platform", Count: 50},
				{MetricType: "Total_Item_Requests", Count: 1},
			},
		}},
	}
	store := &fakeUsageStore{}
	_, err := NewProcessor().Process(context.Background(), store, input(domain.ReportTR, item))
	require.NoError(t, err)
	assert.EqualValues(t, 1, store.inserted[0].TotalItemRequests)
}

func TestProcessUnknownReportType(t *testing.T) {
	store := &fakeUsageStore{}
	_, err := NewProcessor().Process(context.Background(), store, input("XX", titleItem()))
	assert.Error(t, err)
	assert.Empty(t, store.inserted)
}

func TestProcessReplaceDataClearsPeriodFirst(t *testing.T) {
	store := &fakeUsageStore{}
	in := input(domain.ReportTR, titleItem())
	in.ReplaceData = true
	_, err := NewProcessor().Process(context.Background(), store, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"TR/2024-02"}, store.replaced)
	assert.Len(t, store.inserted, 1)
}

func TestProcessReplaceFailureAbortsInsert(t *testing.T) {
	store := &fakeUsageStore{replaceErr: errors.New("disk full")}
	in := input(domain.ReportTR, titleItem())
	in.ReplaceData = true
	_, err := NewProcessor().Process(context.Background(), store, in)
	require.Error(t, err)
	assert.Empty(t, store.inserted, "failed clear must not be followed by inserts")
}

func TestProcessInsertFailure(t *testing.T) {
	store := &fakeUsageStore{insertErr: errors.New("connection reset")}
	_, err := NewProcessor().Process(context.Background(), store, input(domain.ReportTR, titleItem()))
	assert.Error(t, err)
}
