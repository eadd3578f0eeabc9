package repository

import (
	"context"
	"time"

	"github.com/consortial/counterharvest/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantStore handles one consortium's records: providers, institutions,
// sushi settings, ingest logs, the failure audit trail, alerts and
// normalized usage.
type TenantStore struct {
	key string
	db  *gorm.DB
}

// NewTenantStore creates a TenantStore for the consortium identified by key.
func NewTenantStore(key string, db *gorm.DB) *TenantStore {
	return &TenantStore{key: key, db: db}
}

// Key returns the consortium key this store belongs to.
func (s *TenantStore) Key() string {
	return s.key
}

// DB exposes the underlying handle for test fixtures.
func (s *TenantStore) DB() *gorm.DB {
	return s.db
}

// IngestByID retrieves an ingest log.
func (s *TenantStore) IngestByID(ctx context.Context, id uint) (*domain.IngestLog, error) {
	var ing domain.IngestLog
	if err := s.db.WithContext(ctx).First(&ing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ing, nil
}

// SaveIngest persists an ingest log's current state. The Active status
// write must be durably committed before the fetch begins; other worker
// processes read it as the exclusion lock.
func (s *TenantStore) SaveIngest(ctx context.Context, ing *domain.IngestLog) error {
	return s.db.WithContext(ctx).Save(ing).Error
}

// SettingByID retrieves a sushi setting with its provider and institution
// resolved.
func (s *TenantStore) SettingByID(ctx context.Context, id uint) (*domain.SushiSetting, error) {
	var set domain.SushiSetting
	err := s.db.WithContext(ctx).
		Preload("Provider").
		Preload("Institution").
		First(&set, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// ActiveEndpoints lists the distinct provider server URLs that currently
// have an Active ingest in this tenant's store.
func (s *TenantStore) ActiveEndpoints(ctx context.Context) ([]string, error) {
	var urls []string
	err := s.db.WithContext(ctx).
		Model(&domain.IngestLog{}).
		Distinct("providers.server_url").
		Joins("JOIN sushi_settings ON sushi_settings.id = ingest_logs.sushi_setting_id").
		Joins("JOIN providers ON providers.id = sushi_settings.provider_id").
		Where("ingest_logs.status = ?", domain.IngestActive).
		Pluck("providers.server_url", &urls).Error
	if err != nil {
		return nil, err
	}
	return urls, nil
}

// ReclaimStaleActive flips Active ingests not updated since cutoff back to
// Retrying, so an endpoint held by a worker killed mid-flight is
// eventually released. Returns the number of reclaimed rows.
func (s *TenantStore) ReclaimStaleActive(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&domain.IngestLog{}).
		Where("status = ? AND updated_at < ?", domain.IngestActive, cutoff).
		Update("status", domain.IngestRetrying)
	return res.RowsAffected, res.Error
}

// CreateFailedIngest appends one audit record to the failure trail.
func (s *TenantStore) CreateFailedIngest(ctx context.Context, f *domain.FailedIngest) error {
	return s.db.WithContext(ctx).Create(f).Error
}

// CreateAlert records a permanently failed harvest.
func (s *TenantStore) CreateAlert(ctx context.Context, a *domain.Alert) error {
	return s.db.WithContext(ctx).Create(a).Error
}

// EnsureCounterError inserts a catalog entry for the error code if one
// does not exist yet and returns the catalog row. Existing entries win;
// the same code reported with different link-bearing messages must not
// multiply catalog rows.
func (s *TenantStore) EnsureCounterError(ctx context.Context, e *domain.CounterError) (*domain.CounterError, error) {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(e).Error
	if err != nil {
		return nil, err
	}
	var out domain.CounterError
	if err := s.db.WithContext(ctx).First(&out, "id = ?", e.ID).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplaceUsage deletes the usage rows a fresh report will overwrite:
// same report type, provider, institution and period. Called only after
// the replacement report has been received and validated.
func (s *TenantStore) ReplaceUsage(ctx context.Context, reportType string, providerID, institutionID uint, yearMonth string) error {
	return s.db.WithContext(ctx).
		Where("report_type = ? AND provider_id = ? AND institution_id = ? AND year_month = ?",
			reportType, providerID, institutionID, yearMonth).
		Delete(&domain.UsageRecord{}).Error
}

// InsertUsage persists a batch of normalized metric rows.
func (s *TenantStore) InsertUsage(ctx context.Context, records []domain.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(records, 200).Error
}

// IngestFilter narrows ListIngests results on the status API.
type IngestFilter struct {
	Status    string
	YearMonth string
	Limit     int
}

// ListIngests returns ingest logs for the status API, newest first.
func (s *TenantStore) ListIngests(ctx context.Context, f IngestFilter) ([]domain.IngestLog, error) {
	q := s.db.WithContext(ctx).Model(&domain.IngestLog{}).Order("updated_at DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.YearMonth != "" {
		q = q.Where("year_month = ?", f.YearMonth)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var logs []domain.IngestLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// FailedForIngest returns the audit trail for one ingest, oldest first.
func (s *TenantStore) FailedForIngest(ctx context.Context, ingestID uint) ([]domain.FailedIngest, error) {
	var failed []domain.FailedIngest
	err := s.db.WithContext(ctx).
		Where("ingest_id = ?", ingestID).
		Order("id ASC").
		Find(&failed).Error
	if err != nil {
		return nil, err
	}
	return failed, nil
}

// ListAlerts returns alerts newest first.
func (s *TenantStore) ListAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	q := s.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var alerts []domain.Alert
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}
