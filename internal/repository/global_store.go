package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/consortial/counterharvest/internal/domain"
	"gorm.io/gorm"
)

// ErrNotFound reports a missing record without exposing the ORM error to
// callers that only care about presence.
var ErrNotFound = gorm.ErrRecordNotFound

// GlobalStore handles records shared by all tenants: consortia, report
// definitions and the harvest job backlog.
type GlobalStore struct {
	db *gorm.DB
}

// NewGlobalStore creates a GlobalStore bound to db.
func NewGlobalStore(db *gorm.DB) *GlobalStore {
	return &GlobalStore{db: db}
}

// FindConsortium resolves a consortium by numeric ID or by key string.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ref: consortium ID (decimal) or key.
// Returns:
//   - *domain.Consortium: consortium record if found.
//   - error: ErrNotFound if no record matches.
func (s *GlobalStore) FindConsortium(ctx context.Context, ref string) (*domain.Consortium, error) {
	var con domain.Consortium
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		if err := s.db.WithContext(ctx).First(&con, "id = ?", uint(id)).Error; err == nil {
			return &con, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if err := s.db.WithContext(ctx).First(&con, "key = ?", ref).Error; err != nil {
		return nil, err
	}
	return &con, nil
}

// ActiveConsortia lists all active tenants, used to fan out the
// active-ingest exclusion check.
func (s *GlobalStore) ActiveConsortia(ctx context.Context) ([]domain.Consortium, error) {
	var cons []domain.Consortium
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&cons).Error; err != nil {
		return nil, err
	}
	return cons, nil
}

// ReportByID retrieves a report definition.
func (s *GlobalStore) ReportByID(ctx context.Context, id uint) (*domain.Report, error) {
	var rpt domain.Report
	if err := s.db.WithContext(ctx).First(&rpt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rpt, nil
}

// ReportByName retrieves a report definition by its COUNTER name.
func (s *GlobalStore) ReportByName(ctx context.Context, name string) (*domain.Report, error) {
	var rpt domain.Report
	if err := s.db.WithContext(ctx).First(&rpt, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &rpt, nil
}

// JobsForConsortium fetches the full job backlog for one tenant, ordered
// by descending priority with ascending ID as the stable tie-break. The
// worker still filters each candidate; order is a preference, not a
// guarantee of pick-up.
func (s *GlobalStore) JobsForConsortium(ctx context.Context, consortiumID uint) ([]domain.HarvestJob, error) {
	var jobs []domain.HarvestJob
	err := s.db.WithContext(ctx).
		Where("consortium_id = ?", consortiumID).
		Order("priority DESC").
		Order("id ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// CreateJob schedules a new harvest job.
func (s *GlobalStore) CreateJob(ctx context.Context, job *domain.HarvestJob) error {
	return s.db.WithContext(ctx).Create(job).Error
}

// DeleteJob removes a consumed or discarded job from the backlog.
func (s *GlobalStore) DeleteJob(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&domain.HarvestJob{}, id).Error
}
