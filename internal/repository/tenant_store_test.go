package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/consortial/counterharvest/internal/config"
	"github.com/consortial/counterharvest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTenantStore(t *testing.T) *TenantStore {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:          "sqlite",
		TenantDSN:       filepath.Join(t.TempDir(), "tenant_%s.db"),
		AutoMigrate:     true,
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
	}
	db, err := OpenTenant(&cfg, "cons1")
	require.NoError(t, err)
	return NewTenantStore("cons1", db)
}

func seedSetting(t *testing.T, s *TenantStore, serverURL string) *domain.SushiSetting {
	t.Helper()
	prov := &domain.Provider{Name: "Prov", ServerURL: serverURL, IsActive: true}
	require.NoError(t, s.DB().Create(prov).Error)
	inst := &domain.Institution{Name: "Inst", IsActive: true}
	require.NoError(t, s.DB().Create(inst).Error)
	set := &domain.SushiSetting{ProviderID: prov.ID, InstitutionID: inst.ID}
	require.NoError(t, s.DB().Create(set).Error)
	return set
}

func TestActiveEndpointsListsDistinctBusyURLs(t *testing.T) {
	s := newTenantStore(t)
	ctx := context.Background()
	busy := seedSetting(t, s, "https://busy.example.com/r5")
	idle := seedSetting(t, s, "https://idle.example.com/r5")

	for _, status := range []domain.IngestStatus{domain.IngestActive, domain.IngestActive} {
		ing := &domain.IngestLog{ReportID: 1, SushiSettingID: busy.ID, YearMonth: "2024-02", Status: status}
		require.NoError(t, s.DB().Create(ing).Error)
	}
	ing := &domain.IngestLog{ReportID: 1, SushiSettingID: idle.ID, YearMonth: "2024-02", Status: domain.IngestQueued}
	require.NoError(t, s.DB().Create(ing).Error)

	urls, err := s.ActiveEndpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://busy.example.com/r5"}, urls, "one row per endpoint, non-active statuses excluded")
}

func TestReclaimStaleActive(t *testing.T) {
	s := newTenantStore(t)
	ctx := context.Background()
	set := seedSetting(t, s, "https://sushi.example.com/r5")

	stale := &domain.IngestLog{ReportID: 1, SushiSettingID: set.ID, YearMonth: "2024-01", Status: domain.IngestActive}
	fresh := &domain.IngestLog{ReportID: 1, SushiSettingID: set.ID, YearMonth: "2024-02", Status: domain.IngestActive}
	require.NoError(t, s.DB().Create(stale).Error)
	require.NoError(t, s.DB().Create(fresh).Error)
	require.NoError(t, s.DB().Model(&domain.IngestLog{}).
		Where("id = ?", stale.ID).
		UpdateColumn("updated_at", time.Now().Add(-3*time.Hour)).Error)

	n, err := s.ReclaimStaleActive(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := s.IngestByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestRetrying, got.Status)

	got, err = s.IngestByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestActive, got.Status)
}

func TestEnsureCounterErrorKeepsFirstEntry(t *testing.T) {
	s := newTenantStore(t)
	ctx := context.Background()

	first, err := s.EnsureCounterError(ctx, &domain.CounterError{ID: 2010, Message: "Requestor Not Authorized", Severity: "Fatal"})
	require.NoError(t, err)
	assert.Equal(t, "Requestor Not Authorized", first.Message)

	second, err := s.EnsureCounterError(ctx, &domain.CounterError{ID: 2010, Message: "different wording", Severity: "Fatal"})
	require.NoError(t, err)
	assert.Equal(t, "Requestor Not Authorized", second.Message, "existing catalog entries win")

	var n int64
	require.NoError(t, s.DB().Model(&domain.CounterError{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestReplaceUsageScopesDelete(t *testing.T) {
	s := newTenantStore(t)
	ctx := context.Background()

	keep := domain.UsageRecord{ReportType: "TR", ProviderID: 1, InstitutionID: 1, YearMonth: "2024-01", Title: "keep"}
	gone := domain.UsageRecord{ReportType: "TR", ProviderID: 1, InstitutionID: 1, YearMonth: "2024-02", Title: "gone"}
	otherProv := domain.UsageRecord{ReportType: "TR", ProviderID: 2, InstitutionID: 1, YearMonth: "2024-02", Title: "other"}
	require.NoError(t, s.InsertUsage(ctx, []domain.UsageRecord{keep, gone, otherProv}))

	require.NoError(t, s.ReplaceUsage(ctx, "TR", 1, 1, "2024-02"))

	var titles []string
	require.NoError(t, s.DB().Model(&domain.UsageRecord{}).Order("title").Pluck("title", &titles).Error)
	assert.Equal(t, []string{"keep", "other"}, titles)
}

func TestSettingByIDPreloadsRelations(t *testing.T) {
	s := newTenantStore(t)
	set := seedSetting(t, s, "https://sushi.example.com/r5")

	got, err := s.SettingByID(context.Background(), set.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Provider)
	require.NotNil(t, got.Institution)
	assert.Equal(t, "https://sushi.example.com/r5", got.Provider.ServerURL)
}
