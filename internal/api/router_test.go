package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/consortial/counterharvest/internal/config"
	"github.com/consortial/counterharvest/internal/domain"
	"github.com/consortial/counterharvest/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *repository.TenantStore) {
	t.Helper()
	dbCfg := config.DatabaseConfig{
		Driver:          "sqlite",
		GlobalDSN:       filepath.Join(t.TempDir(), "global.db"),
		TenantDSN:       filepath.Join(t.TempDir(), "tenant_%s.db"),
		AutoMigrate:     true,
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
	}
	tenants := repository.NewTenantManager(dbCfg)
	store, err := tenants.Store("cons1")
	require.NoError(t, err)

	r := SetupRouter(tenants, &config.ServerConfig{Mode: "test"}, nil)
	return r, store
}

func get(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := map[string]json.RawMessage{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	w, _ := get(t, r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListHarvestsRequiresTenant(t *testing.T) {
	r, _ := newTestRouter(t)
	w, _ := get(t, r, "/api/v1/harvests")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListHarvestsFilters(t *testing.T) {
	r, store := newTestRouter(t)
	for _, ing := range []domain.IngestLog{
		{ReportID: 1, SushiSettingID: 1, YearMonth: "2024-01", Status: domain.IngestSuccess},
		{ReportID: 1, SushiSettingID: 2, YearMonth: "2024-02", Status: domain.IngestRetrying},
		{ReportID: 1, SushiSettingID: 3, YearMonth: "2024-02", Status: domain.IngestSuccess},
	} {
		ing := ing
		require.NoError(t, store.DB().Create(&ing).Error)
	}

	w, body := get(t, r, "/api/v1/harvests?tenant=cons1&status=Success&yearmon=2024-02")
	require.Equal(t, http.StatusOK, w.Code)

	var logs []domain.IngestLog
	require.NoError(t, json.Unmarshal(body["harvests"], &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, domain.IngestSuccess, logs[0].Status)
	assert.Equal(t, "2024-02", logs[0].YearMonth)
}

func TestGetHarvestWithFailureTrail(t *testing.T) {
	r, store := newTestRouter(t)
	ing := &domain.IngestLog{ReportID: 1, SushiSettingID: 1, YearMonth: "2024-02", Status: domain.IngestRetrying, Attempts: 2}
	require.NoError(t, store.DB().Create(ing).Error)
	require.NoError(t, store.CreateFailedIngest(context.Background(), &domain.FailedIngest{
		IngestID:    ing.ID,
		ProcessStep: domain.StepSUSHI,
		ErrorID:     2010,
		Detail:      "not authorized",
	}))

	w, body := get(t, r, "/api/v1/harvests/1?tenant=cons1")
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.IngestLog
	require.NoError(t, json.Unmarshal(body["harvest"], &got))
	assert.Equal(t, 2, got.Attempts)

	var trail []domain.FailedIngest
	require.NoError(t, json.Unmarshal(body["failed_attempts"], &trail))
	require.Len(t, trail, 1)
	assert.Equal(t, 2010, trail[0].ErrorID)
}

func TestGetHarvestNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w, _ := get(t, r, "/api/v1/harvests/99?tenant=cons1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetHarvestBadID(t *testing.T) {
	r, _ := newTestRouter(t)
	w, _ := get(t, r, "/api/v1/harvests/abc?tenant=cons1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAlerts(t *testing.T) {
	r, store := newTestRouter(t)
	require.NoError(t, store.CreateAlert(context.Background(), &domain.Alert{
		YearMonth:  "2024-02",
		ProviderID: 7,
		IngestID:   1,
		Status:     "Active",
	}))

	w, body := get(t, r, "/api/v1/alerts?tenant=cons1")
	require.Equal(t, http.StatusOK, w.Code)

	var alerts []domain.Alert
	require.NoError(t, json.Unmarshal(body["alerts"], &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "2024-02", alerts[0].YearMonth)
}
