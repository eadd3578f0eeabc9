package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/consortial/counterharvest/internal/config"
	"github.com/consortial/counterharvest/internal/counter"
	"github.com/consortial/counterharvest/internal/domain"
	"github.com/consortial/counterharvest/internal/logger"
	"github.com/consortial/counterharvest/internal/repository"
	"github.com/consortial/counterharvest/internal/storage"
	"github.com/consortial/counterharvest/internal/sushi"
	"gorm.io/gorm"
)

// maxCatalogMessage caps cleaned error messages before they enter the
// error catalog.
const maxCatalogMessage = 60

// ReportValidator checks a raw payload against the expected report schema.
type ReportValidator interface {
	Validate(raw []byte, expectedReport string) (*counter.Report, error)
}

// ReportProcessor ingests a validated report into the tenant's store.
type ReportProcessor interface {
	Process(ctx context.Context, store counter.UsageStore, in counter.ProcessInput) (domain.IngestStatus, error)
}

// WorkerDeps wires the worker's collaborators.
type WorkerDeps struct {
	Global    *repository.GlobalStore
	Tenants   *repository.TenantManager
	Registry  *Registry
	Client    sushi.Client
	Validator ReportValidator
	Processor ReportProcessor
	Archive   storage.Archive // nil disables raw-response archival
	Config    config.HarvestConfig
	Logger    *logger.Logger
}

// Worker drains one tenant's harvest backlog, one job per pass. Multiple
// worker processes run in parallel for different tenants; the Active
// ingest status, persisted before any network call, is the only
// cross-process exclusion mechanism.
type Worker struct {
	global    *repository.GlobalStore
	tenants   *repository.TenantManager
	registry  *Registry
	client    sushi.Client
	validator ReportValidator
	processor ReportProcessor
	archive   storage.Archive
	cfg       config.HarvestConfig
	log       *logger.Logger

	// now is swappable so the date-window filters are testable.
	now func() time.Time
}

// NewWorker creates a queue worker from its dependencies.
func NewWorker(d WorkerDeps) *Worker {
	log := d.Logger
	if log == nil {
		log = logger.GetDefault()
	}
	return &Worker{
		global:    d.Global,
		tenants:   d.Tenants,
		registry:  d.Registry,
		client:    d.Client,
		validator: d.Validator,
		processor: d.Processor,
		archive:   d.Archive,
		cfg:       d.Config,
		log:       log,
		now:       time.Now,
	}
}

// candidate is one backlog job joined to its ingest state.
type candidate struct {
	job    domain.HarvestJob
	ingest *domain.IngestLog
}

// Run drains the tenant's runnable backlog until none remains. The tenant
// may be given as a numeric ID or a key string. An unknown or inactive
// tenant is a valid no-op run, not an error. The optional startup delay
// staggers workers launched simultaneously by an external scheduler.
func (w *Worker) Run(ctx context.Context, tenantRef, runIdent string, delay time.Duration) error {
	l := w.log
	if runIdent != "" {
		l = l.WithField(logger.FieldRunIdent, runIdent)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	con, err := w.global.FindConsortium(ctx, tenantRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.WithField(logger.FieldTenant, tenantRef).Info("Cannot locate consortium, nothing to do")
			return nil
		}
		return fmt.Errorf("failed to resolve consortium %q: %w", tenantRef, err)
	}
	if !con.IsActive {
		l.WithField(logger.FieldTenant, con.Key).Info("Consortium is not active, quitting")
		return nil
	}
	l = l.WithField(logger.FieldTenant, con.Key)

	store, err := w.tenants.Store(con.Key)
	if err != nil {
		return fmt.Errorf("failed to open tenant store %q: %w", con.Key, err)
	}

	// Keep looping as long as there is runnable, unblocked work. One job
	// is fully processed per pass; the runnable set is recomputed at the
	// top of each pass.
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		candidates, err := w.runnableCandidates(ctx, store, con.ID)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		consortia, err := w.global.ActiveConsortia(ctx)
		if err != nil {
			return fmt.Errorf("failed to list active consortia: %w", err)
		}

		var staleCutoff time.Time
		if w.cfg.ActiveTimeout > 0 {
			staleCutoff = w.now().Add(-w.cfg.ActiveTimeout)
		}
		snap := w.registry.ActiveEndpoints(ctx, consortia, staleCutoff)
		if snap.Partial {
			// An unreadable tenant store means unknown endpoints may be
			// busy; treat every candidate as blocked rather than risk a
			// concurrent duplicate request.
			l.Warn("Active-ingest snapshot is partial, deferring all candidates")
			return nil
		}

		sel := w.selectCandidate(ctx, store, candidates, snap)
		if sel == nil {
			// Everything is blocked or inside a wait window. Normal
			// backpressure, exit quietly.
			return nil
		}

		// The status field is the lock: persist Active before the fetch
		// so parallel workers observe the exclusion immediately.
		sel.ingest.Status = domain.IngestActive
		if err := store.SaveIngest(ctx, sel.ingest); err != nil {
			return fmt.Errorf("failed to mark ingest %d active: %w", sel.ingest.ID, err)
		}

		if err := w.processJob(ctx, l, store, sel); err != nil {
			// A single job's failure never aborts the loop.
			l.WithFields(logger.Fields{
				logger.FieldJobID:     sel.job.ID,
				logger.FieldHarvestID: sel.ingest.ID,
			}).WithError(err).Error("Job processing failed")
		}
	}
}

// runnableCandidates loads the tenant's backlog in (priority desc, id asc)
// order and joins each job to its ingest, keeping those in a runnable
// status. Jobs whose ingest row is missing are left alone, matching the
// join semantics of the backlog query.
func (w *Worker) runnableCandidates(ctx context.Context, store *repository.TenantStore, consortiumID uint) ([]candidate, error) {
	jobs, err := w.global.JobsForConsortium(ctx, consortiumID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backlog: %w", err)
	}

	candidates := make([]candidate, 0, len(jobs))
	for _, job := range jobs {
		ing, err := store.IngestByID(ctx, job.IngestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load ingest %d: %w", job.IngestID, err)
		}
		if !ing.Status.Runnable() {
			continue
		}
		candidates = append(candidates, candidate{job: job, ingest: ing})
	}
	return candidates, nil
}

// selectCandidate applies the per-pass skip filters in order and returns
// the first surviving candidate, or nil when everything is blocked.
func (w *Worker) selectCandidate(ctx context.Context, store *repository.TenantStore, candidates []candidate, snap *Snapshot) *candidate {
	now := w.now()
	for i := range candidates {
		c := &candidates[i]

		// A Retrying ingest already touched today waits for tomorrow;
		// retry storms within one day help nobody.
		if c.ingest.Status == domain.IngestRetrying && sameDay(c.ingest.UpdatedAt, now) {
			continue
		}

		// A Pending ingest is the provider still processing; give it the
		// full wait window before polling again.
		if c.ingest.Status == domain.IngestPending && now.Sub(c.ingest.UpdatedAt) < w.cfg.PendingWait {
			continue
		}

		// Cross-tenant exclusion on the provider endpoint. A candidate
		// whose setting cannot be resolved is selected anyway; the
		// per-job sequence discards it as a data-integrity cleanup.
		setting, err := store.SettingByID(ctx, c.ingest.SushiSettingID)
		if err == nil && setting.Provider != nil && snap.Busy(setting.Provider.ServerURL) {
			continue
		}

		return c
	}
	return nil
}

// processJob drives the fetch/validate/persist sequence for one selected
// job. The ingest is already marked Active.
func (w *Worker) processJob(ctx context.Context, l *logger.Logger, store *repository.TenantStore, sel *candidate) error {
	job := sel.job
	ing := sel.ingest

	l = l.WithFields(logger.Fields{
		logger.FieldJobID:     job.ID,
		logger.FieldHarvestID: ing.ID,
		logger.FieldYearMonth: ing.YearMonth,
	})

	report, err := w.global.ReportByID(ctx, ing.ReportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.WithField("report_id", ing.ReportID).Warn("Unknown report ID, queue entry skipped and deleted")
			return w.discardJob(ctx, store, &job, ing)
		}
		return fmt.Errorf("failed to load report %d: %w", ing.ReportID, err)
	}

	setting, err := store.SettingByID(ctx, ing.SushiSettingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.WithField("sushi_setting_id", ing.SushiSettingID).Warn("Unknown sushi setting, queue entry skipped and deleted")
			return w.discardJob(ctx, store, &job, ing)
		}
		return fmt.Errorf("failed to load sushi setting %d: %w", ing.SushiSettingID, err)
	}

	// Administrative deactivation wins over in-flight work.
	if setting.Provider == nil || !setting.Provider.IsActive {
		l.WithField(logger.FieldProvider, providerName(setting)).Warn("Provider is inactive, queue entry skipped and deleted")
		return w.discardJob(ctx, store, &job, ing)
	}
	if setting.Institution == nil || !setting.Institution.IsActive {
		l.WithField(logger.FieldInstitution, institutionName(setting)).Warn("Institution is inactive, queue entry skipped and deleted")
		return w.discardJob(ctx, store, &job, ing)
	}

	l = l.WithFields(logger.Fields{
		logger.FieldProvider:    setting.Provider.Name,
		logger.FieldInstitution: setting.Institution.Name,
		logger.FieldReport:      report.Name,
	})

	begin, end, err := monthBounds(ing.YearMonth)
	if err != nil {
		l.WithError(err).Warn("Malformed harvest period, queue entry skipped and deleted")
		return w.discardJob(ctx, store, &job, ing)
	}

	uri := w.client.BuildRequestURI(setting, report, begin, end)
	res := w.client.Fetch(ctx, uri)

	validReport := false
	var rpt *counter.Report

	switch res.Outcome {
	case sushi.OutcomeSuccess:
		// Providers attach warnings to successful responses too; they
		// must be surfaced even though nothing failed.
		if res.Message != "" {
			l.WithField(logger.FieldErrorCode, res.ErrorCode).
				Infof("Non-fatal SUSHI exception: %s %s", res.Message, res.Detail)
		}

		w.archiveRaw(ctx, l, store.Key(), setting, report, begin, end, res.Raw)

		rpt, err = w.validator.Validate(res.Raw, report.Name)
		if err != nil {
			w.recordFailure(ctx, l, store, ing.ID, domain.StepCOUNTER, domain.ErrorValidation,
				"Validation error: "+err.Error())
			l.WithError(err).Warn("Report failed COUNTER validation")
		} else {
			validReport = true
		}

	case sushi.OutcomePending:
		// The provider queued the report on its side; poll again later.
		ing.Status = domain.IngestPending

	case sushi.OutcomeFail:
		w.recordCatalogedFailure(ctx, l, store, ing.ID, res)
		l.WithField(logger.FieldErrorCode, res.ErrorCode).
			Warnf("SUSHI exception: %s %s", res.Message, res.Detail)
	}

	var procErr error
	if validReport {
		status, err := w.processor.Process(ctx, store, counter.ProcessInput{
			ReportName:    report.Name,
			Report:        rpt,
			ProviderID:    setting.ProviderID,
			InstitutionID: setting.InstitutionID,
			YearMonth:     ing.YearMonth,
			ReplaceData:   job.ReplaceData,
		})
		if err != nil {
			procErr = err
			w.recordFailure(ctx, l, store, ing.ID, domain.StepSaving, domain.ErrorProcessing, err.Error())
			l.WithError(err).Error("Failed to save validated report")
		} else {
			ing.Status = status
			l.Info("Report saved")
		}
	}

	// Failure accounting: a raw Fail, a validation failure, or a
	// processing failure all consume one attempt. Pending consumes
	// nothing.
	if res.Outcome == sushi.OutcomeFail || (res.Outcome == sushi.OutcomeSuccess && !validReport) || procErr != nil {
		ing.Attempts++
		if ing.Attempts >= w.cfg.MaxRetries {
			ing.Status = domain.IngestFail
			alert := &domain.Alert{
				YearMonth:  ing.YearMonth,
				ProviderID: setting.ProviderID,
				IngestID:   ing.ID,
				Status:     "Active",
			}
			if err := store.CreateAlert(ctx, alert); err != nil {
				l.WithError(err).Error("Failed to create alert")
			} else {
				l.Warn("Harvest failed permanently, alert raised")
			}
		} else {
			ing.Status = domain.IngestRetrying
		}
	}

	if err := store.SaveIngest(ctx, ing); err != nil {
		return fmt.Errorf("failed to persist ingest %d: %w", ing.ID, err)
	}

	// Terminal outcomes consume the work item; Pending and Retrying keep
	// the job row so a later pass re-polls it.
	if ing.Status.Terminal() {
		if err := w.global.DeleteJob(ctx, job.ID); err != nil {
			return fmt.Errorf("failed to delete job %d: %w", job.ID, err)
		}
	}
	return nil
}

// discardJob removes a job whose references are dangling or deactivated.
// No attempt is counted. The ingest is marked Fail so its Active status,
// written at selection, cannot hold the endpoint lock forever.
func (w *Worker) discardJob(ctx context.Context, store *repository.TenantStore, job *domain.HarvestJob, ing *domain.IngestLog) error {
	ing.Status = domain.IngestFail
	if err := store.SaveIngest(ctx, ing); err != nil {
		return fmt.Errorf("failed to persist discarded ingest %d: %w", ing.ID, err)
	}
	if err := w.global.DeleteJob(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to delete job %d: %w", job.ID, err)
	}
	return nil
}

// recordFailure appends one audit record to the failure trail.
func (w *Worker) recordFailure(ctx context.Context, l *logger.Logger, store *repository.TenantStore, ingestID uint, step string, errorID int, detail string) {
	f := &domain.FailedIngest{
		IngestID:    ingestID,
		ProcessStep: step,
		ErrorID:     errorID,
		Detail:      detail,
	}
	if err := store.CreateFailedIngest(ctx, f); err != nil {
		l.WithError(err).Error("Failed to record failed ingest")
	}
}

// recordCatalogedFailure files a fetch failure, ensuring the error
// catalog has an entry for the provider's code first. The message is
// cleaned before catalog insertion so entries differing only by embedded
// links do not multiply.
func (w *Worker) recordCatalogedFailure(ctx context.Context, l *logger.Logger, store *repository.TenantStore, ingestID uint, res *sushi.Result) {
	_, err := store.EnsureCounterError(ctx, &domain.CounterError{
		ID:       res.ErrorCode,
		Message:  cleanErrorMessage(res.Message),
		Severity: res.Severity,
	})
	if err != nil {
		l.WithError(err).Error("Failed to update error catalog")
	}
	w.recordFailure(ctx, l, store, ingestID, res.Step, res.ErrorCode, res.Detail)
}

// archiveRaw saves the raw provider response when archival is configured.
// Archive problems are logged, never fatal to the harvest.
func (w *Worker) archiveRaw(ctx context.Context, l *logger.Logger, tenantKey string, setting *domain.SushiSetting, report *domain.Report, begin, end string, raw []byte) {
	if w.archive == nil || len(raw) == 0 {
		return
	}
	key := fmt.Sprintf("%s/%s/%s/%s_%s_%s.json",
		tenantKey, setting.Institution.Name, setting.Provider.Name, report.Name, begin, end)
	if err := w.archive.Save(ctx, key, raw); err != nil {
		l.WithError(err).Warn("Failed to archive raw response")
	}
}

// cleanErrorMessage strips trailing URL text and caps the length so
// link-bearing provider messages collapse to one catalog entry.
func cleanErrorMessage(msg string) string {
	if idx := lastURLIndex(msg); idx != -1 {
		msg = msg[:idx]
	}
	msg = strings.TrimSpace(msg)
	if len(msg) > maxCatalogMessage {
		msg = msg[:maxCatalogMessage]
	}
	return msg
}

func lastURLIndex(msg string) int {
	https := strings.LastIndex(msg, "https://")
	http := strings.LastIndex(msg, "http://")
	if https > http {
		return https
	}
	return http
}

func providerName(setting *domain.SushiSetting) string {
	if setting.Provider != nil {
		return setting.Provider.Name
	}
	return fmt.Sprintf("#%d", setting.ProviderID)
}

func institutionName(setting *domain.SushiSetting) string {
	if setting.Institution != nil {
		return setting.Institution.Name
	}
	return fmt.Sprintf("#%d", setting.InstitutionID)
}
