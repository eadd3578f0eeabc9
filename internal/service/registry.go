package service

import (
	"context"
	"time"

	"github.com/consortial/counterharvest/internal/domain"
	"github.com/consortial/counterharvest/internal/logger"
	"github.com/consortial/counterharvest/internal/repository"
)

// Registry answers the cross-tenant exclusion question: which provider
// endpoints currently have an Active ingest anywhere in the system. The
// worker takes one snapshot per pass and filters candidates against it
// instead of re-scanning every tenant store per candidate.
type Registry struct {
	tenants *repository.TenantManager
	log     *logger.Logger
}

// NewRegistry creates a registry reading through the tenant manager.
func NewRegistry(tenants *repository.TenantManager, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Registry{tenants: tenants, log: log}
}

// Snapshot is one pass's view of busy endpoints. Partial is set when a
// tenant store could not be read; its endpoints are unknown, so the
// caller must not treat any endpoint as provably free.
type Snapshot struct {
	endpoints map[string]struct{}
	Partial   bool
}

// Busy reports whether the endpoint had an Active ingest at snapshot time.
func (s *Snapshot) Busy(endpoint string) bool {
	_, ok := s.endpoints[endpoint]
	return ok
}

// ActiveEndpoints scans every given consortium's store and collects the
// distinct endpoints with an Active ingest. The active-tenant list is an
// explicit parameter; the registry keeps no process-wide tenant cache.
//
// When staleCutoff is non-zero, Active ingests last updated before it are
// first flipped back to Retrying so an endpoint held by a killed worker
// is eventually reclaimed.
//
// A store that cannot be read does not abort the scan for the others; it
// marks the snapshot Partial and the scan degrades toward over-caution.
func (r *Registry) ActiveEndpoints(ctx context.Context, consortia []domain.Consortium, staleCutoff time.Time) *Snapshot {
	snap := &Snapshot{endpoints: make(map[string]struct{})}

	for _, con := range consortia {
		store, err := r.tenants.Store(con.Key)
		if err != nil {
			r.log.WithField(logger.FieldTenant, con.Key).WithError(err).
				Warn("Cannot open tenant store for exclusion check")
			snap.Partial = true
			continue
		}

		if !staleCutoff.IsZero() {
			if n, err := store.ReclaimStaleActive(ctx, staleCutoff); err != nil {
				r.log.WithField(logger.FieldTenant, con.Key).WithError(err).
					Warn("Failed to reclaim stale active ingests")
			} else if n > 0 {
				r.log.WithFields(logger.Fields{
					logger.FieldTenant: con.Key,
					"reclaimed":        n,
				}).Warn("Reclaimed stale active ingests")
			}
		}

		urls, err := store.ActiveEndpoints(ctx)
		if err != nil {
			r.log.WithField(logger.FieldTenant, con.Key).WithError(err).
				Warn("Cannot list active ingests for tenant")
			snap.Partial = true
			continue
		}
		for _, u := range urls {
			snap.endpoints[u] = struct{}{}
		}
	}

	return snap
}
