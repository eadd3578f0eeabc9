package storage

import "context"

// Archive persists raw provider responses for audit. Keys are
// slash-separated paths derived from tenant/institution/provider/report/
// period; backends create intermediate directories (or key prefixes) on
// demand.
type Archive interface {
	// Save writes one raw response under key, overwriting any previous
	// archive of the same harvest.
	Save(ctx context.Context, key string, data []byte) error

	// Exists checks whether a response was already archived under key.
	Exists(ctx context.Context, key string) (bool, error)
}
