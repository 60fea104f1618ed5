package appraisal

import "context"

// MutateFunc changes an appraisal loaded inside the store's transaction.
// Returning an error aborts the transaction without writing anything.
type MutateFunc func(a *Appraisal) error

type StoreAPI interface {
	Create(ctx context.Context, a *Appraisal) error
	Get(ctx context.Context, id string) (Appraisal, error)
	// Mutate performs one atomic read-check-write: the row is locked, fn runs against
	// the locked state, and the result is written back with the version bumped and any
	// ledger entries appended by fn inserted.
	Mutate(ctx context.Context, id string, fn MutateFunc) (Appraisal, error)
	Ping(ctx context.Context) error
	Close()
}
