package invoice

import (
	"context"
	"time"

	"github.com/cottonstock/invoicedesk/internal/domain"
)

// Store is the persistence contract behind Repository. Implementations
// enforce uniqueness of invoiceNumber and report it as
// domain.ErrDuplicateKey, report missing records as domain.ErrNotFound and
// every other failure as domain.ErrStoreUnavailable.
type Store interface {
	// Insert adds a new record.
	Insert(ctx context.Context, inv *domain.Invoice) error

	// FindByID returns the record with id.
	FindByID(ctx context.Context, id int64) (*domain.Invoice, error)

	// FindByOwner returns the owner's records whose invoiceDate lies in
	// [from, to], newest first. Zero bounds are open.
	FindByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]*domain.Invoice, error)

	// Save replaces an existing record.
	Save(ctx context.Context, inv *domain.Invoice) error

	// Delete removes the record with id.
	Delete(ctx context.Context, id int64) error

	// InvoiceNumbers lists every stored number starting with prefix.
	InvoiceNumbers(ctx context.Context, prefix string) ([]string, error)

	// Each calls fn for every stored record. Iteration stops at the first
	// error fn returns.
	Each(ctx context.Context, fn func(*domain.Invoice) error) error
}
