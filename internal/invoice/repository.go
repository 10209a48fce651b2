package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/cottonstock/invoicedesk/pkg/common"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultNumberPrefix = "INV-"
	DefaultMaxRetries   = 3
	DefaultStoreTimeout = 5 * time.Second
)

// SellerDirectory supplies the billFrom block for an owner's new invoices.
type SellerDirectory interface {
	SellerFor(ctx context.Context, ownerID int64) domain.Seller
}

// StaticSeller uses the same seller for every owner.
type StaticSeller domain.Seller

func (s StaticSeller) SellerFor(context.Context, int64) domain.Seller {
	return domain.Seller(s)
}

// Input carries caller supplied invoice fields. Empty strings, nil
// pointers and a nil Items slice mean "not provided".
type Input struct {
	InvoiceNumber         string
	InvoiceDate           *time.Time
	BillFrom              *domain.Seller
	BillTo                *domain.Buyer
	Items                 []domain.LineItem
	Notes                 string
	PaymentMode           string
	Status                string
	DirectAmountReduction *decimal.Decimal
	// InvoiceDiscount is accepted from older clients only.
	InvoiceDiscount *decimal.Decimal
}

type Options struct {
	NumberPrefix string
	MaxRetries   int
	StoreTimeout time.Duration
	Normalizer   Normalizer
	Sellers      SellerDirectory
	Events       Publisher
	Clock        func() time.Time
}

// Repository is the only path to stored invoices. It validates,
// normalizes and recomputes totals around every Store call so stored
// records stay internally consistent.
type Repository struct {
	store      Store
	normalizer Normalizer
	sellers    SellerDirectory
	events     Publisher
	prefix     string
	maxRetries int
	timeout    time.Duration
	now        func() time.Time
}

func NewRepository(store Store, opts Options) *Repository {
	r := &Repository{
		store:      store,
		normalizer: opts.Normalizer,
		sellers:    opts.Sellers,
		events:     opts.Events,
		prefix:     opts.NumberPrefix,
		maxRetries: opts.MaxRetries,
		timeout:    opts.StoreTimeout,
		now:        opts.Clock,
	}
	if r.prefix == "" {
		r.prefix = DefaultNumberPrefix
	}
	if r.maxRetries <= 0 {
		r.maxRetries = DefaultMaxRetries
	}
	if r.timeout <= 0 {
		r.timeout = DefaultStoreTimeout
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.sellers == nil {
		r.sellers = StaticSeller{}
	}
	if r.events == nil {
		r.events = nopPublisher{}
	}
	return r
}

// Now returns the repository clock reading.
func (r *Repository) Now() time.Time {
	return r.now()
}

// Create stores a new invoice for ownerID. A generated number that
// collides with a concurrent insert is regenerated up to the retry limit;
// a caller supplied number that collides fails with ErrDuplicateKey.
func (r *Repository) Create(ctx context.Context, ownerID int64, in Input) (*domain.Invoice, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", domain.ErrValidation)
	}
	now := r.now()
	inv := &domain.Invoice{
		OwnerID:       ownerID,
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
		InvoiceDate:   now,
		BillFrom:      r.sellers.SellerFor(ctx, ownerID),
		Items:         copyItems(in.Items),
		Notes:         in.Notes,
		PaymentMode:   common.IfEmptyStr(in.PaymentMode, domain.PaymentCash),
		Status:        in.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.InvoiceDate != nil && !in.InvoiceDate.IsZero() {
		inv.InvoiceDate = *in.InvoiceDate
	}
	if in.BillFrom != nil {
		mergeSeller(&inv.BillFrom, *in.BillFrom)
	}
	if in.BillTo != nil {
		mergeBuyer(&inv.BillTo, *in.BillTo)
	}
	if in.DirectAmountReduction != nil {
		inv.DirectAmountReduction = *in.DirectAmountReduction
	}
	if in.InvoiceDiscount != nil {
		inv.InvoiceDiscount = *in.InvoiceDiscount
	}

	r.normalizer.Normalize(inv)
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	ApplyTotals(inv)

	generated := inv.InvoiceNumber == ""
	for attempt := 1; ; attempt++ {
		if generated {
			num, err := r.nextNumber(ctx)
			if err != nil {
				return nil, err
			}
			inv.InvoiceNumber = num
		}
		inv.ID = common.UUIDint64()

		err := r.call(ctx, func(ctx context.Context) error {
			return r.store.Insert(ctx, inv)
		})
		if err == nil {
			break
		}
		if generated && errors.Is(err, domain.ErrDuplicateKey) && attempt < r.maxRetries {
			zap.L().Warn("invoice number collision, regenerating",
				zap.String("namespace", "invoice"),
				zap.String("invoice_number", inv.InvoiceNumber),
				zap.Int("attempt", attempt))
			continue
		}
		return nil, err
	}

	r.events.Publish(TopicCreated, newEvent(inv))
	return inv.Clone(), nil
}

// GetByID returns the invoice if requesterID owns it.
func (r *Repository) GetByID(ctx context.Context, id, requesterID int64) (*domain.Invoice, error) {
	return r.load(ctx, id, requesterID)
}

// ListByOwner returns the owner's invoices matching filter, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID int64, filter DateFilter) ([]*domain.Invoice, error) {
	from, to := filter.Window(r.now())
	var rows []*domain.Invoice
	err := r.call(ctx, func(ctx context.Context) (err error) {
		rows, err = r.store.FindByOwner(ctx, ownerID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, inv := range rows {
		r.normalizer.Normalize(inv)
	}
	return rows, nil
}

// Update merges in into the stored invoice. Totals are recomputed when
// items or the reduction are supplied, or when the stored discount no
// longer matches the reduction; an explicitly empty item list is rejected.
func (r *Repository) Update(ctx context.Context, id, requesterID int64, in Input) (*domain.Invoice, error) {
	inv, err := r.load(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	recompute := false
	if in.Items != nil {
		if len(in.Items) == 0 {
			return nil, fmt.Errorf("%w: at least one item is required", domain.ErrValidation)
		}
		inv.Items = copyItems(in.Items)
		recompute = true
	}
	if in.DirectAmountReduction != nil {
		inv.DirectAmountReduction = *in.DirectAmountReduction
		recompute = true
	}
	if in.InvoiceDiscount != nil && in.InvoiceDiscount.IsPositive() {
		inv.InvoiceDiscount = *in.InvoiceDiscount
	}
	if num := strings.TrimSpace(in.InvoiceNumber); num != "" {
		inv.InvoiceNumber = num
	}
	if in.InvoiceDate != nil && !in.InvoiceDate.IsZero() {
		inv.InvoiceDate = *in.InvoiceDate
	}
	if in.BillFrom != nil {
		mergeSeller(&inv.BillFrom, *in.BillFrom)
	}
	if in.BillTo != nil {
		mergeBuyer(&inv.BillTo, *in.BillTo)
	}
	if in.Notes != "" {
		inv.Notes = in.Notes
	}
	if in.PaymentMode != "" {
		inv.PaymentMode = in.PaymentMode
	}
	if in.Status != "" {
		inv.Status = in.Status
	}

	r.normalizer.Normalize(inv)
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if recompute || discountStale(inv) {
		ApplyTotals(inv)
	}
	inv.UpdatedAt = r.now()

	if err := r.call(ctx, func(ctx context.Context) error {
		return r.store.Save(ctx, inv)
	}); err != nil {
		return nil, err
	}
	r.events.Publish(TopicUpdated, newEvent(inv))
	return inv.Clone(), nil
}

// Delete removes the invoice for good.
func (r *Repository) Delete(ctx context.Context, id, requesterID int64) error {
	inv, err := r.load(ctx, id, requesterID)
	if err != nil {
		return err
	}
	if err := r.call(ctx, func(ctx context.Context) error {
		return r.store.Delete(ctx, id)
	}); err != nil {
		return err
	}
	r.events.Publish(TopicDeleted, newEvent(inv))
	return nil
}

// DashboardStats aggregates the owner's invoices inside filter.
func (r *Repository) DashboardStats(ctx context.Context, ownerID int64, filter DateFilter) (DashboardStats, error) {
	rows, err := r.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return DashboardStats{}, err
	}
	return Summarize(rows), nil
}

// SweepResult reports a NormalizeAll run.
type SweepResult struct {
	Scanned int64 `json:"scanned"`
	Updated int64 `json:"updated"`
	Failed  int64 `json:"failed"`
}

// NormalizeAll rewrites every stored record the normalizer changes or
// whose discount disagrees with its reduction, recomputing its totals, using up to workers concurrent saves.
func (r *Repository) NormalizeAll(ctx context.Context, workers int) (SweepResult, error) {
	var (
		res     SweepResult
		pending []*domain.Invoice
	)
	err := r.store.Each(ctx, func(inv *domain.Invoice) error {
		res.Scanned++
		if r.normalizer.Normalize(inv) || discountStale(inv) {
			pending = append(pending, inv)
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	if len(pending) == 0 {
		return res, nil
	}

	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return res, err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, inv := range pending {
		inv := inv
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			ApplyTotals(inv)
			inv.UpdatedAt = r.now()
			err := r.call(ctx, func(ctx context.Context) error {
				return r.store.Save(ctx, inv)
			})
			if err != nil {
				atomic.AddInt64(&res.Failed, 1)
				zap.L().Error("normalize invoice failed",
					zap.String("namespace", "invoice"),
					zap.Int64("invoice_id", inv.ID),
					zap.Error(err))
				return
			}
			atomic.AddInt64(&res.Updated, 1)
			r.events.Publish(TopicNormalized, newEvent(inv))
		})
		if submitErr != nil {
			wg.Done()
			atomic.AddInt64(&res.Failed, 1)
		}
	}
	wg.Wait()
	return res, nil
}

// discountStale reports whether the stored discountTotal was derived from
// a different reduction than the one inv now carries.
func discountStale(inv *domain.Invoice) bool {
	return !inv.DiscountTotal.Equal(domain.ClampZero(inv.DirectAmountReduction))
}

func (r *Repository) load(ctx context.Context, id, requesterID int64) (*domain.Invoice, error) {
	var inv *domain.Invoice
	err := r.call(ctx, func(ctx context.Context) (err error) {
		inv, err = r.store.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if inv.OwnerID != requesterID {
		return nil, fmt.Errorf("%w: invoice %d belongs to another user", domain.ErrForbidden, id)
	}
	r.normalizer.Normalize(inv)
	return inv, nil
}

func (r *Repository) nextNumber(ctx context.Context) (string, error) {
	var nums []string
	err := r.call(ctx, func(ctx context.Context) (err error) {
		nums, err = r.store.InvoiceNumbers(ctx, r.prefix)
		return err
	})
	if err != nil {
		return "", err
	}
	return NextNumber(r.prefix, nums), nil
}

// call runs fn under the per call store timeout. A timeout surfaces as
// ErrStoreUnavailable.
func (r *Repository) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}

func copyItems(items []domain.LineItem) domain.LineItems {
	out := make(domain.LineItems, len(items))
	copy(out, items)
	return out
}

func mergeSeller(dst *domain.Seller, src domain.Seller) {
	dst.BusinessName = common.IfEmptyStr(src.BusinessName, dst.BusinessName)
	dst.Email = common.IfEmptyStr(src.Email, dst.Email)
	dst.Address = common.IfEmptyStr(src.Address, dst.Address)
	dst.Phone = common.IfEmptyStr(src.Phone, dst.Phone)
}

func mergeBuyer(dst *domain.Buyer, src domain.Buyer) {
	dst.ClientName = common.IfEmptyStr(src.ClientName, dst.ClientName)
	dst.Phone = common.IfEmptyStr(src.Phone, dst.Phone)
	dst.Email = common.IfEmptyStr(src.Email, dst.Email)
	dst.Address = common.IfEmptyStr(src.Address, dst.Address)
}
