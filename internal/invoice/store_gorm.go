package invoice

import (
	"context"
	"strings"
	"time"

	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormStore persists invoices in a relational database. The unique index
// on invoice_number enforces number uniqueness.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Insert(ctx context.Context, inv *domain.Invoice) error {
	err := s.db.WithContext(ctx).Create(inv).Error
	return translateGormError(err, "insert invoice")
}

func (s *GormStore) FindByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, translateGormError(err, "find invoice")
	}
	return &inv, nil
}

func (s *GormStore) FindByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]*domain.Invoice, error) {
	query := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if !from.IsZero() {
		query = query.Where("invoice_date >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("invoice_date <= ?", to)
	}
	var rows []*domain.Invoice
	if err := query.Order("invoice_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, translateGormError(err, "list invoices")
	}
	return rows, nil
}

func (s *GormStore) Save(ctx context.Context, inv *domain.Invoice) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", inv.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(inv)
	if res.Error != nil {
		return translateGormError(res.Error, "save invoice")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Invoice{})
	if res.Error != nil {
		return translateGormError(res.Error, "delete invoice")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) InvoiceNumbers(ctx context.Context, prefix string) ([]string, error) {
	var nums []string
	err := s.db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Pluck("invoice_number", &nums).Error
	if err != nil {
		return nil, translateGormError(err, "scan invoice numbers")
	}
	return nums, nil
}

func (s *GormStore) Each(ctx context.Context, fn func(*domain.Invoice) error) error {
	var batch []*domain.Invoice
	res := s.db.WithContext(ctx).Order("id ASC").FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
		for _, inv := range batch {
			if err := fn(inv); err != nil {
				return err
			}
		}
		return nil
	})
	return translateGormError(res.Error, "iterate invoices")
}

func translateGormError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return errors.Wrap(domain.ErrDuplicateKey, op)
	case errors.Is(err, context.Canceled):
		return err
	}
	return errors.Wrapf(domain.ErrStoreUnavailable, "%s: %v", op, err)
}

// isUniqueViolation catches drivers that do not translate errors.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
