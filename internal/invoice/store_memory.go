package invoice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/google/btree"
)

// MemoryStore keeps invoices in process, ordered by invoiceDate. It backs
// tests and the memory database type.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[int64]*domain.Invoice
	byNumber map[string]int64
	byDate   *btree.BTreeG[*domain.Invoice]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[int64]*domain.Invoice),
		byNumber: make(map[string]int64),
		byDate:   btree.NewG[*domain.Invoice](16, lessByDate),
	}
}

func lessByDate(a, b *domain.Invoice) bool {
	if !a.InvoiceDate.Equal(b.InvoiceDate) {
		return a.InvoiceDate.Before(b.InvoiceDate)
	}
	return a.ID < b.ID
}

func (s *MemoryStore) Insert(ctx context.Context, inv *domain.Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byNumber[inv.InvoiceNumber]; ok {
		return domain.ErrDuplicateKey
	}
	if _, ok := s.byID[inv.ID]; ok {
		return domain.ErrDuplicateKey
	}
	c := inv.Clone()
	s.byID[c.ID] = c
	s.byNumber[c.InvoiceNumber] = c.ID
	s.byDate.ReplaceOrInsert(c)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inv.Clone(), nil
}

func (s *MemoryStore) FindByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]*domain.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]*domain.Invoice, 0)
	s.byDate.Descend(func(inv *domain.Invoice) bool {
		if !from.IsZero() && inv.InvoiceDate.Before(from) {
			return false
		}
		if inv.OwnerID == ownerID && inWindow(inv.InvoiceDate, from, to) {
			rows = append(rows, inv.Clone())
		}
		return true
	})
	return rows, nil
}

func (s *MemoryStore) Save(ctx context.Context, inv *domain.Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if owner, taken := s.byNumber[inv.InvoiceNumber]; taken && owner != inv.ID {
		return domain.ErrDuplicateKey
	}
	s.byDate.Delete(old)
	delete(s.byNumber, old.InvoiceNumber)

	c := inv.Clone()
	s.byID[c.ID] = c
	s.byNumber[c.InvoiceNumber] = c.ID
	s.byDate.ReplaceOrInsert(c)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.byDate.Delete(inv)
	delete(s.byNumber, inv.InvoiceNumber)
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) InvoiceNumbers(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	nums := make([]string, 0, len(s.byNumber))
	for num := range s.byNumber {
		if strings.HasPrefix(num, prefix) {
			nums = append(nums, num)
		}
	}
	return nums, nil
}

// Each iterates a snapshot, so fn may call back into the store.
func (s *MemoryStore) Each(ctx context.Context, fn func(*domain.Invoice) error) error {
	s.mu.RLock()
	snapshot := make([]*domain.Invoice, 0, s.byDate.Len())
	s.byDate.Ascend(func(inv *domain.Invoice) bool {
		snapshot = append(snapshot, inv.Clone())
		return true
	})
	s.mu.RUnlock()

	for _, inv := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(inv); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored invoices.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
