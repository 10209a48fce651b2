package invoice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSqliteStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Invoice{}))
	return NewGormStore(db)
}

func storedInvoice(id int64, owner int64, number string, date time.Time) *domain.Invoice {
	inv := &domain.Invoice{
		ID:            id,
		OwnerID:       owner,
		InvoiceNumber: number,
		InvoiceDate:   date,
		BillTo:        domain.Buyer{ClientName: "Client", Phone: "1"},
		PaymentMode:   domain.PaymentCash,
		Status:        domain.StatusUnpaid,
		Items:         domain.LineItems{item("Boys Shorts", 2, "12.5")},
		CreatedAt:     date,
		UpdatedAt:     date,
	}
	ApplyTotals(inv)
	return inv
}

func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, storedInvoice(1, alice, "INV-1", base)))
	require.NoError(t, store.Insert(ctx, storedInvoice(2, alice, "INV-2", base.Add(48*time.Hour))))
	require.NoError(t, store.Insert(ctx, storedInvoice(3, bob, "INV-3", base.Add(24*time.Hour))))

	err := store.Insert(ctx, storedInvoice(4, bob, "INV-2", base))
	assert.True(t, errors.Is(err, domain.ErrDuplicateKey), "got %v", err)

	got, err := store.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "INV-1", got.InvoiceNumber)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].UnitPrice.Equal(d("12.5")))
	assert.True(t, got.Total.Equal(d("25")))
	assert.Equal(t, "Client", got.BillTo.ClientName)

	_, err = store.FindByID(ctx, 404)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	rows, err := store.FindByOwner(ctx, alice, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].ID, "newest first")

	rows, err = store.FindByOwner(ctx, alice, base.Add(time.Hour), time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ID)

	rows, err = store.FindByOwner(ctx, alice, time.Time{}, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)

	got.Status = domain.StatusPaid
	got.Notes = "paid by upi"
	require.NoError(t, store.Save(ctx, got))
	again, err := store.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, again.Status)
	assert.Equal(t, "paid by upi", again.Notes)

	ghost := storedInvoice(404, alice, "INV-404", base)
	assert.True(t, errors.Is(store.Save(ctx, ghost), domain.ErrNotFound))

	clash := again.Clone()
	clash.InvoiceNumber = "INV-3"
	assert.True(t, errors.Is(store.Save(ctx, clash), domain.ErrDuplicateKey))

	nums, err := store.InvoiceNumbers(ctx, "INV-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"INV-1", "INV-2", "INV-3"}, nums)

	var seen []int64
	require.NoError(t, store.Each(ctx, func(inv *domain.Invoice) error {
		seen = append(seen, inv.ID)
		return nil
	}))
	assert.ElementsMatch(t, []int64{1, 2, 3}, seen)

	require.NoError(t, store.Delete(ctx, 3))
	assert.True(t, errors.Is(store.Delete(ctx, 3), domain.ErrNotFound))
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestGormStoreContract(t *testing.T) {
	runStoreContract(t, newSqliteStore(t))
}

func TestRepositoryOverGormStore(t *testing.T) {
	repo, _ := newTestRepository(t, newSqliteStore(t))
	ctx := context.Background()

	first, err := repo.Create(ctx, alice, scenarioInput())
	require.NoError(t, err)
	second, err := repo.Create(ctx, alice, scenarioInput())
	require.NoError(t, err)
	assert.Equal(t, "INV-1", first.InvoiceNumber)
	assert.Equal(t, "INV-2", second.InvoiceNumber)

	got, err := repo.GetByID(ctx, first.ID, alice)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(d("450")))
	assert.Equal(t, 3, got.TotalPieces)

	require.NoError(t, repo.Delete(ctx, first.ID, alice))
	assert.True(t, errors.Is(repo.Delete(ctx, first.ID, alice), domain.ErrNotFound))
}

func TestMongoDocumentMapping(t *testing.T) {
	inv := storedInvoice(11, alice, "INV-11", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	inv.InvoiceDiscount = d("7.25")
	inv.BillFrom = domain.Seller{BusinessName: "Cotton Stock", Phone: "8591116115"}

	doc := toDoc(inv)
	assert.Equal(t, int64(11), doc.ID)
	assert.Equal(t, "25", doc.Total.String())

	back := doc.toInvoice()
	assert.Equal(t, inv.InvoiceNumber, back.InvoiceNumber)
	assert.Equal(t, inv.BillFrom, back.BillFrom)
	assert.True(t, back.InvoiceDiscount.Equal(d("7.25")))
	assert.True(t, back.Items[0].Total.Equal(d("25")))
	assert.True(t, back.DirectAmountReduction.IsZero())
}

func TestMongoDocumentDecodesLegacyAmounts(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: int64(12)},
		{Key: "owner", Value: alice},
		{Key: "invoiceNumber", Value: "INV-12"},
		{Key: "status", Value: "Pending"},
		{Key: "items", Value: bson.A{
			bson.D{{Key: "name", Value: "Doreme"}, {Key: "quantity", Value: int32(3)}, {Key: "unitPrice", Value: 99.5}},
		}},
		{Key: "subtotal", Value: 298.5},
		{Key: "invoiceDiscount", Value: int32(20)},
		{Key: "discountTotal", Value: nil},
		{Key: "total", Value: "278.5"},
	})
	require.NoError(t, err)

	var doc invoiceDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	inv := doc.toInvoice()
	assert.True(t, inv.Items[0].UnitPrice.Equal(d("99.5")))
	assert.True(t, inv.Items[0].Total.IsZero())
	assert.True(t, inv.Subtotal.Equal(d("298.5")))
	assert.True(t, inv.InvoiceDiscount.Equal(d("20")))
	assert.True(t, inv.DiscountTotal.IsZero())
	assert.True(t, inv.Total.Equal(d("278.5")))
	assert.True(t, inv.DirectAmountReduction.IsZero())

	out, err := bson.Marshal(toDoc(inv))
	require.NoError(t, err)
	assert.Equal(t, bsontype.Decimal128, bson.Raw(out).Lookup("total").Type)

	bad, err := bson.Marshal(bson.D{{Key: "_id", Value: int64(13)}, {Key: "total", Value: true}})
	require.NoError(t, err)
	assert.Error(t, bson.Unmarshal(bad, &invoiceDoc{}))
}
