package invoice

import (
	"context"
	"regexp"
	"time"

	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const InvoiceCollection = "invoices"

// MongoStore persists invoices as documents. Amounts are written as
// Decimal128 and read back from Decimal128, double, int or string.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore ensures the indexes the Store contract relies on.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	coll := db.Collection(InvoiceCollection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "invoiceNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_invoice_number"),
		},
		{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "invoiceDate", Value: -1}},
			Options: options.Index().SetName("idx_owner_date"),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create invoice indexes")
	}
	return &MongoStore{coll: coll}, nil
}

type sellerDoc struct {
	BusinessName string `bson:"businessName"`
	Email        string `bson:"email"`
	Address      string `bson:"address"`
	Phone        string `bson:"phone"`
}

type buyerDoc struct {
	ClientName string `bson:"clientName"`
	Phone      string `bson:"phone"`
	Email      string `bson:"email,omitempty"`
	Address    string `bson:"address,omitempty"`
}

type itemDoc struct {
	Name      string      `bson:"name"`
	Quantity  int         `bson:"quantity"`
	UnitPrice mongoAmount `bson:"unitPrice"`
	Total     mongoAmount `bson:"total"`
}

type invoiceDoc struct {
	ID                    int64       `bson:"_id"`
	Owner                 int64       `bson:"owner"`
	InvoiceNumber         string      `bson:"invoiceNumber"`
	InvoiceDate           time.Time   `bson:"invoiceDate"`
	BillFrom              sellerDoc   `bson:"billFrom"`
	BillTo                buyerDoc    `bson:"billTo"`
	Items                 []itemDoc   `bson:"items"`
	Notes                 string      `bson:"notes,omitempty"`
	PaymentMode           string      `bson:"paymentMode"`
	Status                string      `bson:"status"`
	Subtotal              mongoAmount `bson:"subtotal"`
	InvoiceDiscount       mongoAmount `bson:"invoiceDiscount"`
	DirectAmountReduction mongoAmount `bson:"directAmountReduction"`
	DiscountTotal         mongoAmount `bson:"discountTotal"`
	Total                 mongoAmount `bson:"total"`
	TotalPieces           int         `bson:"totalPieces"`
	CreatedAt             time.Time   `bson:"createdAt"`
	UpdatedAt             time.Time   `bson:"updatedAt"`
}

func toDoc(inv *domain.Invoice) invoiceDoc {
	d := invoiceDoc{
		ID:                    inv.ID,
		Owner:                 inv.OwnerID,
		InvoiceNumber:         inv.InvoiceNumber,
		InvoiceDate:           inv.InvoiceDate,
		BillFrom:              sellerDoc(inv.BillFrom),
		BillTo:                buyerDoc(inv.BillTo),
		Items:                 make([]itemDoc, 0, len(inv.Items)),
		Notes:                 inv.Notes,
		PaymentMode:           inv.PaymentMode,
		Status:                inv.Status,
		Subtotal:              mongoAmount{inv.Subtotal},
		InvoiceDiscount:       mongoAmount{inv.InvoiceDiscount},
		DirectAmountReduction: mongoAmount{inv.DirectAmountReduction},
		DiscountTotal:         mongoAmount{inv.DiscountTotal},
		Total:                 mongoAmount{inv.Total},
		TotalPieces:           inv.TotalPieces,
		CreatedAt:             inv.CreatedAt,
		UpdatedAt:             inv.UpdatedAt,
	}
	for _, item := range inv.Items {
		d.Items = append(d.Items, itemDoc{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: mongoAmount{item.UnitPrice},
			Total:     mongoAmount{item.Total},
		})
	}
	return d
}

func (d invoiceDoc) toInvoice() *domain.Invoice {
	inv := &domain.Invoice{
		ID:                    d.ID,
		OwnerID:               d.Owner,
		InvoiceNumber:         d.InvoiceNumber,
		InvoiceDate:           d.InvoiceDate,
		BillFrom:              domain.Seller(d.BillFrom),
		BillTo:                domain.Buyer(d.BillTo),
		Items:                 make(domain.LineItems, 0, len(d.Items)),
		Notes:                 d.Notes,
		PaymentMode:           d.PaymentMode,
		Status:                d.Status,
		Subtotal:              d.Subtotal.Decimal,
		InvoiceDiscount:       d.InvoiceDiscount.Decimal,
		DirectAmountReduction: d.DirectAmountReduction.Decimal,
		DiscountTotal:         d.DiscountTotal.Decimal,
		Total:                 d.Total.Decimal,
		TotalPieces:           d.TotalPieces,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
	for _, item := range d.Items {
		inv.Items = append(inv.Items, domain.LineItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.Decimal,
			Total:     item.Total.Decimal,
		})
	}
	return inv
}

func toD128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

// mongoAmount decodes the numeric encodings older documents used for
// money. A missing field stays zero.
type mongoAmount struct {
	decimal.Decimal
}

func (a mongoAmount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(toD128(a.Decimal))
}

func (a *mongoAmount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Decimal128:
		a.Decimal = fromD128(raw.Decimal128())
	case bsontype.Double:
		a.Decimal = decimal.NewFromFloat(raw.Double())
	case bsontype.Int32:
		a.Decimal = decimal.NewFromInt32(raw.Int32())
	case bsontype.Int64:
		a.Decimal = decimal.NewFromInt(raw.Int64())
	case bsontype.String:
		d, err := decimal.NewFromString(raw.StringValue())
		if err != nil {
			return errors.Wrapf(err, "decode amount %q", raw.StringValue())
		}
		a.Decimal = d
	case bsontype.Null, bsontype.Undefined:
		a.Decimal = decimal.Zero
	default:
		return errors.Errorf("decode amount: unsupported bson type %s", t)
	}
	return nil
}

// fromD128 reads unparsable values as zero.
func fromD128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (s *MongoStore) Insert(ctx context.Context, inv *domain.Invoice) error {
	_, err := s.coll.InsertOne(ctx, toDoc(inv))
	return translateMongoError(err, "insert invoice")
}

func (s *MongoStore) FindByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	var doc invoiceDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateMongoError(err, "find invoice")
	}
	return doc.toInvoice(), nil
}

func (s *MongoStore) FindByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]*domain.Invoice, error) {
	filter := bson.M{"owner": ownerID}
	dateRange := bson.M{}
	if !from.IsZero() {
		dateRange["$gte"] = from
	}
	if !to.IsZero() {
		dateRange["$lte"] = to
	}
	if len(dateRange) > 0 {
		filter["invoiceDate"] = dateRange
	}
	opts := options.Find().SetSort(bson.D{{Key: "invoiceDate", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateMongoError(err, "list invoices")
	}
	defer cur.Close(ctx)

	rows := make([]*domain.Invoice, 0)
	for cur.Next(ctx) {
		var doc invoiceDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, translateMongoError(err, "decode invoice")
		}
		rows = append(rows, doc.toInvoice())
	}
	return rows, translateMongoError(cur.Err(), "list invoices")
}

func (s *MongoStore) Save(ctx context.Context, inv *domain.Invoice) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": inv.ID}, toDoc(inv))
	if err != nil {
		return translateMongoError(err, "save invoice")
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id int64) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateMongoError(err, "delete invoice")
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *MongoStore) InvoiceNumbers(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"invoiceNumber": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	values, err := s.coll.Distinct(ctx, "invoiceNumber", filter)
	if err != nil {
		return nil, translateMongoError(err, "scan invoice numbers")
	}
	nums := make([]string, 0, len(values))
	for _, v := range values {
		nums = append(nums, cast.ToString(v))
	}
	return nums, nil
}

func (s *MongoStore) Each(ctx context.Context, fn func(*domain.Invoice) error) error {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return translateMongoError(err, "iterate invoices")
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var doc invoiceDoc
		if err := cur.Decode(&doc); err != nil {
			return translateMongoError(err, "decode invoice")
		}
		if err := fn(doc.toInvoice()); err != nil {
			return err
		}
	}
	return translateMongoError(cur.Err(), "iterate invoices")
}

func translateMongoError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Wrap(domain.ErrDuplicateKey, op)
	case errors.Is(err, context.Canceled):
		return err
	}
	return errors.Wrapf(domain.ErrStoreUnavailable, "%s: %v", op, err)
}
