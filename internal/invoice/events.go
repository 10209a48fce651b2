package invoice

import (
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	TopicCreated    = "invoice:created"
	TopicUpdated    = "invoice:updated"
	TopicDeleted    = "invoice:deleted"
	TopicNormalized = "invoice:normalized"
)

// Publisher is satisfied by EventBus.Bus.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// Event is the payload published on every invoice topic.
type Event struct {
	InvoiceID     int64
	OwnerID       int64
	InvoiceNumber string
	Status        string
	Total         decimal.Decimal
}

func newEvent(inv *domain.Invoice) Event {
	return Event{
		InvoiceID:     inv.ID,
		OwnerID:       inv.OwnerID,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.Status,
		Total:         inv.Total,
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, ...interface{}) {}
