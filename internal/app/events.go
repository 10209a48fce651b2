package app

import (
	"github.com/cottonstock/invoicedesk/internal/invoice"
	"github.com/cottonstock/invoicedesk/pkg/metrics"
	"go.uber.org/zap"
)

// subscribeEvents feeds invoice events into metrics and the log.
func (a *Application) subscribeEvents() {
	subscribe := func(topic string, fn interface{}) {
		if err := a.bus.Subscribe(topic, fn); err != nil {
			zap.S().Errorf("subscribe %s error %s", topic, err.Error())
		}
	}

	subscribe(invoice.TopicCreated, func(ev invoice.Event) {
		metrics.Incr("invoice_created")
		metrics.AddAmount(ev.Status, ev.Total.InexactFloat64())
		zap.L().Info("invoice created",
			zap.String("namespace", "invoice"),
			zap.Int64("invoice_id", ev.InvoiceID),
			zap.Int64("owner_id", ev.OwnerID),
			zap.String("number", ev.InvoiceNumber))
	})
	subscribe(invoice.TopicUpdated, func(ev invoice.Event) {
		metrics.Incr("invoice_updated")
		zap.L().Debug("invoice updated",
			zap.String("namespace", "invoice"),
			zap.Int64("invoice_id", ev.InvoiceID),
			zap.String("status", ev.Status))
	})
	subscribe(invoice.TopicDeleted, func(ev invoice.Event) {
		metrics.Incr("invoice_deleted")
		zap.L().Info("invoice deleted",
			zap.String("namespace", "invoice"),
			zap.Int64("invoice_id", ev.InvoiceID),
			zap.Int64("owner_id", ev.OwnerID))
	})
	subscribe(invoice.TopicNormalized, func(ev invoice.Event) {
		metrics.Incr("invoice_normalized")
	})
}
