package app

import (
	"github.com/cottonstock/invoicedesk/config"
	"github.com/cottonstock/invoicedesk/internal/assistant"
	"github.com/cottonstock/invoicedesk/internal/auth"
	"github.com/cottonstock/invoicedesk/internal/invoice"
	"github.com/cottonstock/invoicedesk/internal/mailer"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DBProvider provides database access. DB is nil for the mongo and
// memory backends.
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// ServiceProvider exposes the domain services the api layer calls.
type ServiceProvider interface {
	Invoices() *invoice.Repository
	Auth() *auth.Service
	Assistant() *assistant.Assistant
	Mailer() *mailer.Mailer
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	ConfigProvider
	ServiceProvider
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ ServiceProvider   = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)
