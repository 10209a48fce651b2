package app

import (
	"context"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/cottonstock/invoicedesk/config"
	"github.com/cottonstock/invoicedesk/internal/assistant"
	"github.com/cottonstock/invoicedesk/internal/auth"
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/cottonstock/invoicedesk/internal/invoice"
	"github.com/cottonstock/invoicedesk/internal/mailer"
	"github.com/cottonstock/invoicedesk/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig   *config.AppConfig
	gormDB      *gorm.DB
	mongoClient *mongo.Client
	sched       *cron.Cron
	bus         EventBus.Bus
	registry    *prometheus.Registry

	invoiceStore invoice.Store
	userStore    auth.UserStore
	invoices     *invoice.Repository
	authService  *auth.Service
	assistant    *assistant.Assistant
	mailer       *mailer.Mailer
}

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Invoices() *invoice.Repository {
	return a.invoices
}

func (a *Application) Auth() *auth.Service {
	return a.authService
}

func (a *Application) Assistant() *assistant.Assistant {
	return a.assistant
}

func (a *Application) Mailer() *mailer.Mailer {
	return a.mailer
}

// Registry is the prometheus registry shared by the web server and jobs.
func (a *Application) Registry() *prometheus.Registry {
	return a.registry
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// EventBus returns the bus invoice events are published on.
func (a *Application) EventBus() EventBus.Bus {
	return a.bus
}

// Init sets up logging, storage and services. Background jobs are not
// started; see StartBackgroundJobs.
func (a *Application) Init(cfg *config.AppConfig) error {
	a.appConfig = cfg
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg.Logger)

	a.registry = prometheus.NewRegistry()
	if err := metrics.InitMetrics(a.registry); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if err := a.openStores(context.Background()); err != nil {
		return err
	}
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.initServices()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		a.checkLegacyInvoices(ctx)
	}()
	return nil
}

func initLogger(cfg config.LogConfig) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

// initServices wires stores, the event bus and domain services together.
func (a *Application) initServices() {
	cfg := a.appConfig
	business := domain.Seller{
		BusinessName: cfg.Business.Name,
		Email:        cfg.Business.Email,
		Address:      cfg.Business.Address,
		Phone:        cfg.Business.Phone,
	}

	tokens, err := auth.NewTokenService(cfg.Web.Secret, cfg.Web.TokenTTL, cfg.System.Appid)
	if err != nil {
		zap.S().Panicf("token service: %v", err)
	}
	a.authService = auth.NewService(a.userStore, tokens, business)

	a.bus = EventBus.New()
	a.subscribeEvents()

	if cfg.Invoice.LegacyDiscountAsAmount {
		zap.L().Warn("legacy invoiceDiscount values are read as absolute amounts",
			zap.String("namespace", "invoice"))
	}
	a.invoices = invoice.NewRepository(a.invoiceStore, invoice.Options{
		NumberPrefix: cfg.Invoice.NumberPrefix,
		MaxRetries:   cfg.Invoice.MaxRetries,
		StoreTimeout: cfg.Invoice.StoreTimeout,
		Normalizer:   invoice.Normalizer{LegacyDiscountAsAmount: cfg.Invoice.LegacyDiscountAsAmount},
		Sellers:      a.authService,
		Events:       a.bus,
	})

	a.assistant = assistant.New(cfg.AI, cfg.Business)
	a.mailer = mailer.New(cfg.SMTP)
	if !a.mailer.Enabled() {
		zap.L().Info("smtp host not configured, reminder emails disabled", zap.String("namespace", "mailer"))
	}
}

// StartBackgroundJobs starts the cron scheduler.
func (a *Application) StartBackgroundJobs() error {
	return a.initJob()
}

// RunNormalize runs the legacy record sweep once.
func (a *Application) RunNormalize(ctx context.Context) (invoice.SweepResult, error) {
	if a.invoices == nil {
		return invoice.SweepResult{}, fmt.Errorf("application not initialized")
	}
	return a.invoices.NormalizeAll(ctx, a.appConfig.Invoice.NormalizeWorkers)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.mongoClient.Disconnect(ctx)
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
