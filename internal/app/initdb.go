package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cottonstock/invoicedesk/config"
	"github.com/cottonstock/invoicedesk/internal/auth"
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/cottonstock/invoicedesk/internal/invoice"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openStores connects the configured backend and builds both stores.
func (a *Application) openStores(ctx context.Context) error {
	cfg := a.appConfig.Database
	switch cfg.Type {
	case "", "postgres", "sqlite":
		if a.gormDB == nil {
			db, err := getDatabase(cfg, a.appConfig.GetDataDir())
			if err != nil {
				return err
			}
			a.gormDB = db
		}
		a.invoiceStore = invoice.NewGormStore(a.gormDB)
		a.userStore = auth.NewGormUserStore(a.gormDB)
	case "mongo":
		db, err := a.connectMongo(ctx, cfg)
		if err != nil {
			return err
		}
		if a.invoiceStore, err = invoice.NewMongoStore(ctx, db); err != nil {
			return err
		}
		if a.userStore, err = auth.NewMongoUserStore(ctx, db); err != nil {
			return err
		}
	case "memory":
		a.invoiceStore = invoice.NewMemoryStore()
		a.userStore = auth.NewMemoryUserStore()
	default:
		return fmt.Errorf("unsupported database type %q", cfg.Type)
	}
	return nil
}

func getDatabase(cfg config.DBConfig, dataDir string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if cfg.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		dsn := cfg.DSN()
		if dsn == "" {
			dsn = "invoicedesk.db"
		}
		if !filepath.IsAbs(dsn) && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			dsn = filepath.Join(dataDir, dsn)
		}
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Type, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Type == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db, nil
}

func (a *Application) connectMongo(ctx context.Context, cfg config.DBConfig) (*mongo.Database, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(cfg.DSN())
	if cfg.MaxConn > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxConn))
	}
	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	a.mongoClient = client
	name := cfg.Name
	if name == "" {
		name = "invoicedesk"
	}
	return client.Database(name), nil
}

// MigrateDB migrates the sql schema. Document and memory backends create
// their indexes when the store is built.
func (a *Application) MigrateDB(track bool) (err error) {
	if a.gormDB == nil {
		return nil
	}
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			err = fmt.Errorf("migrate panic: %v", err1)
			zap.S().Error(err)
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	if a.gormDB != nil {
		_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	}
}

// InitDb drops and recreates every table.
func (a *Application) InitDb() {
	a.DropAll()
	if err := a.MigrateDB(false); err != nil {
		zap.S().Error(err)
	}
}

// checkLegacyInvoices counts stored records still in an older shape so
// operators know whether a normalize sweep is worth running.
func (a *Application) checkLegacyInvoices(ctx context.Context) int {
	n := invoice.Normalizer{LegacyDiscountAsAmount: a.appConfig.Invoice.LegacyDiscountAsAmount}
	legacy := 0
	err := a.invoiceStore.Each(ctx, func(inv *domain.Invoice) error {
		if n.Normalize(inv) {
			legacy++
		}
		return nil
	})
	if err != nil {
		zap.L().Warn("legacy invoice check failed", zap.String("namespace", "invoice"), zap.Error(err))
		return 0
	}
	if legacy > 0 {
		zap.L().Warn("stored invoices need normalization; run `invoicedesk normalize` or wait for the scheduled sweep",
			zap.String("namespace", "invoice"), zap.Int("count", legacy))
	}
	return legacy
}
