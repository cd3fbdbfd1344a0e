package store

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StoreModule owns the SQLite-backed document store.
type StoreModule struct {
	db     *gorm.DB
	docs   *Documents
	dbPath string
}

// Compile-time interface checks.
var _ mono.Module = (*StoreModule)(nil)
var _ mono.HealthCheckableModule = (*StoreModule)(nil)

// NewModule creates a new StoreModule.
func NewModule() *StoreModule {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "workspace-chat.db"
	}
	return &StoreModule{
		docs:   &Documents{},
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *StoreModule) Name() string {
	return "store"
}

// Documents returns the document store handle. The handle is valid from
// construction; operations fail with ErrNotStarted until Start has run.
func (m *StoreModule) Documents() *Documents {
	return m.docs
}

// Start opens the database, migrates the document table, and writes the seed
// document if the collection does not exist yet.
func (m *StoreModule) Start(ctx context.Context) error {
	log.Printf("[store] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	m.db = db
	m.docs.db = db

	if err := m.db.AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := m.ensureSeed(ctx); err != nil {
		return fmt.Errorf("failed to seed document: %w", err)
	}

	log.Println("[store] Module started successfully")
	return nil
}

// ensureSeed persists the default workspace collection on first run. It also
// performs the one-time normalization pass for legacy documents, since Load
// backfills ids and missing sequences before handing the document out.
func (m *StoreModule) ensureSeed(ctx context.Context) error {
	var count int64
	if err := m.db.WithContext(ctx).Model(&record{}).Where("key = ?", documentKey).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		doc, err := m.docs.Load(ctx)
		if err != nil {
			return err
		}
		return m.docs.Save(ctx, doc)
	}

	doc := SeedDocument()
	doc.Normalize()
	if err := m.docs.Save(ctx, doc); err != nil {
		return err
	}
	log.Println("[store] Seeded default workspace with #general channel")
	return nil
}

// Stop gracefully closes the database connection.
func (m *StoreModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	log.Println("[store] Closing database connection...")

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[store] Database connection closed")
	return nil
}

// Health performs a health check on the store module.
func (m *StoreModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}
