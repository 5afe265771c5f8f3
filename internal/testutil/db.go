// Package testutil holds database and event helpers shared by the package
// tests of the fulfillment service.
package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table the service owns, in dependency order
func Models() []any {
	return []any{
		&models.ProductModel{},
		&models.WalletModel{},
		&models.WalletTransactionModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.OutboxEntryModel{},
	}
}

// NewSQLiteDB returns a migrated in-memory SQLite database private to the
// test. The pool is capped at one connection, so transactions run one after
// another the way row locks would order them on PostgreSQL.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open SQLite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(Models()...), "Failed to migrate SQLite")

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// MockDB is a GORM connection backed by sqlmock, speaking PostgreSQL
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a sqlmock-backed database; it is closed on cleanup and
// unmet expectations fail the test
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open GORM connection")

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet(), "Unmet database expectations")
		_ = sqlDB.Close()
	})

	return &MockDB{DB: gormDB, Mock: mock, SqlDB: sqlDB}
}
