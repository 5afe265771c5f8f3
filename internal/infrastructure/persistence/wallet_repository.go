package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/finance"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWalletRepository implements finance.WalletRepository using GORM
type GormWalletRepository struct {
	db *gorm.DB
}

// NewGormWalletRepository creates a new GormWalletRepository
func NewGormWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

// FindByUserID finds the wallet owned by a user
func (r *GormWalletRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*finance.Wallet, error) {
	return r.findByUser(r.db.WithContext(ctx), userID)
}

// FindByUserIDForUpdate finds the user's wallet with SELECT ... FOR UPDATE
func (r *GormWalletRepository) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*finance.Wallet, error) {
	return r.findByUser(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *GormWalletRepository) findByUser(db *gorm.DB, userID uuid.UUID) (*finance.Wallet, error) {
	var model models.WalletModel
	if err := db.First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a wallet, leaving an existing wallet for the same user untouched
func (r *GormWalletRepository) Create(ctx context.Context, wallet *finance.Wallet) error {
	model := &models.WalletModel{}
	model.FromDomain(wallet)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(model).Error
}

// UpdateBalance persists the wallet's balance and version. The caller holds
// the row lock, so the stored version is always the one before the change.
func (r *GormWalletRepository) UpdateBalance(ctx context.Context, wallet *finance.Wallet) error {
	result := r.db.WithContext(ctx).Model(&models.WalletModel{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.Version-1).
		Updates(map[string]interface{}{
			"balance":    wallet.Balance,
			"version":    wallet.Version,
			"updated_at": wallet.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// ListUserIDs pages through wallet owners in ascending user id order,
// starting after the given id (uuid.Nil for the first page)
func (r *GormWalletRepository) ListUserIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.WalletModel{}).
		Where("user_id > ?", after).
		Order("user_id ASC").
		Limit(limit).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var _ finance.WalletRepository = (*GormWalletRepository)(nil)

// GormTransactionRepository implements finance.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create appends a ledger entry
func (r *GormTransactionRepository) Create(ctx context.Context, tx *finance.Transaction) error {
	model := &models.WalletTransactionModel{}
	model.FromDomain(tx)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByWallet lists a wallet's entries, newest first by default
func (r *GormTransactionRepository) FindByWallet(ctx context.Context, walletID uuid.UUID, filter shared.Filter) ([]finance.Transaction, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.WalletTransactionModel{}).Where("wallet_id = ?", walletID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.WalletTransactionModel
	if err := query.
		Order(orderClause(filter.OrderBy, TransactionSortFields, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toTransactions(rows), total, nil
}

// FindByReference lists the entries belonging to an order, oldest first
func (r *GormTransactionRepository) FindByReference(ctx context.Context, ref uuid.UUID) ([]finance.Transaction, error) {
	var rows []models.WalletTransactionModel
	if err := r.db.WithContext(ctx).
		Where("reference = ?", ref).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTransactions(rows), nil
}

// SumSignedByWallet returns the signed sum and the count of a wallet's entries
func (r *GormTransactionRepository) SumSignedByWallet(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, int64, error) {
	var rows []struct {
		Kind  finance.TransactionKind `gorm:"column:transaction_type"`
		Total decimal.Decimal
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&models.WalletTransactionModel{}).
		Select("transaction_type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("wallet_id = ?", walletID).
		Group("transaction_type").
		Scan(&rows).Error
	if err != nil {
		return decimal.Zero, 0, err
	}

	sum := decimal.Zero
	var count int64
	for _, row := range rows {
		switch row.Kind {
		case finance.TransactionKindCredit:
			sum = sum.Add(row.Total)
		case finance.TransactionKindDebit:
			sum = sum.Sub(row.Total)
		}
		count += row.Count
	}
	return sum, count, nil
}

func toTransactions(rows []models.WalletTransactionModel) []finance.Transaction {
	txs := make([]finance.Transaction, len(rows))
	for i := range rows {
		txs[i] = *rows[i].ToDomain()
	}
	return txs
}

var _ finance.TransactionRepository = (*GormTransactionRepository)(nil)
