package services

import (
	"fmt"
	"testing"

	"acczen/database"
	"acczen/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Named shared-cache DSN so every pool connection sees the same
	// in-memory database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	// SQLite has no SELECT ... FOR UPDATE
	db.ClauseBuilders[clause.Locking{}.Name()] = func(c clause.Clause, builder clause.Builder) {}

	require.NoError(t, database.Migrate(db))
	database.DB = db
	return db
}

func TestApplyBalanceDelta_CreditWritesLedgerRow(t *testing.T) {
	db := setupTestDB(t)
	user := models.User{Email: "a@example.com", Balance: 1000, IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyBalanceDelta(tx, &user, 500, models.TrxDeposit, "ref-1", "test credit")
		return err
	})
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, float64(1500), reloaded.Balance)

	var entry models.Transaction
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, float64(500), entry.Amount)
	assert.Equal(t, float64(1000), entry.BalanceBefore)
	assert.Equal(t, float64(1500), entry.BalanceAfter)
	assert.Equal(t, "ref-1", entry.RefID)
}

func TestApplyBalanceDelta_OverdraftRejected(t *testing.T) {
	db := setupTestDB(t)
	user := models.User{Email: "b@example.com", Balance: 100, IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyBalanceDelta(tx, &user, -500, models.TrxPurchase, "ref-2", "too much")
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, float64(100), reloaded.Balance)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApplyBalanceDelta_LedgerSumsToBalance(t *testing.T) {
	db := setupTestDB(t)
	user := models.User{Email: "c@example.com", Balance: 0, IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	deltas := []float64{100000, -30000, 50000, -20000}
	types := []string{models.TrxDeposit, models.TrxPurchase, models.TrxDeposit, models.TrxPurchase}

	for i, delta := range deltas {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := ApplyBalanceDelta(tx, &user, delta, types[i], "", "")
			return err
		})
		require.NoError(t, err)
	}

	var sum float64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("user_id = ?", user.ID).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, reloaded.Balance, sum)
	assert.Equal(t, float64(100000), reloaded.Balance)
}
