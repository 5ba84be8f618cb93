package deposit_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"acczen/database"
	"acczen/helpers"
	"acczen/models"
	"acczen/routes"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupApp(t *testing.T) *fiber.App {
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

	app := fiber.New()
	routes.Setup(app)
	return app
}

func createUser(t *testing.T, balance float64) (models.User, string) {
	t.Helper()
	user := models.User{
		Email:       fmt.Sprintf("depositor%d@example.com", time.Now().UnixNano()),
		Role:        models.RoleUser,
		Balance:     balance,
		LoyaltyTier: "bronze",
		IsActive:    true,
	}
	require.NoError(t, database.DB.Create(&user).Error)

	token, err := helpers.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return user, token
}

func explorerStub(t *testing.T, amountStr string, confirmed bool, to string) {
	t.Helper()
	contractRet := "SUCCESS"
	if !confirmed {
		contractRet = "REVERT"
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"hash": %q,
			"confirmed": true,
			"contractRet": %q,
			"trc20TransferInfo": [{
				"contract_address": "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
				"from_address": "TSender",
				"to_address": %q,
				"symbol": "USDT",
				"decimals": 6,
				"amount_str": %q
			}]
		}`, r.URL.Query().Get("hash"), contractRet, to, amountStr)
	}))
	t.Cleanup(server.Close)
	t.Setenv("TRON_API_URL", server.URL)
	t.Setenv("USDT_WALLET_ADDRESS", "TShopWallet")
}

func postJSON(t *testing.T, app *fiber.App, path, token string, payload any) (*http.Response, envelope) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func createPendingDeposit(t *testing.T, userID uint, usdtAmount string, vndAmount float64) models.Deposit {
	t.Helper()
	dep := models.Deposit{
		UserID:        userID,
		Amount:        vndAmount,
		Status:        models.DepositPending,
		PaymentMethod: models.PaymentUSDT,
		UsdtAmount:    decimal.RequireFromString(usdtAmount),
	}
	require.NoError(t, database.DB.Create(&dep).Error)
	return dep
}

func TestVerifyUsdt_AmountMismatchLeavesDepositPending(t *testing.T) {
	app := setupApp(t)
	// expected 100, chain has 100.5 — outside the 0.01 tolerance
	explorerStub(t, "100500000", true, "TShopWallet")

	user, token := createUser(t, 0)
	dep := createPendingDeposit(t, user.ID, "100", 2500000)

	_, env := postJSON(t, app, "/api/deposits/usdt/verify", token, fiber.Map{
		"deposit_id": dep.ID,
		"txn_hash":   "hash-mismatch",
	})

	assert.False(t, env.Success)
	assert.Equal(t, "AMOUNT_MISMATCH", env.Message)

	var reloaded models.Deposit
	require.NoError(t, database.DB.First(&reloaded, dep.ID).Error)
	assert.Equal(t, models.DepositPending, reloaded.Status)

	var reloadedUser models.User
	require.NoError(t, database.DB.First(&reloadedUser, user.ID).Error)
	assert.Equal(t, float64(0), reloadedUser.Balance)
}

func TestVerifyUsdt_WithinToleranceCredits(t *testing.T) {
	app := setupApp(t)
	// expected 100, chain has 100.005 — inside tolerance
	explorerStub(t, "100005000", true, "TShopWallet")

	user, token := createUser(t, 0)
	dep := createPendingDeposit(t, user.ID, "100", 2500000)

	_, env := postJSON(t, app, "/api/deposits/usdt/verify", token, fiber.Map{
		"deposit_id": dep.ID,
		"txn_hash":   "hash-good",
	})

	require.True(t, env.Success, "message: %s", env.Message)

	var reloaded models.Deposit
	require.NoError(t, database.DB.First(&reloaded, dep.ID).Error)
	assert.Equal(t, models.DepositCompleted, reloaded.Status)
	require.NotNil(t, reloaded.TxnHash)
	assert.Equal(t, "hash-good", *reloaded.TxnHash)

	var reloadedUser models.User
	require.NoError(t, database.DB.First(&reloadedUser, user.ID).Error)
	assert.Equal(t, float64(2500000), reloadedUser.Balance)

	var ledger models.Transaction
	require.NoError(t, database.DB.Where("user_id = ? AND trx_type = ?", user.ID, models.TrxDeposit).
		First(&ledger).Error)
	assert.Equal(t, float64(2500000), ledger.Amount)
}

func TestVerifyUsdt_SameHashNeverCreditsTwice(t *testing.T) {
	app := setupApp(t)
	explorerStub(t, "100000000", true, "TShopWallet")

	user, token := createUser(t, 0)
	first := createPendingDeposit(t, user.ID, "100", 2500000)

	_, env := postJSON(t, app, "/api/deposits/usdt/verify", token, fiber.Map{
		"deposit_id": first.ID,
		"txn_hash":   "hash-reused",
	})
	require.True(t, env.Success, "message: %s", env.Message)

	second := createPendingDeposit(t, user.ID, "100", 2500000)
	_, env = postJSON(t, app, "/api/deposits/usdt/verify", token, fiber.Map{
		"deposit_id": second.ID,
		"txn_hash":   "hash-reused",
	})

	assert.False(t, env.Success)
	assert.Equal(t, "ALREADY_CREDITED", env.Message)

	var reloadedUser models.User
	require.NoError(t, database.DB.First(&reloadedUser, user.ID).Error)
	assert.Equal(t, float64(2500000), reloadedUser.Balance, "credited exactly once")
}

func TestVerifyUsdt_UnconfirmedTransferRejected(t *testing.T) {
	app := setupApp(t)
	explorerStub(t, "100000000", false, "TShopWallet")

	user, token := createUser(t, 0)
	dep := createPendingDeposit(t, user.ID, "100", 2500000)

	_, env := postJSON(t, app, "/api/deposits/usdt/verify", token, fiber.Map{
		"deposit_id": dep.ID,
		"txn_hash":   "hash-unconfirmed",
	})

	assert.False(t, env.Success)
	assert.Equal(t, "TX_NOT_CONFIRMED", env.Message)

	var reloadedUser models.User
	require.NoError(t, database.DB.First(&reloadedUser, user.ID).Error)
	assert.Equal(t, float64(0), reloadedUser.Balance)
}

func TestVerifyUsdt_WrongRecipientRejected(t *testing.T) {
	app := setupApp(t)
	explorerStub(t, "100000000", true, "TSomeoneElse")

	user, token := createUser(t, 0)
	dep := createPendingDeposit(t, user.ID, "100", 2500000)

	_, env := postJSON(t, app, "/api/deposits/usdt/verify", token, fiber.Map{
		"deposit_id": dep.ID,
		"txn_hash":   "hash-wrong-wallet",
	})

	assert.False(t, env.Success)
	assert.Equal(t, "WRONG_RECIPIENT", env.Message)
}

func TestCreateUsdt_RecordsPendingDeposit(t *testing.T) {
	app := setupApp(t)
	t.Setenv("USDT_VND_RATE", "25000")

	user, token := createUser(t, 0)

	_, env := postJSON(t, app, "/api/deposits/usdt", token, fiber.Map{
		"usdt_amount": "40",
	})
	require.True(t, env.Success, "message: %s", env.Message)

	var dep models.Deposit
	require.NoError(t, database.DB.Where("user_id = ?", user.ID).First(&dep).Error)
	assert.Equal(t, models.DepositPending, dep.Status)
	assert.Equal(t, float64(1000000), dep.Amount)
	assert.True(t, dep.UsdtAmount.Equal(decimal.NewFromInt(40)))
}
