package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validTransaction() *Transaction {
	extID := "ext-1"
	return &Transaction{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		ExternalID: &extID,
		Symbol:     "BTC",
		Type:       TxTypeBuy,
		Amount:     decimal.RequireFromString("0.01"),
		OccurredAt: time.Now(),
		BatchID:    "01J0000000000000000000TEST",
	}
}

func TestTransactionValidate_Valid(t *testing.T) {
	tx := validTransaction()
	assert.NoError(t, tx.Validate())
}

func TestTransactionValidate_NilExternalIDIsAllowed(t *testing.T) {
	tx := validTransaction()
	tx.ExternalID = nil
	assert.NoError(t, tx.Validate())
}

func TestTransactionValidate_MissingUser(t *testing.T) {
	tx := validTransaction()
	tx.UserID = uuid.Nil
	assert.Error(t, tx.Validate())
}

func TestTransactionValidate_EmptySymbol(t *testing.T) {
	tx := validTransaction()
	tx.Symbol = "  "
	assert.Error(t, tx.Validate())
}

func TestTransactionValidate_MissingType(t *testing.T) {
	tx := validTransaction()
	tx.Type = ""
	assert.Error(t, tx.Validate())
}

func TestTransactionValidate_ZeroAmount(t *testing.T) {
	tx := validTransaction()
	tx.Amount = decimal.Zero
	assert.Error(t, tx.Validate())
}

func TestTransactionValidate_NegativeAmount(t *testing.T) {
	tx := validTransaction()
	tx.Amount = decimal.RequireFromString("-1")
	assert.Error(t, tx.Validate())
}

func TestTransactionValidate_ZeroOccurredAt(t *testing.T) {
	tx := validTransaction()
	tx.OccurredAt = time.Time{}
	assert.Error(t, tx.Validate())
}

func TestSignedAmount_BuyAdds(t *testing.T) {
	tx := validTransaction()
	tx.Type = TxTypeBuy
	assert.True(t, tx.SignedAmount().Equal(tx.Amount))
}

func TestSignedAmount_SellSubtracts(t *testing.T) {
	tx := validTransaction()
	tx.Type = TxTypeSell
	assert.True(t, tx.SignedAmount().Equal(tx.Amount.Neg()))
}

func TestSignedAmount_UnknownTypeAdds(t *testing.T) {
	// Types beyond BUY/SELL are applied additively by the ledger.
	tx := validTransaction()
	tx.Type = TxType("AIRDROP")
	assert.True(t, tx.SignedAmount().Equal(tx.Amount))
}
