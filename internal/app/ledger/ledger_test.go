package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascend-hq/ascend/internal/app/catalog"
	"github.com/ascend-hq/ascend/internal/app/gamification"
	"github.com/ascend-hq/ascend/internal/app/ledger"
	"github.com/ascend-hq/ascend/internal/domain"
	"github.com/ascend-hq/ascend/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLedger_RecordsEngineCoinMovements(t *testing.T) {
	db := newTestDB(t)
	svc := ledger.NewService(db, nil)

	eng := gamification.New(catalog.Default())
	defer eng.Dispose()
	eng.Subscribe(svc.Record)

	eng.AddCoins(50)
	require.Equal(t, domain.OutcomeApplied, eng.SpendCoins(30))
	eng.AddXP(100) // level 2 pays 100 coins
	require.Equal(t, domain.OutcomeDenied, eng.SpendCoins(10_000))

	audit, err := svc.Audit()
	require.NoError(t, err)
	assert.True(t, audit.Balanced)
	assert.Equal(t, int64(180), audit.Debits)
	assert.Equal(t, int64(180), audit.Credits)
	assert.Equal(t, eng.Coins(), audit.Wallet)

	hist, err := svc.History(10)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, domain.TxEarn, hist[0].Type)
	assert.Equal(t, "level_up", hist[0].Description)
	assert.Equal(t, domain.TxSpend, hist[1].Type)
	assert.Equal(t, domain.EntryDebit, hist[1].EntryType)
	assert.NotEmpty(t, hist[0].EventID)
}

func TestLedger_IgnoresNonCoinEvents(t *testing.T) {
	db := newTestDB(t)
	svc := ledger.NewService(db, nil)

	err := svc.Apply(domain.Change{Events: []domain.Event{
		{Type: domain.EventXPAdded, Amount: 40},
		{Type: domain.EventSpendDenied, Amount: 500},
		{Type: domain.EventBadgeEarned, Ref: "coach"},
	}})
	require.NoError(t, err)

	hist, err := svc.History(0)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestLedger_PoolGoesNegativeAsCoinsAreMinted(t *testing.T) {
	db := newTestDB(t)
	svc := ledger.NewService(db, nil)
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, svc.Apply(domain.Change{Events: []domain.Event{
		{Type: domain.EventCoinsAdded, Amount: 40, Balance: 140, At: now},
		{Type: domain.EventCoinsSpent, Amount: 15, Balance: 125, At: now},
	}}))

	pool, err := db.LedgerBalance(domain.AccountRewardPool)
	require.NoError(t, err)
	assert.Equal(t, int64(-25), pool)
}

// failingStore fails every write.
type failingStore struct{}

func (failingStore) InsertLedgerPair(domain.LedgerEntry, domain.LedgerEntry) error {
	return errors.New("disk full")
}

func (failingStore) LedgerBalance(string) (int64, error) { return 0, nil }

func (failingStore) LedgerTotals() (int64, int64, error) { return 0, 0, nil }

func (failingStore) LedgerEntries(string, int) ([]domain.LedgerEntry, error) { return nil, nil }

func TestLedger_WriteFailureDoesNotPanic(t *testing.T) {
	svc := ledger.NewService(failingStore{}, nil)
	err := svc.Apply(domain.Change{Events: []domain.Event{{Type: domain.EventCoinsAdded, Amount: 5}}})
	require.Error(t, err)

	assert.NotPanics(t, func() {
		svc.Record(domain.Change{Events: []domain.Event{{Type: domain.EventCoinsAdded, Amount: 5}}})
	})
}
