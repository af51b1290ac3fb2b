package domain

import "time"

// ─── Coin Ledger ────────────────────────────────────────────────────────────
// Every coin movement is a matched DEBIT/CREDIT pair between the reward pool
// and the wallet. SUM(debits) == SUM(credits).

// EntryType represents the accounting side of a ledger entry.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// TransactionType represents the business reason for a coin movement.
type TransactionType string

const (
	TxEarn  TransactionType = "EARN"
	TxSpend TransactionType = "SPEND"
)

// Ledger accounts.
const (
	AccountWallet     = "wallet"
	AccountRewardPool = "reward_pool"
)

// LedgerEntry is a single row in the coin ledger.
type LedgerEntry struct {
	ID          int64           `json:"id"`
	EventID     string          `json:"event_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        TransactionType `json:"type"`
	EntryType   EntryType       `json:"entry_type"`
	Account     string          `json:"account"`
	Amount      int64           `json:"amount"`
	Description string          `json:"description,omitempty"`
	Balance     int64           `json:"balance"`
}

// LedgerAudit summarizes the ledger's balance invariant.
type LedgerAudit struct {
	Debits   int64 `json:"debits"`
	Credits  int64 `json:"credits"`
	Wallet   int64 `json:"wallet"`
	Balanced bool  `json:"balanced"`
}
