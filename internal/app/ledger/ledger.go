// Package ledger keeps a double-entry audit trail of every coin movement.
// Each movement writes a matched DEBIT/CREDIT pair between the reward pool
// and the wallet, so SUM(debits) == SUM(credits) always holds.
package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/domain"
)

// Store is the persistence the ledger needs.
type Store interface {
	InsertLedgerPair(debit, credit domain.LedgerEntry) error
	LedgerBalance(account string) (int64, error)
	LedgerTotals() (debits, credits int64, err error)
	LedgerEntries(account string, limit int) ([]domain.LedgerEntry, error)
}

// Service records engine coin events into the ledger.
type Service struct {
	store Store
	log   *zap.Logger
}

// NewService creates a ledger service.
func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// Record is an engine listener. Coin events become ledger pairs; write
// failures are logged because the engine state is already committed.
func (s *Service) Record(c domain.Change) {
	if err := s.Apply(c); err != nil {
		s.log.Error("ledger write failed", zap.Error(err))
	}
}

// Apply writes the ledger pairs for the coin events in c.
func (s *Service) Apply(c domain.Change) error {
	for _, ev := range c.Events {
		var err error
		switch ev.Type {
		case domain.EventCoinsAdded:
			err = s.earn(ev)
		case domain.EventCoinsSpent:
			err = s.spend(ev)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("record %s %d: %w", ev.Type, ev.Amount, err)
		}
	}
	return nil
}

// earn moves coins from the reward pool into the wallet.
func (s *Service) earn(ev domain.Event) error {
	poolBal, err := s.store.LedgerBalance(domain.AccountRewardPool)
	if err != nil {
		return fmt.Errorf("get pool balance: %w", err)
	}
	id := uuid.NewString()
	return s.store.InsertLedgerPair(
		domain.LedgerEntry{
			EventID:     id,
			Timestamp:   ev.At,
			Type:        domain.TxEarn,
			EntryType:   domain.EntryDebit,
			Account:     domain.AccountRewardPool,
			Amount:      ev.Amount,
			Description: ev.Ref,
			Balance:     poolBal - ev.Amount,
		},
		domain.LedgerEntry{
			EventID:     id,
			Timestamp:   ev.At,
			Type:        domain.TxEarn,
			EntryType:   domain.EntryCredit,
			Account:     domain.AccountWallet,
			Amount:      ev.Amount,
			Description: ev.Ref,
			Balance:     ev.Balance,
		},
	)
}

// spend moves coins from the wallet back to the reward pool.
func (s *Service) spend(ev domain.Event) error {
	poolBal, err := s.store.LedgerBalance(domain.AccountRewardPool)
	if err != nil {
		return fmt.Errorf("get pool balance: %w", err)
	}
	id := uuid.NewString()
	return s.store.InsertLedgerPair(
		domain.LedgerEntry{
			EventID:     id,
			Timestamp:   ev.At,
			Type:        domain.TxSpend,
			EntryType:   domain.EntryDebit,
			Account:     domain.AccountWallet,
			Amount:      ev.Amount,
			Description: ev.Ref,
			Balance:     ev.Balance,
		},
		domain.LedgerEntry{
			EventID:     id,
			Timestamp:   ev.At,
			Type:        domain.TxSpend,
			EntryType:   domain.EntryCredit,
			Account:     domain.AccountRewardPool,
			Amount:      ev.Amount,
			Description: ev.Ref,
			Balance:     poolBal + ev.Amount,
		},
	)
}

// History returns recent wallet entries, newest first.
func (s *Service) History(limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.LedgerEntries(domain.AccountWallet, limit)
}

// Audit checks the double-entry invariant.
func (s *Service) Audit() (domain.LedgerAudit, error) {
	debits, credits, err := s.store.LedgerTotals()
	if err != nil {
		return domain.LedgerAudit{}, fmt.Errorf("ledger totals: %w", err)
	}
	wallet, err := s.store.LedgerBalance(domain.AccountWallet)
	if err != nil {
		return domain.LedgerAudit{}, fmt.Errorf("wallet balance: %w", err)
	}
	return domain.LedgerAudit{
		Debits:   debits,
		Credits:  credits,
		Wallet:   wallet,
		Balanced: debits == credits,
	}, nil
}
