// Package points implements the double-entry Protection Points ledger.
// Every operation creates matched DEBIT/CREDIT entries against the reward
// pool. SUM(debits) == SUM(credits) is an invariant, and a user balance
// never leaves [0, 1000].
package points

import (
	"fmt"
	"sync"
	"time"

	"github.com/coverquest/coverquest/internal/domain"
	"github.com/coverquest/coverquest/internal/infra/metrics"
	"github.com/coverquest/coverquest/internal/infra/sqlite"
)

// Service manages the Protection Points economy. Earn, Redeem, and
// AdminReset read balances before writing entries, and every operation
// rewrites the shared reward pool's running balance, so the whole ledger
// serializes behind one mutex. The engagement service calls Earn under its
// own per-user lock; the ledger lock is always the inner one.
type Service struct {
	db *sqlite.DB
	mu sync.Mutex
}

// NewService creates a points service.
func NewService(db *sqlite.DB) *Service {
	return &Service{db: db}
}

// Balance returns a user's current points balance.
func (s *Service) Balance(userID string) (int64, error) {
	return s.db.PointsBalance(domain.UserAccount(userID))
}

// Tier returns the user's current reward tier.
func (s *Service) Tier(userID string) (domain.Tier, error) {
	bal, err := s.Balance(userID)
	if err != nil {
		return "", err
	}
	return domain.TierForPoints(bal), nil
}

// Earn credits points for a completed challenge. The amount is clipped so
// the balance never exceeds the 1000-point ceiling; the clipped amount and
// the new balance are returned. An earn that would be clipped to zero writes
// no entries.
func (s *Service) Earn(userID string, amount int64, challengeID, reason string) (int64, int64, error) {
	if amount <= 0 {
		return 0, 0, fmt.Errorf("earn amount must be positive, got %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account := domain.UserAccount(userID)
	userBal, err := s.db.PointsBalance(account)
	if err != nil {
		return 0, 0, fmt.Errorf("get user balance: %w", err)
	}

	if userBal+amount > domain.PointsCeiling {
		amount = domain.PointsCeiling - userBal
	}
	if amount <= 0 {
		return 0, userBal, nil // Already at the ceiling
	}

	poolBal, err := s.db.PointsBalance(domain.RewardPoolAccount)
	if err != nil {
		return 0, 0, fmt.Errorf("get pool balance: %w", err)
	}

	now := time.Now()

	// DEBIT reward_pool (source of points)
	_, err = s.db.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp:   now,
		Type:        domain.TxEarn,
		EntryType:   domain.EntryDebit,
		Account:     domain.RewardPoolAccount,
		Amount:      amount,
		ChallengeID: challengeID,
		Description: reason,
		Balance:     poolBal - amount,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("debit reward pool: %w", err)
	}

	// CREDIT user account (destination)
	_, err = s.db.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp:   now,
		Type:        domain.TxEarn,
		EntryType:   domain.EntryCredit,
		Account:     account,
		Amount:      amount,
		ChallengeID: challengeID,
		Description: reason,
		Balance:     userBal + amount,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("credit user: %w", err)
	}

	metrics.PointsEarned.Add(float64(amount))
	return amount, userBal + amount, nil
}

// Redeem spends points on a reward. Fails with ErrInsufficientPoints when
// the balance cannot cover the amount.
func (s *Service) Redeem(userID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("redeem amount must be positive, got %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account := domain.UserAccount(userID)
	userBal, err := s.db.PointsBalance(account)
	if err != nil {
		return 0, fmt.Errorf("get user balance: %w", err)
	}
	if userBal < amount {
		return 0, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientPoints, userBal, amount)
	}

	poolBal, err := s.db.PointsBalance(domain.RewardPoolAccount)
	if err != nil {
		return 0, fmt.Errorf("get pool balance: %w", err)
	}

	now := time.Now()

	// DEBIT user account
	_, err = s.db.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp:   now,
		Type:        domain.TxRedeem,
		EntryType:   domain.EntryDebit,
		Account:     account,
		Amount:      amount,
		Description: reason,
		Balance:     userBal - amount,
	})
	if err != nil {
		return 0, err
	}

	// CREDIT reward_pool
	_, err = s.db.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp:   now,
		Type:        domain.TxRedeem,
		EntryType:   domain.EntryCredit,
		Account:     domain.RewardPoolAccount,
		Amount:      amount,
		Description: reason,
		Balance:     poolBal + amount,
	})
	if err != nil {
		return 0, err
	}

	metrics.PointsRedeemed.Add(float64(amount))
	return userBal - amount, nil
}

// AdminReset zeroes a user's balance through an ADJUST transaction. The
// ledger keeps the full history — nothing is deleted.
func (s *Service) AdminReset(userID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := domain.UserAccount(userID)
	userBal, err := s.db.PointsBalance(account)
	if err != nil {
		return fmt.Errorf("get user balance: %w", err)
	}
	if userBal == 0 {
		return nil
	}

	poolBal, err := s.db.PointsBalance(domain.RewardPoolAccount)
	if err != nil {
		return fmt.Errorf("get pool balance: %w", err)
	}

	now := time.Now()
	_, err = s.db.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp:   now,
		Type:        domain.TxAdjust,
		EntryType:   domain.EntryDebit,
		Account:     account,
		Amount:      userBal,
		Description: reason,
		Balance:     0,
	})
	if err != nil {
		return err
	}
	_, err = s.db.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp:   now,
		Type:        domain.TxAdjust,
		EntryType:   domain.EntryCredit,
		Account:     domain.RewardPoolAccount,
		Amount:      userBal,
		Description: reason,
		Balance:     poolBal + userBal,
	})
	return err
}

// History returns recent ledger entries for a user.
func (s *Service) History(userID string, limit int) ([]domain.LedgerEntry, error) {
	return s.db.LedgerEntries(domain.UserAccount(userID), limit)
}
