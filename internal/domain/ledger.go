// Package domain — Protection Points ledger types.
// Points are a redeemable 0–1000 balance, kept double-entry: every operation
// creates matched DEBIT/CREDIT rows against the reward pool account.
package domain

import "time"

// PointsCeiling is the hard upper bound on a user's Protection Points
// balance. Earning beyond it is clipped at grant time.
const PointsCeiling int64 = 1000

// TxType categorizes a points transaction.
type TxType string

const (
	TxEarn   TxType = "EARN"
	TxRedeem TxType = "REDEEM"
	TxAdjust TxType = "ADJUST" // admin reset path
)

// EntryType is the double-entry side.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// RewardPoolAccount is the system-side account all user entries balance
// against.
const RewardPoolAccount = "reward_pool"

// UserAccount returns the ledger account name for a user.
func UserAccount(userID string) string {
	return "user:" + userID
}

// LedgerEntry is one row of the points ledger.
type LedgerEntry struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        TxType    `json:"type"`
	EntryType   EntryType `json:"entry_type"`
	Account     string    `json:"account"`
	Amount      int64     `json:"amount"`
	ChallengeID string    `json:"challenge_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Balance     int64     `json:"balance"` // account balance after this entry
}

// ─── Tiers ──────────────────────────────────────────────────────────────────

// Tier is the reward bracket derived from the points balance.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Tier thresholds on the 0–1000 points scale.
const (
	SilverThreshold   int64 = 250
	GoldThreshold     int64 = 500
	PlatinumThreshold int64 = 750
)

// TierForPoints maps a points balance to its tier bracket.
func TierForPoints(points int64) Tier {
	switch {
	case points >= PlatinumThreshold:
		return TierPlatinum
	case points >= GoldThreshold:
		return TierGold
	case points >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}
