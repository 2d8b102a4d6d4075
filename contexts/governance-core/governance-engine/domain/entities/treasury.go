package entities

import "time"

type TreasuryEntryKind string

const (
	TreasuryEntryDeposit  TreasuryEntryKind = "deposit"
	TreasuryEntryDonation TreasuryEntryKind = "donation"
	TreasuryEntryTransfer TreasuryEntryKind = "transfer"
	TreasuryEntryRefund   TreasuryEntryKind = "refund"
)

// TreasuryEntry is one journal line. Deposits and donations credit the
// balance; transfers and refunds debit it.
type TreasuryEntry struct {
	EntryID      string
	Kind         TreasuryEntryKind
	Counterparty string
	ProposalID   *uint64
	Amount       uint64
	OccurredAt   time.Time
}

// Credit reports whether the entry increases the treasury balance.
func (e TreasuryEntry) Credit() bool {
	return e.Kind == TreasuryEntryDeposit || e.Kind == TreasuryEntryDonation
}
