package entities

import "time"

// ProposalStatus is the lifecycle position of a proposal at a given instant.
// Executed is terminal; the other states are derived from the voting window.
type ProposalStatus string

const (
	ProposalStatusOpen          ProposalStatus = "open"
	ProposalStatusClosedPending ProposalStatus = "closed_pending"
	ProposalStatusExecuted      ProposalStatus = "executed"
)

// Proposal is a governance action under vote. IDs are sequential starting at
// zero. Tallies only grow, only while the window is open, and only by the
// voter's power at the moment the ballot is cast.
type Proposal struct {
	ID          uint64
	Title       string
	Description string
	Proposer    string

	// Amount zero means a non-financial proposal; Recipient is empty then.
	Amount    uint64
	Recipient string
	Deposit   uint64

	VotesFor     uint64
	VotesAgainst uint64

	StartTime time.Time
	EndTime   time.Time

	Executed         bool
	ExecutedAt       *time.Time
	ExecutionSuccess bool
}

// StatusAt derives the lifecycle state for a point in time.
func (p Proposal) StatusAt(now time.Time) ProposalStatus {
	if p.Executed {
		return ProposalStatusExecuted
	}
	if now.UTC().After(p.EndTime.UTC()) {
		return ProposalStatusClosedPending
	}
	return ProposalStatusOpen
}

// VotingOpenAt reports whether a ballot may be cast at the given instant.
// Both window endpoints are inclusive.
func (p Proposal) VotingOpenAt(now time.Time) bool {
	instant := now.UTC()
	return !instant.Before(p.StartTime.UTC()) && !instant.After(p.EndTime.UTC())
}

// Financial reports whether execution moves treasury funds.
func (p Proposal) Financial() bool {
	return p.Amount > 0 && p.Recipient != ""
}

// TotalVotes is the participating voting power.
func (p Proposal) TotalVotes() uint64 {
	return p.VotesFor + p.VotesAgainst
}

// Ballot is the immutable per-voter record on one proposal. Power is the
// voter's power at cast time, not a snapshot from proposal creation.
type Ballot struct {
	ProposalID uint64
	Voter      string
	Support    bool
	Power      uint64
	CastAt     time.Time
}
