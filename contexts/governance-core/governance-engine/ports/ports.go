package ports

import (
	"context"
	"time"

	contractsv1 "agora/contracts/gen/events/v1"
	"agora/contexts/governance-core/governance-engine/domain/entities"
)

// MembershipRegistry owns the member records, the dense active-member index
// and the running total of active voting power. Implementations keep the
// index swap-with-last on removal, so iteration order is not stable across
// removals.
type MembershipRegistry interface {
	IsInitialized(ctx context.Context) (bool, error)
	MarkInitialized(ctx context.Context) error

	// AddMember activates a member and appends it to the active index.
	// Returns ErrMemberExists when the address is already active.
	AddMember(ctx context.Context, member entities.Member) error

	// DeactivateMember soft-deletes a member, removes it from the active
	// index via swap-with-last, and decrements total voting power. Returns
	// the deactivated record, or ErrMemberNotFound / ErrMemberInactive.
	DeactivateMember(ctx context.Context, address string) (entities.Member, error)

	GetMember(ctx context.Context, address string) (entities.Member, bool, error)

	// ListActiveMembers snapshots the active index in current slot order.
	ListActiveMembers(ctx context.Context) ([]entities.Member, error)

	TotalVotingPower(ctx context.Context) (uint64, error)
}

// ProposalRepository owns proposals and their per-voter ballots.
type ProposalRepository interface {
	// CreateProposal assigns the next sequential id (0-based) and persists
	// the proposal. The stored proposal is returned.
	CreateProposal(ctx context.Context, proposal entities.Proposal) (entities.Proposal, error)

	GetProposal(ctx context.Context, id uint64) (entities.Proposal, error)
	ListProposals(ctx context.Context) ([]entities.Proposal, error)
	CountProposals(ctx context.Context) (uint64, error)

	// RecordBallot atomically writes the ballot and adds its power to the
	// matching tally. Returns ErrAlreadyVoted when a ballot already exists
	// for (proposal, voter); no two callers may both observe "not yet
	// voted" for the same pair.
	RecordBallot(ctx context.Context, ballot entities.Ballot) error

	GetBallot(ctx context.Context, proposalID uint64, voter string) (entities.Ballot, bool, error)

	// MarkExecuted flips executed false->true exactly once. A second call
	// returns ErrAlreadyExecuted regardless of caller.
	MarkExecuted(ctx context.Context, id uint64, executedAt time.Time) error

	// SetExecutionOutcome records the financial success flag after the
	// payout attempt. The proposal must already be marked executed.
	SetExecutionOutcome(ctx context.Context, id uint64, success bool) error

	// ListExecutable returns proposals whose window has elapsed and which
	// are not yet executed, oldest first.
	ListExecutable(ctx context.Context, now time.Time, limit int) ([]entities.Proposal, error)
}

// TreasuryLedger tracks the available balance and journals every movement.
// The balance is only moved through engine-authorized entries.
type TreasuryLedger interface {
	Balance(ctx context.Context) (uint64, error)

	// Credit applies a deposit/donation entry. Always succeeds for a valid
	// credit entry.
	Credit(ctx context.Context, entry entities.TreasuryEntry) error

	// Transfer applies a transfer/refund debit entry. Returns
	// ErrInsufficientFunds when the balance cannot cover the amount at
	// transfer time, or ErrTransferRejected when the external recipient
	// declines receipt. Internal state is unchanged on either failure.
	Transfer(ctx context.Context, entry entities.TreasuryEntry) error

	ListEntries(ctx context.Context, limit int) ([]entities.TreasuryEntry, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
