package queries

import (
	"context"
	"strings"
	"time"

	"agora/contexts/governance-core/governance-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/governance-engine/domain/errors"
	"agora/contexts/governance-core/governance-engine/ports"
)

// Views exposes the read side of the DAO. All methods are pure reads.
type Views struct {
	Members   ports.MembershipRegistry
	Proposals ports.ProposalRepository
	Treasury  ports.TreasuryLedger
	Clock     ports.Clock
}

// DAOStats is the aggregate snapshot returned by the stats endpoint.
type DAOStats struct {
	Initialized      bool
	MemberCount      int
	TotalVotingPower uint64
	ProposalCount    uint64
	TreasuryBalance  uint64
}

// ProposalView pairs a proposal with its derived lifecycle status.
type ProposalView struct {
	Proposal entities.Proposal
	Status   entities.ProposalStatus
}

func (v Views) GetProposal(ctx context.Context, id uint64) (ProposalView, error) {
	proposal, err := v.Proposals.GetProposal(ctx, id)
	if err != nil {
		return ProposalView{}, err
	}
	return ProposalView{
		Proposal: proposal,
		Status:   proposal.StatusAt(v.now(ctx)),
	}, nil
}

func (v Views) ListProposals(ctx context.Context) ([]ProposalView, error) {
	proposals, err := v.Proposals.ListProposals(ctx)
	if err != nil {
		return nil, err
	}
	now := v.now(ctx)
	views := make([]ProposalView, 0, len(proposals))
	for _, proposal := range proposals {
		views = append(views, ProposalView{
			Proposal: proposal,
			Status:   proposal.StatusAt(now),
		})
	}
	return views, nil
}

// HasVoted reports whether the voter holds a ballot on the proposal.
func (v Views) HasVoted(ctx context.Context, proposalID uint64, voter string) (bool, error) {
	if _, err := v.Proposals.GetProposal(ctx, proposalID); err != nil {
		return false, err
	}
	_, found, err := v.Proposals.GetBallot(ctx, proposalID, strings.TrimSpace(voter))
	if err != nil {
		return false, err
	}
	return found, nil
}

// GetBallot returns the recorded ballot, or ErrBallotNotFound when the voter
// has not voted.
func (v Views) GetBallot(ctx context.Context, proposalID uint64, voter string) (entities.Ballot, error) {
	if _, err := v.Proposals.GetProposal(ctx, proposalID); err != nil {
		return entities.Ballot{}, err
	}
	ballot, found, err := v.Proposals.GetBallot(ctx, proposalID, strings.TrimSpace(voter))
	if err != nil {
		return entities.Ballot{}, err
	}
	if !found {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	return ballot, nil
}

// ListMembers snapshots the active member index in its current slot order.
func (v Views) ListMembers(ctx context.Context) ([]entities.Member, error) {
	return v.Members.ListActiveMembers(ctx)
}

// TreasuryReport pairs the current balance with the most recent journal
// entries.
type TreasuryReport struct {
	Balance uint64
	Entries []entities.TreasuryEntry
}

func (v Views) TreasuryEntries(ctx context.Context, limit int) (TreasuryReport, error) {
	balance, err := v.Treasury.Balance(ctx)
	if err != nil {
		return TreasuryReport{}, err
	}
	entries, err := v.Treasury.ListEntries(ctx, limit)
	if err != nil {
		return TreasuryReport{}, err
	}
	return TreasuryReport{Balance: balance, Entries: entries}, nil
}

func (v Views) Stats(ctx context.Context) (DAOStats, error) {
	initialized, err := v.Members.IsInitialized(ctx)
	if err != nil {
		return DAOStats{}, err
	}
	members, err := v.Members.ListActiveMembers(ctx)
	if err != nil {
		return DAOStats{}, err
	}
	totalPower, err := v.Members.TotalVotingPower(ctx)
	if err != nil {
		return DAOStats{}, err
	}
	proposalCount, err := v.Proposals.CountProposals(ctx)
	if err != nil {
		return DAOStats{}, err
	}
	balance, err := v.Treasury.Balance(ctx)
	if err != nil {
		return DAOStats{}, err
	}
	return DAOStats{
		Initialized:      initialized,
		MemberCount:      len(members),
		TotalVotingPower: totalPower,
		ProposalCount:    proposalCount,
		TreasuryBalance:  balance,
	}, nil
}

func (v Views) now(_ context.Context) time.Time {
	if v.Clock != nil {
		return v.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
