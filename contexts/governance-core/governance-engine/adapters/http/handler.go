package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"agora/contexts/governance-core/governance-engine/application/commands"
	"agora/contexts/governance-core/governance-engine/application/queries"
	"agora/contexts/governance-core/governance-engine/domain/entities"
	httptransport "agora/contexts/governance-core/governance-engine/transport/http"
)

type Handler struct {
	Engine *commands.Engine
	Views  queries.Views
	Logger *slog.Logger
}

func (h Handler) InitializeDAOHandler(ctx context.Context, callerID string, req httptransport.InitializeDAORequest) error {
	members := make([]commands.MemberInput, 0, len(req.Members))
	for _, input := range req.Members {
		members = append(members, commands.MemberInput{
			Address:     input.Address,
			VotingPower: input.VotingPower,
		})
	}
	return h.Engine.InitializeDAO(ctx, commands.InitializeDAOCommand{
		CallerID: callerID,
		Members:  members,
	})
}

func (h Handler) AddMemberHandler(ctx context.Context, callerID string, req httptransport.AddMemberRequest) (httptransport.MemberResponse, error) {
	member, err := h.Engine.AddMember(ctx, commands.AddMemberCommand{
		CallerID:    callerID,
		Address:     req.Address,
		VotingPower: req.VotingPower,
	})
	if err != nil {
		return httptransport.MemberResponse{}, err
	}
	return mapMember(member), nil
}

func (h Handler) RemoveMemberHandler(ctx context.Context, callerID string, address string) error {
	return h.Engine.RemoveMember(ctx, commands.RemoveMemberCommand{
		CallerID: callerID,
		Address:  address,
	})
}

func (h Handler) ListMembersHandler(ctx context.Context) (httptransport.MembersResponse, error) {
	members, err := h.Views.ListMembers(ctx)
	if err != nil {
		return httptransport.MembersResponse{}, err
	}
	items := make([]httptransport.MemberResponse, 0, len(members))
	for _, member := range members {
		items = append(items, mapMember(member))
	}
	return httptransport.MembersResponse{Items: items}, nil
}

func (h Handler) CreateProposalHandler(ctx context.Context, callerID string, req httptransport.CreateProposalRequest) (httptransport.ProposalResponse, error) {
	proposal, err := h.Engine.CreateProposal(ctx, commands.CreateProposalCommand{
		CallerID:    callerID,
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Recipient:   req.Recipient,
		Deposit:     req.Deposit,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal, string(entities.ProposalStatusOpen)), nil
}

func (h Handler) GetProposalHandler(ctx context.Context, proposalID uint64) (httptransport.ProposalResponse, error) {
	view, err := h.Views.GetProposal(ctx, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(view.Proposal, string(view.Status)), nil
}

func (h Handler) ListProposalsHandler(ctx context.Context) (httptransport.ProposalsResponse, error) {
	views, err := h.Views.ListProposals(ctx)
	if err != nil {
		return httptransport.ProposalsResponse{}, err
	}
	items := make([]httptransport.ProposalResponse, 0, len(views))
	for _, view := range views {
		items = append(items, mapProposal(view.Proposal, string(view.Status)))
	}
	return httptransport.ProposalsResponse{Items: items}, nil
}

func (h Handler) CastVoteHandler(ctx context.Context, callerID string, proposalID uint64, req httptransport.CastVoteRequest) (httptransport.BallotResponse, error) {
	ballot, err := h.Engine.CastVote(ctx, commands.CastVoteCommand{
		CallerID:   callerID,
		ProposalID: proposalID,
		Support:    req.Support,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) GetBallotHandler(ctx context.Context, proposalID uint64, voter string) (httptransport.BallotResponse, error) {
	ballot, err := h.Views.GetBallot(ctx, proposalID, voter)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) ExecuteProposalHandler(ctx context.Context, callerID string, proposalID uint64) (httptransport.ExecuteProposalResponse, error) {
	result, err := h.Engine.ExecuteProposal(ctx, commands.ExecuteProposalCommand{
		ProposalID:  proposalID,
		TriggeredBy: callerID,
	})
	if err != nil {
		return httptransport.ExecuteProposalResponse{}, err
	}
	return httptransport.ExecuteProposalResponse{
		Proposal:         mapProposal(result.Proposal, string(entities.ProposalStatusExecuted)),
		Passed:           result.Passed,
		Success:          result.Success,
		QuorumRequired:   result.QuorumRequired,
		MajorityRequired: result.MajorityRequired,
	}, nil
}

func (h Handler) ReceiveDonationHandler(ctx context.Context, req httptransport.DonationRequest) error {
	return h.Engine.ReceiveDonation(ctx, commands.ReceiveDonationCommand{
		From:   req.From,
		Amount: req.Amount,
	})
}

func (h Handler) TreasuryEntriesHandler(ctx context.Context, limit int) (httptransport.TreasuryEntriesResponse, error) {
	report, err := h.Views.TreasuryEntries(ctx, limit)
	if err != nil {
		return httptransport.TreasuryEntriesResponse{}, err
	}
	items := make([]httptransport.TreasuryEntryResponse, 0, len(report.Entries))
	for _, entry := range report.Entries {
		items = append(items, httptransport.TreasuryEntryResponse{
			EntryID:      entry.EntryID,
			Kind:         string(entry.Kind),
			Counterparty: entry.Counterparty,
			ProposalID:   entry.ProposalID,
			Amount:       entry.Amount,
			OccurredAt:   entry.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	return httptransport.TreasuryEntriesResponse{
		Balance: report.Balance,
		Items:   items,
	}, nil
}

func (h Handler) StatsHandler(ctx context.Context) (httptransport.StatsResponse, error) {
	stats, err := h.Views.Stats(ctx)
	if err != nil {
		return httptransport.StatsResponse{}, err
	}
	return httptransport.StatsResponse{
		Initialized:      stats.Initialized,
		MemberCount:      stats.MemberCount,
		TotalVotingPower: stats.TotalVotingPower,
		ProposalCount:    stats.ProposalCount,
		TreasuryBalance:  stats.TreasuryBalance,
	}, nil
}

func mapMember(member entities.Member) httptransport.MemberResponse {
	return httptransport.MemberResponse{
		Address:     member.Address,
		VotingPower: member.VotingPower,
		JoinedAt:    member.JoinedAt.UTC().Format(time.RFC3339),
		Active:      member.Active,
	}
}

func mapProposal(proposal entities.Proposal, status string) httptransport.ProposalResponse {
	resp := httptransport.ProposalResponse{
		ProposalID:       proposal.ID,
		Title:            proposal.Title,
		Description:      proposal.Description,
		Proposer:         proposal.Proposer,
		Amount:           proposal.Amount,
		Recipient:        proposal.Recipient,
		Deposit:          proposal.Deposit,
		VotesFor:         proposal.VotesFor,
		VotesAgainst:     proposal.VotesAgainst,
		StartTime:        proposal.StartTime.UTC().Format(time.RFC3339),
		EndTime:          proposal.EndTime.UTC().Format(time.RFC3339),
		Status:           status,
		Executed:         proposal.Executed,
		ExecutionSuccess: proposal.ExecutionSuccess,
	}
	if proposal.ExecutedAt != nil {
		resp.ExecutedAt = proposal.ExecutedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func mapBallot(ballot entities.Ballot) httptransport.BallotResponse {
	return httptransport.BallotResponse{
		ProposalID: ballot.ProposalID,
		Voter:      ballot.Voter,
		Support:    ballot.Support,
		Power:      ballot.Power,
		CastAt:     ballot.CastAt.UTC().Format(time.RFC3339),
	}
}
